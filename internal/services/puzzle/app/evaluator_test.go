package app

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
	"github.com/dailystump/stumpd/internal/services/puzzle/events"
	"github.com/dailystump/stumpd/internal/services/puzzle/storage"
	"github.com/dailystump/stumpd/internal/services/puzzle/storage/sqlite"
)

type fixedOutcomes struct {
	aggregate domain.AttemptAggregate
}

func (o fixedOutcomes) GetAttemptAggregate(context.Context, time.Time, domain.Category) (domain.AttemptAggregate, error) {
	return o.aggregate, nil
}

// seedWindowOpenPuzzle walks a puzzle through the lifecycle into the
// window-open state.
func seedWindowOpenPuzzle(t *testing.T, store *sqlite.Store, date time.Time, category domain.Category, model string) {
	t.Helper()
	ctx := context.Background()
	puzzle, err := domain.NewPuzzle(date, category, domain.DefaultDifficulty, model, testNow)
	if err != nil {
		t.Fatalf("NewPuzzle: %v", err)
	}
	if err := store.CreatePuzzle(ctx, puzzle); err != nil {
		t.Fatalf("CreatePuzzle: %v", err)
	}
	content := domain.Content{Question: "2+2?", Solution: "4", Interaction: domain.InteractionText}
	publishedAt := testNow().UTC()
	steps := []struct {
		from, to domain.State
		update   storage.PuzzleUpdate
	}{
		{domain.StateUnscheduled, domain.StateGenerating, storage.PuzzleUpdate{}},
		{domain.StateGenerating, domain.StateSelfValidating, storage.PuzzleUpdate{Content: &content}},
		{domain.StateSelfValidating, domain.StateCrossValidating, storage.PuzzleUpdate{PublishedAt: &publishedAt}},
		{domain.StateCrossValidating, domain.StatePublished, storage.PuzzleUpdate{}},
		{domain.StatePublished, domain.StateWindowOpen, storage.PuzzleUpdate{}},
	}
	for _, step := range steps {
		if err := store.TransitionState(ctx, date, category, step.from, step.to, step.update); err != nil {
			t.Fatalf("transition %s -> %s: %v", step.from, step.to, err)
		}
	}
}

func TestEvaluateWindowSolved(t *testing.T) {
	store := openTestStore(t)
	seedWindowOpenPuzzle(t, store, testDate, domain.CategoryMath, "model-a")
	publisher := &capturePublisher{}

	evaluator, err := NewEvaluator(store, fixedOutcomes{domain.AttemptAggregate{TotalAttempts: 100, SuccessfulSolves: 80}}, publisher, testNow)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	if err := evaluator.EvaluateWindow(context.Background(), testDate, domain.CategoryMath); err != nil {
		t.Fatalf("EvaluateWindow: %v", err)
	}

	puzzle, err := store.GetPuzzle(context.Background(), testDate, domain.CategoryMath)
	if err != nil {
		t.Fatalf("GetPuzzle: %v", err)
	}
	if puzzle.State != domain.StateEvaluated {
		t.Fatalf("expected state %s, got %s", domain.StateEvaluated, puzzle.State)
	}
	if puzzle.Verdict != domain.VerdictSolved {
		t.Fatalf("expected verdict %s, got %s", domain.VerdictSolved, puzzle.Verdict)
	}
	if puzzle.EvaluatedAt.IsZero() {
		t.Fatal("expected evaluated timestamp")
	}

	difficulty, err := store.GetDifficulty(context.Background(), domain.CategoryMath)
	if err != nil {
		t.Fatalf("GetDifficulty: %v", err)
	}
	if math.Abs(difficulty.Current-0.55) > 1e-9 {
		t.Fatalf("expected difficulty 0.55, got %v", difficulty.Current)
	}

	tallies, err := store.ListTallies(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTallies: %v", err)
	}
	if len(tallies) != 1 {
		t.Fatalf("expected 1 tally, got %d", len(tallies))
	}
	if tallies[0].TotalGenerated != 1 || tallies[0].SuccessfulStumps != 0 {
		t.Fatalf("expected 1 puzzle 0 stumps, got %+v", tallies[0])
	}

	captured := publisher.captured()
	if len(captured) != 1 || captured[0].Type != events.TypePuzzleEvaluated {
		t.Fatalf("expected one %s event, got %+v", events.TypePuzzleEvaluated, captured)
	}
	if captured[0].Verdict != string(domain.VerdictSolved) {
		t.Fatalf("expected solved verdict on event, got %q", captured[0].Verdict)
	}
}

func TestEvaluateWindowStumped(t *testing.T) {
	store := openTestStore(t)
	seedWindowOpenPuzzle(t, store, testDate, domain.CategoryWord, "model-b")

	evaluator, err := NewEvaluator(store, fixedOutcomes{domain.AttemptAggregate{TotalAttempts: 50, SuccessfulSolves: 20}}, events.Nop{}, testNow)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	if err := evaluator.EvaluateWindow(context.Background(), testDate, domain.CategoryWord); err != nil {
		t.Fatalf("EvaluateWindow: %v", err)
	}

	puzzle, err := store.GetPuzzle(context.Background(), testDate, domain.CategoryWord)
	if err != nil {
		t.Fatalf("GetPuzzle: %v", err)
	}
	if puzzle.Verdict != domain.VerdictStumped {
		t.Fatalf("expected verdict %s, got %s", domain.VerdictStumped, puzzle.Verdict)
	}

	difficulty, err := store.GetDifficulty(context.Background(), domain.CategoryWord)
	if err != nil {
		t.Fatalf("GetDifficulty: %v", err)
	}
	if math.Abs(difficulty.Current-0.45) > 1e-9 {
		t.Fatalf("expected difficulty 0.45, got %v", difficulty.Current)
	}

	tallies, err := store.ListTallies(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTallies: %v", err)
	}
	if len(tallies) != 1 || tallies[0].SuccessfulStumps != 1 {
		t.Fatalf("expected one tally with 1 stump, got %+v", tallies)
	}
}

func TestEvaluateWindowZeroAttemptsIsStump(t *testing.T) {
	store := openTestStore(t)
	seedWindowOpenPuzzle(t, store, testDate, domain.CategoryArt, "model-c")

	evaluator, err := NewEvaluator(store, fixedOutcomes{}, events.Nop{}, testNow)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	if err := evaluator.EvaluateWindow(context.Background(), testDate, domain.CategoryArt); err != nil {
		t.Fatalf("EvaluateWindow: %v", err)
	}

	puzzle, err := store.GetPuzzle(context.Background(), testDate, domain.CategoryArt)
	if err != nil {
		t.Fatalf("GetPuzzle: %v", err)
	}
	if puzzle.Verdict != domain.VerdictStumped {
		t.Fatalf("expected an unattempted puzzle to count as a stump, got %s", puzzle.Verdict)
	}
}

func TestEvaluateWindowReplayIsNoOp(t *testing.T) {
	store := openTestStore(t)
	seedWindowOpenPuzzle(t, store, testDate, domain.CategoryMath, "model-a")
	publisher := &capturePublisher{}

	evaluator, err := NewEvaluator(store, fixedOutcomes{domain.AttemptAggregate{TotalAttempts: 10, SuccessfulSolves: 3}}, publisher, testNow)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	if err := evaluator.EvaluateWindow(context.Background(), testDate, domain.CategoryMath); err != nil {
		t.Fatalf("first evaluation: %v", err)
	}
	if err := evaluator.EvaluateWindow(context.Background(), testDate, domain.CategoryMath); err != nil {
		t.Fatalf("replayed evaluation: %v", err)
	}

	tallies, err := store.ListTallies(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTallies: %v", err)
	}
	if len(tallies) != 1 || tallies[0].TotalGenerated != 1 {
		t.Fatalf("expected single-counted tally, got %+v", tallies)
	}
	history, err := store.ListAdjustments(context.Background(), domain.CategoryMath, 10)
	if err != nil {
		t.Fatalf("ListAdjustments: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one adjustment, got %d", len(history))
	}
	if captured := publisher.captured(); len(captured) != 1 {
		t.Fatalf("expected one event, got %d", len(captured))
	}
}

func TestEvaluateWindowMissingPuzzle(t *testing.T) {
	store := openTestStore(t)
	evaluator, err := NewEvaluator(store, fixedOutcomes{}, events.Nop{}, testNow)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	if err := evaluator.EvaluateWindow(context.Background(), testDate, domain.CategoryMath); err != nil {
		t.Fatalf("expected missing puzzle to be a no-op, got %v", err)
	}
}

func TestEvaluateWindowBeforeOpen(t *testing.T) {
	store := openTestStore(t)
	puzzle, err := domain.NewPuzzle(testDate, domain.CategoryMath, domain.DefaultDifficulty, "model-a", testNow)
	if err != nil {
		t.Fatalf("NewPuzzle: %v", err)
	}
	if err := store.CreatePuzzle(context.Background(), puzzle); err != nil {
		t.Fatalf("CreatePuzzle: %v", err)
	}

	evaluator, err := NewEvaluator(store, fixedOutcomes{}, events.Nop{}, testNow)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	if err := evaluator.EvaluateWindow(context.Background(), testDate, domain.CategoryMath); err == nil {
		t.Fatal("expected error evaluating an unopened window")
	}
}
