package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
	"github.com/dailystump/stumpd/internal/services/puzzle/storage"
)

var testDate = time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

func TestCreateAndGetPuzzle(t *testing.T) {
	store := openTempStore(t)
	puzzle := testPuzzle(t)

	if err := store.CreatePuzzle(context.Background(), puzzle); err != nil {
		t.Fatalf("create puzzle: %v", err)
	}

	loaded, err := store.GetPuzzle(context.Background(), testDate, domain.CategoryMath)
	if err != nil {
		t.Fatalf("get puzzle: %v", err)
	}
	if loaded.ID() != "2026-08-29/math" {
		t.Fatalf("id = %q", loaded.ID())
	}
	if loaded.State != domain.StateUnscheduled {
		t.Fatalf("state = %s, want %s", loaded.State, domain.StateUnscheduled)
	}
	if loaded.GeneratorModel != "claude3" {
		t.Fatalf("generator = %q", loaded.GeneratorModel)
	}
	if loaded.Difficulty != 0.58 {
		t.Fatalf("difficulty = %.2f", loaded.Difficulty)
	}
}

func TestCreatePuzzleDuplicateRejected(t *testing.T) {
	store := openTempStore(t)
	puzzle := testPuzzle(t)

	if err := store.CreatePuzzle(context.Background(), puzzle); err != nil {
		t.Fatalf("create puzzle: %v", err)
	}
	err := store.CreatePuzzle(context.Background(), puzzle)
	if !errors.Is(err, storage.ErrPuzzleExists) {
		t.Fatalf("expected ErrPuzzleExists, got %v", err)
	}
}

func TestGetPuzzleNotFound(t *testing.T) {
	store := openTempStore(t)

	_, err := store.GetPuzzle(context.Background(), testDate, domain.CategoryArt)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransitionStateCompareAndSet(t *testing.T) {
	store := openTempStore(t)
	puzzle := testPuzzle(t)
	if err := store.CreatePuzzle(context.Background(), puzzle); err != nil {
		t.Fatalf("create puzzle: %v", err)
	}

	if err := store.TransitionState(context.Background(), testDate, domain.CategoryMath,
		domain.StateUnscheduled, domain.StateGenerating, storage.PuzzleUpdate{}); err != nil {
		t.Fatalf("transition to generating: %v", err)
	}

	// Replaying the same transition must lose the compare-and-set.
	err := store.TransitionState(context.Background(), testDate, domain.CategoryMath,
		domain.StateUnscheduled, domain.StateGenerating, storage.PuzzleUpdate{})
	if !errors.Is(err, storage.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict on replay, got %v", err)
	}

	// Illegal transitions are rejected before touching the database.
	err = store.TransitionState(context.Background(), testDate, domain.CategoryMath,
		domain.StateGenerating, domain.StatePublished, storage.PuzzleUpdate{})
	if !errors.Is(err, storage.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict on illegal transition, got %v", err)
	}
}

func TestTransitionStateAppliesUpdates(t *testing.T) {
	store := openTempStore(t)
	puzzle := testPuzzle(t)
	if err := store.CreatePuzzle(context.Background(), puzzle); err != nil {
		t.Fatalf("create puzzle: %v", err)
	}
	if err := store.TransitionState(context.Background(), testDate, domain.CategoryMath,
		domain.StateUnscheduled, domain.StateGenerating, storage.PuzzleUpdate{}); err != nil {
		t.Fatalf("transition to generating: %v", err)
	}

	content := domain.Content{Question: "What is 6 x 7?", Solution: "42", Interaction: domain.InteractionText}
	attempts := 1
	if err := store.TransitionState(context.Background(), testDate, domain.CategoryMath,
		domain.StateGenerating, domain.StateSelfValidating, storage.PuzzleUpdate{
			Content:                &content,
			SelfValidationAttempts: &attempts,
		}); err != nil {
		t.Fatalf("transition with update: %v", err)
	}

	loaded, err := store.GetPuzzle(context.Background(), testDate, domain.CategoryMath)
	if err != nil {
		t.Fatalf("get puzzle: %v", err)
	}
	if loaded.State != domain.StateSelfValidating {
		t.Fatalf("state = %s", loaded.State)
	}
	if loaded.Content.Solution != "42" {
		t.Fatalf("content solution = %q", loaded.Content.Solution)
	}
	if loaded.SelfValidationAttempts != 1 {
		t.Fatalf("attempts = %d", loaded.SelfValidationAttempts)
	}
}

func TestCrossValidationUpsert(t *testing.T) {
	store := openTempStore(t)
	puzzle := testPuzzle(t)
	if err := store.CreatePuzzle(context.Background(), puzzle); err != nil {
		t.Fatalf("create puzzle: %v", err)
	}

	first := domain.CrossValidationResult{Model: "gemini", Solved: false, LatencyMS: 900, RecordedAt: testDate.Add(time.Minute)}
	if err := store.AppendCrossValidation(context.Background(), testDate, domain.CategoryMath, first); err != nil {
		t.Fatalf("append result: %v", err)
	}
	second := domain.CrossValidationResult{Model: "gemini", Solved: true, LatencyMS: 400, RecordedAt: testDate.Add(2 * time.Minute)}
	if err := store.AppendCrossValidation(context.Background(), testDate, domain.CategoryMath, second); err != nil {
		t.Fatalf("upsert result: %v", err)
	}
	other := domain.CrossValidationResult{Model: "gpt4o", Solved: true, LatencyMS: 700, RecordedAt: testDate.Add(3 * time.Minute)}
	if err := store.AppendCrossValidation(context.Background(), testDate, domain.CategoryMath, other); err != nil {
		t.Fatalf("append other model: %v", err)
	}

	results, err := store.ListCrossValidation(context.Background(), testDate, domain.CategoryMath)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results len = %d, want 2", len(results))
	}
	if results[0].Model != "gemini" || !results[0].Solved || results[0].LatencyMS != 400 {
		t.Fatalf("unexpected gemini row: %+v", results[0])
	}
	if results[1].Model != "gpt4o" {
		t.Fatalf("unexpected second row: %+v", results[1])
	}
}

func TestDifficultyDefaultsAndAdjustments(t *testing.T) {
	store := openTempStore(t)

	state, err := store.GetDifficulty(context.Background(), domain.CategoryWord)
	if err != nil {
		t.Fatalf("get default difficulty: %v", err)
	}
	if state.Current != domain.DefaultDifficulty {
		t.Fatalf("default difficulty = %.2f, want %.2f", state.Current, domain.DefaultDifficulty)
	}

	adjustment := domain.DifficultyAdjustment{
		Category:   domain.CategoryWord,
		Date:       testDate,
		Previous:   0.5,
		Delta:      0.05,
		New:        0.55,
		Reason:     "community solved - increased difficulty",
		RecordedAt: testDate.Add(24 * time.Hour),
	}
	if err := store.RecordAdjustment(context.Background(), adjustment); err != nil {
		t.Fatalf("record adjustment: %v", err)
	}

	state, err = store.GetDifficulty(context.Background(), domain.CategoryWord)
	if err != nil {
		t.Fatalf("get difficulty: %v", err)
	}
	if state.Current != 0.55 {
		t.Fatalf("difficulty after adjustment = %.2f, want 0.55", state.Current)
	}

	// A second entry for the same (category, date) is a conflict.
	err = store.RecordAdjustment(context.Background(), adjustment)
	if !errors.Is(err, storage.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict on duplicate day, got %v", err)
	}

	history, err := store.ListAdjustments(context.Background(), domain.CategoryWord, 10)
	if err != nil {
		t.Fatalf("list adjustments: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history len = %d, want 1", len(history))
	}
	if history[0].New != 0.55 || history[0].Delta != 0.05 {
		t.Fatalf("unexpected history entry: %+v", history[0])
	}
}

func TestBumpTally(t *testing.T) {
	store := openTempStore(t)
	now := testDate.Add(24 * time.Hour)

	if err := store.BumpTally(context.Background(), "claude3", domain.CategoryMath, true, now); err != nil {
		t.Fatalf("bump tally: %v", err)
	}
	if err := store.BumpTally(context.Background(), "claude3", domain.CategoryMath, false, now.Add(24*time.Hour)); err != nil {
		t.Fatalf("bump tally again: %v", err)
	}
	if err := store.BumpTally(context.Background(), "claude3", domain.CategoryArt, true, now); err != nil {
		t.Fatalf("bump other category: %v", err)
	}

	category := domain.CategoryMath
	tallies, err := store.ListTallies(context.Background(), &category)
	if err != nil {
		t.Fatalf("list tallies: %v", err)
	}
	if len(tallies) != 1 {
		t.Fatalf("tallies len = %d, want 1", len(tallies))
	}
	if tallies[0].TotalGenerated != 2 || tallies[0].SuccessfulStumps != 1 {
		t.Fatalf("unexpected tally: %+v", tallies[0])
	}

	all, err := store.ListTallies(context.Background(), nil)
	if err != nil {
		t.Fatalf("list all tallies: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all tallies len = %d, want 2", len(all))
	}
}

func testPuzzle(t *testing.T) domain.Puzzle {
	t.Helper()
	puzzle, err := domain.NewPuzzle(testDate, domain.CategoryMath, 0.58, "claude3", func() time.Time {
		return testDate.Add(5 * time.Minute)
	})
	if err != nil {
		t.Fatalf("new puzzle: %v", err)
	}
	return puzzle
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "puzzle.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
