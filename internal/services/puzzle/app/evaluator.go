package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
	"github.com/dailystump/stumpd/internal/services/puzzle/events"
	"github.com/dailystump/stumpd/internal/services/puzzle/storage"
)

// PlayerOutcomeSource supplies the community result for a closed window.
// The attempt pipeline lives outside this service; evaluation only reads
// its aggregate.
type PlayerOutcomeSource interface {
	GetAttemptAggregate(ctx context.Context, date time.Time, category domain.Category) (domain.AttemptAggregate, error)
}

// Evaluator closes solve windows and records verdicts, difficulty
// adjustments, and stump tallies.
type Evaluator struct {
	store     storage.Store
	outcomes  PlayerOutcomeSource
	publisher events.Publisher
	now       func() time.Time
	tracer    trace.Tracer
}

// NewEvaluator wires an evaluator over storage and the attempt aggregate
// source.
func NewEvaluator(store storage.Store, outcomes PlayerOutcomeSource, publisher events.Publisher, now func() time.Time) (*Evaluator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if outcomes == nil {
		return nil, fmt.Errorf("player outcome source is required")
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		store:     store,
		outcomes:  outcomes,
		publisher: publisher,
		now:       now,
		tracer:    otel.Tracer("puzzle/evaluator"),
	}, nil
}

// EvaluateWindow closes the solve window for one puzzle and records the
// verdict, the difficulty adjustment, and the stump tally. Replays are
// no-ops: an already evaluated puzzle returns nil, and each side effect is
// guarded so a crash mid-evaluation resumes without double-counting.
func (e *Evaluator) EvaluateWindow(ctx context.Context, date time.Time, category domain.Category) error {
	date = domain.Day(date)

	ctx, span := e.tracer.Start(ctx, "puzzle.evaluate",
		trace.WithAttributes(
			attribute.String("puzzle.id", domain.PuzzleID(date, category)),
			attribute.String("puzzle.category", string(category)),
		),
	)
	defer span.End()

	puzzle, err := e.store.GetPuzzle(ctx, date, category)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Nothing was generated for this day; nothing to evaluate.
			log.Printf("evaluate %s/%s: no puzzle for day", domain.DayKey(date), category)
			return nil
		}
		return fmt.Errorf("load puzzle: %w", err)
	}

	switch puzzle.State {
	case domain.StateEvaluated, domain.StateGenerationFailed:
		return nil
	case domain.StateWindowOpen:
		if err := e.store.TransitionState(ctx, date, category, domain.StateWindowOpen, domain.StateClosed, storage.PuzzleUpdate{}); err != nil {
			if errors.Is(err, storage.ErrStateConflict) {
				// Another evaluator closed it first; fall through and
				// finish from the closed state.
				break
			}
			return fmt.Errorf("close window %s: %w", puzzle.ID(), err)
		}
	case domain.StateClosed:
		// Resuming a crashed evaluation.
	default:
		return fmt.Errorf("evaluate %s: window not open (state %s): %w", puzzle.ID(), puzzle.State, storage.ErrStateConflict)
	}

	aggregate, err := e.outcomes.GetAttemptAggregate(ctx, date, category)
	if err != nil {
		return fmt.Errorf("load attempt aggregate %s: %w", puzzle.ID(), err)
	}
	verdict := domain.VerdictFor(aggregate)
	span.SetAttributes(
		attribute.String("puzzle.verdict", string(verdict)),
		attribute.Int("puzzle.attempts", aggregate.TotalAttempts),
	)

	if err := e.recordAdjustment(ctx, puzzle, verdict); err != nil {
		return err
	}
	if err := e.store.BumpTally(ctx, puzzle.GeneratorModel, category, verdict == domain.VerdictStumped, e.now().UTC()); err != nil {
		return fmt.Errorf("bump tally %s: %w", puzzle.ID(), err)
	}

	evaluatedAt := e.now().UTC()
	err = e.store.TransitionState(ctx, date, category, domain.StateClosed, domain.StateEvaluated, storage.PuzzleUpdate{
		Verdict:     &verdict,
		EvaluatedAt: &evaluatedAt,
	})
	if err != nil {
		if errors.Is(err, storage.ErrStateConflict) {
			// Lost the final write to a concurrent evaluator.
			return nil
		}
		return fmt.Errorf("mark evaluated %s: %w", puzzle.ID(), err)
	}
	log.Printf("puzzle %s evaluated: %s (%d/%d solves)",
		puzzle.ID(), verdict, aggregate.SuccessfulSolves, aggregate.TotalAttempts)

	event := events.Event{
		Type:       events.TypePuzzleEvaluated,
		PuzzleID:   puzzle.ID(),
		Category:   string(category),
		Model:      puzzle.GeneratorModel,
		Difficulty: puzzle.Difficulty,
		Verdict:    string(verdict),
		OccurredAt: evaluatedAt,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		log.Printf("puzzle %s: evaluated event: %v", puzzle.ID(), err)
	}
	return nil
}

// recordAdjustment applies the daily difficulty rule. A duplicate history
// entry for the day means a prior run already adjusted; that is not an error.
func (e *Evaluator) recordAdjustment(ctx context.Context, puzzle domain.Puzzle, verdict domain.Verdict) error {
	state, err := e.store.GetDifficulty(ctx, puzzle.Category)
	if err != nil {
		return fmt.Errorf("load difficulty for %s: %w", puzzle.Category, err)
	}
	next, delta := domain.AdjustDifficulty(state.Current, verdict)
	adjustment := domain.DifficultyAdjustment{
		Category:   puzzle.Category,
		Date:       puzzle.Date,
		Previous:   state.Current,
		Delta:      delta,
		New:        next,
		Reason:     domain.AdjustmentReason(verdict),
		RecordedAt: e.now().UTC(),
	}
	if err := e.store.RecordAdjustment(ctx, adjustment); err != nil {
		if errors.Is(err, storage.ErrStateConflict) {
			log.Printf("puzzle %s: difficulty already adjusted for day", puzzle.ID())
			return nil
		}
		return fmt.Errorf("record adjustment %s: %w", puzzle.ID(), err)
	}
	return nil
}
