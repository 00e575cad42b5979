// Package app drives the puzzle lifecycle: generation and validation,
// window-close evaluation, and the daily schedule that triggers both.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/dailystump/stumpd/internal/platform/errors"
	"github.com/dailystump/stumpd/internal/services/puzzle/ai"
	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
	"github.com/dailystump/stumpd/internal/services/puzzle/events"
	"github.com/dailystump/stumpd/internal/services/puzzle/storage"
)

// ErrGenerationInFlight indicates a trigger arrived while the same
// (date, category) generation was still running. New triggers are rejected
// rather than cancelling the in-flight attempt.
var ErrGenerationInFlight = apperrors.New(apperrors.CodeGenerationInFlight, "generation already in flight for date and category")

// ErrGenerationFailed indicates the retry budget was exhausted and the day's
// puzzle is terminally failed.
var ErrGenerationFailed = apperrors.New(apperrors.CodeGenerationFailed, "puzzle generation failed after exhausting retries")

// Orchestrator drives one puzzle per (date, category) through generation,
// self-validation, publication, and fire-and-forget cross-validation.
type Orchestrator struct {
	store     storage.Store
	roster    ai.Roster
	publisher events.Publisher
	now       func() time.Time
	tracer    trace.Tracer

	mu       sync.Mutex
	inFlight map[string]struct{}
	crossWG  sync.WaitGroup
}

// NewOrchestrator wires an orchestrator over storage and the model roster.
func NewOrchestrator(store storage.Store, roster ai.Roster, publisher events.Publisher, now func() time.Time) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:     store,
		roster:    roster,
		publisher: publisher,
		now:       now,
		tracer:    otel.Tracer("puzzle/orchestrator"),
		inFlight:  make(map[string]struct{}),
	}, nil
}

// TriggerGeneration runs the generation state machine for one day and
// category. It is safe to call from at-least-once schedulers and manual
// re-triggers: a finished day is a no-op, and a concurrent trigger for the
// same key is rejected with ErrGenerationInFlight.
func (o *Orchestrator) TriggerGeneration(ctx context.Context, date time.Time, category domain.Category) error {
	date = domain.Day(date)
	key := domain.PuzzleID(date, category)

	ctx, span := o.tracer.Start(ctx, "puzzle.generate",
		trace.WithAttributes(
			attribute.String("puzzle.id", key),
			attribute.String("puzzle.category", string(category)),
		),
	)
	defer span.End()

	if !o.acquire(key) {
		return ErrGenerationInFlight
	}
	defer o.release(key)

	difficulty, err := o.store.GetDifficulty(ctx, category)
	if err != nil {
		return fmt.Errorf("load difficulty for %s: %w", category, err)
	}

	generatorID, err := domain.SelectGenerator(date, category, o.roster.IDs())
	if err != nil {
		// No generators means no puzzle today; the day stays unscheduled.
		return err
	}
	model, ok := o.roster.Get(generatorID)
	if !ok {
		return fmt.Errorf("rotation selected unregistered model %q", generatorID)
	}
	span.SetAttributes(attribute.String("puzzle.generator", generatorID))

	puzzle, err := o.ensurePuzzle(ctx, date, category, difficulty.Current, generatorID)
	if err != nil {
		return err
	}
	switch puzzle.State {
	case domain.StateWindowOpen, domain.StateClosed, domain.StateEvaluated, domain.StateGenerationFailed:
		// Already past generation; at-least-once ticks land here.
		return nil
	case domain.StateCrossValidating:
		// Crashed after acceptance; finish the publish chain without
		// regenerating.
		if err := o.transition(ctx, date, category, domain.StateCrossValidating, domain.StatePublished, storage.PuzzleUpdate{}); err != nil {
			return err
		}
		fallthrough
	case domain.StatePublished:
		return o.transition(ctx, date, category, domain.StatePublished, domain.StateWindowOpen, storage.PuzzleUpdate{})
	}

	return o.runGenerationLoop(ctx, puzzle, model)
}

// ensurePuzzle creates today's lifecycle record or loads the committed one
// left behind by a crashed run.
func (o *Orchestrator) ensurePuzzle(ctx context.Context, date time.Time, category domain.Category, difficulty float64, generatorID string) (domain.Puzzle, error) {
	puzzle, err := o.store.GetPuzzle(ctx, date, category)
	if err == nil {
		return puzzle, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.Puzzle{}, fmt.Errorf("load puzzle: %w", err)
	}

	puzzle, err = domain.NewPuzzle(date, category, difficulty, generatorID, o.now)
	if err != nil {
		return domain.Puzzle{}, err
	}
	if err := o.store.CreatePuzzle(ctx, puzzle); err != nil {
		if errors.Is(err, storage.ErrPuzzleExists) {
			// Lost a create race with another process; let its run finish.
			return domain.Puzzle{}, ErrGenerationInFlight
		}
		return domain.Puzzle{}, fmt.Errorf("create puzzle: %w", err)
	}
	return puzzle, nil
}

// runGenerationLoop executes bounded generate/self-validate cycles. Each
// transition commits before the external call it precedes, so a crash
// resumes from the last committed attempt count.
func (o *Orchestrator) runGenerationLoop(ctx context.Context, puzzle domain.Puzzle, model ai.Model) error {
	date, category := puzzle.Date, puzzle.Category
	state := puzzle.State
	attempts := puzzle.SelfValidationAttempts

	// A crashed run may have left the puzzle mid-cycle; fold it back onto
	// the retry entry point without consuming an attempt.
	if state == domain.StateGenerating || state == domain.StateSelfValidating {
		if err := o.transition(ctx, date, category, state, domain.StateRegenerateRetry, storage.PuzzleUpdate{}); err != nil {
			return err
		}
		state = domain.StateRegenerateRetry
	}

	for attempts < domain.MaxSelfValidationAttempts {
		attempts++
		update := storage.PuzzleUpdate{SelfValidationAttempts: &attempts}
		if err := o.transition(ctx, date, category, state, domain.StateGenerating, update); err != nil {
			return err
		}
		state = domain.StateGenerating

		candidate, err := model.Generate(ctx, category, puzzle.Difficulty)
		if err == nil {
			err = candidate.Content().Validate()
		}
		if err != nil {
			log.Printf("puzzle %s: generation attempt %d failed: %v", puzzle.ID(), attempts, err)
			state, err = o.retryOrFail(ctx, date, category, state, attempts)
			if err != nil {
				return err
			}
			continue
		}

		content := candidate.Content()
		if err := o.transition(ctx, date, category, state, domain.StateSelfValidating, storage.PuzzleUpdate{Content: &content}); err != nil {
			return err
		}
		state = domain.StateSelfValidating

		answer, err := model.Solve(ctx, content.Question, content.Interaction)
		if err != nil || !domain.AnswersMatch(content.Solution, answer, content.Interaction) {
			if err != nil {
				log.Printf("puzzle %s: self-validation attempt %d errored: %v", puzzle.ID(), attempts, err)
			} else {
				log.Printf("puzzle %s: self-validation attempt %d mismatched", puzzle.ID(), attempts)
			}
			state, err = o.retryOrFail(ctx, date, category, state, attempts)
			if err != nil {
				return err
			}
			continue
		}

		return o.publish(ctx, puzzle, content, model.ID(), attempts)
	}

	// Resumed with the budget already spent.
	if err := o.transition(ctx, date, category, state, domain.StateGenerationFailed, storage.PuzzleUpdate{}); err != nil {
		return err
	}
	return ErrGenerationFailed
}

// retryOrFail moves a failed cycle to the retry state, or to the terminal
// failure once the attempt budget is spent.
func (o *Orchestrator) retryOrFail(ctx context.Context, date time.Time, category domain.Category, from domain.State, attempts int) (domain.State, error) {
	if attempts >= domain.MaxSelfValidationAttempts {
		if err := o.transition(ctx, date, category, from, domain.StateGenerationFailed, storage.PuzzleUpdate{}); err != nil {
			return from, err
		}
		log.Printf("puzzle %s/%s: generation failed after %d attempts", domain.DayKey(date), category, attempts)
		return domain.StateGenerationFailed, ErrGenerationFailed
	}
	discarded := domain.Content{}
	if err := o.transition(ctx, date, category, from, domain.StateRegenerateRetry, storage.PuzzleUpdate{Content: &discarded}); err != nil {
		return from, err
	}
	return domain.StateRegenerateRetry, nil
}

// publish stamps publication, opens the solve window, and fans out
// cross-validation without waiting for it.
func (o *Orchestrator) publish(ctx context.Context, puzzle domain.Puzzle, content domain.Content, generatorID string, attempts int) error {
	date, category := puzzle.Date, puzzle.Category
	publishedAt := o.now().UTC()

	if err := o.transition(ctx, date, category, domain.StateSelfValidating, domain.StateCrossValidating, storage.PuzzleUpdate{
		SelfValidationAttempts: &attempts,
		PublishedAt:            &publishedAt,
	}); err != nil {
		return err
	}
	if err := o.transition(ctx, date, category, domain.StateCrossValidating, domain.StatePublished, storage.PuzzleUpdate{}); err != nil {
		return err
	}
	if err := o.transition(ctx, date, category, domain.StatePublished, domain.StateWindowOpen, storage.PuzzleUpdate{}); err != nil {
		return err
	}
	log.Printf("puzzle %s published by %s after %d attempts", puzzle.ID(), generatorID, attempts)

	o.fanOutCrossValidation(ctx, puzzle, content, generatorID)

	event := events.Event{
		Type:       events.TypePuzzlePublished,
		PuzzleID:   puzzle.ID(),
		Category:   string(category),
		Model:      generatorID,
		Difficulty: puzzle.Difficulty,
		OccurredAt: publishedAt,
	}
	if err := o.publisher.Publish(ctx, event); err != nil {
		log.Printf("puzzle %s: publish event: %v", puzzle.ID(), err)
	}
	return nil
}

// fanOutCrossValidation asks every other roster model to solve the puzzle.
// Tasks detach from the trigger context so publication never waits on them;
// a timeout or error is recorded as a non-solve, never escalated.
func (o *Orchestrator) fanOutCrossValidation(ctx context.Context, puzzle domain.Puzzle, content domain.Content, generatorID string) {
	detached := context.WithoutCancel(ctx)
	for _, solver := range o.roster.Others(generatorID) {
		o.crossWG.Add(1)
		go func(solver ai.Model) {
			defer o.crossWG.Done()
			taskCtx, span := o.tracer.Start(detached, "puzzle.cross_validate",
				trace.WithAttributes(
					attribute.String("puzzle.id", puzzle.ID()),
					attribute.String("puzzle.solver", solver.ID()),
				),
			)
			defer span.End()

			start := o.now()
			answer, err := solver.Solve(taskCtx, content.Question, content.Interaction)
			solved := err == nil && domain.AnswersMatch(content.Solution, answer, content.Interaction)
			if err != nil {
				log.Printf("puzzle %s: cross-validation by %s: %v", puzzle.ID(), solver.ID(), err)
			}

			result := domain.CrossValidationResult{
				Model:      solver.ID(),
				Solved:     solved,
				LatencyMS:  o.now().Sub(start).Milliseconds(),
				RecordedAt: o.now().UTC(),
			}
			if err := o.store.AppendCrossValidation(taskCtx, puzzle.Date, puzzle.Category, result); err != nil {
				log.Printf("puzzle %s: record cross-validation by %s: %v", puzzle.ID(), solver.ID(), err)
			}
		}(solver)
	}
}

// WaitCrossValidation blocks until in-flight cross-validation tasks finish.
// The runtime calls it during graceful shutdown.
func (o *Orchestrator) WaitCrossValidation() {
	o.crossWG.Wait()
}

func (o *Orchestrator) transition(ctx context.Context, date time.Time, category domain.Category, from, to domain.State, update storage.PuzzleUpdate) error {
	if err := o.store.TransitionState(ctx, date, category, from, to, update); err != nil {
		return fmt.Errorf("transition %s/%s %s -> %s: %w", domain.DayKey(date), category, from, to, err)
	}
	return nil
}

func (o *Orchestrator) acquire(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[key]; busy {
		return false
	}
	o.inFlight[key] = struct{}{}
	return true
}

func (o *Orchestrator) release(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, key)
}
