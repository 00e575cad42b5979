package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
)

// Scheduler drives the daily cadence: generate today's puzzles and evaluate
// yesterday's. Ticks are at-least-once; the orchestrator and evaluator are
// both safe to re-trigger.
type Scheduler struct {
	orchestrator *Orchestrator
	evaluator    *Evaluator
	interval     time.Duration
	now          func() time.Time
}

// NewScheduler builds a scheduler ticking at the given interval.
func NewScheduler(orchestrator *Orchestrator, evaluator *Evaluator, interval time.Duration, now func() time.Time) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		orchestrator: orchestrator,
		evaluator:    evaluator,
		interval:     interval,
		now:          now,
	}
}

// Run ticks until the context is cancelled. The first tick fires
// immediately so a restarted process catches up without waiting an
// interval.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one catch-up pass over every category: trigger today's
// generation and evaluate yesterday's window. Failures are logged and the
// pass continues; the next tick retries.
func (s *Scheduler) RunOnce(ctx context.Context) {
	today := domain.Day(s.now())
	yesterday := today.AddDate(0, 0, -1)

	for _, category := range domain.Categories() {
		if err := s.orchestrator.TriggerGeneration(ctx, today, category); err != nil {
			switch {
			case errors.Is(err, ErrGenerationInFlight):
				// Previous tick is still working on it.
			case errors.Is(err, domain.ErrNoGeneratorsAvailable):
				log.Printf("scheduler: %s/%s: %v", domain.DayKey(today), category, err)
			case errors.Is(err, ErrGenerationFailed):
				log.Printf("scheduler: %s/%s: %v", domain.DayKey(today), category, err)
			default:
				log.Printf("scheduler: generate %s/%s: %v", domain.DayKey(today), category, err)
			}
		}
		if err := s.evaluator.EvaluateWindow(ctx, yesterday, category); err != nil {
			log.Printf("scheduler: evaluate %s/%s: %v", domain.DayKey(yesterday), category, err)
		}
	}
}
