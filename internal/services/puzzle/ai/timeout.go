package ai

import (
	"context"
	"time"

	"github.com/dailystump/stumpd/internal/platform/timeouts"
	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
)

// boundedModel wraps a model so every capability call carries a deadline.
type boundedModel struct {
	inner           Model
	generateTimeout time.Duration
	solveTimeout    time.Duration
}

// WithTimeouts bounds a model's capability calls. Non-positive durations
// fall back to the shared platform defaults.
func WithTimeouts(model Model, generateTimeout, solveTimeout time.Duration) Model {
	if generateTimeout <= 0 {
		generateTimeout = timeouts.GeneratorCall
	}
	if solveTimeout <= 0 {
		solveTimeout = timeouts.SolverCall
	}
	return &boundedModel{
		inner:           model,
		generateTimeout: generateTimeout,
		solveTimeout:    solveTimeout,
	}
}

func (m *boundedModel) ID() string {
	return m.inner.ID()
}

func (m *boundedModel) Generate(ctx context.Context, category domain.Category, difficulty float64) (Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, m.generateTimeout)
	defer cancel()
	return m.inner.Generate(ctx, category, difficulty)
}

func (m *boundedModel) Solve(ctx context.Context, question string, interaction domain.Interaction) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.solveTimeout)
	defer cancel()
	return m.inner.Solve(ctx, question, interaction)
}
