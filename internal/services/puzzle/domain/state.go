package domain

import (
	apperrors "github.com/dailystump/stumpd/internal/platform/errors"
)

// State is the lifecycle state of a daily puzzle.
type State string

const (
	// StateUnscheduled is the initial state before generation starts.
	StateUnscheduled State = "unscheduled"
	// StateGenerating means a generator call is in flight.
	StateGenerating State = "generating"
	// StateSelfValidating means the generator is solving its own candidate.
	StateSelfValidating State = "self_validating"
	// StateRegenerateRetry means the candidate was discarded and generation
	// will restart with the same model and difficulty.
	StateRegenerateRetry State = "regenerate_retry"
	// StateCrossValidating means the puzzle was accepted and other models
	// are being asked to solve it.
	StateCrossValidating State = "cross_validating"
	// StatePublished means the puzzle artifact is persisted and visible.
	StatePublished State = "published"
	// StateWindowOpen means the puzzle accepts player attempts.
	StateWindowOpen State = "window_open"
	// StateClosed means the solve window ended and evaluation is pending.
	StateClosed State = "closed"
	// StateEvaluated means the verdict and difficulty update are recorded.
	StateEvaluated State = "evaluated"
	// StateGenerationFailed is terminal: no puzzle for this date and category.
	StateGenerationFailed State = "generation_failed"
)

// ErrInvalidStateTransition indicates a disallowed lifecycle transition.
var ErrInvalidStateTransition = apperrors.New(apperrors.CodePuzzleInvalidStateTransition, "puzzle state transition is not allowed")

// IsStateTransitionAllowed reports whether a lifecycle transition is
// permitted. The only regression is the explicit regenerate-retry loop back
// to generating.
func IsStateTransitionAllowed(from, to State) bool {
	switch from {
	case StateUnscheduled:
		return to == StateGenerating
	case StateGenerating:
		return to == StateSelfValidating || to == StateRegenerateRetry || to == StateGenerationFailed
	case StateSelfValidating:
		return to == StateCrossValidating || to == StateRegenerateRetry || to == StateGenerationFailed
	case StateRegenerateRetry:
		return to == StateGenerating || to == StateGenerationFailed
	case StateCrossValidating:
		return to == StatePublished
	case StatePublished:
		return to == StateWindowOpen
	case StateWindowOpen:
		return to == StateClosed
	case StateClosed:
		return to == StateEvaluated
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateEvaluated || s == StateGenerationFailed
}
