package domain

// Verdict is the solve-window outcome recorded for an evaluated puzzle.
type Verdict string

const (
	// VerdictSolved means the community solve rate reached the threshold.
	VerdictSolved Verdict = "solved"
	// VerdictStumped means the generator beat the community for the day.
	VerdictStumped Verdict = "stumped"
)

// SolveThreshold is the community solve rate at or above which a puzzle
// counts as solved.
const SolveThreshold = 0.5

// AttemptAggregate is the read-only community result for one puzzle's window.
type AttemptAggregate struct {
	TotalAttempts    int
	SuccessfulSolves int
}

// SolveRate returns successful solves over total attempts, or 0 when nobody
// attempted the puzzle.
func (a AttemptAggregate) SolveRate() float64 {
	if a.TotalAttempts <= 0 {
		return 0
	}
	return float64(a.SuccessfulSolves) / float64(a.TotalAttempts)
}

// VerdictFor applies the threshold rule to a window's aggregate. Zero
// attempts counts as a stump: nobody solved the puzzle, including nobody
// trying.
func VerdictFor(aggregate AttemptAggregate) Verdict {
	if aggregate.SolveRate() < SolveThreshold {
		return VerdictStumped
	}
	return VerdictSolved
}

// ParseVerdict canonicalizes a stored verdict label.
func ParseVerdict(value string) (Verdict, bool) {
	switch Verdict(value) {
	case VerdictSolved:
		return VerdictSolved, true
	case VerdictStumped:
		return VerdictStumped, true
	default:
		return "", false
	}
}
