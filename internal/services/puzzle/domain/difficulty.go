package domain

import (
	"time"

	apperrors "github.com/dailystump/stumpd/internal/platform/errors"
)

// Tier is the difficulty band label shown to players.
type Tier string

const (
	// TierMini is the beginner-friendly band.
	TierMini Tier = "mini"
	// TierMid is the moderate-challenge band.
	TierMid Tier = "mid"
	// TierBeast is the expert band.
	TierBeast Tier = "beast"
)

const (
	// DefaultDifficulty seeds a category with no recorded state.
	DefaultDifficulty = 0.5
	// AdjustmentStep is the daily difficulty nudge applied at window close.
	AdjustmentStep = 0.05

	tierMidFloor   = 0.4
	tierBeastFloor = 0.7
)

// ErrDifficultyOutOfRange indicates a difficulty outside [0, 1].
var ErrDifficultyOutOfRange = apperrors.New(apperrors.CodeDifficultyOutOfRange, "difficulty must be within [0, 1]")

// ClampDifficulty bounds a difficulty value to [0, 1].
func ClampDifficulty(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

// ValidateDifficulty rejects values outside [0, 1].
func ValidateDifficulty(value float64) error {
	if value < 0 || value > 1 {
		return ErrDifficultyOutOfRange
	}
	return nil
}

// TierFor maps a difficulty index to its band.
func TierFor(difficulty float64) Tier {
	switch {
	case difficulty < tierMidFloor:
		return TierMini
	case difficulty < tierBeastFloor:
		return TierMid
	default:
		return TierBeast
	}
}

// DifficultyState holds the current difficulty index for one category.
type DifficultyState struct {
	Category  Category
	Current   float64
	UpdatedAt time.Time
}

// Tier returns the band for the current difficulty.
func (s DifficultyState) Tier() Tier {
	return TierFor(s.Current)
}

// DifficultyAdjustment is one history entry in a category's adjustment log.
type DifficultyAdjustment struct {
	Category   Category
	Date       time.Time
	Previous   float64
	Delta      float64
	New        float64
	Reason     string
	RecordedAt time.Time
}

// AdjustDifficulty applies the window-close update rule: the community
// solving the puzzle raises difficulty by one step, a stump lowers it, and
// the result is clamped to [0, 1]. The returned delta is the signed step
// before clamping.
func AdjustDifficulty(current float64, verdict Verdict) (newDifficulty, delta float64) {
	delta = AdjustmentStep
	if verdict == VerdictStumped {
		delta = -AdjustmentStep
	}
	return ClampDifficulty(current + delta), delta
}

// AdjustmentReason describes an adjustment for the history log.
func AdjustmentReason(verdict Verdict) string {
	if verdict == VerdictStumped {
		return "community stumped - decreased difficulty"
	}
	return "community solved - increased difficulty"
}
