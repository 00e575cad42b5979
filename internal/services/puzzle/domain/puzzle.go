package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxSelfValidationAttempts caps the regenerate-retry loop. Once a candidate
// has mismatched this many times the day's generation is marked failed.
const MaxSelfValidationAttempts = 3

// DayFormat is the canonical layout for puzzle dates.
const DayFormat = "2006-01-02"

// Interaction selects the answer-equivalence rule for a puzzle.
type Interaction string

const (
	// InteractionText compares answers as normalized text.
	InteractionText Interaction = "text"
	// InteractionMultiPart compares comma-separated answer parts as sets.
	InteractionMultiPart Interaction = "multi"
)

// Content is the player-facing puzzle payload. The solution never leaves the
// service; reporting projections strip it.
type Content struct {
	Question    string      `json:"question"`
	Solution    string      `json:"solution"`
	Interaction Interaction `json:"interaction"`
	Explanation string      `json:"explanation,omitempty"`
	MediaURL    string      `json:"media_url,omitempty"`
	Hints       []string    `json:"hints,omitempty"`
}

// Validate rejects content a puzzle cannot be published with.
func (c Content) Validate() error {
	if strings.TrimSpace(c.Question) == "" {
		return fmt.Errorf("puzzle question is required")
	}
	if strings.TrimSpace(c.Solution) == "" {
		return fmt.Errorf("puzzle solution is required")
	}
	switch c.Interaction {
	case InteractionText, InteractionMultiPart:
		return nil
	default:
		return fmt.Errorf("unknown interaction %q", c.Interaction)
	}
}

// Puzzle is one day's puzzle for one category. At most one exists per
// (date, category); state transitions are owned by the orchestrator.
type Puzzle struct {
	Date                   time.Time
	Category               Category
	Difficulty             float64
	GeneratorModel         string
	State                  State
	Content                Content
	SelfValidationAttempts int
	Verdict                Verdict
	CreatedAt              time.Time
	PublishedAt            time.Time
	EvaluatedAt            time.Time
}

// ID is the canonical puzzle identifier, e.g. "2026-08-29/math".
func (p Puzzle) ID() string {
	return PuzzleID(p.Date, p.Category)
}

// PuzzleID builds the canonical identifier for a (date, category) pair.
func PuzzleID(date time.Time, category Category) string {
	return fmt.Sprintf("%s/%s", DayKey(date), category)
}

// DayKey truncates a timestamp to its UTC calendar day label.
func DayKey(date time.Time) string {
	return date.UTC().Format(DayFormat)
}

// Day truncates a timestamp to UTC midnight.
func Day(date time.Time) time.Time {
	utc := date.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// NewPuzzle constructs the initial unscheduled puzzle record for a day.
func NewPuzzle(date time.Time, category Category, difficulty float64, generatorModel string, now func() time.Time) (Puzzle, error) {
	if now == nil {
		now = time.Now
	}
	if err := ValidateDifficulty(difficulty); err != nil {
		return Puzzle{}, err
	}
	generatorModel = strings.TrimSpace(generatorModel)
	if generatorModel == "" {
		return Puzzle{}, fmt.Errorf("generator model is required")
	}
	return Puzzle{
		Date:           Day(date),
		Category:       category,
		Difficulty:     difficulty,
		GeneratorModel: generatorModel,
		State:          StateUnscheduled,
		CreatedAt:      now().UTC(),
	}, nil
}

// CrossValidationResult is one model's attempt at solving a published puzzle.
type CrossValidationResult struct {
	Model      string
	Solved     bool
	LatencyMS  int64
	RecordedAt time.Time
}
