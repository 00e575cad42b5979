// Package storage defines the persistence contracts for the puzzle service.
package storage

import (
	"context"
	"time"

	apperrors "github.com/dailystump/stumpd/internal/platform/errors"
	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrPuzzleExists indicates a puzzle already exists for the
	// (date, category) pair.
	ErrPuzzleExists = apperrors.New(apperrors.CodePuzzleAlreadyExists, "puzzle already exists for date and category")
	// ErrStateConflict indicates a compare-and-set state write lost to a
	// concurrent transition or an illegal state change.
	ErrStateConflict = apperrors.New(apperrors.CodePuzzleInvalidStateTransition, "puzzle state conflict")
)

// PuzzleStore persists puzzle lifecycle records keyed by (date, category).
type PuzzleStore interface {
	// CreatePuzzle inserts the initial record; a duplicate key returns
	// ErrPuzzleExists.
	CreatePuzzle(ctx context.Context, puzzle domain.Puzzle) error
	// GetPuzzle loads one puzzle or ErrNotFound.
	GetPuzzle(ctx context.Context, date time.Time, category domain.Category) (domain.Puzzle, error)
	// TransitionState moves a puzzle from exactly the expected state to the
	// next one, persisting any updated fields carried on update. A state
	// mismatch returns ErrStateConflict.
	TransitionState(ctx context.Context, date time.Time, category domain.Category, from, to domain.State, update PuzzleUpdate) error
	// AppendCrossValidation upserts one model's solve result for a puzzle.
	AppendCrossValidation(ctx context.Context, date time.Time, category domain.Category, result domain.CrossValidationResult) error
	// ListCrossValidation returns recorded results in model order.
	ListCrossValidation(ctx context.Context, date time.Time, category domain.Category) ([]domain.CrossValidationResult, error)
}

// PuzzleUpdate carries optional field updates applied atomically with a
// state transition.
type PuzzleUpdate struct {
	Content                *domain.Content
	SelfValidationAttempts *int
	Verdict                *domain.Verdict
	PublishedAt            *time.Time
	EvaluatedAt            *time.Time
}

// DifficultyStore persists per-category difficulty state and its history.
type DifficultyStore interface {
	// GetDifficulty returns the category's current state, or a default-seeded
	// state when none has been recorded yet.
	GetDifficulty(ctx context.Context, category domain.Category) (domain.DifficultyState, error)
	// RecordAdjustment appends a history entry and moves the current value.
	// A second entry for the same (category, date) returns ErrStateConflict.
	RecordAdjustment(ctx context.Context, adjustment domain.DifficultyAdjustment) error
	// ListAdjustments returns newest-first history for a category.
	ListAdjustments(ctx context.Context, category domain.Category, limit int) ([]domain.DifficultyAdjustment, error)
}

// TallyStore persists cumulative stump tallies per (model, category).
type TallyStore interface {
	// BumpTally increments totals for one evaluated puzzle, creating the row
	// if absent. stumped controls whether the stump count advances.
	BumpTally(ctx context.Context, model string, category domain.Category, stumped bool, now time.Time) error
	// ListTallies returns tallies, optionally filtered by category.
	ListTallies(ctx context.Context, category *domain.Category) ([]domain.StumpTally, error)
}

// Store aggregates the persistence surfaces the puzzle service needs.
type Store interface {
	PuzzleStore
	DifficultyStore
	TallyStore
}
