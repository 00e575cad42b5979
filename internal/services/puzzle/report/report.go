// Package report exposes read-only projections for the API and UI layers:
// current difficulty, published puzzles with solutions stripped, and the
// stump leaderboard.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
	"github.com/dailystump/stumpd/internal/services/puzzle/storage"
)

// Service serves projections straight from committed storage, so reads
// reflect the latest evaluation writes.
type Service struct {
	store  storage.Store
	roster []string
}

// NewService builds a reporting service over the given store. rosterIDs is
// the manifest order used for ranking tie-breaks.
func NewService(store storage.Store, rosterIDs []string) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Service{store: store, roster: rosterIDs}, nil
}

// DifficultyView is the public difficulty summary for one category.
type DifficultyView struct {
	Category   domain.Category
	Difficulty float64
	Tier       domain.Tier
}

// Difficulty returns the current difficulty and tier for a category.
func (s *Service) Difficulty(ctx context.Context, category domain.Category) (DifficultyView, error) {
	state, err := s.store.GetDifficulty(ctx, category)
	if err != nil {
		return DifficultyView{}, fmt.Errorf("load difficulty: %w", err)
	}
	return DifficultyView{
		Category:   category,
		Difficulty: state.Current,
		Tier:       state.Tier(),
	}, nil
}

// PuzzleView is the player-facing slice of a published puzzle. The declared
// solution never appears here.
type PuzzleView struct {
	ID          string
	Category    domain.Category
	Tier        domain.Tier
	Question    string
	Interaction domain.Interaction
	MediaURL    string
	Hints       []string
	State       domain.State
	Verdict     domain.Verdict
	PublishedAt time.Time
}

// PublishedPuzzle returns the public view of a day's puzzle. A puzzle that
// never reached publication reports ErrNotFound: a failed generation day is
// an absence, not an error.
func (s *Service) PublishedPuzzle(ctx context.Context, date time.Time, category domain.Category) (PuzzleView, error) {
	puzzle, err := s.store.GetPuzzle(ctx, date, category)
	if err != nil {
		return PuzzleView{}, err
	}
	if puzzle.PublishedAt.IsZero() {
		return PuzzleView{}, storage.ErrNotFound
	}
	return PuzzleView{
		ID:          puzzle.ID(),
		Category:    puzzle.Category,
		Tier:        domain.TierFor(puzzle.Difficulty),
		Question:    puzzle.Content.Question,
		Interaction: puzzle.Content.Interaction,
		MediaURL:    puzzle.Content.MediaURL,
		Hints:       puzzle.Content.Hints,
		State:       puzzle.State,
		Verdict:     puzzle.Verdict,
		PublishedAt: puzzle.PublishedAt,
	}, nil
}

// Rank returns the stump leaderboard, optionally scoped to one category.
func (s *Service) Rank(ctx context.Context, category *domain.Category) ([]domain.RankedTally, error) {
	tallies, err := s.store.ListTallies(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("load tallies: %w", err)
	}
	return domain.RankTallies(tallies, s.roster), nil
}
