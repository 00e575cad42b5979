// Package sqlite provides SQLite-backed persistence for the puzzle service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dailystump/stumpd/internal/platform/storage/sqlitemigrate"
	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
	"github.com/dailystump/stumpd/internal/services/puzzle/storage"
	"github.com/dailystump/stumpd/internal/services/puzzle/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed puzzle, difficulty, and tally persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the puzzle SQLite store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreatePuzzle inserts the initial lifecycle record for a day's puzzle.
func (s *Store) CreatePuzzle(ctx context.Context, puzzle domain.Puzzle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	contentBlob, err := json.Marshal(puzzle.Content)
	if err != nil {
		return fmt.Errorf("encode puzzle content: %w", err)
	}
	if puzzle.CreatedAt.IsZero() {
		puzzle.CreatedAt = time.Now().UTC()
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO puzzles (
	date,
	category,
	difficulty,
	generator_model,
	state,
	content,
	self_validation_attempts,
	verdict,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		domain.DayKey(puzzle.Date),
		string(puzzle.Category),
		puzzle.Difficulty,
		puzzle.GeneratorModel,
		string(puzzle.State),
		string(contentBlob),
		puzzle.SelfValidationAttempts,
		string(puzzle.Verdict),
		puzzle.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrPuzzleExists
		}
		return fmt.Errorf("create puzzle: %w", err)
	}
	return nil
}

// GetPuzzle loads one puzzle by (date, category).
func (s *Store) GetPuzzle(ctx context.Context, date time.Time, category domain.Category) (domain.Puzzle, error) {
	if err := ctx.Err(); err != nil {
		return domain.Puzzle{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Puzzle{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT
	date,
	category,
	difficulty,
	generator_model,
	state,
	content,
	self_validation_attempts,
	verdict,
	created_at,
	published_at,
	evaluated_at
FROM puzzles
WHERE date = ? AND category = ?
`, domain.DayKey(date), string(category))

	var (
		puzzle      domain.Puzzle
		dateKey     string
		categoryRaw string
		stateRaw    string
		contentRaw  string
		verdictRaw  string
		createdAt   int64
		publishedAt sql.NullInt64
		evaluatedAt sql.NullInt64
	)
	err := row.Scan(
		&dateKey,
		&categoryRaw,
		&puzzle.Difficulty,
		&puzzle.GeneratorModel,
		&stateRaw,
		&contentRaw,
		&puzzle.SelfValidationAttempts,
		&verdictRaw,
		&createdAt,
		&publishedAt,
		&evaluatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Puzzle{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Puzzle{}, fmt.Errorf("get puzzle: %w", err)
	}

	parsedDate, err := time.ParseInLocation(domain.DayFormat, dateKey, time.UTC)
	if err != nil {
		return domain.Puzzle{}, fmt.Errorf("parse puzzle date %q: %w", dateKey, err)
	}
	puzzle.Date = parsedDate
	puzzle.Category = domain.Category(categoryRaw)
	puzzle.State = domain.State(stateRaw)
	if verdict, ok := domain.ParseVerdict(verdictRaw); ok {
		puzzle.Verdict = verdict
	}
	if contentRaw != "" {
		if err := json.Unmarshal([]byte(contentRaw), &puzzle.Content); err != nil {
			return domain.Puzzle{}, fmt.Errorf("decode puzzle content: %w", err)
		}
	}
	puzzle.CreatedAt = time.UnixMilli(createdAt).UTC()
	if publishedAt.Valid {
		puzzle.PublishedAt = time.UnixMilli(publishedAt.Int64).UTC()
	}
	if evaluatedAt.Valid {
		puzzle.EvaluatedAt = time.UnixMilli(evaluatedAt.Int64).UTC()
	}
	return puzzle, nil
}

// TransitionState performs a compare-and-set lifecycle transition, applying
// optional field updates in the same statement. The expected-state guard
// serializes concurrent writers without a separate lock.
func (s *Store) TransitionState(ctx context.Context, date time.Time, category domain.Category, from, to domain.State, update storage.PuzzleUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if !domain.IsStateTransitionAllowed(from, to) {
		return storage.ErrStateConflict
	}

	setClauses := []string{"state = ?"}
	args := []any{string(to)}
	if update.Content != nil {
		contentBlob, err := json.Marshal(*update.Content)
		if err != nil {
			return fmt.Errorf("encode puzzle content: %w", err)
		}
		setClauses = append(setClauses, "content = ?")
		args = append(args, string(contentBlob))
	}
	if update.SelfValidationAttempts != nil {
		setClauses = append(setClauses, "self_validation_attempts = ?")
		args = append(args, *update.SelfValidationAttempts)
	}
	if update.Verdict != nil {
		setClauses = append(setClauses, "verdict = ?")
		args = append(args, string(*update.Verdict))
	}
	if update.PublishedAt != nil {
		setClauses = append(setClauses, "published_at = ?")
		args = append(args, update.PublishedAt.UTC().UnixMilli())
	}
	if update.EvaluatedAt != nil {
		setClauses = append(setClauses, "evaluated_at = ?")
		args = append(args, update.EvaluatedAt.UTC().UnixMilli())
	}
	args = append(args, domain.DayKey(date), string(category), string(from))

	result, err := s.sqlDB.ExecContext(ctx,
		"UPDATE puzzles SET "+strings.Join(setClauses, ", ")+" WHERE date = ? AND category = ? AND state = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("transition puzzle state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrStateConflict
	}
	return nil
}

// AppendCrossValidation upserts one model's solve result. Re-running a
// validation task overwrites its previous row rather than duplicating it.
func (s *Store) AppendCrossValidation(ctx context.Context, date time.Time, category domain.Category, result domain.CrossValidationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	result.Model = strings.TrimSpace(result.Model)
	if result.Model == "" {
		return fmt.Errorf("model is required")
	}
	if result.RecordedAt.IsZero() {
		result.RecordedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO cross_validation_results (date, category, model, solved, latency_ms, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (date, category, model) DO UPDATE SET
	solved = excluded.solved,
	latency_ms = excluded.latency_ms,
	recorded_at = excluded.recorded_at
`,
		domain.DayKey(date),
		string(category),
		result.Model,
		boolToInt(result.Solved),
		result.LatencyMS,
		result.RecordedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append cross validation: %w", err)
	}
	return nil
}

// ListCrossValidation returns recorded results ordered by model.
func (s *Store) ListCrossValidation(ctx context.Context, date time.Time, category domain.Category) ([]domain.CrossValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT model, solved, latency_ms, recorded_at
FROM cross_validation_results
WHERE date = ? AND category = ?
ORDER BY model
`, domain.DayKey(date), string(category))
	if err != nil {
		return nil, fmt.Errorf("list cross validation: %w", err)
	}
	defer rows.Close()

	var results []domain.CrossValidationResult
	for rows.Next() {
		var (
			result     domain.CrossValidationResult
			solved     int
			recordedAt int64
		)
		if err := rows.Scan(&result.Model, &solved, &result.LatencyMS, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan cross validation: %w", err)
		}
		result.Solved = solved != 0
		result.RecordedAt = time.UnixMilli(recordedAt).UTC()
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cross validation: %w", err)
	}
	return results, nil
}

// GetDifficulty returns the current difficulty for a category, seeding the
// default when the category has no recorded state yet.
func (s *Store) GetDifficulty(ctx context.Context, category domain.Category) (domain.DifficultyState, error) {
	if err := ctx.Err(); err != nil {
		return domain.DifficultyState{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.DifficultyState{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT current, updated_at FROM difficulty_state WHERE category = ?",
		string(category),
	)
	var (
		current   float64
		updatedAt int64
	)
	err := row.Scan(&current, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.DifficultyState{Category: category, Current: domain.DefaultDifficulty}, nil
	}
	if err != nil {
		return domain.DifficultyState{}, fmt.Errorf("get difficulty: %w", err)
	}
	return domain.DifficultyState{
		Category:  category,
		Current:   current,
		UpdatedAt: time.UnixMilli(updatedAt).UTC(),
	}, nil
}

// RecordAdjustment appends a history entry and moves the current value in
// one transaction. The (category, date) uniqueness makes window-close
// evaluation single-writer per day.
func (s *Store) RecordAdjustment(ctx context.Context, adjustment domain.DifficultyAdjustment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if adjustment.RecordedAt.IsZero() {
		adjustment.RecordedAt = time.Now().UTC()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin adjustment transaction: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO difficulty_history (category, date, previous_difficulty, delta, new_difficulty, reason, recorded_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		string(adjustment.Category),
		domain.DayKey(adjustment.Date),
		adjustment.Previous,
		adjustment.Delta,
		adjustment.New,
		adjustment.Reason,
		adjustment.RecordedAt.UTC().UnixMilli(),
	)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return storage.ErrStateConflict
		}
		return fmt.Errorf("record adjustment: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO difficulty_state (category, current, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (category) DO UPDATE SET
	current = excluded.current,
	updated_at = excluded.updated_at
`,
		string(adjustment.Category),
		adjustment.New,
		adjustment.RecordedAt.UTC().UnixMilli(),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update difficulty state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit adjustment: %w", err)
	}
	return nil
}

// ListAdjustments returns newest-first history entries for a category.
func (s *Store) ListAdjustments(ctx context.Context, category domain.Category, limit int) ([]domain.DifficultyAdjustment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT date, previous_difficulty, delta, new_difficulty, reason, recorded_at
FROM difficulty_history
WHERE category = ?
ORDER BY date DESC
LIMIT ?
`, string(category), limit)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []domain.DifficultyAdjustment
	for rows.Next() {
		var (
			adjustment domain.DifficultyAdjustment
			dateKey    string
			recordedAt int64
		)
		if err := rows.Scan(&dateKey, &adjustment.Previous, &adjustment.Delta, &adjustment.New, &adjustment.Reason, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		parsedDate, err := time.ParseInLocation(domain.DayFormat, dateKey, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse adjustment date %q: %w", dateKey, err)
		}
		adjustment.Category = category
		adjustment.Date = parsedDate
		adjustment.RecordedAt = time.UnixMilli(recordedAt).UTC()
		adjustments = append(adjustments, adjustment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate adjustments: %w", err)
	}
	return adjustments, nil
}

// BumpTally advances the (model, category) tally for one evaluated puzzle.
func (s *Store) BumpTally(ctx context.Context, model string, category domain.Category, stumped bool, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	stumpIncrement := 0
	if stumped {
		stumpIncrement = 1
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO stump_tally (model, category, total_generated, successful_stumps, updated_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT (model, category) DO UPDATE SET
	total_generated = total_generated + 1,
	successful_stumps = successful_stumps + ?,
	updated_at = excluded.updated_at
`,
		model,
		string(category),
		stumpIncrement,
		now.UTC().UnixMilli(),
		stumpIncrement,
	)
	if err != nil {
		return fmt.Errorf("bump tally: %w", err)
	}
	return nil
}

// ListTallies returns stump tallies, optionally filtered to one category.
func (s *Store) ListTallies(ctx context.Context, category *domain.Category) ([]domain.StumpTally, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := `
SELECT model, category, total_generated, successful_stumps, updated_at
FROM stump_tally
`
	var args []any
	if category != nil {
		query += "WHERE category = ?\n"
		args = append(args, string(*category))
	}
	query += "ORDER BY model, category"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tallies: %w", err)
	}
	defer rows.Close()

	var tallies []domain.StumpTally
	for rows.Next() {
		var (
			tally       domain.StumpTally
			categoryRaw string
			updatedAt   int64
		)
		if err := rows.Scan(&tally.Model, &categoryRaw, &tally.TotalGenerated, &tally.SuccessfulStumps, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		tally.Category = domain.Category(categoryRaw)
		tally.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		tallies = append(tallies, tally)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tallies: %w", err)
	}
	return tallies, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

var _ storage.Store = (*Store)(nil)
