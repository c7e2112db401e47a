package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// RunSummary is one row of the run history.
type RunSummary struct {
	ID        string
	StartedAt time.Time
	DryRun    bool
	Window    models.DateWindow
	Metrics   models.RunMetrics
	Error     string
	Targets   int
}

// PlanRecord is the stored outcome of one target in one run.
type PlanRecord struct {
	RunID     string
	StartedAt time.Time
	Target    string
	Status    models.PlanStatus
	Add       int
	Remove    int
	Inserted  int
	Deleted   int
}

// RunRepository persists execution results for the history commands.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save stores result and one row per plan in a single transaction.
func (r *RunRepository) Save(ctx context.Context, result *models.ExecutionResult) error {
	if result.RunID == "" {
		return fmt.Errorf("%w: run id is required", shared.ErrInvalidArgument)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO runs (
			id, started_at, dry_run, window_start, window_end,
			list_calls, insert_calls, delete_calls, duration_sec, error, result_json
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	api := result.Metrics.API
	_, err = tx.ExecContext(ctx, query,
		result.RunID,
		result.StartedAt,
		result.DryRun,
		result.DateWindow.Start,
		result.DateWindow.End,
		api.List,
		api.Insert,
		api.Delete,
		result.Metrics.DurationSec,
		result.Error,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	planQuery := `
		INSERT INTO run_plans (run_id, position, target, playlist_id, mode, status, add_count, remove_count, inserted, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, p := range result.Plans {
		_, err := tx.ExecContext(ctx, planQuery,
			result.RunID, i, p.Target, p.PlaylistID, string(p.Mode), string(p.Status),
			len(p.Add), len(p.Remove), p.Inserted, p.Deleted,
		)
		if err != nil {
			return fmt.Errorf("failed to insert plan %s: %w", p.Target, err)
		}
	}

	return tx.Commit()
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT r.id, r.started_at, r.dry_run, r.window_start, r.window_end,
		       r.list_calls, r.insert_calls, r.delete_calls, r.duration_sec, r.error,
		       (SELECT COUNT(*) FROM run_plans p WHERE p.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.id ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		err := rows.Scan(
			&s.ID, &s.StartedAt, &s.DryRun, &s.Window.Start, &s.Window.End,
			&s.Metrics.API.List, &s.Metrics.API.Insert, &s.Metrics.API.Delete,
			&s.Metrics.DurationSec, &s.Error, &s.Targets,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

// Get loads the full result of a run by ID or by a unique ID prefix.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.ExecutionResult, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: run id is required", shared.ErrInvalidArgument)
	}

	var data string
	err := r.db.QueryRowContext(ctx, "SELECT result_json FROM runs WHERE id = ?", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		data, err = r.getByPrefix(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	var result models.ExecutionResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &result, nil
}

func (r *RunRepository) getByPrefix(ctx context.Context, prefix string) (string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT result_json FROM runs WHERE id LIKE ? || '%' LIMIT 2", prefix)
	if err != nil {
		return "", fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return "", fmt.Errorf("failed to scan run: %w", err)
		}
		matches = append(matches, data)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", shared.ErrRunNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: run id prefix %q is ambiguous", shared.ErrInvalidArgument, prefix)
	}
}

// TargetHistory returns the recorded plans of one target, newest first.
func (r *RunRepository) TargetHistory(ctx context.Context, target string, limit int) ([]PlanRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT p.run_id, r.started_at, p.target, p.status, p.add_count, p.remove_count, p.inserted, p.deleted
		FROM run_plans p
		JOIN runs r ON r.id = p.run_id
		WHERE p.target = ?
		ORDER BY r.started_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query target history: %w", err)
	}
	defer rows.Close()

	var records []PlanRecord
	for rows.Next() {
		var p PlanRecord
		var status string
		if err := rows.Scan(&p.RunID, &p.StartedAt, &p.Target, &status, &p.Add, &p.Remove, &p.Inserted, &p.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		p.Status = models.PlanStatus(status)
		records = append(records, p)
	}
	return records, rows.Err()
}

// Prune deletes all but the newest keep runs and returns the number removed.
func (r *RunRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must not be negative", shared.ErrInvalidArgument)
	}

	keepQuery := "SELECT id FROM runs ORDER BY started_at DESC, id ASC LIMIT ?"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_plans WHERE run_id NOT IN ("+keepQuery+")", keep); err != nil {
		return 0, fmt.Errorf("failed to prune run plans: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id NOT IN ("+keepQuery+")", keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return removed, tx.Commit()
}
