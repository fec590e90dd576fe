package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"analytics_framework/internal/analytics"
)

// StartRun opens a processing-log row in the running state and returns its id.
func (s *Store) StartRun(ctx context.Context, targetDate string, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO processing_log (id, target_date, status, started_at)
        VALUES (?, ?, ?, ?)`,
		id, targetDate, analytics.RunStatusRunning, startedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("start run for %s: %w", targetDate, err)
	}
	return id, nil
}

// CompleteRun moves a running row to its terminal status exactly once. The
// WHERE status guard means a second completion attempt is detected rather
// than silently overwriting the audit trail.
func (s *Store) CompleteRun(ctx context.Context, id string, result analytics.RunResult, completedAt time.Time) error {
	var errMsg sql.NullString
	if result.Error != "" {
		errMsg = sql.NullString{String: result.Error, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE processing_log SET
            status = ?,
            completed_at = ?,
            chats_processed = ?,
            chats_skipped = ?,
            chats_failed = ?,
            total_llm_requests = ?,
            total_llm_cost_usd = ?,
            processing_duration_seconds = ?,
            error_message = ?
        WHERE id = ? AND status = ?`,
		result.Status, completedAt.UTC(),
		result.Processed, result.Skipped, result.Failed,
		result.LLMRequests, result.TotalCostUSD, result.DurationSeconds,
		errMsg, id, analytics.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s is not in the running state", id)
	}
	return nil
}

// RunRow is one processing-log entry as served by the read API.
type RunRow struct {
	ID              string     `json:"id"`
	TargetDate      string     `json:"target_date"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Processed       int        `json:"chats_processed"`
	Skipped         int        `json:"chats_skipped"`
	Failed          int        `json:"chats_failed"`
	LLMRequests     int        `json:"total_llm_requests"`
	TotalCostUSD    float64    `json:"total_llm_cost_usd"`
	DurationSeconds int        `json:"processing_duration_seconds"`
	Error           string     `json:"error_message,omitempty"`
}

// LatestRun returns the most recently started run, or nil when the log is
// empty.
func (s *Store) LatestRun(ctx context.Context) (*RunRow, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, target_date, status, started_at, completed_at,
               chats_processed, chats_skipped, chats_failed,
               total_llm_requests, total_llm_cost_usd,
               COALESCE(processing_duration_seconds, 0),
               COALESCE(error_message, '')
        FROM processing_log ORDER BY started_at DESC LIMIT 1`)

	var (
		r         RunRow
		completed sql.NullTime
	)
	err := row.Scan(&r.ID, &r.TargetDate, &r.Status, &r.StartedAt, &completed,
		&r.Processed, &r.Skipped, &r.Failed,
		&r.LLMRequests, &r.TotalCostUSD, &r.DurationSeconds, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

// ListRuns returns recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRow, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, target_date, status, started_at, completed_at,
               chats_processed, chats_skipped, chats_failed,
               total_llm_requests, total_llm_cost_usd,
               COALESCE(processing_duration_seconds, 0),
               COALESCE(error_message, '')
        FROM processing_log ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var (
			r         RunRow
			completed sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.TargetDate, &r.Status, &r.StartedAt, &completed,
			&r.Processed, &r.Skipped, &r.Failed,
			&r.LLMRequests, &r.TotalCostUSD, &r.DurationSeconds, &r.Error); err != nil {
			return nil, err
		}
		if completed.Valid {
			t := completed.Time
			r.CompletedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
