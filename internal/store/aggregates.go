package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"analytics_framework/internal/analytics"
	"analytics_framework/internal/format"
)

// ApplyDailyBatches merges a run's per-date contributions into the
// daily_aggregates table inside a single transaction. Counters add onto the
// stored row; the confidence average is re-weighted by chat counts so that
// reprocessing days in any order converges to the same figure.
func (s *Store) ApplyDailyBatches(ctx context.Context, batches []analytics.DailyBatch) error {
	if len(batches) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, b := range batches {
		if err := applyBatch(ctx, tx, b, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func applyBatch(ctx context.Context, tx *sql.Tx, b analytics.DailyBatch, now time.Time) error {
	var (
		id            string
		chatCount     int
		avgConfidence float64
	)
	err := tx.QueryRowContext(ctx, `
        SELECT id, chat_count, avg_confidence_level
        FROM daily_aggregates WHERE analysis_date = ? AND user_id = ?`,
		b.Date, b.UserID).Scan(&id, &chatCount, &avgConfidence)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
            INSERT INTO daily_aggregates (
                id, analysis_date, user_id,
                chat_count, message_count,
                total_active_time, total_manual_time_estimated, total_time_saved,
                avg_confidence_level, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), b.Date, b.UserID,
			b.ChatCount, b.MessageCount,
			b.ActiveMinutes, b.ManualMinutes, b.SavedMinutes,
			b.AvgConfidence, now, now)
		return err
	case err != nil:
		return err
	}

	merged := analytics.MergeConfidence(avgConfidence, chatCount, b.AvgConfidence, b.ChatCount)
	_, err = tx.ExecContext(ctx, `
        UPDATE daily_aggregates SET
            chat_count = chat_count + ?,
            message_count = message_count + ?,
            total_active_time = total_active_time + ?,
            total_manual_time_estimated = total_manual_time_estimated + ?,
            total_time_saved = total_time_saved + ?,
            avg_confidence_level = ?,
            updated_at = ?
        WHERE id = ?`,
		b.ChatCount, b.MessageCount,
		b.ActiveMinutes, b.ManualMinutes, b.SavedMinutes,
		merged, now, id)
	return err
}

// SummaryTotals is the all-time global rollup served by the read API.
type SummaryTotals struct {
	TotalChats        int     `json:"total_chats"`
	TotalMessages     int     `json:"total_messages"`
	TotalActiveTime   int     `json:"total_active_time_minutes"`
	TotalManualTime   int     `json:"total_manual_time_minutes"`
	TotalTimeSaved    int     `json:"total_time_saved_minutes"`
	AvgConfidence     float64 `json:"avg_confidence_level"`
	DaysWithActivity  int     `json:"days_with_activity"`
	AvgSavedPerChat   float64 `json:"avg_time_saved_per_chat_minutes"`
	HoursSavedOverall float64 `json:"total_hours_saved"`
	TimeSavedDisplay  string  `json:"time_saved_display"`
}

// Summary folds every global daily row into one all-time view. The
// confidence figure is chat-count weighted across days.
func (s *Store) Summary(ctx context.Context) (SummaryTotals, error) {
	var (
		t             SummaryTotals
		weightedConf  sql.NullFloat64
		activeDayRows sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT
            COALESCE(SUM(chat_count), 0),
            COALESCE(SUM(message_count), 0),
            COALESCE(SUM(total_active_time), 0),
            COALESCE(SUM(total_manual_time_estimated), 0),
            COALESCE(SUM(total_time_saved), 0),
            SUM(avg_confidence_level * chat_count),
            COUNT(*)
        FROM daily_aggregates WHERE user_id = ''`).Scan(
		&t.TotalChats, &t.TotalMessages, &t.TotalActiveTime,
		&t.TotalManualTime, &t.TotalTimeSaved, &weightedConf, &activeDayRows)
	if err != nil {
		return SummaryTotals{}, err
	}
	t.DaysWithActivity = int(activeDayRows.Int64)
	if t.TotalChats > 0 {
		if weightedConf.Valid {
			t.AvgConfidence = weightedConf.Float64 / float64(t.TotalChats)
		}
		t.AvgSavedPerChat = float64(t.TotalTimeSaved) / float64(t.TotalChats)
	}
	t.HoursSavedOverall = float64(t.TotalTimeSaved) / 60
	t.TimeSavedDisplay = format.Minutes(t.TotalTimeSaved)
	return t, nil
}

// TrendPoint is one day of the global time-saved trend.
type TrendPoint struct {
	Date          string  `json:"date"`
	ChatCount     int     `json:"chat_count"`
	ActiveMinutes int     `json:"active_minutes"`
	SavedMinutes  int     `json:"time_saved_minutes"`
	AvgConfidence float64 `json:"avg_confidence_level"`
}

// DailyTrend returns the last `days` global rows in ascending date order.
func (s *Store) DailyTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	if days < 1 {
		days = 30
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT analysis_date, chat_count, total_active_time, total_time_saved, avg_confidence_level
        FROM (
            SELECT analysis_date, chat_count, total_active_time, total_time_saved, avg_confidence_level
            FROM daily_aggregates WHERE user_id = ''
            ORDER BY analysis_date DESC LIMIT ?
        ) ORDER BY analysis_date ASC`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.ChatCount, &p.ActiveMinutes, &p.SavedMinutes, &p.AvgConfidence); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UserTotals is one user's all-time rollup.
type UserTotals struct {
	UserID        string  `json:"user_id"`
	ChatCount     int     `json:"chat_count"`
	ActiveMinutes int     `json:"active_minutes"`
	SavedMinutes  int     `json:"time_saved_minutes"`
	AvgConfidence float64 `json:"avg_confidence_level"`
}

// UserBreakdown returns per-user totals ordered by time saved, capped at
// limit users. The global '' rows are excluded.
func (s *Store) UserBreakdown(ctx context.Context, limit int) ([]UserTotals, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT user_id,
               SUM(chat_count),
               SUM(total_active_time),
               SUM(total_time_saved),
               SUM(avg_confidence_level * chat_count) / SUM(chat_count)
        FROM daily_aggregates
        WHERE user_id != '' AND chat_count > 0
        GROUP BY user_id
        ORDER BY SUM(total_time_saved) DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserTotals
	for rows.Next() {
		var u UserTotals
		if err := rows.Scan(&u.UserID, &u.ChatCount, &u.ActiveMinutes, &u.SavedMinutes, &u.AvgConfidence); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
