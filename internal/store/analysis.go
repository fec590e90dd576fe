package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"analytics_framework/internal/analytics"
)

// HasAnalysis reports whether a chat already has a stored analysis row.
func (s *Store) HasAnalysis(ctx context.Context, chatID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_analysis WHERE chat_id = ?`, chatID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertAnalysis stores one per-chat analysis row. The chat_id UNIQUE
// constraint backs the one-row-per-chat invariant even when two runs race;
// a constraint hit surfaces as analytics.ErrAlreadyAnalyzed.
func (s *Store) InsertAnalysis(ctx context.Context, a *analytics.ChatAnalysis) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO chat_analysis (
            id, chat_id, user_id, chat_date,
            first_message_at, last_message_at,
            total_duration_minutes, active_duration_minutes, idle_time_minutes,
            manual_time_low, manual_time_most_likely, manual_time_high,
            confidence_level, time_saved_minutes, message_count,
            chat_summary, llm_response, processing_version, processed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ChatID, a.UserID, a.ChatDate,
		a.Metrics.FirstMessageAt.UTC(), a.Metrics.LastMessageAt.UTC(),
		a.Metrics.TotalMinutes, a.Metrics.ActiveMinutes, a.Metrics.IdleMinutes,
		a.Estimate.Low, a.Estimate.MostLikely, a.Estimate.High,
		a.Estimate.Confidence, a.TimeSavedMinutes, a.MessageCount,
		a.Summary, a.LLMResponse, a.ProcessingVersion, a.ProcessedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return analytics.ErrAlreadyAnalyzed
		}
		return fmt.Errorf("insert analysis for chat %s: %w", a.ChatID, err)
	}
	return nil
}

// AnalysisRow is the read-API projection of one stored analysis.
type AnalysisRow struct {
	ID               string    `json:"id"`
	ChatID           string    `json:"chat_id"`
	UserID           string    `json:"user_id"`
	ChatDate         string    `json:"chat_date"`
	ActiveMinutes    int       `json:"active_duration_minutes"`
	ManualMostLikely int       `json:"manual_time_most_likely"`
	TimeSavedMinutes int       `json:"time_saved_minutes"`
	Confidence       int       `json:"confidence_level"`
	MessageCount     int       `json:"message_count"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// ListAnalyses returns analyses newest first, paged by limit and offset.
func (s *Store) ListAnalyses(ctx context.Context, limit, offset int) ([]AnalysisRow, error) {
	if limit < 1 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, chat_id, user_id, chat_date,
               active_duration_minutes, manual_time_most_likely,
               time_saved_minutes, confidence_level, message_count, processed_at
        FROM chat_analysis
        ORDER BY processed_at DESC
        LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisRow
	for rows.Next() {
		var r AnalysisRow
		if err := rows.Scan(&r.ID, &r.ChatID, &r.UserID, &r.ChatDate,
			&r.ActiveMinutes, &r.ManualMostLikely,
			&r.TimeSavedMinutes, &r.Confidence, &r.MessageCount, &r.ProcessedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
