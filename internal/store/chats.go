package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"analytics_framework/internal/analytics"
)

// UpsertChat inserts or replaces one chat record. Messages are stored as a
// JSON array so the ingest path stays schema-free.
func (s *Store) UpsertChat(ctx context.Context, chat analytics.ChatRecord) error {
	messages, err := json.Marshal(chat.Messages)
	if err != nil {
		return fmt.Errorf("encode messages for chat %s: %w", chat.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO chats (id, user_id, title, messages_json, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            user_id = excluded.user_id,
            title = excluded.title,
            messages_json = excluded.messages_json,
            created_at = excluded.created_at,
            updated_at = excluded.updated_at`,
		chat.ID, chat.UserID, chat.Title, string(messages), chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert chat %s: %w", chat.ID, err)
	}
	return nil
}

// CountChats reports how many chats are stored.
func (s *Store) CountChats(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&n)
	return n, err
}

// ChatFeed adapts the chats table into a batch-run candidate source. With
// FetchAll set every stored chat is a candidate; otherwise candidates are
// chats created within WindowDays around the target date, which tolerates
// exports whose timestamps straddle midnight or a timezone boundary.
type ChatFeed struct {
	Store      *Store
	WindowDays int
	FetchAll   bool
}

func (f *ChatFeed) FetchChats(ctx context.Context, targetDate string) ([]analytics.ChatRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if f.FetchAll {
		rows, err = f.Store.db.QueryContext(ctx, `
            SELECT id, user_id, title, messages_json, created_at, updated_at
            FROM chats ORDER BY created_at`)
	} else {
		day, perr := time.Parse(analytics.DateLayout, targetDate)
		if perr != nil {
			return nil, fmt.Errorf("invalid target date %q: %w", targetDate, perr)
		}
		window := f.WindowDays
		if window < 0 {
			window = 0
		}
		from := day.AddDate(0, 0, -window).Unix()
		to := day.AddDate(0, 0, window+1).Unix()
		rows, err = f.Store.db.QueryContext(ctx, `
            SELECT id, user_id, title, messages_json, created_at, updated_at
            FROM chats WHERE created_at >= ? AND created_at < ? ORDER BY created_at`,
			from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch chats: %w", err)
	}
	defer rows.Close()

	var chats []analytics.ChatRecord
	for rows.Next() {
		var (
			chat     analytics.ChatRecord
			messages string
		)
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &messages, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(messages), &chat.Messages); err != nil {
			return nil, fmt.Errorf("decode messages for chat %s: %w", chat.ID, err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}
