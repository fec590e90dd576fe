package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite access for chats, analyses, aggregates, and the
// processing log.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// modernc sqlite allows one writer; serialize access through a single
	// connection to avoid SQLITE_BUSY under concurrent analysis inserts.
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chats (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            title TEXT NOT NULL DEFAULT '',
            messages_json TEXT NOT NULL DEFAULT '[]',
            created_at INTEGER NOT NULL,
            updated_at INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS chat_analysis (
            id TEXT PRIMARY KEY,
            chat_id TEXT NOT NULL UNIQUE,
            user_id TEXT NOT NULL,
            chat_date TEXT NOT NULL,
            first_message_at TIMESTAMP NOT NULL,
            last_message_at TIMESTAMP NOT NULL,
            total_duration_minutes INTEGER NOT NULL,
            active_duration_minutes INTEGER NOT NULL,
            idle_time_minutes INTEGER NOT NULL,
            manual_time_low INTEGER NOT NULL,
            manual_time_most_likely INTEGER NOT NULL,
            manual_time_high INTEGER NOT NULL,
            confidence_level INTEGER NOT NULL,
            time_saved_minutes INTEGER NOT NULL,
            message_count INTEGER NOT NULL,
            chat_summary TEXT,
            llm_response TEXT,
            processing_version TEXT NOT NULL DEFAULT '1.0',
            processed_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_chat_analysis_date ON chat_analysis(chat_date);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_analysis_user_date ON chat_analysis(user_id, chat_date);`,
		`CREATE TABLE IF NOT EXISTS daily_aggregates (
            id TEXT PRIMARY KEY,
            analysis_date TEXT NOT NULL,
            user_id TEXT NOT NULL DEFAULT '',
            chat_count INTEGER NOT NULL DEFAULT 0,
            message_count INTEGER NOT NULL DEFAULT 0,
            total_active_time INTEGER NOT NULL DEFAULT 0,
            total_manual_time_estimated INTEGER NOT NULL DEFAULT 0,
            total_time_saved INTEGER NOT NULL DEFAULT 0,
            avg_confidence_level REAL NOT NULL DEFAULT 0,
            created_at TIMESTAMP NOT NULL,
            updated_at TIMESTAMP NOT NULL,
            UNIQUE(analysis_date, user_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_daily_aggregates_date ON daily_aggregates(analysis_date);`,
		`CREATE TABLE IF NOT EXISTS processing_log (
            id TEXT PRIMARY KEY,
            target_date TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'running',
            started_at TIMESTAMP NOT NULL,
            completed_at TIMESTAMP,
            chats_processed INTEGER NOT NULL DEFAULT 0,
            chats_skipped INTEGER NOT NULL DEFAULT 0,
            chats_failed INTEGER NOT NULL DEFAULT 0,
            total_llm_requests INTEGER NOT NULL DEFAULT 0,
            total_llm_cost_usd REAL NOT NULL DEFAULT 0,
            processing_duration_seconds INTEGER,
            error_message TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS idx_processing_log_target_date ON processing_log(target_date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Health returns err if the DB is not reachable.
func (s *Store) Health(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT 1`)
	var v int
	if err := row.Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}
