package analytics

import (
	"errors"
	"time"
)

// Run status values recorded in the processing log.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// DateLayout is the calendar-date format used for occurrence dates and
// aggregate keys.
const DateLayout = "2006-01-02"

var (
	// ErrNoEstimate signals that the language model produced no usable
	// estimate for a chat. It is a per-chat failure, never a batch abort.
	ErrNoEstimate = errors.New("no time estimate available")

	// ErrEmptyChat marks a chat without messages; such chats are skipped,
	// not failed.
	ErrEmptyChat = errors.New("chat has no messages")

	// ErrAlreadyAnalyzed marks a chat that already has a stored analysis.
	ErrAlreadyAnalyzed = errors.New("chat already analyzed")

	// ErrRunInProgress is returned when a batch run is requested while
	// another run holds the process-wide lock.
	ErrRunInProgress = errors.New("batch run already in progress")
)

// Message is a single transcript entry. Timestamp is unix seconds and may be
// zero when the source export carries no per-message times.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// ChatRecord is the read-only chat input fetched from the chat store.
type ChatRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
}

// TimeMetrics holds derived timing figures for one chat. Active never
// exceeds total, and idle is always total minus active.
type TimeMetrics struct {
	FirstMessageAt time.Time
	LastMessageAt  time.Time
	TotalMinutes   int
	ActiveMinutes  int
	IdleMinutes    int
}

// TimeEstimate is the validated manual-time estimate produced by the model.
// Invariants: 0 <= Low <= MostLikely <= High, 0 <= Confidence <= 100.
type TimeEstimate struct {
	Low        int
	MostLikely int
	High       int
	Confidence int
}

// ChatAnalysis is the durable per-chat analytic record. One row per chat,
// unique on ChatID, created exactly once.
type ChatAnalysis struct {
	ID                string
	ChatID            string
	UserID            string
	ChatDate          string // occurrence date, from the chat's creation time
	Metrics           TimeMetrics
	Estimate          TimeEstimate
	TimeSavedMinutes  int
	MessageCount      int
	Summary           string
	LLMResponse       string
	ProcessingVersion string
	ProcessedAt       time.Time
}

// ChatResult is the compact per-chat outcome fed into daily aggregation.
type ChatResult struct {
	AnalysisID       string
	ChatID           string
	UserID           string
	ChatDate         string
	TimeSavedMinutes int
	ActiveMinutes    int
	ManualMostLikely int
	MessageCount     int
	Confidence       int
}

// DailyBatch is one aggregation unit: the totals contributed by a single
// batch run to one (date, user) aggregate row. An empty UserID addresses the
// global row for the date.
type DailyBatch struct {
	Date          string
	UserID        string
	ChatCount     int
	MessageCount  int
	ActiveMinutes int
	ManualMinutes int
	SavedMinutes  int
	AvgConfidence float64
}

// RunResult summarizes one batch run for callers and the processing log.
type RunResult struct {
	ProcessingLogID string  `json:"processing_log_id"`
	TargetDate      string  `json:"target_date"`
	Status          string  `json:"status"`
	Processed       int     `json:"processed_count"`
	Skipped         int     `json:"skipped_count"`
	Failed          int     `json:"failed_count"`
	LLMRequests     int     `json:"llm_call_count"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
	DurationSeconds int     `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
}

// RunCompleted is published on the event bus after a successful batch run so
// read caches can invalidate.
type RunCompleted struct {
	TargetDate string
	Result     RunResult
}
