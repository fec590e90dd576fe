package metrics

import "sync/atomic"

// Metrics captures shared operational stats for batch processing.
type Metrics struct {
	runsCompleted  int64
	runsFailed     int64
	chatsProcessed int64
	chatsSkipped   int64
	chatsFailed    int64
	llmRequests    int64
	costMicroUSD   int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	RunsCompleted  int64   `json:"runs_completed"`
	RunsFailed     int64   `json:"runs_failed"`
	ChatsProcessed int64   `json:"chats_processed"`
	ChatsSkipped   int64   `json:"chats_skipped"`
	ChatsFailed    int64   `json:"chats_failed"`
	LLMRequests    int64   `json:"llm_requests"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// RecordRun folds one batch run outcome into the counters.
func (m *Metrics) RecordRun(processed, skipped, failed, llmRequests int, costUSD float64, runFailed bool) {
	if m == nil {
		return
	}
	if runFailed {
		atomic.AddInt64(&m.runsFailed, 1)
		return
	}
	atomic.AddInt64(&m.runsCompleted, 1)
	atomic.AddInt64(&m.chatsProcessed, int64(processed))
	atomic.AddInt64(&m.chatsSkipped, int64(skipped))
	atomic.AddInt64(&m.chatsFailed, int64(failed))
	atomic.AddInt64(&m.llmRequests, int64(llmRequests))
	atomic.AddInt64(&m.costMicroUSD, int64(costUSD*1e6))
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		RunsCompleted:  atomic.LoadInt64(&m.runsCompleted),
		RunsFailed:     atomic.LoadInt64(&m.runsFailed),
		ChatsProcessed: atomic.LoadInt64(&m.chatsProcessed),
		ChatsSkipped:   atomic.LoadInt64(&m.chatsSkipped),
		ChatsFailed:    atomic.LoadInt64(&m.chatsFailed),
		LLMRequests:    atomic.LoadInt64(&m.llmRequests),
		TotalCostUSD:   float64(atomic.LoadInt64(&m.costMicroUSD)) / 1e6,
	}
}
