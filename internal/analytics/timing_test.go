package analytics

import (
	"testing"
	"time"
)

func chatWithOffsets(base int64, offsetsMin ...int64) ChatRecord {
	msgs := make([]Message, len(offsetsMin))
	for i, off := range offsetsMin {
		msgs[i] = Message{Role: "user", Content: "m", Timestamp: base + off*60}
	}
	return ChatRecord{ID: "c1", UserID: "u1", Messages: msgs, CreatedAt: base, UpdatedAt: base}
}

func TestComputeTimeMetricsSplitsActiveAndIdle(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Unix()
	// Gaps of 5, 3, and 17 minutes against a 10 minute threshold.
	chat := chatWithOffsets(base, 0, 5, 8, 25)

	m := ComputeTimeMetrics(chat, 10*time.Minute)
	if m.TotalMinutes != 25 {
		t.Fatalf("total = %d, want 25", m.TotalMinutes)
	}
	if m.ActiveMinutes != 8 {
		t.Fatalf("active = %d, want 8", m.ActiveMinutes)
	}
	if m.IdleMinutes != 17 {
		t.Fatalf("idle = %d, want 17", m.IdleMinutes)
	}
}

func TestComputeTimeMetricsGapEqualToThresholdIsActive(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Unix()
	chat := chatWithOffsets(base, 0, 10)

	m := ComputeTimeMetrics(chat, 10*time.Minute)
	if m.ActiveMinutes != 10 {
		t.Fatalf("active = %d, want 10", m.ActiveMinutes)
	}
	if m.IdleMinutes != 0 {
		t.Fatalf("idle = %d, want 0", m.IdleMinutes)
	}
}

func TestComputeTimeMetricsGapBeyondThresholdIsIdle(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Unix()
	chat := chatWithOffsets(base, 0, 11)

	m := ComputeTimeMetrics(chat, 10*time.Minute)
	if m.ActiveMinutes != 0 {
		t.Fatalf("active = %d, want 0", m.ActiveMinutes)
	}
	if m.IdleMinutes != 11 {
		t.Fatalf("idle = %d, want 11", m.IdleMinutes)
	}
}

func TestComputeTimeMetricsUnorderedTimestamps(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Unix()
	chat := chatWithOffsets(base, 25, 0, 8, 5)

	m := ComputeTimeMetrics(chat, 10*time.Minute)
	if m.TotalMinutes != 25 || m.ActiveMinutes != 8 {
		t.Fatalf("total=%d active=%d, want 25/8", m.TotalMinutes, m.ActiveMinutes)
	}
	if m.LastMessageAt.Before(m.FirstMessageAt) {
		t.Fatalf("last %v before first %v", m.LastMessageAt, m.FirstMessageAt)
	}
}

func TestComputeTimeMetricsFallsBackToChatTimes(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Unix()
	chat := ChatRecord{
		ID:        "c1",
		Messages:  []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
		CreatedAt: created,
		UpdatedAt: created + 30*60,
	}

	m := ComputeTimeMetrics(chat, 10*time.Minute)
	if m.TotalMinutes != 30 {
		t.Fatalf("total = %d, want 30", m.TotalMinutes)
	}
	// No per-message timestamps means no measurable gaps.
	if m.ActiveMinutes != 0 {
		t.Fatalf("active = %d, want 0", m.ActiveMinutes)
	}
	if m.IdleMinutes != 30 {
		t.Fatalf("idle = %d, want 30", m.IdleMinutes)
	}
}

func TestComputeTimeMetricsEmptyChat(t *testing.T) {
	m := ComputeTimeMetrics(ChatRecord{ID: "c1"}, 10*time.Minute)
	if m.TotalMinutes != 0 || m.ActiveMinutes != 0 || m.IdleMinutes != 0 {
		t.Fatalf("expected zero durations, got %+v", m)
	}
	if m.FirstMessageAt.IsZero() || m.LastMessageAt.IsZero() {
		t.Fatalf("expected non-zero bounds, got %+v", m)
	}
}

func TestComputeTimeMetricsSingleTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Unix()
	chat := chatWithOffsets(base, 0)

	m := ComputeTimeMetrics(chat, 10*time.Minute)
	if m.TotalMinutes != 0 || m.ActiveMinutes != 0 {
		t.Fatalf("expected zero durations for single message, got %+v", m)
	}
}
