package analytics

import (
	"sort"
	"time"
)

// ComputeTimeMetrics derives timing figures from a chat's message
// timestamps. Messages without timestamps fall back to the chat's own
// created/updated times for the first/last bounds. Durations are whole
// minutes, floored.
func ComputeTimeMetrics(chat ChatRecord, idleThreshold time.Duration) TimeMetrics {
	if len(chat.Messages) == 0 {
		now := time.Now().UTC()
		return TimeMetrics{FirstMessageAt: now, LastMessageAt: now}
	}

	stamps := make([]time.Time, 0, len(chat.Messages))
	for _, msg := range chat.Messages {
		if msg.Timestamp > 0 {
			stamps = append(stamps, time.Unix(msg.Timestamp, 0).UTC())
		}
	}

	var first, last time.Time
	if len(stamps) == 0 {
		first = time.Unix(chat.CreatedAt, 0).UTC()
		last = time.Unix(chat.UpdatedAt, 0).UTC()
	} else {
		sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
		first = stamps[0]
		last = stamps[len(stamps)-1]
	}
	if last.Before(first) {
		first, last = last, first
	}

	total := int(last.Sub(first).Minutes())
	active := activeMinutes(stamps, idleThreshold)
	idle := total - active
	if idle < 0 {
		idle = 0
	}

	return TimeMetrics{
		FirstMessageAt: first,
		LastMessageAt:  last,
		TotalMinutes:   total,
		ActiveMinutes:  active,
		IdleMinutes:    idle,
	}
}

// activeMinutes sums consecutive gaps no longer than the idle threshold.
// Gaps beyond the threshold count as idle and contribute nothing. Fewer than
// two timestamps means there is no gap to measure.
func activeMinutes(sorted []time.Time, idleThreshold time.Duration) int {
	if len(sorted) < 2 {
		return 0
	}
	var active time.Duration
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Sub(sorted[i-1])
		if gap <= idleThreshold {
			active += gap
		}
	}
	return int(active.Minutes())
}
