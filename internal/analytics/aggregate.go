package analytics

import (
	"context"
	"sort"
)

// AggregateStore applies one batch of daily upserts atomically: either every
// batch in the slice lands or none do.
type AggregateStore interface {
	ApplyDailyBatches(ctx context.Context, batches []DailyBatch) error
}

// Aggregator folds per-chat results into per-day global and per-user running
// statistics.
type Aggregator struct {
	store AggregateStore
}

func NewAggregator(store AggregateStore) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate groups results by occurrence date (chats can occur on a date
// other than the one the run was triggered for) and upserts the global and
// per-user aggregate rows for each date in a single transaction. No-op on
// empty input.
func (g *Aggregator) Aggregate(ctx context.Context, results []ChatResult) error {
	batches := BuildDailyBatches(results)
	if len(batches) == 0 {
		return nil
	}
	return g.store.ApplyDailyBatches(ctx, batches)
}

// BuildDailyBatches computes the per-date totals this run contributes: one
// global batch per occurrence date plus one batch per contributing user.
// Output order is deterministic (date, then global before users).
func BuildDailyBatches(results []ChatResult) []DailyBatch {
	if len(results) == 0 {
		return nil
	}

	byDate := make(map[string][]ChatResult)
	for _, r := range results {
		byDate[r.ChatDate] = append(byDate[r.ChatDate], r)
	}
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var batches []DailyBatch
	for _, date := range dates {
		dateResults := byDate[date]
		batches = append(batches, sumBatch(date, "", dateResults))

		byUser := make(map[string][]ChatResult)
		for _, r := range dateResults {
			byUser[r.UserID] = append(byUser[r.UserID], r)
		}
		users := make([]string, 0, len(byUser))
		for u := range byUser {
			users = append(users, u)
		}
		sort.Strings(users)
		for _, user := range users {
			batches = append(batches, sumBatch(date, user, byUser[user]))
		}
	}
	return batches
}

func sumBatch(date, userID string, results []ChatResult) DailyBatch {
	batch := DailyBatch{Date: date, UserID: userID, ChatCount: len(results)}
	var confidenceSum int
	for _, r := range results {
		batch.MessageCount += r.MessageCount
		batch.ActiveMinutes += r.ActiveMinutes
		batch.ManualMinutes += r.ManualMostLikely
		batch.SavedMinutes += r.TimeSavedMinutes
		confidenceSum += r.Confidence
	}
	if batch.ChatCount > 0 {
		batch.AvgConfidence = float64(confidenceSum) / float64(batch.ChatCount)
	}
	return batch
}

// MergeConfidence combines a stored average with a new batch average as an
// exact count-weighted mean. A blind average of the two averages would skew
// whenever the batch sizes differ.
func MergeConfidence(oldAvg float64, oldCount int, batchAvg float64, batchCount int) float64 {
	total := oldCount + batchCount
	if total == 0 {
		return 0
	}
	if oldCount == 0 {
		return batchAvg
	}
	if batchCount == 0 {
		return oldAvg
	}
	return (oldAvg*float64(oldCount) + batchAvg*float64(batchCount)) / float64(total)
}
