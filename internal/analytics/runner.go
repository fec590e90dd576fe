package analytics

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"analytics_framework/internal/metrics"
)

// ChatSource supplies candidate chats for a batch run.
type ChatSource interface {
	FetchChats(ctx context.Context, targetDate string) ([]ChatRecord, error)
}

// RunLog records the audit trail for batch runs. A run row starts in the
// running state and is completed exactly once with a terminal status.
type RunLog interface {
	StartRun(ctx context.Context, targetDate string, startedAt time.Time) (string, error)
	CompleteRun(ctx context.Context, id string, result RunResult, completedAt time.Time) error
}

// Notifier receives the run-completed event. *events.Bus satisfies it.
type Notifier interface {
	Publish(ev any)
}

// Runner executes one batch run for a target date: fetch candidates, analyze
// each chat in parallel, aggregate the results, and close out the audit row.
// At most one run is active per process.
type Runner struct {
	source     ChatSource
	analyzer   *Analyzer
	aggregator *Aggregator
	runs       RunLog
	notifier   Notifier
	metrics    *metrics.Metrics

	workers        int
	costPerRequest float64

	mu sync.Mutex
}

func NewRunner(source ChatSource, analyzer *Analyzer, aggregator *Aggregator, runs RunLog, notifier Notifier, m *metrics.Metrics, workers int, costPerRequest float64) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		source:         source,
		analyzer:       analyzer,
		aggregator:     aggregator,
		runs:           runs,
		notifier:       notifier,
		metrics:        m,
		workers:        workers,
		costPerRequest: costPerRequest,
	}
}

// Active reports whether a batch run currently holds the run lock.
func (r *Runner) Active() bool {
	if r.mu.TryLock() {
		r.mu.Unlock()
		return false
	}
	return true
}

// Run processes all candidate chats for targetDate (YYYY-MM-DD). Per-chat
// failures are recorded and skipped over; only fetch, aggregation, or audit
// log errors fail the run as a whole. A second concurrent call returns
// ErrRunInProgress without touching the log.
func (r *Runner) Run(ctx context.Context, targetDate string) (RunResult, error) {
	if !r.mu.TryLock() {
		return RunResult{}, ErrRunInProgress
	}
	defer r.mu.Unlock()

	start := time.Now().UTC()
	runID, err := r.runs.StartRun(ctx, targetDate, start)
	if err != nil {
		return RunResult{}, err
	}
	log.Printf("batch run %s started target_date=%s", runID, targetDate)

	chats, err := r.source.FetchChats(ctx, targetDate)
	if err != nil {
		return r.fail(ctx, runID, targetDate, start, err)
	}
	log.Printf("batch run %s fetched %d candidate chats", runID, len(chats))

	var (
		resMu     sync.Mutex
		results   []ChatResult
		processed int
		skipped   int
		failed    int
	)
	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for _, chat := range chats {
		chat := chat
		g.Go(func() error {
			res, err := r.analyzer.Analyze(ctx, chat)
			resMu.Lock()
			defer resMu.Unlock()
			switch {
			case err == nil:
				results = append(results, *res)
				processed++
			case errors.Is(err, ErrEmptyChat), errors.Is(err, ErrAlreadyAnalyzed):
				skipped++
			default:
				// One bad transcript or model hiccup must not abort
				// the batch.
				failed++
				log.Printf("batch run %s: chat %s failed: %v", runID, chat.ID, err)
			}
			return nil
		})
	}
	// Aggregation only starts after every analysis has finished or failed.
	_ = g.Wait()

	if err := r.aggregator.Aggregate(ctx, results); err != nil {
		return r.fail(ctx, runID, targetDate, start, err)
	}

	result := RunResult{
		ProcessingLogID: runID,
		TargetDate:      targetDate,
		Status:          RunStatusCompleted,
		Processed:       processed,
		Skipped:         skipped,
		Failed:          failed,
		LLMRequests:     processed,
		TotalCostUSD:    float64(processed) * r.costPerRequest,
		DurationSeconds: int(time.Since(start).Seconds()),
	}
	if err := r.runs.CompleteRun(ctx, runID, result, time.Now().UTC()); err != nil {
		return result, err
	}
	r.metrics.RecordRun(result.Processed, result.Skipped, result.Failed, result.LLMRequests, result.TotalCostUSD, false)

	log.Printf("batch run %s completed processed=%d skipped=%d failed=%d cost_usd=%.4f duration_s=%d",
		runID, processed, skipped, failed, result.TotalCostUSD, result.DurationSeconds)
	if r.notifier != nil {
		r.notifier.Publish(RunCompleted{TargetDate: targetDate, Result: result})
	}
	return result, nil
}

// fail closes the audit row with a failed status and propagates the error:
// a failed fetch or aggregation leaves data in an indeterminate state that
// operators must see.
func (r *Runner) fail(ctx context.Context, runID, targetDate string, start time.Time, cause error) (RunResult, error) {
	result := RunResult{
		ProcessingLogID: runID,
		TargetDate:      targetDate,
		Status:          RunStatusFailed,
		DurationSeconds: int(time.Since(start).Seconds()),
		Error:           truncate(cause.Error(), 1000),
	}
	if err := r.runs.CompleteRun(ctx, runID, result, time.Now().UTC()); err != nil {
		log.Printf("batch run %s: failed to record failure: %v", runID, err)
	}
	r.metrics.RecordRun(0, 0, 0, 0, 0, true)
	log.Printf("batch run %s failed: %v", runID, cause)
	return result, cause
}
