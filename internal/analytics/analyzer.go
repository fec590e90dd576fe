package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnalysisStore persists per-chat analysis rows. InsertAnalysis must enforce
// the one-row-per-chat uniqueness invariant and return ErrAlreadyAnalyzed on
// a duplicate chat id.
type AnalysisStore interface {
	HasAnalysis(ctx context.Context, chatID string) (bool, error)
	InsertAnalysis(ctx context.Context, a *ChatAnalysis) error
}

// Estimator produces a manual-time estimate from a redacted summary, plus
// the raw model content for audit. Implementations signal an unusable model
// response with ErrNoEstimate.
type Estimator interface {
	Estimate(ctx context.Context, summary string) (TimeEstimate, string, error)
}

// Analyzer turns one chat into a durable ChatAnalysis row and a compact
// ChatResult for aggregation.
type Analyzer struct {
	store         AnalysisStore
	estimator     Estimator
	summarizer    *Summarizer
	idleThreshold time.Duration
	version       string
}

func NewAnalyzer(store AnalysisStore, estimator Estimator, summarizer *Summarizer, idleThreshold time.Duration, version string) *Analyzer {
	return &Analyzer{
		store:         store,
		estimator:     estimator,
		summarizer:    summarizer,
		idleThreshold: idleThreshold,
		version:       version,
	}
}

// Analyze processes a single chat. Empty chats return ErrEmptyChat (a skip,
// not a failure); a chat already analyzed returns ErrAlreadyAnalyzed; a
// model failure surfaces as an error wrapping ErrNoEstimate. The caller
// decides how each outcome counts against the batch.
func (a *Analyzer) Analyze(ctx context.Context, chat ChatRecord) (*ChatResult, error) {
	if len(chat.Messages) == 0 {
		return nil, ErrEmptyChat
	}

	exists, err := a.store.HasAnalysis(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("analysis lookup for chat %s: %w", chat.ID, err)
	}
	if exists {
		return nil, ErrAlreadyAnalyzed
	}

	metrics := ComputeTimeMetrics(chat, a.idleThreshold)
	summary := a.summarizer.Summarize(chat)

	estimate, raw, err := a.estimator.Estimate(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("estimate for chat %s: %w", chat.ID, err)
	}

	// Occurrence date comes from when the chat happened, not when this
	// run processes it.
	chatDate := time.Unix(chat.CreatedAt, 0).UTC().Format(DateLayout)

	timeSaved := estimate.MostLikely - metrics.ActiveMinutes
	if timeSaved < 0 {
		timeSaved = 0
	}

	analysis := &ChatAnalysis{
		ID:                uuid.NewString(),
		ChatID:            chat.ID,
		UserID:            chat.UserID,
		ChatDate:          chatDate,
		Metrics:           metrics,
		Estimate:          estimate,
		TimeSavedMinutes:  timeSaved,
		MessageCount:      len(chat.Messages),
		Summary:           summary,
		LLMResponse:       normalizeRawResponse(raw),
		ProcessingVersion: a.version,
		ProcessedAt:       time.Now().UTC(),
	}
	if err := a.store.InsertAnalysis(ctx, analysis); err != nil {
		return nil, err
	}

	return &ChatResult{
		AnalysisID:       analysis.ID,
		ChatID:           chat.ID,
		UserID:           chat.UserID,
		ChatDate:         chatDate,
		TimeSavedMinutes: timeSaved,
		ActiveMinutes:    metrics.ActiveMinutes,
		ManualMostLikely: estimate.MostLikely,
		MessageCount:     len(chat.Messages),
		Confidence:       estimate.Confidence,
	}, nil
}

// normalizeRawResponse stores the audit copy as JSON even when the model
// wrapped its object in prose.
func normalizeRawResponse(raw string) string {
	if obj := extractJSONObject(raw); obj != "" {
		return obj
	}
	encoded, _ := json.Marshal(map[string]string{"content": raw})
	return string(encoded)
}
