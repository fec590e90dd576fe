package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const estimationSystemPrompt = `You are an expert at estimating how long tasks would take to complete manually without AI assistance.

Analyze the provided chat summary and estimate how long it would have taken the user to complete the same task manually through research, writing, coding, or other methods.

IMPORTANT: You MUST respond with ONLY valid JSON in this exact format (no other text):
{
    "manual_time_low": <lowest estimate in minutes>,
    "manual_time_most_likely": <most likely estimate in minutes>,
    "manual_time_high": <highest estimate in minutes>,
    "confidence_level": <confidence 0-100>,
    "reasoning": "<brief explanation of your estimates>"
}

Consider factors like:
- Research time needed
- Complexity of the topic
- Writing/coding time required
- Learning curve for unfamiliar concepts
- Quality and depth of work expected
Prompt version: %s`

// EstimationClient calls an OpenAI-compatible chat-completions endpoint to
// estimate manual completion time for a summarized chat. This is the single
// external-service boundary in the pipeline.
type EstimationClient struct {
	client        *http.Client
	model         string
	baseURL       string
	apiKey        string
	promptVersion string
}

func NewEstimationClient(client *http.Client, model, baseURL, apiKey, promptVersion string, timeout time.Duration) *EstimationClient {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &EstimationClient{
		client:        client,
		model:         model,
		baseURL:       baseURL,
		apiKey:        apiKey,
		promptVersion: promptVersion,
	}
}

type estimatePayload struct {
	ManualTimeLow        float64 `json:"manual_time_low"`
	ManualTimeMostLikely float64 `json:"manual_time_most_likely"`
	ManualTimeHigh       float64 `json:"manual_time_high"`
	ConfidenceLevel      float64 `json:"confidence_level"`
	Reasoning            string  `json:"reasoning"`
}

// Estimate sends the redacted summary to the model and returns the validated
// estimate plus the raw response content for audit. Transport errors, bad
// statuses, empty content, and undecodable payloads all normalize to
// ErrNoEstimate so the caller can treat them as a per-chat failure.
func (c *EstimationClient) Estimate(ctx context.Context, summary string) (TimeEstimate, string, error) {
	endpoint := strings.TrimRight(c.baseURL, "/") + "/v1/chat/completions"
	payload := map[string]interface{}{
		"model":       c.model,
		"temperature": 0.2,
		"messages": []map[string]string{
			{"role": "system", "content": fmt.Sprintf(estimationSystemPrompt, c.promptVersion)},
			{"role": "user", "content": summary},
		},
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return TimeEstimate{}, "", fmt.Errorf("%w: %v", ErrNoEstimate, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return TimeEstimate{}, "", fmt.Errorf("%w: %v", ErrNoEstimate, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("llm status %d: %s", resp.StatusCode, truncate(string(body), 240))
		return TimeEstimate{}, "", fmt.Errorf("%w: status %d", ErrNoEstimate, resp.StatusCode)
	}

	var wrapper struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return TimeEstimate{}, "", fmt.Errorf("%w: %v", ErrNoEstimate, err)
	}
	if len(wrapper.Choices) == 0 {
		return TimeEstimate{}, "", fmt.Errorf("%w: empty response", ErrNoEstimate)
	}
	content := strings.TrimSpace(wrapper.Choices[0].Message.Content)
	if content == "" {
		return TimeEstimate{}, "", fmt.Errorf("%w: empty content", ErrNoEstimate)
	}

	estimate, err := ParseEstimate(content)
	if err != nil {
		return TimeEstimate{}, content, err
	}
	return estimate, content, nil
}

// ParseEstimate extracts the first brace-balanced JSON object from the model
// output (which may carry surrounding prose) and clamps every field into its
// valid range. Entirely unparseable content yields ErrNoEstimate.
func ParseEstimate(content string) (TimeEstimate, error) {
	obj := extractJSONObject(content)
	if obj == "" {
		return TimeEstimate{}, fmt.Errorf("%w: no json object found", ErrNoEstimate)
	}
	var payload estimatePayload
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return TimeEstimate{}, fmt.Errorf("%w: %v", ErrNoEstimate, err)
	}
	return clampEstimate(payload), nil
}

// clampEstimate forces every field into range rather than propagating bad
// model output: minutes are non-negative, confidence is 0-100, and the
// low <= most_likely <= high ordering is restored around most_likely.
func clampEstimate(p estimatePayload) TimeEstimate {
	est := TimeEstimate{
		Low:        clampMinutes(p.ManualTimeLow),
		MostLikely: clampMinutes(p.ManualTimeMostLikely),
		High:       clampMinutes(p.ManualTimeHigh),
		Confidence: clampMinutes(p.ConfidenceLevel),
	}
	if est.Confidence > 100 {
		est.Confidence = 100
	}
	if est.Low > est.MostLikely {
		est.Low = est.MostLikely
	}
	if est.High < est.MostLikely {
		est.High = est.MostLikely
	}
	return est
}

func clampMinutes(v float64) int {
	if v < 0 {
		return 0
	}
	return int(v)
}

func extractJSONObject(input string) string {
	start := strings.Index(input, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

func truncate(msg string, n int) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > n {
		return msg[:n]
	}
	return msg
}
