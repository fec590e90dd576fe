package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func completionResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestEstimateHappyPath(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(completionResponse(`{"manual_time_low": 30, "manual_time_most_likely": 60, "manual_time_high": 120, "confidence_level": 85, "reasoning": "research task"}`)))
	}))
	defer srv.Close()

	c := NewEstimationClient(srv.Client(), "gpt-4o-mini", srv.URL, "test-key", "v1", time.Second)
	est, raw, err := c.Estimate(context.Background(), "summary")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.Low != 30 || est.MostLikely != 60 || est.High != 120 || est.Confidence != 85 {
		t.Fatalf("unexpected estimate %+v", est)
	}
	if raw == "" {
		t.Fatalf("expected raw content")
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
}

func TestEstimateJSONWrappedInProse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionResponse("Here is my estimate:\n{\"manual_time_low\": 10, \"manual_time_most_likely\": 20, \"manual_time_high\": 40, \"confidence_level\": 70, \"reasoning\": \"ok\"}\nHope that helps.")))
	}))
	defer srv.Close()

	c := NewEstimationClient(srv.Client(), "m", srv.URL, "", "v1", time.Second)
	est, _, err := c.Estimate(context.Background(), "summary")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.MostLikely != 20 {
		t.Fatalf("most likely = %d, want 20", est.MostLikely)
	}
}

func TestEstimateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewEstimationClient(srv.Client(), "m", srv.URL, "", "v1", time.Second)
	_, _, err := c.Estimate(context.Background(), "summary")
	if !errors.Is(err, ErrNoEstimate) {
		t.Fatalf("err = %v, want ErrNoEstimate", err)
	}
}

func TestEstimateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewEstimationClient(srv.Client(), "m", srv.URL, "", "v1", time.Second)
	_, _, err := c.Estimate(context.Background(), "summary")
	if !errors.Is(err, ErrNoEstimate) {
		t.Fatalf("err = %v, want ErrNoEstimate", err)
	}
}

func TestParseEstimateClampsRanges(t *testing.T) {
	est, err := ParseEstimate(`{"manual_time_low": 90, "manual_time_most_likely": 60, "manual_time_high": 30, "confidence_level": 150}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if est.Low > est.MostLikely || est.High < est.MostLikely {
		t.Fatalf("ordering not restored: %+v", est)
	}
	if est.Confidence != 100 {
		t.Fatalf("confidence = %d, want 100", est.Confidence)
	}
}

func TestParseEstimateNegativeValues(t *testing.T) {
	est, err := ParseEstimate(`{"manual_time_low": -5, "manual_time_most_likely": -1, "manual_time_high": -1, "confidence_level": -20}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if est.Low != 0 || est.MostLikely != 0 || est.High != 0 || est.Confidence != 0 {
		t.Fatalf("negative values not clamped: %+v", est)
	}
}

func TestParseEstimateNoJSON(t *testing.T) {
	if _, err := ParseEstimate("I cannot help with that."); !errors.Is(err, ErrNoEstimate) {
		t.Fatalf("err = %v, want ErrNoEstimate", err)
	}
}

func TestExtractJSONObjectNestedAndStrings(t *testing.T) {
	in := `prefix {"a": {"b": "close brace } inside"}, "c": 1} suffix`
	got := extractJSONObject(in)
	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("extracted object does not decode: %v (%q)", err, got)
	}
	if decoded["c"].(float64) != 1 {
		t.Fatalf("unexpected object %v", decoded)
	}
}
