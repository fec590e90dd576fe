package analytics

import (
	"strings"
	"testing"
)

func testSummarizer() *Summarizer {
	return NewSummarizer([]string{"wikipedia.org", "supreme.justia.com", "law.cornell.edu"})
}

func TestRedactPersonalData(t *testing.T) {
	s := testSummarizer()
	in := "Contact me at jane.doe@example.com or 555-123-4567 for details."
	out := s.Redact(in)

	if strings.Contains(out, "jane.doe@example.com") {
		t.Fatalf("email survived redaction: %s", out)
	}
	if strings.Contains(out, "555-123-4567") {
		t.Fatalf("phone survived redaction: %s", out)
	}
	if !strings.Contains(out, "[EMAIL_REDACTED]") || !strings.Contains(out, "[PHONE_REDACTED]") {
		t.Fatalf("missing placeholders: %s", out)
	}
}

func TestRedactURLAllowList(t *testing.T) {
	s := testSummarizer()
	in := "See https://en.wikipedia.org/wiki/Go and https://internal.example.com/secret"
	out := s.Redact(in)

	if !strings.Contains(out, "en.wikipedia.org") {
		t.Fatalf("allow-listed URL was redacted: %s", out)
	}
	if strings.Contains(out, "internal.example.com") {
		t.Fatalf("non-listed URL survived: %s", out)
	}
	if !strings.Contains(out, "[URL_REDACTED]") {
		t.Fatalf("missing URL placeholder: %s", out)
	}
}

func TestRedactLongTokens(t *testing.T) {
	s := testSummarizer()
	token := "sk" + strings.Repeat("a1B2", 10)
	out := s.Redact("key is " + token + " keep it safe")
	if strings.Contains(out, token) {
		t.Fatalf("token survived redaction: %s", out)
	}
	if !strings.Contains(out, "[KEY_REDACTED]") {
		t.Fatalf("missing key placeholder: %s", out)
	}
}

func TestSummarizeTemplateAndBounds(t *testing.T) {
	s := testSummarizer()
	chat := ChatRecord{
		ID:    "c1",
		Title: "Research project",
		Messages: []Message{
			{Role: "user", Content: "q1"},
			{Role: "assistant", Content: "a1"},
			{Role: "user", Content: "q2"},
			{Role: "assistant", Content: "a2"},
			{Role: "user", Content: "q3"},
			{Role: "assistant", Content: "a3-should-not-appear"},
			{Role: "user", Content: "q4-should-not-appear"},
		},
	}
	out := s.Summarize(chat)

	for _, label := range []string{"Topic: Research project", "Message Count: 7", "User Messages: 4", "Assistant Messages: 3", "Content Overview:"} {
		if !strings.Contains(out, label) {
			t.Fatalf("summary missing %q:\n%s", label, out)
		}
	}
	if strings.Contains(out, "q4-should-not-appear") {
		t.Fatalf("fourth user message leaked into summary")
	}
	if strings.Contains(out, "a3-should-not-appear") {
		t.Fatalf("third assistant message leaked into summary")
	}
}

func TestSummarizeUntitledChat(t *testing.T) {
	s := testSummarizer()
	out := s.Summarize(ChatRecord{ID: "c1", Messages: []Message{{Role: "user", Content: "hi"}}})
	if !strings.Contains(out, "Topic: Untitled chat") {
		t.Fatalf("expected untitled fallback:\n%s", out)
	}
}

func TestSummarizeTruncatesOversizedContent(t *testing.T) {
	s := testSummarizer()
	// Spaces keep the filler clear of the long-token redaction.
	huge := strings.Repeat("word word word ", 2000)
	chat := ChatRecord{
		ID:       "c1",
		Title:    "Big",
		Messages: []Message{{Role: "user", Content: huge}},
	}
	out := s.Summarize(chat)
	if len(out) > maxSummaryLen+500 {
		t.Fatalf("summary length %d exceeds bound", len(out))
	}
}
