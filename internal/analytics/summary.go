package analytics

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Bounds on how much raw transcript is forwarded to the model. Only the
// opening exchange is needed for a time estimate, and it keeps token cost
// flat per chat.
const (
	maxUserMessages      = 3
	maxAssistantMessages = 2
	maxSummaryLen        = 8000
)

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b\d{3}-\d{3}-\d{4}\b`)
	urlPattern   = regexp.MustCompile(`https?://[^\s]+`)
	tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]{32,}`)
	blankLines   = regexp.MustCompile(`\n\s*\n`)
)

// Summarizer builds bounded, privacy-redacted chat summaries for model
// consumption. The section labels in the output (Topic:, Message Count:,
// User Messages:, Assistant Messages:, Content Overview:) are re-parsed by
// the read layer and must not change.
type Summarizer struct {
	allowedDomains []string
}

func NewSummarizer(allowedDomains []string) *Summarizer {
	return &Summarizer{allowedDomains: allowedDomains}
}

// Summarize never fails: any internal error yields a safe truncated
// fallback, because summarization is not permitted to abort an analysis.
func (s *Summarizer) Summarize(chat ChatRecord) (summary string) {
	defer func() {
		if r := recover(); r != nil {
			summary = fallbackSummary(chat)
		}
	}()
	return s.build(chat)
}

func (s *Summarizer) build(chat ChatRecord) string {
	title := strings.TrimSpace(chat.Title)
	if title == "" {
		title = "Untitled chat"
	}

	var userMsgs, assistantMsgs []string
	for _, msg := range chat.Messages {
		switch msg.Role {
		case "user":
			userMsgs = append(userMsgs, msg.Content)
		case "assistant":
			assistantMsgs = append(assistantMsgs, msg.Content)
		}
	}

	var b strings.Builder
	b.WriteString("Title: " + title + "\n")
	b.WriteString("User Messages:\n")
	b.WriteString(strings.Join(head(userMsgs, maxUserMessages), "\n"))
	b.WriteString("\nAssistant Messages:\n")
	b.WriteString(strings.Join(head(assistantMsgs, maxAssistantMessages), "\n"))

	redacted := s.Redact(b.String())
	if len(redacted) > maxSummaryLen {
		redacted = redacted[:maxSummaryLen]
	}

	return fmt.Sprintf(`Chat Analysis Summary:

Topic: %s
Message Count: %d
User Messages: %d
Assistant Messages: %d

Content Overview:
%s

This chat required the user to engage in back-and-forth dialogue with an AI assistant to complete their task.`,
		title, len(chat.Messages), len(userMsgs), len(assistantMsgs), redacted)
}

// Redact replaces emails, phone numbers, URLs outside the allow-list, and
// long alphanumeric tokens (API-key heuristic) with fixed placeholder tags,
// then collapses repeated blank lines.
func (s *Summarizer) Redact(content string) string {
	redacted := emailPattern.ReplaceAllString(content, "[EMAIL_REDACTED]")
	redacted = phonePattern.ReplaceAllString(redacted, "[PHONE_REDACTED]")
	redacted = urlPattern.ReplaceAllStringFunc(redacted, func(match string) string {
		if s.isAllowedURL(match) {
			return match
		}
		return "[URL_REDACTED]"
	})
	redacted = tokenPattern.ReplaceAllString(redacted, "[KEY_REDACTED]")
	redacted = blankLines.ReplaceAllString(redacted, "\n")
	return strings.TrimSpace(redacted)
}

func (s *Summarizer) isAllowedURL(raw string) bool {
	u, err := url.Parse(strings.TrimRight(raw, ".,;)"))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	for _, domain := range s.allowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func fallbackSummary(chat ChatRecord) string {
	title := strings.TrimSpace(chat.Title)
	if len(title) > 100 {
		title = title[:100]
	}
	return fmt.Sprintf(`Chat Analysis Summary:

Topic: %s
Message Count: %d
User Messages: 0
Assistant Messages: 0

Content Overview:
[content unavailable]

This chat required the user to engage in back-and-forth dialogue with an AI assistant to complete their task.`,
		title, len(chat.Messages))
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
