package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// TemplateSummarizer builds a fixed-format ticket summary without a model.
type TemplateSummarizer struct {
	maxLines int
}

func NewTemplateSummarizer() *TemplateSummarizer {
	return &TemplateSummarizer{maxLines: 8}
}

func (s *TemplateSummarizer) Summarize(ctx context.Context, conversationText, reason, currentQuestion string) (string, error) {
	lines := nonEmptyLines(conversationText)
	customerTurns := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "user:") {
			customerTurns++
		}
	}
	if len(lines) > s.maxLines {
		lines = lines[len(lines)-s.maxLines:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Escalation reason: %s\n", orDash(reason))
	fmt.Fprintf(&b, "Current question: %s\n", orDash(currentQuestion))
	fmt.Fprintf(&b, "Customer messages: %d\n", customerTurns)
	if len(lines) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, l := range lines {
			b.WriteString("  ")
			b.WriteString(l)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

const summarizerPrompt = `Summarize this billing support conversation for the human agent taking over. Use at most five short lines:
Issue: what the customer needs
Verified: whether identity was verified and who the customer is, if known
Tried: what the assistant already answered or attempted
Reason: why it was escalated
Next step: what the agent should do first`

// LLMSummarizer writes the ticket summary with a model and falls back to
// the template when the model fails.
type LLMSummarizer struct {
	client   LLMClient
	model    string
	fallback Summarizer
	logger   *logging.Logger
}

func NewLLMSummarizer(client LLMClient, model string, fallback Summarizer, logger *logging.Logger) *LLMSummarizer {
	if client == nil {
		panic("providers: llm client required")
	}
	if fallback == nil {
		fallback = NewTemplateSummarizer()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LLMSummarizer{client: client, model: model, fallback: fallback, logger: logger}
}

func (s *LLMSummarizer) Summarize(ctx context.Context, conversationText, reason, currentQuestion string) (string, error) {
	user := fmt.Sprintf("Escalation reason: %s\nCurrent question: %s\n\nConversation:\n%s", reason, currentQuestion, conversationText)
	resp, err := s.client.Complete(ctx, LLMRequest{
		Model:       s.model,
		System:      []string{summarizerPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: user}},
		MaxTokens:   300,
		Temperature: 0.2,
	})
	if err == nil && strings.TrimSpace(resp.Text) != "" {
		return strings.TrimSpace(resp.Text), nil
	}
	s.logger.Warn("llm summarizer unavailable, using template", "error", err)
	return s.fallback.Summarize(ctx, conversationText, reason, currentQuestion)
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return strings.TrimSpace(s)
}
