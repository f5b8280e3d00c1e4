package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wolfman30/billing-support-ai/internal/session"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

const classifierPrompt = `You route messages for a utility billing support assistant. Classify the customer's latest message into ONE category and respond with JSON only.

Categories:
- billing_faq: general billing questions answerable without looking at an account (payment options, late fees, due date policy, AutoPay enrollment, estimated reads)
- account_data: questions about THIS customer's own account (my balance, my due date, my last payment, my usage, my meter read)
- service_request: requests that change an account or need staff action (disputes, refunds, payment plans, start/stop/transfer service, outages)
- human_requested: the customer asks for a person, agent or representative
- out_of_scope: anything else

Respond with:
{"category": "<category>", "confidence": <0.0-1.0>, "requires_auth": <true|false>, "question_type": "<short snake_case tag or empty>", "reasoning": "<one sentence>"}`

// LLMClassifier asks a model for the intent and falls back to rules when the
// model errors or returns something unusable.
type LLMClassifier struct {
	client   LLMClient
	model    string
	fallback Classifier
	logger   *logging.Logger
}

func NewLLMClassifier(client LLMClient, model string, fallback Classifier, logger *logging.Logger) *LLMClassifier {
	if client == nil {
		panic("providers: llm client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LLMClassifier{client: client, model: model, fallback: fallback, logger: logger}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string, recent []session.Message) (Classification, error) {
	var history strings.Builder
	for _, m := range recent {
		fmt.Fprintf(&history, "%s: %s\n", m.Role, m.Content)
	}
	user := fmt.Sprintf("Recent conversation:\n%s\nLatest message: %s", history.String(), strings.TrimSpace(message))

	resp, err := c.client.Complete(ctx, LLMRequest{
		Model:       c.model,
		System:      []string{classifierPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: user}},
		MaxTokens:   200,
		Temperature: 0,
	})
	if err != nil {
		return c.fallbackOr(ctx, message, recent, fmt.Errorf("providers: classify: %w", err))
	}

	result, err := parseClassification(resp.Text)
	if err != nil {
		return c.fallbackOr(ctx, message, recent, err)
	}
	return result, nil
}

func (c *LLMClassifier) fallbackOr(ctx context.Context, message string, recent []session.Message, cause error) (Classification, error) {
	if c.fallback == nil {
		return Classification{}, cause
	}
	c.logger.Warn("llm classifier unavailable, using rules", "error", cause)
	return c.fallback.Classify(ctx, message, recent)
}

func parseClassification(text string) (Classification, error) {
	content := strings.TrimSpace(text)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Classification{}, fmt.Errorf("providers: classifier returned no json: %q", text)
	}

	var raw struct {
		Category     string  `json:"category"`
		Confidence   float64 `json:"confidence"`
		RequiresAuth bool    `json:"requires_auth"`
		QuestionType string  `json:"question_type"`
		Reasoning    string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return Classification{}, fmt.Errorf("providers: decode classification: %w", err)
	}
	category, ok := parseCategory(raw.Category)
	if !ok {
		return Classification{}, fmt.Errorf("providers: unknown category %q", raw.Category)
	}
	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Classification{
		Category:     category,
		Confidence:   confidence,
		RequiresAuth: raw.RequiresAuth || category == CategoryAccountData,
		QuestionType: strings.TrimSpace(raw.QuestionType),
		Reasoning:    strings.TrimSpace(raw.Reasoning),
	}, nil
}

// parseCategory accepts snake_case or CamelCase names.
func parseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	switch key {
	case "billingfaq", "faq":
		return CategoryBillingFAQ, true
	case "accountdata", "account":
		return CategoryAccountData, true
	case "servicerequest":
		return CategoryServiceRequest, true
	case "outofscope", "other":
		return CategoryOutOfScope, true
	case "humanrequested", "human":
		return CategoryHumanRequested, true
	}
	return "", false
}
