// Package providers holds the answer providers the conversation router calls
// through narrow contracts: classification, FAQ answers, account data and
// handoff summaries.
package providers

import (
	"context"
	"errors"

	"github.com/wolfman30/billing-support-ai/internal/session"
)

// ErrPreconditionViolation is returned when a provider is invoked without
// what it requires, such as account data without a verified customer.
var ErrPreconditionViolation = errors.New("providers: precondition violation")

// Category is the classifier's intent bucket.
type Category string

const (
	CategoryBillingFAQ     Category = "billing_faq"
	CategoryAccountData    Category = "account_data"
	CategoryServiceRequest Category = "service_request"
	CategoryOutOfScope     Category = "out_of_scope"
	CategoryHumanRequested Category = "human_requested"
)

// Classification is one classifier verdict.
type Classification struct {
	Category     Category `json:"category"`
	Confidence   float64  `json:"confidence"`
	RequiresAuth bool     `json:"requires_auth"`
	QuestionType string   `json:"question_type,omitempty"`
	Reasoning    string   `json:"reasoning"`
}

type Classifier interface {
	Classify(ctx context.Context, message string, recent []session.Message) (Classification, error)
}

type FAQResponder interface {
	Answer(ctx context.Context, message string) (string, error)
}

type AccountResponder interface {
	AnswerAccount(ctx context.Context, message, customerID string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, conversationText, reason, currentQuestion string) (string, error)
}
