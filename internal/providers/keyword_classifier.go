package providers

import (
	"context"
	"strings"
	"unicode"

	"github.com/wolfman30/billing-support-ai/internal/session"
)

var (
	humanKeywords = []string{
		"human", "agent", "representative", "real person", "live person", "operator",
		"speak to someone", "talk to someone", "speak with someone", "customer service rep",
	}
	serviceKeywords = []string{
		"dispute", "refund", "payment plan", "payment arrangement", "extension",
		"stop service", "start service", "cancel my service", "close my account", "transfer service",
		"moving", "change my address", "update my address", "outage", "power is out", "shut off", "disconnect",
		"wrong charge", "overcharged", "file a complaint",
	}
	greetingKeywords = []string{"hi", "hello", "hey", "thanks", "thank you", "good morning", "good afternoon"}
)

// KeywordClassifier is a deterministic rule-based classifier. It backs the
// LLM classifier and runs alone when no model is configured.
type KeywordClassifier struct {
	faq *StaticFAQ
}

func NewKeywordClassifier(faq *StaticFAQ) *KeywordClassifier {
	if faq == nil {
		faq = NewStaticFAQ(nil)
	}
	return &KeywordClassifier{faq: faq}
}

func (c *KeywordClassifier) Classify(ctx context.Context, message string, recent []session.Message) (Classification, error) {
	text := normalizeText(message)

	if containsAny(text, humanKeywords) {
		return Classification{Category: CategoryHumanRequested, Confidence: 0.95, Reasoning: "customer asked for a person"}, nil
	}
	if containsAny(text, serviceKeywords) {
		return Classification{Category: CategoryServiceRequest, Confidence: 0.85, Reasoning: "request needs account changes only staff can make"}, nil
	}
	entry, score := c.faq.match(text)
	faqHit := entry != nil && score > 0
	if faqHit && isGeneralQuestion(text) {
		return faqClassification(entry), nil
	}
	if topic := accountTopic(text); topic != "" && isPersonal(text) {
		return Classification{
			Category:     CategoryAccountData,
			Confidence:   0.9,
			RequiresAuth: true,
			QuestionType: topic,
			Reasoning:    "question about the customer's own account",
		}, nil
	}
	if faqHit {
		return faqClassification(entry), nil
	}
	if topic := accountTopic(text); topic != "" {
		return Classification{Category: CategoryBillingFAQ, Confidence: 0.6, QuestionType: topic, Reasoning: "general billing question"}, nil
	}
	if isGreeting(text) {
		return Classification{Category: CategoryOutOfScope, Confidence: 0.9, QuestionType: "greeting", Reasoning: "small talk"}, nil
	}
	if !hasLetters(text) {
		return Classification{Category: CategoryOutOfScope, Confidence: 0.1, Reasoning: "no recognizable words"}, nil
	}
	return Classification{Category: CategoryOutOfScope, Confidence: 0.5, Reasoning: "no billing intent recognized"}, nil
}

func faqClassification(entry *FAQEntry) Classification {
	return Classification{
		Category:     CategoryBillingFAQ,
		Confidence:   0.8,
		QuestionType: entry.ID,
		Reasoning:    "general billing question",
	}
}

func isGreeting(text string) bool {
	trimmed := strings.Trim(text, "!.? ")
	for _, g := range greetingKeywords {
		if trimmed == g || strings.HasPrefix(trimmed, g+" ") || strings.HasPrefix(trimmed, g+",") {
			return len(strings.Fields(trimmed)) <= 4
		}
	}
	return false
}

func hasLetters(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
