package providers

import (
	"context"
	"strings"
)

// FAQEntry is one canned answer and the phrases that select it.
type FAQEntry struct {
	ID       string
	Keywords []string
	Answer   string
}

// DefaultFAQ is the built-in billing knowledge base.
func DefaultFAQ() []FAQEntry {
	return []FAQEntry{
		{
			ID:       "payment_methods",
			Keywords: []string{"how can i pay", "how do i pay", "ways to pay", "payment methods", "pay by phone", "pay online", "credit card", "pay in person", "pay with"},
			Answer:   "You can pay online with a debit or credit card or bank transfer, by phone through our automated line, by mail with a check, or in person at any authorized payment location. Online and phone payments post within one business day.",
		},
		{
			ID:       "autopay",
			Keywords: []string{"autopay", "auto pay", "automatic payment", "enroll", "sign up for automatic"},
			Answer:   "AutoPay drafts your full balance on the due date each month. You can enroll or cancel online under Billing > AutoPay; changes made at least five days before the due date apply to the current bill.",
		},
		{
			ID:       "due_dates",
			Keywords: []string{"when are bills due", "due date", "how long do i have to pay", "grace period", "change my due date"},
			Answer:   "Bills are due 25 days after the statement date. If you need a different due date, you can request one once every 12 months as long as your account is current.",
		},
		{
			ID:       "late_fees",
			Keywords: []string{"late fee", "late charge", "pay late", "penalty", "missed payment"},
			Answer:   "A late fee of 1.5% of the past-due amount is added if payment is not received by the due date. Accounts more than 30 days past due may receive a disconnection notice.",
		},
		{
			ID:       "estimated_reads",
			Keywords: []string{"estimated", "estimate", "why was my meter not read", "actual read"},
			Answer:   "When we can't access your meter, we estimate usage from your history and the weather. The next actual read automatically corrects any difference, so you are never billed twice for the same energy.",
		},
		{
			ID:       "billing_cycle",
			Keywords: []string{"billing cycle", "billing period", "how often", "monthly bill", "statement date"},
			Answer:   "Meters are read roughly every 30 days and a statement is issued a few days after each read, so billing periods can vary between 27 and 33 days.",
		},
		{
			ID:       "paperless",
			Keywords: []string{"paperless", "e-bill", "ebill", "email bill", "paper bill", "stop paper"},
			Answer:   "You can switch to paperless billing online under Billing > Delivery Preferences. You'll receive an e-mail each time a new statement is ready.",
		},
		{
			ID:       "budget_billing",
			Keywords: []string{"budget billing", "levelized", "same amount every month", "even out", "average billing"},
			Answer:   "Budget Billing averages your last 12 months of usage so you pay about the same amount every month. The difference is settled once a year on your anniversary bill.",
		},
		{
			ID:       "high_bill",
			Keywords: []string{"why is my bill so high", "bill went up", "high bill", "higher than usual", "bill increase"},
			Answer:   "Bills usually rise because of weather-driven heating or cooling, a longer billing period, or an estimated read. Comparing kWh usage period over period on your statement is the quickest way to see which applies.",
		},
		{
			ID:       "rates",
			Keywords: []string{"rate", "price per kwh", "cost per kwh", "tariff", "charges on my bill", "fees on my bill"},
			Answer:   "Your bill has a fixed monthly customer charge plus energy charges per kWh and delivery charges. The current rate schedule is published on our website under Rates & Tariffs.",
		},
	}
}

// StaticFAQ answers general billing questions from fixed entries.
type StaticFAQ struct {
	entries []FAQEntry
}

// NewStaticFAQ uses DefaultFAQ when entries is empty.
func NewStaticFAQ(entries []FAQEntry) *StaticFAQ {
	if len(entries) == 0 {
		entries = DefaultFAQ()
	}
	return &StaticFAQ{entries: entries}
}

const faqFallbackAnswer = "I can help with general billing questions such as payment options, due dates, late fees, AutoPay, estimated meter reads and paperless billing. Could you tell me a bit more about what you'd like to know?"

func (f *StaticFAQ) Answer(ctx context.Context, message string) (string, error) {
	if entry, score := f.match(normalizeText(message)); entry != nil && score > 0 {
		return entry.Answer, nil
	}
	return faqFallbackAnswer, nil
}

// match returns the entry with the most keyword hits. Ties go to the earlier entry.
func (f *StaticFAQ) match(text string) (*FAQEntry, int) {
	var best *FAQEntry
	bestScore := 0
	for i := range f.entries {
		score := 0
		for _, kw := range f.entries[i].Keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			best = &f.entries[i]
			bestScore = score
		}
	}
	return best, bestScore
}
