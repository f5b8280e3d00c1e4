package providers

import (
	"regexp"
	"strings"
)

// Account question types understood by the ledger responder.
const (
	TopicBalance        = "balance"
	TopicDueDate        = "due_date"
	TopicLastPayment    = "last_payment"
	TopicPaymentHistory = "payment_history"
	TopicAutopay        = "autopay"
	TopicUsage          = "usage"
	TopicMeterRead      = "meter_read"
	TopicServiceAddress = "service_address"
)

type topicRule struct {
	topic    string
	keywords []string
}

// Order matters: the first rule with a hit wins.
var accountTopicRules = []topicRule{
	{TopicPaymentHistory, []string{"payment history", "past payments", "previous bills", "statements", "billing history"}},
	{TopicLastPayment, []string{"last payment", "my payment go through", "did my payment", "payment posted", "when did i pay", "received my payment"}},
	{TopicDueDate, []string{"due date", "when is my bill due", "when is my payment due", "when do i have to pay", "when is it due"}},
	{TopicAutopay, []string{"autopay", "auto pay", "automatic payment", "auto-pay"}},
	{TopicMeterRead, []string{"meter", "estimated read", "actual read", "reading"}},
	{TopicUsage, []string{"usage", "kwh", "how much energy", "how much power", "consumption", "used this month"}},
	{TopicServiceAddress, []string{"service address", "address on file", "what address"}},
	{TopicBalance, []string{"balance", "how much do i owe", "what do i owe", "amount due", "how much is my bill", "my bill", "owe"}},
}

var (
	personalMarker = regexp.MustCompile(`\b(my|mine|i|i'm|me|our)\b`)
	// How-to and definition questions ask about billing in general even when
	// they mention the customer ("how do i pay my bill").
	generalQuestion = regexp.MustCompile(`^(how (do|can|would|should) (i|we|you)|what (is|are) (an?|the)|what does|what happens)\b`)
)

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// accountTopic reports which account question the message asks, if any.
func accountTopic(message string) string {
	text := normalizeText(message)
	for _, rule := range accountTopicRules {
		if containsAny(text, rule.keywords) {
			return rule.topic
		}
	}
	return ""
}

func isGeneralQuestion(message string) bool {
	return generalQuestion.MatchString(normalizeText(message))
}

func isPersonal(message string) bool {
	return personalMarker.MatchString(normalizeText(message))
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
