package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/billing-support-ai/internal/auth"
)

// Escalation reasons recorded on tickets.
const (
	reasonLockout        = "authentication lockout"
	reasonSystemError    = "system error"
	reasonServiceRequest = "service request"
	reasonHumanRequested = "customer requested human"
	reasonUnclear        = "unclear request"
)

const (
	departmentSecurity = "Account Security"
	departmentService  = "Customer Service"
	departmentBilling  = "Billing Support"
)

const (
	msgNeedIdentifier   = "I can help with that. First I need to verify your identity. What is the phone number, e-mail address or account number on your account?"
	msgLookupMiss       = "I couldn't find an account with that. Please try the phone number, e-mail address or account number on your bill, or say \"cancel\" to stop."
	msgFoundCustomer    = "Thanks, %s. To verify your identity, please provide %s."
	msgNextFactor       = "Thanks. Next, please provide %s."
	msgNeedFactor       = "I can help with that once you're verified. Please provide %s."
	msgWrongAnswer      = "That doesn't match our records. You have %s left. Please provide %s."
	msgVerified         = "Thanks, %s, you're verified."
	msgAuthCancelled    = "No problem, I've stopped the verification. Is there anything else I can help with?"
	msgHandoffCancelled = "I've cancelled your request for an agent. Is there anything else I can help with?"
	msgAgentBusy        = "Your message is with our team and an agent will reply here shortly."
	msgAgentWorking     = "%s has your message and will reply here shortly."
	msgAgentTimeout     = "All of our agents are busy right now. Your ticket number is %s, and we'll follow up with you here as soon as someone is available."
	msgClarify          = "I'm not sure I understood. I can answer billing questions, look up your balance and payments once you're verified, or connect you with a person. Could you rephrase?"
	msgGreeting         = "Hello! I'm the billing assistant. I can answer billing questions, look up your balance and payments once you're verified, or connect you with a person. How can I help?"
)

var cancelPhrases = map[string]bool{
	"cancel":        true,
	"cancel that":   true,
	"cancel it":     true,
	"nevermind":     true,
	"never mind":    true,
	"forget it":     true,
	"stop":          true,
	"quit":          true,
	"exit":          true,
	"cancel please": true,
}

// isCancel matches short standalone cancel requests only, so a sentence
// such as "cancel my autopay" is still routed normally.
func isCancel(message string) bool {
	text := strings.ToLower(strings.Trim(strings.TrimSpace(message), "!.?, "))
	return cancelPhrases[text]
}

func departmentFor(reason string) string {
	switch reason {
	case reasonLockout:
		return departmentSecurity
	case reasonServiceRequest:
		return departmentService
	default:
		return departmentBilling
	}
}

func handoffIntro(reason, department string) string {
	switch reason {
	case reasonLockout:
		return fmt.Sprintf("For your security I can't continue verifying your identity. I've passed your conversation to our %s team.", department)
	case reasonSystemError:
		return "Sorry, I ran into a problem answering that. I've passed your conversation to a member of our team."
	case reasonServiceRequest:
		return fmt.Sprintf("That needs a member of our %s team. I've passed your request along.", department)
	default:
		return "I'm connecting you with a member of our team."
	}
}

func factorPrompt(f auth.Factor) string {
	switch f {
	case auth.FactorDOB:
		return "your date of birth"
	case auth.FactorSSN:
		return "the last four digits of your Social Security number"
	default:
		return strings.ToLower(string(f))
	}
}

func attempts(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

func join(first, second string) string {
	switch {
	case first == "":
		return second
	case second == "":
		return first
	default:
		return first + " " + second
	}
}
