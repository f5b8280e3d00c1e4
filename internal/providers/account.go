package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/billing-support-ai/internal/identity"
)

// LedgerResponder answers account questions from the customer record.
type LedgerResponder struct {
	store identity.Store
}

func NewLedgerResponder(store identity.Store) *LedgerResponder {
	if store == nil {
		panic("providers: identity store required")
	}
	return &LedgerResponder{store: store}
}

func (r *LedgerResponder) AnswerAccount(ctx context.Context, message, customerID string) (string, error) {
	if strings.TrimSpace(customerID) == "" {
		return "", fmt.Errorf("%w: account data requested without a verified customer", ErrPreconditionViolation)
	}
	rec, err := r.store.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return "", fmt.Errorf("%w: customer %s no longer exists", ErrPreconditionViolation, customerID)
		}
		return "", fmt.Errorf("providers: load customer: %w", err)
	}

	name := firstName(rec.Name)
	switch accountTopic(message) {
	case TopicDueDate:
		if rec.BalanceCents <= 0 {
			return fmt.Sprintf("%s, nothing is due right now. Your next statement is due %s.", name, longDate(rec.DueDate)), nil
		}
		return fmt.Sprintf("%s, your payment of %s is due on %s.", name, money(rec.BalanceCents), longDate(rec.DueDate)), nil
	case TopicLastPayment:
		if rec.LastPayment == nil {
			return fmt.Sprintf("%s, we don't have any payments on file for this account yet.", name), nil
		}
		p := rec.LastPayment
		return fmt.Sprintf("%s, your last payment of %s was received on %s by %s.", name, money(p.AmountCents), longDate(p.PaidAt), p.Method), nil
	case TopicPaymentHistory:
		if len(rec.Statements) == 0 {
			return fmt.Sprintf("%s, there are no statements on this account yet.", name), nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s, here are your recent statements:", name)
		for _, s := range rec.Statements {
			status := "unpaid"
			if s.Paid {
				status = "paid"
			}
			fmt.Fprintf(&b, "\n- %s: %s, due %s (%s)", s.Period, money(s.AmountCents), longDate(s.DueDate), status)
		}
		return b.String(), nil
	case TopicAutopay:
		if rec.Autopay {
			return fmt.Sprintf("%s, you're enrolled in AutoPay. Your balance is drafted automatically on the due date.", name), nil
		}
		return fmt.Sprintf("%s, you're not enrolled in AutoPay. You can sign up online under Billing > AutoPay.", name), nil
	case TopicUsage:
		return usageAnswer(name, rec), nil
	case TopicMeterRead:
		readType := rec.ReadType
		if len(rec.Usage) > 0 {
			last := rec.Usage[len(rec.Usage)-1]
			return fmt.Sprintf("%s, meter %s was last read on %s. Read type: %s.", name, rec.MeterNumber, longDate(last.ReadAt), readKind(last.ReadType)), nil
		}
		return fmt.Sprintf("%s, meter %s is billed on %s reads.", name, rec.MeterNumber, readType), nil
	case TopicServiceAddress:
		return fmt.Sprintf("%s, the service address on your account is %s.", name, rec.ServiceAddress), nil
	}

	if rec.BalanceCents <= 0 {
		return fmt.Sprintf("%s, your account is paid in full. Your next statement is due %s.", name, longDate(rec.DueDate)), nil
	}
	answer := fmt.Sprintf("%s, your current balance is %s, due on %s.", name, money(rec.BalanceCents), longDate(rec.DueDate))
	if rec.Autopay {
		answer += " AutoPay will pay it automatically."
	}
	return answer, nil
}

func usageAnswer(name string, rec *identity.CustomerRecord) string {
	if len(rec.Usage) == 0 {
		return fmt.Sprintf("%s, we don't have any meter readings for this account yet.", name)
	}
	last := rec.Usage[len(rec.Usage)-1]
	answer := fmt.Sprintf("%s, you used %.1f kWh in the %s billing period (%s read).", name, last.KWh, last.Period, last.ReadType)
	if len(rec.Usage) > 1 {
		prev := rec.Usage[len(rec.Usage)-2]
		if prev.KWh > 0 {
			change := (last.KWh - prev.KWh) / prev.KWh * 100
			direction := "up"
			if change < 0 {
				direction = "down"
				change = -change
			}
			answer += fmt.Sprintf(" That's %s %.1f%% from %s.", direction, change, prev.Period)
		}
	}
	return answer
}

func firstName(full string) string {
	if f := strings.Fields(full); len(f) > 0 {
		return f[0]
	}
	return "Hi"
}

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func readKind(readType string) string {
	if readType == "" {
		return "unknown"
	}
	return readType
}

func longDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
