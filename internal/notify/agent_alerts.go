package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// TicketAlert is what agents need to pick up a new handoff.
type TicketAlert struct {
	TicketID     string
	SessionID    string
	CustomerName string
	Reason       string
	Department   string
	Summary      string
	CreatedAt    time.Time
}

// AgentAlerts e-mails the support desk when a conversation needs a human.
type AgentAlerts struct {
	email  EmailSender
	to     string
	logger *logging.Logger
}

// NewAgentAlerts returns nil when there is no sender or recipient.
func NewAgentAlerts(email EmailSender, to string, logger *logging.Logger) *AgentAlerts {
	if email == nil || strings.TrimSpace(to) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AgentAlerts{email: email, to: strings.TrimSpace(to), logger: logger}
}

// TicketCreated sends the new-ticket alert.
func (a *AgentAlerts) TicketCreated(ctx context.Context, alert TicketAlert) error {
	if a == nil {
		return nil
	}
	customer := alert.CustomerName
	if customer == "" {
		customer = "Unverified customer"
	}
	department := alert.Department
	if department == "" {
		department = "General Support"
	}

	subject := fmt.Sprintf("[%s] Handoff %s: %s", department, shortID(alert.TicketID), alert.Reason)
	var b strings.Builder
	fmt.Fprintf(&b, "A customer conversation needs an agent.\n\n")
	fmt.Fprintf(&b, "Ticket: %s\n", alert.TicketID)
	fmt.Fprintf(&b, "Session: %s\n", alert.SessionID)
	fmt.Fprintf(&b, "Customer: %s\n", customer)
	fmt.Fprintf(&b, "Reason: %s\n", alert.Reason)
	fmt.Fprintf(&b, "Department: %s\n", department)
	if !alert.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Opened: %s\n", alert.CreatedAt.Format("January 2, 2006 at 3:04 PM MST"))
	}
	if alert.Summary != "" {
		fmt.Fprintf(&b, "\nSummary:\n%s\n", alert.Summary)
	}

	if err := a.email.Send(ctx, EmailMessage{To: a.to, ToName: "Support Desk", Subject: subject, Body: b.String()}); err != nil {
		a.logger.Warn("notify: agent alert failed", "ticket_id", alert.TicketID, "error", err)
		return fmt.Errorf("notify: agent alert: %w", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
