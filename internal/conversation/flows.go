package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/billing-support-ai/internal/auth"
	"github.com/wolfman30/billing-support-ai/internal/handoff"
	"github.com/wolfman30/billing-support-ai/internal/providers"
	"github.com/wolfman30/billing-support-ai/internal/session"
)

// continueHandoff relays the message to the human side. handled is false
// when the ticket has closed and normal routing should take over; the
// returned outcome then carries any agent text still queued, up to and
// including the closing message.
func (r *Router) continueHandoff(ctx context.Context, sess *session.Session, message string) (outcome, bool, error) {
	ticketID := sess.HandoffTicketID
	if _, open := r.tickets.BySession(sess.ID); !open {
		out := r.drainClosed(ctx, ticketID)
		sess.ClearHandoff()
		return out, false, nil
	}

	if isCancel(message) {
		if _, err := r.tickets.Abandon(ctx, ticketID, "customer cancelled the request"); err != nil && !errors.Is(err, handoff.ErrInvalidStatus) {
			return outcome{}, true, fmt.Errorf("conversation: abandon ticket: %w", err)
		}
		sess.ClearHandoff()
		return outcome{text: msgHandoffCancelled, route: RouteHandoffCancel, from: session.RoleAssistant}, true, nil
	}

	if err := r.tickets.AppendCustomerMessage(ctx, ticketID, message); err != nil {
		return outcome{}, true, fmt.Errorf("conversation: relay to ticket: %w", err)
	}
	out, err := r.awaitAgent(ctx, sess, ticketID, "")
	return out, true, err
}

// drainClosed collects the buffered responses of a closed ticket.
func (r *Router) drainClosed(ctx context.Context, ticketID string) outcome {
	var out outcome
	for {
		resp, err := r.tickets.WaitForResponse(ctx, ticketID, 0)
		if err != nil || resp == nil {
			return out
		}
		out.text = join(out.text, resp.Content)
		if resp.Resolution != nil {
			out.followUp = resp.Resolution.FollowUp
		}
		if resp.Closing() {
			return out
		}
	}
}

// awaitAgent blocks for one agent response and applies it to the session.
func (r *Router) awaitAgent(ctx context.Context, sess *session.Session, ticketID, intro string) (outcome, error) {
	resp, err := r.tickets.WaitForResponse(ctx, ticketID, r.waitTimeout)
	switch {
	case errors.Is(err, handoff.ErrWaiterBusy):
		return outcome{text: join(intro, msgAgentBusy), route: RouteHandoffRelay, from: session.RoleAssistant}, nil
	case err != nil:
		return outcome{}, fmt.Errorf("conversation: wait for agent: %w", err)
	case resp == nil:
		if t, open := r.tickets.BySession(sess.ID); open && t.Status == handoff.StatusActive {
			sess.HandoffState = session.HandoffActive
			return outcome{
				text:  join(intro, fmt.Sprintf(msgAgentWorking, agentName(t.AgentName))),
				route: RouteHandoffRelay,
				from:  session.RoleAssistant,
			}, nil
		}
		return outcome{
			text:  join(intro, fmt.Sprintf(msgAgentTimeout, ticketID)),
			route: RouteHandoffRelay,
			from:  session.RoleAssistant,
		}, nil
	}

	out := outcome{text: join(intro, resp.Content), route: RouteHandoffRelay, from: session.RoleAgent}
	if resp.Resolution != nil {
		out.followUp = resp.Resolution.FollowUp
	}
	if resp.Closing() {
		sess.ClearHandoff()
		out.route = RouteHandoffClosed
		return out, nil
	}
	sess.HandoffState = session.HandoffActive
	return out, nil
}

func agentName(name string) string {
	if name == "" {
		return "Your agent"
	}
	return name
}

// continueAuth consumes the message as an identifier or a factor answer.
func (r *Router) continueAuth(ctx context.Context, sess *session.Session, message string) (outcome, error) {
	if isCancel(message) {
		sess.PendingQuery = ""
		r.metrics.ObserveAuth("flow", "cancelled")
		return outcome{text: msgAuthCancelled, route: RouteAuthCancelled, from: session.RoleAssistant}, nil
	}

	switch phase := r.auth.Resume(&sess.Auth).(type) {
	case *auth.Anonymous:
		v, err := phase.Lookup(ctx, message)
		if errors.Is(err, auth.ErrCustomerNotFound) {
			r.metrics.ObserveAuth("lookup", "not_found")
			return r.authPrompt(msgLookupMiss), nil
		}
		if err != nil {
			r.logger.Error("identity lookup failed", "session_id", sess.ID, "error", err)
			return r.escalate(ctx, sess, reasonSystemError, departmentFor(reasonSystemError), sess.PendingQuery)
		}
		r.metrics.ObserveAuth("lookup", "found")
		return r.authPrompt(fmt.Sprintf(msgFoundCustomer, firstName(v.CustomerName()), factorPrompt(v.NextFactor()))), nil

	case *auth.Verifying:
		factor := phase.NextFactor()
		err := phase.Verify(ctx, factor, message)
		var wrong *auth.VerificationError
		switch {
		case errors.As(err, &wrong):
			r.metrics.ObserveAuth("verify", "failed")
			return r.authPrompt(fmt.Sprintf(msgWrongAnswer, attempts(wrong.Remaining), factorPrompt(factor))), nil
		case errors.Is(err, auth.ErrLockedOut):
			r.metrics.ObserveAuth("verify", "locked_out")
			return r.lockout(ctx, sess)
		case err != nil:
			r.logger.Error("factor verification failed", "session_id", sess.ID, "error", err)
			return r.escalate(ctx, sess, reasonSystemError, departmentFor(reasonSystemError), sess.PendingQuery)
		}
		r.metrics.ObserveAuth("verify", "passed")
		if !phase.Ready() {
			return r.authPrompt(fmt.Sprintf(msgNextFactor, factorPrompt(phase.NextFactor()))), nil
		}
		authed, err := phase.Complete()
		if err != nil {
			return outcome{}, fmt.Errorf("conversation: complete authentication: %w", err)
		}
		r.metrics.ObserveAuth("flow", "authenticated")
		return r.resumePending(sess, authed.CustomerName()), nil

	case *auth.Authenticated:
		return r.resumePending(sess, phase.CustomerName()), nil

	default:
		return r.lockout(ctx, sess)
	}
}

func (r *Router) authPrompt(text string) outcome {
	return outcome{text: text, route: RouteAuthPrompt, from: session.RoleAssistant}
}

// resumePending hands the parked query back to dispatch exactly once.
func (r *Router) resumePending(sess *session.Session, name string) outcome {
	pending := sess.PendingQuery
	sess.PendingQuery = ""
	return outcome{
		text:       fmt.Sprintf(msgVerified, firstName(name)),
		from:       session.RoleAssistant,
		redispatch: pending,
	}
}

func (r *Router) lockout(ctx context.Context, sess *session.Session) (outcome, error) {
	question := sess.PendingQuery
	sess.PendingQuery = ""
	return r.escalate(ctx, sess, reasonLockout, departmentFor(reasonLockout), question)
}

// classifyAndRoute sends the message to the component its category calls for.
func (r *Router) classifyAndRoute(ctx context.Context, sess *session.Session, message string) (outcome, error) {
	c, err := r.classifier.Classify(ctx, message, sess.Recent(r.historyWindow))
	if err != nil {
		r.logger.Error("classification failed", "session_id", sess.ID, "error", err)
		return r.escalate(ctx, sess, reasonSystemError, departmentFor(reasonSystemError), message)
	}
	r.logger.Debug("message classified",
		"session_id", sess.ID,
		"category", string(c.Category),
		"confidence", c.Confidence,
		"question_type", c.QuestionType,
	)

	switch c.Category {
	case providers.CategoryBillingFAQ:
		answer, err := r.faq.Answer(ctx, message)
		if err != nil {
			r.logger.Error("faq responder failed", "session_id", sess.ID, "error", err)
			return r.escalate(ctx, sess, reasonSystemError, departmentFor(reasonSystemError), message)
		}
		return outcome{text: answer, route: RouteFAQ, from: session.RoleAssistant}, nil

	case providers.CategoryAccountData:
		return r.accountData(ctx, sess, message)

	case providers.CategoryServiceRequest:
		return r.escalate(ctx, sess, reasonServiceRequest, departmentFor(reasonServiceRequest), message)

	case providers.CategoryHumanRequested:
		return r.escalate(ctx, sess, reasonHumanRequested, departmentFor(reasonHumanRequested), message)

	default:
		if c.Confidence < r.lowConfidence {
			return r.escalate(ctx, sess, reasonUnclear, departmentFor(reasonUnclear), message)
		}
		text := msgClarify
		if c.QuestionType == "greeting" {
			text = msgGreeting
		}
		return outcome{text: text, route: RouteClarification, from: session.RoleAssistant}, nil
	}
}

func (r *Router) accountData(ctx context.Context, sess *session.Session, message string) (outcome, error) {
	switch phase := r.auth.Resume(&sess.Auth).(type) {
	case *auth.Authenticated:
		answer, err := r.account.AnswerAccount(ctx, message, phase.CustomerID())
		if errors.Is(err, providers.ErrPreconditionViolation) {
			return outcome{}, fmt.Errorf("conversation: account answer: %w", err)
		}
		if err != nil {
			r.logger.Error("account responder failed", "session_id", sess.ID, "error", err)
			return r.escalate(ctx, sess, reasonSystemError, departmentFor(reasonSystemError), message)
		}
		return outcome{text: answer, route: RouteAccountData, from: session.RoleAssistant}, nil

	case *auth.LockedOut:
		return r.escalate(ctx, sess, reasonLockout, departmentFor(reasonLockout), message)

	case *auth.Verifying:
		sess.PendingQuery = message
		r.metrics.ObserveAuth("flow", "resumed")
		return r.authPrompt(fmt.Sprintf(msgNeedFactor, factorPrompt(phase.NextFactor()))), nil

	default:
		sess.PendingQuery = message
		r.metrics.ObserveAuth("flow", "started")
		return r.authPrompt(msgNeedIdentifier), nil
	}
}

// escalate summarizes the conversation, opens a ticket and waits briefly for
// an agent to pick it up.
func (r *Router) escalate(ctx context.Context, sess *session.Session, reason, department, question string) (outcome, error) {
	transcript := sess.Transcript()
	summary, err := r.summarizer.Summarize(ctx, transcript, reason, question)
	if err != nil {
		r.logger.Warn("summarizer failed, using template", "session_id", sess.ID, "error", err)
		summary, _ = r.fallback.Summarize(ctx, transcript, reason, question)
	}

	ticket, err := r.tickets.CreateTicket(ctx, handoff.CreateRequest{
		SessionID:       sess.ID,
		Summary:         summary,
		Reason:          reason,
		Department:      department,
		CustomerID:      sess.CustomerID(),
		CustomerName:    sess.CustomerName(),
		IdentifyingInfo: sess.Auth.IdentifyingInfo,
		History:         sess.History,
	})
	if err != nil && !errors.Is(err, handoff.ErrActiveTicketExists) {
		return outcome{}, fmt.Errorf("conversation: create ticket: %w", err)
	}

	sess.HandoffTicketID = ticket.ID
	sess.HandoffState = session.HandoffWaiting
	out, err := r.awaitAgent(ctx, sess, ticket.ID, handoffIntro(reason, department))
	if err != nil {
		return outcome{}, err
	}
	if out.route == RouteHandoffRelay {
		out.route = RouteHandoff
	}
	return out, nil
}
