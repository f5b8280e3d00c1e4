package handoff

import (
	"errors"
	"time"

	"github.com/wolfman30/billing-support-ai/internal/session"
)

var (
	ErrTicketNotFound     = errors.New("handoff: ticket not found")
	ErrActiveTicketExists = errors.New("handoff: session already has an open ticket")
	ErrWaiterBusy         = errors.New("handoff: another caller is already waiting on this ticket")
	ErrInvalidStatus      = errors.New("handoff: operation not allowed in current ticket status")
	ErrInvalidResolution  = errors.New("handoff: unknown resolution kind")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusResolved  Status = "resolved"
	StatusAbandoned Status = "abandoned"
)

// Open reports whether the ticket still owns its session.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusActive
}

// ResolutionKind is how an agent closes (or continues) a ticket.
type ResolutionKind string

const (
	ResolutionResolved             ResolutionKind = "resolved"
	ResolutionContinueConversation ResolutionKind = "continue_conversation"
	ResolutionTransferToSpecialist ResolutionKind = "transfer_to_specialist"
	ResolutionScheduleCallback     ResolutionKind = "schedule_callback"
)

// FollowUp tells the conversation layer what happens next.
type FollowUp string

const (
	FollowUpNone          FollowUp = "none"
	FollowUpStayWithHuman FollowUp = "stay_with_human"
	FollowUpTransfer      FollowUp = "transfer"
	FollowUpCallback      FollowUp = "callback"
)

// FollowUpFor maps a resolution kind to its follow-up signal.
func FollowUpFor(kind ResolutionKind) (FollowUp, error) {
	switch kind {
	case ResolutionResolved:
		return FollowUpNone, nil
	case ResolutionContinueConversation:
		return FollowUpStayWithHuman, nil
	case ResolutionTransferToSpecialist:
		return FollowUpTransfer, nil
	case ResolutionScheduleCallback:
		return FollowUpCallback, nil
	}
	return "", ErrInvalidResolution
}

// Resolution records how an agent handled the ticket.
type Resolution struct {
	Kind       ResolutionKind `json:"kind"`
	FollowUp   FollowUp       `json:"follow_up"`
	Notes      string         `json:"notes,omitempty"`
	ResolvedBy string         `json:"resolved_by,omitempty"`
	At         time.Time      `json:"at"`
}

// Ticket is a request for a human agent to take over a conversation.
type Ticket struct {
	ID              string            `json:"id"`
	SessionID       string            `json:"session_id"`
	Summary         string            `json:"summary"`
	Reason          string            `json:"reason"`
	Department      string            `json:"department"`
	CustomerID      string            `json:"customer_id,omitempty"`
	CustomerName    string            `json:"customer_name,omitempty"`
	IdentifyingInfo string            `json:"identifying_info,omitempty"`
	Status          Status            `json:"status"`
	AgentID         string            `json:"agent_id,omitempty"`
	AgentName       string            `json:"agent_name,omitempty"`
	History         []session.Message `json:"history"`
	Resolution      *Resolution       `json:"resolution,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	AssignedAt      *time.Time        `json:"assigned_at,omitempty"`
	ResolvedAt      *time.Time        `json:"resolved_at,omitempty"`
}

func (t *Ticket) clone() *Ticket {
	out := *t
	out.History = append([]session.Message(nil), t.History...)
	if t.Resolution != nil {
		r := *t.Resolution
		out.Resolution = &r
	}
	if t.AssignedAt != nil {
		at := *t.AssignedAt
		out.AssignedAt = &at
	}
	if t.ResolvedAt != nil {
		at := *t.ResolvedAt
		out.ResolvedAt = &at
	}
	return &out
}

// CreateRequest carries what the router knows when escalating.
type CreateRequest struct {
	SessionID       string
	Summary         string
	Reason          string
	Department      string
	CustomerID      string
	CustomerName    string
	IdentifyingInfo string
	History         []session.Message
}

// Response is an agent message delivered to the waiting conversation. A
// non-nil Resolution marks the closing message of a ticket.
type Response struct {
	TicketID   string      `json:"ticket_id"`
	AgentID    string      `json:"agent_id,omitempty"`
	AgentName  string      `json:"agent_name,omitempty"`
	Content    string      `json:"content"`
	At         time.Time   `json:"at"`
	Resolution *Resolution `json:"resolution,omitempty"`
}

// Closing reports whether the response ends the human conversation.
func (r *Response) Closing() bool {
	return r != nil && r.Resolution != nil && r.Resolution.FollowUp != FollowUpStayWithHuman
}
