package session

import (
	"strings"
	"time"

	"github.com/wolfman30/billing-support-ai/internal/auth"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleAgent     = "agent"
	RoleSystem    = "system"
)

// Message is one entry of the conversation transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HandoffState tracks whether a human owns the conversation.
type HandoffState string

const (
	HandoffNone    HandoffState = "none"
	HandoffWaiting HandoffState = "waiting_for_human"
	HandoffActive  HandoffState = "human_conversation_active"
)

// Session is the complete state of one customer conversation. The Manager
// owns it; only the router and the auth/handoff state machines mutate it.
type Session struct {
	ID              string        `json:"id"`
	Auth            auth.Progress `json:"auth"`
	PendingQuery    string        `json:"pending_query,omitempty"`
	History         []Message     `json:"history"`
	HandoffTicketID string        `json:"handoff_ticket_id,omitempty"`
	HandoffState    HandoffState  `json:"handoff_state"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// New returns an anonymous session with no history.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		Auth:         auth.NewProgress(),
		History:      []Message{},
		HandoffState: HandoffNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Append adds a message to the end of the transcript.
func (s *Session) Append(role, content string, at time.Time) {
	s.History = append(s.History, Message{Role: role, Content: content, Timestamp: at})
	s.UpdatedAt = at
}

// Recent returns up to n trailing messages.
func (s *Session) Recent(n int) []Message {
	if n <= 0 || n >= len(s.History) {
		return append([]Message(nil), s.History...)
	}
	return append([]Message(nil), s.History[len(s.History)-n:]...)
}

// InHandoff reports whether a human is (or is about to be) handling the chat.
func (s *Session) InHandoff() bool {
	return s.HandoffState == HandoffWaiting || s.HandoffState == HandoffActive
}

// ClearHandoff returns the conversation to the automated assistant.
func (s *Session) ClearHandoff() {
	s.HandoffState = HandoffNone
	s.HandoffTicketID = ""
}

func (s *Session) CustomerID() string   { return s.Auth.CustomerID }
func (s *Session) CustomerName() string { return s.Auth.CustomerName }

// SessionExpiry is when the authenticated window closes, or nil.
func (s *Session) SessionExpiry() *time.Time { return s.Auth.SessionExpiry }

// Transcript renders the history as plain "role: content" lines.
func (s *Session) Transcript() string {
	var b strings.Builder
	for _, m := range s.History {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// Clone deep-copies the session.
func (s *Session) Clone() *Session {
	out := *s
	out.History = append([]Message(nil), s.History...)
	out.Auth.VerifiedFactors = append([]auth.Factor(nil), s.Auth.VerifiedFactors...)
	if s.Auth.AuthenticatedAt != nil {
		t := *s.Auth.AuthenticatedAt
		out.Auth.AuthenticatedAt = &t
	}
	if s.Auth.SessionExpiry != nil {
		t := *s.Auth.SessionExpiry
		out.Auth.SessionExpiry = &t
	}
	return &out
}
