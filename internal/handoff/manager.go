package handoff

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/billing-support-ai/internal/notify"
	"github.com/wolfman30/billing-support-ai/internal/observability/metrics"
	"github.com/wolfman30/billing-support-ai/internal/session"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// Alerter tells agents a new ticket is waiting.
type Alerter interface {
	TicketCreated(ctx context.Context, alert notify.TicketAlert) error
}

// Manager is the in-process ticket registry. Every method is safe for
// concurrent use; WaitForResponse only blocks its own caller.
type Manager struct {
	mu        sync.Mutex
	tickets   map[string]*Ticket
	bySession map[string]string
	waiters   map[string]chan Response
	inbox     map[string][]Response

	publisher EventPublisher
	archive   Archiver
	alerts    Alerter
	logger    *logging.Logger
	metrics   *metrics.SupportMetrics
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
}

type Option func(*Manager)

func WithPublisher(p EventPublisher) Option { return func(m *Manager) { m.publisher = p } }
func WithArchive(a Archiver) Option         { return func(m *Manager) { m.archive = a } }
func WithAlerter(a Alerter) Option          { return func(m *Manager) { m.alerts = a } }

func WithMetrics(sm *metrics.SupportMetrics) Option {
	return func(m *Manager) { m.metrics = sm }
}

func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		tickets:   make(map[string]*Ticket),
		bySession: make(map[string]string),
		waiters:   make(map[string]chan Response),
		inbox:     make(map[string][]Response),
		logger:    logging.Default(),
		tracer:    otel.Tracer("billing.internal.handoff"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateTicket opens a pending ticket for the session. If the session already
// has an open ticket, that ticket is returned together with ErrActiveTicketExists.
func (m *Manager) CreateTicket(ctx context.Context, req CreateRequest) (*Ticket, error) {
	ctx, span := m.tracer.Start(ctx, "handoff.create_ticket")
	defer span.End()

	if strings.TrimSpace(req.SessionID) == "" {
		return nil, fmt.Errorf("handoff: session id required")
	}

	m.mu.Lock()
	if id, ok := m.bySession[req.SessionID]; ok {
		existing := m.tickets[id].clone()
		m.mu.Unlock()
		return existing, ErrActiveTicketExists
	}
	t := &Ticket{
		ID:              m.newID(),
		SessionID:       req.SessionID,
		Summary:         req.Summary,
		Reason:          req.Reason,
		Department:      req.Department,
		CustomerID:      req.CustomerID,
		CustomerName:    req.CustomerName,
		IdentifyingInfo: req.IdentifyingInfo,
		Status:          StatusPending,
		History:         append([]session.Message(nil), req.History...),
		CreatedAt:       m.now().UTC(),
	}
	m.tickets[t.ID] = t
	m.bySession[t.SessionID] = t.ID
	snapshot := t.clone()
	m.mu.Unlock()

	span.SetAttributes(attribute.String("ticket.id", snapshot.ID), attribute.String("ticket.reason", snapshot.Reason))
	m.logger.Info("handoff ticket created",
		"ticket_id", snapshot.ID,
		"session_id", snapshot.SessionID,
		"reason", snapshot.Reason,
		"department", snapshot.Department,
	)
	m.metrics.ObserveTicket(EventCreated)
	m.publish(ctx, EventCreated, snapshot)
	if m.alerts != nil {
		alert := notify.TicketAlert{
			TicketID:     snapshot.ID,
			SessionID:    snapshot.SessionID,
			CustomerName: snapshot.CustomerName,
			Reason:       snapshot.Reason,
			Department:   snapshot.Department,
			Summary:      snapshot.Summary,
			CreatedAt:    snapshot.CreatedAt,
		}
		if err := m.alerts.TicketCreated(ctx, alert); err != nil {
			m.logger.Warn("handoff: agent alert failed", "ticket_id", snapshot.ID, "error", err)
		}
	}
	return snapshot, nil
}

// Claim assigns a pending ticket to an agent.
func (m *Manager) Claim(ctx context.Context, ticketID, agentID, agentName string) (*Ticket, error) {
	m.mu.Lock()
	t, ok := m.tickets[ticketID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrTicketNotFound
	}
	if t.Status != StatusPending {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: claim from %s", ErrInvalidStatus, t.Status)
	}
	now := m.now().UTC()
	t.Status = StatusActive
	t.AgentID = agentID
	t.AgentName = agentName
	t.AssignedAt = &now
	snapshot := t.clone()
	m.mu.Unlock()

	m.logger.Info("handoff ticket claimed", "ticket_id", ticketID, "agent_id", agentID)
	m.metrics.ObserveTicket(EventClaimed)
	m.publish(ctx, EventClaimed, snapshot)
	return snapshot, nil
}

// SubmitResponse records an agent message and hands it to the waiting
// conversation, or buffers it for the next WaitForResponse.
func (m *Manager) SubmitResponse(ctx context.Context, resp Response) error {
	if strings.TrimSpace(resp.Content) == "" {
		return fmt.Errorf("handoff: response content required")
	}
	m.mu.Lock()
	t, ok := m.tickets[resp.TicketID]
	if !ok {
		m.mu.Unlock()
		return ErrTicketNotFound
	}
	if t.Status != StatusActive {
		m.mu.Unlock()
		return fmt.Errorf("%w: respond while %s", ErrInvalidStatus, t.Status)
	}
	if resp.At.IsZero() {
		resp.At = m.now().UTC()
	}
	if resp.AgentID == "" {
		resp.AgentID = t.AgentID
	}
	if resp.AgentName == "" {
		resp.AgentName = t.AgentName
	}
	t.History = append(t.History, session.Message{Role: session.RoleAgent, Content: resp.Content, Timestamp: resp.At})
	m.deliverLocked(resp)
	snapshot := t.clone()
	m.mu.Unlock()

	m.metrics.ObserveTicket(EventResponded)
	m.publish(ctx, EventResponded, snapshot)
	return nil
}

// AppendCustomerMessage relays a customer message into an open ticket.
func (m *Manager) AppendCustomerMessage(ctx context.Context, ticketID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[ticketID]
	if !ok {
		return ErrTicketNotFound
	}
	if !t.Status.Open() {
		return fmt.Errorf("%w: relay while %s", ErrInvalidStatus, t.Status)
	}
	t.History = append(t.History, session.Message{Role: session.RoleUser, Content: content, Timestamp: m.now().UTC()})
	return nil
}

// WaitForResponse blocks until an agent replies, the timeout elapses, or ctx
// ends. A timeout yields (nil, nil). Only one caller may wait per ticket.
func (m *Manager) WaitForResponse(ctx context.Context, ticketID string, timeout time.Duration) (*Response, error) {
	ctx, span := m.tracer.Start(ctx, "handoff.wait_for_response")
	defer span.End()

	m.mu.Lock()
	t, ok := m.tickets[ticketID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrTicketNotFound
	}
	if queued := m.inbox[ticketID]; len(queued) > 0 {
		resp := queued[0]
		if len(queued) == 1 {
			delete(m.inbox, ticketID)
		} else {
			m.inbox[ticketID] = queued[1:]
		}
		m.mu.Unlock()
		m.metrics.ObserveHandoffWait("response")
		return &resp, nil
	}
	if !t.Status.Open() {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: wait while %s", ErrInvalidStatus, t.Status)
	}
	if _, busy := m.waiters[ticketID]; busy {
		m.mu.Unlock()
		m.metrics.ObserveHandoffWait("busy")
		return nil, ErrWaiterBusy
	}
	ch := make(chan Response, 1)
	m.waiters[ticketID] = ch
	m.mu.Unlock()

	defer m.releaseWaiter(ticketID, ch)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		m.metrics.ObserveHandoffWait("response")
		return &resp, nil
	case <-timer.C:
		m.metrics.ObserveHandoffWait("timeout")
		return nil, nil
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		m.metrics.ObserveHandoffWait("canceled")
		return nil, ctx.Err()
	}
}

// releaseWaiter frees the slot and requeues anything delivered after the
// waiter stopped listening.
func (m *Manager) releaseWaiter(ticketID string, ch chan Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiters[ticketID] == ch {
		delete(m.waiters, ticketID)
	}
	select {
	case resp := <-ch:
		m.inbox[ticketID] = append([]Response{resp}, m.inbox[ticketID]...)
	default:
	}
}

func (m *Manager) deliverLocked(resp Response) {
	if ch, ok := m.waiters[resp.TicketID]; ok {
		delete(m.waiters, resp.TicketID)
		ch <- resp
		return
	}
	m.inbox[resp.TicketID] = append(m.inbox[resp.TicketID], resp)
}

// Resolve applies an agent's resolution and hands its message to the
// conversation. ContinueConversation keeps the ticket active; every other
// kind closes it and releases the session.
func (m *Manager) Resolve(ctx context.Context, ticketID string, kind ResolutionKind, notes string) (*Ticket, error) {
	ctx, span := m.tracer.Start(ctx, "handoff.resolve")
	defer span.End()

	followUp, err := FollowUpFor(kind)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	t, ok := m.tickets[ticketID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrTicketNotFound
	}
	if !t.Status.Open() || (kind == ResolutionContinueConversation && t.Status != StatusActive) {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s while %s", ErrInvalidStatus, kind, t.Status)
	}
	now := m.now().UTC()
	res := &Resolution{Kind: kind, FollowUp: followUp, Notes: notes, ResolvedBy: t.AgentID, At: now}
	t.Resolution = res
	if kind != ResolutionContinueConversation {
		t.Status = StatusResolved
		t.ResolvedAt = &now
		delete(m.bySession, t.SessionID)
	}
	out := Response{
		TicketID:   t.ID,
		AgentID:    t.AgentID,
		AgentName:  t.AgentName,
		Content:    resolutionMessage(kind, notes),
		At:         now,
		Resolution: res,
	}
	t.History = append(t.History, session.Message{Role: session.RoleAgent, Content: out.Content, Timestamp: now})
	m.deliverLocked(out)
	snapshot := t.clone()
	m.mu.Unlock()

	span.SetAttributes(attribute.String("ticket.id", ticketID), attribute.String("resolution.kind", string(kind)))
	m.logger.Info("handoff ticket resolved", "ticket_id", ticketID, "kind", kind, "follow_up", followUp)
	if snapshot.Status == StatusResolved {
		m.metrics.ObserveTicket(EventResolved)
		m.publish(ctx, EventResolved, snapshot)
		m.archiveTicket(ctx, snapshot)
	}
	return snapshot, nil
}

// Abandon closes a ticket on the customer's behalf.
func (m *Manager) Abandon(ctx context.Context, ticketID, reason string) (*Ticket, error) {
	m.mu.Lock()
	t, ok := m.tickets[ticketID]
	if !ok {
		m.mu.Unlock()
		return nil, ErrTicketNotFound
	}
	if !t.Status.Open() {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: abandon while %s", ErrInvalidStatus, t.Status)
	}
	now := m.now().UTC()
	t.Status = StatusAbandoned
	t.ResolvedAt = &now
	if reason != "" {
		t.History = append(t.History, session.Message{Role: session.RoleSystem, Content: reason, Timestamp: now})
	}
	delete(m.bySession, t.SessionID)
	delete(m.inbox, ticketID)
	snapshot := t.clone()
	m.mu.Unlock()

	m.logger.Info("handoff ticket abandoned", "ticket_id", ticketID, "session_id", snapshot.SessionID)
	m.metrics.ObserveTicket(EventAbandoned)
	m.publish(ctx, EventAbandoned, snapshot)
	m.archiveTicket(ctx, snapshot)
	return snapshot, nil
}

// Get returns a snapshot of the ticket, falling back to the archive for
// tickets no longer held in memory.
func (m *Manager) Get(ctx context.Context, ticketID string) (*Ticket, error) {
	m.mu.Lock()
	t, ok := m.tickets[ticketID]
	var snapshot *Ticket
	if ok {
		snapshot = t.clone()
	}
	m.mu.Unlock()
	if ok {
		return snapshot, nil
	}
	if m.archive != nil {
		return m.archive.Get(ctx, ticketID)
	}
	return nil, ErrTicketNotFound
}

// BySession returns the open ticket for a session, if any.
func (m *Manager) BySession(sessionID string) (*Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bySession[sessionID]
	if !ok {
		return nil, false
	}
	return m.tickets[id].clone(), true
}

// ListPending returns unclaimed tickets, oldest first.
func (m *Manager) ListPending() []*Ticket {
	m.mu.Lock()
	out := make([]*Ticket, 0)
	for _, t := range m.tickets {
		if t.Status == StatusPending {
			out = append(out, t.clone())
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Prune forgets closed tickets older than maxAge. Archived copies remain
// reachable through Get.
func (m *Manager) Prune(now time.Time, maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, t := range m.tickets {
		if t.Status.Open() || t.ResolvedAt == nil || now.Sub(*t.ResolvedAt) < maxAge {
			continue
		}
		if _, waiting := m.waiters[id]; waiting {
			continue
		}
		delete(m.tickets, id)
		delete(m.inbox, id)
		removed++
	}
	return removed
}

func (m *Manager) publish(ctx context.Context, kind string, t *Ticket) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, newEvent(kind, t, m.now().UTC())); err != nil {
		m.logger.Warn("handoff: failed to publish ticket event", "ticket_id", t.ID, "event", kind, "error", err)
	}
}

func (m *Manager) archiveTicket(ctx context.Context, t *Ticket) {
	if m.archive == nil {
		return
	}
	if err := m.archive.Archive(ctx, t); err != nil {
		m.logger.Warn("handoff: failed to archive ticket", "ticket_id", t.ID, "error", err)
	}
}

func resolutionMessage(kind ResolutionKind, notes string) string {
	var base string
	switch kind {
	case ResolutionContinueConversation:
		if strings.TrimSpace(notes) != "" {
			return strings.TrimSpace(notes)
		}
		return "I'm still here and happy to keep helping."
	case ResolutionTransferToSpecialist:
		base = "I'm transferring you to a specialist who can help further."
	case ResolutionScheduleCallback:
		base = "We'll give you a call back to finish this up."
	default:
		base = "Your agent has marked this issue as resolved. Thanks for contacting billing support."
	}
	if strings.TrimSpace(notes) != "" {
		return base + " " + strings.TrimSpace(notes)
	}
	return base
}
