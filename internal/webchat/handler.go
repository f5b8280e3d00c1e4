package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/billing-support-ai/internal/conversation"
	"github.com/wolfman30/billing-support-ai/internal/session"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

const (
	maxMessageBytes = 8 << 10
	historyLimit    = 50
	writeWait       = 10 * time.Second
)

// Turner runs one customer turn.
type Turner interface {
	Handle(ctx context.Context, sessionID, message string) (*conversation.Reply, error)
}

// SessionReader loads a read-only copy of a conversation.
type SessionReader interface {
	Snapshot(ctx context.Context, id string) (*session.Session, bool, error)
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message" or "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type         string           `json:"type"` // "session", "history", "typing", "message", "pong", "error"
	Text         string           `json:"text,omitempty"`
	Role         string           `json:"role,omitempty"`
	SessionID    string           `json:"session_id,omitempty"`
	Route        string           `json:"route,omitempty"`
	AuthState    string           `json:"auth_state,omitempty"`
	HandoffState string           `json:"handoff_state,omitempty"`
	TicketID     string           `json:"ticket_id,omitempty"`
	FollowUp     string           `json:"follow_up,omitempty"`
	Timestamp    string           `json:"timestamp,omitempty"`
	Messages     []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history frames.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Handler serves the customer chat widget over WebSocket.
type Handler struct {
	turns    Turner
	sessions SessionReader
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	active map[string]int
}

// NewHandler creates a web chat handler. allowedOrigins follows the same
// rules as the CORS middleware; empty allows any origin.
func NewHandler(turns Turner, sessions SessionReader, allowedOrigins []string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		turns:    turns,
		sessions: sessions,
		logger:   logger,
		active:   make(map[string]int),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// ActiveConnections reports open sockets for a session.
func (h *Handler) ActiveConnections(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active[sessionID]
}

// HandleWebSocket upgrades to WebSocket and runs turns until the client
// disconnects.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("webchat: upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = session.NewID()
	}
	h.track(sessionID, 1)
	defer h.track(sessionID, -1)

	// The request context is not cancelled when a hijacked connection drops,
	// so turns run on a context tied to the read loop.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := h.send(conn, OutboundMessage{Type: "session", SessionID: sessionID}); err != nil {
		return
	}
	h.sendHistory(ctx, conn, sessionID)
	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	inbound := make(chan InboundMessage)
	go h.read(ctx, cancel, conn, sessionID, inbound)

	for msg := range inbound {
		switch msg.Type {
		case "ping":
			if err := h.send(conn, OutboundMessage{Type: "pong"}); err != nil {
				return
			}
			continue
		case "message":
		default:
			continue
		}
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}

		if err := h.send(conn, OutboundMessage{Type: "typing"}); err != nil {
			return
		}
		out := h.turn(ctx, sessionID, msg.Text)
		if ctx.Err() != nil {
			return
		}
		if err := h.send(conn, out); err != nil {
			return
		}
	}
}

// read feeds client frames to the turn loop and cancels ctx once the
// connection is gone.
func (h *Handler) read(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, sessionID string, inbound chan<- InboundMessage) {
	defer close(inbound)
	defer cancel()
	for {
		var msg InboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("webchat: connection dropped", "session_id", sessionID, "error", err)
			} else {
				h.logger.Debug("webchat: connection closed", "session_id", sessionID)
			}
			return
		}
		select {
		case inbound <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) turn(ctx context.Context, sessionID, text string) OutboundMessage {
	reply, err := h.turns.Handle(ctx, sessionID, text)
	if err != nil {
		if errors.Is(err, conversation.ErrEmptyMessage) {
			return OutboundMessage{Type: "error", Text: "Please type a message."}
		}
		h.logger.Error("webchat: turn failed", "session_id", sessionID, "error", err)
		return OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."}
	}
	return OutboundMessage{
		Type:         "message",
		Text:         reply.Text,
		Role:         reply.From,
		SessionID:    reply.SessionID,
		Route:        reply.Route,
		AuthState:    string(reply.AuthState),
		HandoffState: string(reply.HandoffState),
		TicketID:     reply.TicketID,
		FollowUp:     string(reply.FollowUp),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

func (h *Handler) sendHistory(ctx context.Context, conn *websocket.Conn, sessionID string) {
	if h.sessions == nil {
		return
	}
	sess, ok, err := h.sessions.Snapshot(ctx, sessionID)
	if err != nil {
		h.logger.Warn("webchat: failed to load history", "session_id", sessionID, "error", err)
		return
	}
	if !ok || len(sess.History) == 0 {
		return
	}
	msgs := sess.Recent(historyLimit)
	history := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Content,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	_ = h.send(conn, OutboundMessage{Type: "history", Messages: history})
}

func (h *Handler) send(conn *websocket.Conn, msg OutboundMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func (h *Handler) track(sessionID string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active[sessionID] += delta
	if h.active[sessionID] <= 0 {
		delete(h.active, sessionID)
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			set[o] = true
		}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 || set["*"] {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.TrimRight(origin, "/")]
	}
}
