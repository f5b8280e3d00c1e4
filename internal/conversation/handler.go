package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/billing-support-ai/internal/session"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// MessageRequest is the body of POST /v1/messages.
type MessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// SessionView is the customer-visible state of a conversation.
type SessionView struct {
	SessionID     string               `json:"session_id"`
	AuthState     string               `json:"auth_state"`
	CustomerName  string               `json:"customer_name,omitempty"`
	SessionExpiry *time.Time           `json:"session_expiry,omitempty"`
	PendingQuery  string               `json:"pending_query,omitempty"`
	HandoffState  session.HandoffState `json:"handoff_state"`
	TicketID      string               `json:"ticket_id,omitempty"`
	History       []session.Message    `json:"history"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Handler wires HTTP requests to the router.
type Handler struct {
	router   *Router
	sessions *session.Manager
	logger   *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(router *Router, sessions *session.Manager, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{router: router, sessions: sessions, logger: logger}
}

// Routes mounts the customer endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/messages", h.Message)
	r.Get("/sessions/{sessionID}", h.GetSession)
	r.Delete("/sessions/{sessionID}", h.DeleteSession)
}

// Message handles POST /v1/messages.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get("X-Session-ID")
	}

	reply, err := h.router.Handle(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			http.Error(w, "Message is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to process message", "session_id", req.SessionID, "error", err)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Session-ID", reply.SessionID)
	h.writeJSON(w, http.StatusOK, reply)
}

// GetSession handles GET /v1/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, ok, err := h.sessions.Snapshot(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load session", "session_id", id, "error", err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, SessionView{
		SessionID:     sess.ID,
		AuthState:     string(sess.Auth.State),
		CustomerName:  sess.CustomerName(),
		SessionExpiry: sess.SessionExpiry(),
		PendingQuery:  sess.PendingQuery,
		HandoffState:  sess.HandoffState,
		TicketID:      sess.HandoffTicketID,
		History:       sess.History,
		UpdatedAt:     sess.UpdatedAt,
	})
}

// DeleteSession handles DELETE /v1/sessions/{sessionID}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	unlock, err := h.sessions.Lock(r.Context(), id)
	if err != nil {
		http.Error(w, "Session busy", http.StatusConflict)
		return
	}
	defer unlock()
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete session", "session_id", id, "error", err)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
