package handoff

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/billing-support-ai/internal/http/middleware"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// Handler exposes the agent console endpoints.
type Handler struct {
	tickets *Manager
	logger  *logging.Logger
}

func NewHandler(tickets *Manager, logger *logging.Logger) *Handler {
	if tickets == nil {
		panic("handoff: manager required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{tickets: tickets, logger: logger}
}

// ListPending handles GET /agent/tickets
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tickets": h.tickets.ListPending()})
}

// GetTicket handles GET /agent/tickets/{ticketID}
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := h.tickets.Get(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type claimRequest struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

// Claim handles POST /agent/tickets/{ticketID}/claim
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
	}
	if agent, ok := middleware.AgentFromContext(r.Context()); ok {
		req.AgentID = agent.ID
		if agent.Name != "" {
			req.AgentName = agent.Name
		}
	}
	if strings.TrimSpace(req.AgentID) == "" {
		http.Error(w, "agent id required", http.StatusBadRequest)
		return
	}
	t, err := h.tickets.Claim(r.Context(), chi.URLParam(r, "ticketID"), req.AgentID, req.AgentName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type respondRequest struct {
	Content string `json:"content"`
}

// Respond handles POST /agent/tickets/{ticketID}/responses
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		http.Error(w, "content required", http.StatusBadRequest)
		return
	}
	resp := Response{TicketID: chi.URLParam(r, "ticketID"), Content: strings.TrimSpace(req.Content)}
	if agent, ok := middleware.AgentFromContext(r.Context()); ok {
		resp.AgentID = agent.ID
		resp.AgentName = agent.Name
	}
	if err := h.tickets.SubmitResponse(r.Context(), resp); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "delivered"})
}

type resolveRequest struct {
	Kind  ResolutionKind `json:"kind"`
	Notes string         `json:"notes"`
}

// Resolve handles POST /agent/tickets/{ticketID}/resolve
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Kind == "" {
		req.Kind = ResolutionResolved
	}
	t, err := h.tickets.Resolve(r.Context(), chi.URLParam(r, "ticketID"), req.Kind, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTicketNotFound):
		http.Error(w, "ticket not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidResolution):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("agent ticket request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
