package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/billing-support-ai/internal/conversation"
	"github.com/wolfman30/billing-support-ai/internal/handoff"
	httpmiddleware "github.com/wolfman30/billing-support-ai/internal/http/middleware"
	"github.com/wolfman30/billing-support-ai/internal/webchat"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// ReadyCheck reports whether a backing service is reachable.
type ReadyCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	AgentHandler        *handoff.Handler
	WebChat             *webchat.Handler
	AgentJWTSecret      string
	CORSAllowedOrigins  []string
	RateLimiter         *httpmiddleware.RateLimiter
	MetricsHandler      http.Handler

	// ReadyChecks are run by /ready, keyed by dependency name.
	ReadyChecks map[string]ReadyCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(logger))

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		public.Get("/ready", ready(cfg.ReadyChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Customer chat surface
	r.Group(func(customer chi.Router) {
		customer.Use(httpmiddleware.ChatCORS(cfg.CORSAllowedOrigins))
		if cfg.RateLimiter != nil {
			customer.Use(httpmiddleware.RateLimit(cfg.RateLimiter, httpmiddleware.ClientKey))
		}
		if cfg.ConversationHandler != nil {
			customer.Route("/v1", cfg.ConversationHandler.Routes)
		}
		if cfg.WebChat != nil {
			customer.Get("/ws", cfg.WebChat.HandleWebSocket)
		}
	})

	// Agent console (protected by JWT)
	if cfg.AgentHandler != nil {
		if cfg.AgentJWTSecret == "" {
			logger.Warn("agent routes disabled: AGENT_JWT_SECRET not set")
		} else {
			r.Route("/agent/tickets", func(agent chi.Router) {
				agent.Use(httpmiddleware.AgentJWT(cfg.AgentJWTSecret))
				agent.Get("/", cfg.AgentHandler.ListPending)
				agent.Route("/{ticketID}", func(t chi.Router) {
					t.Get("/", cfg.AgentHandler.GetTicket)
					t.Post("/claim", cfg.AgentHandler.Claim)
					t.Post("/responses", cfg.AgentHandler.Respond)
					t.Post("/resolve", cfg.AgentHandler.Resolve)
				})
			})
		}
	}

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func ready(checks map[string]ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				result[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"ready": status == http.StatusOK, "checks": result})
	}
}
