package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/billing-support-ai/internal/api/router"
	"github.com/wolfman30/billing-support-ai/internal/auth"
	appconfig "github.com/wolfman30/billing-support-ai/internal/config"
	"github.com/wolfman30/billing-support-ai/internal/conversation"
	"github.com/wolfman30/billing-support-ai/internal/handoff"
	httpmiddleware "github.com/wolfman30/billing-support-ai/internal/http/middleware"
	"github.com/wolfman30/billing-support-ai/internal/observability/metrics"
	"github.com/wolfman30/billing-support-ai/internal/session"
	"github.com/wolfman30/billing-support-ai/internal/webchat"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

const (
	evictInterval   = time.Minute
	pruneInterval   = 10 * time.Minute
	closedTicketTTL = 24 * time.Hour
	purgeInterval   = 15 * time.Minute
)

// App is the fully wired API process.
type App struct {
	Handler  http.Handler
	Router   *conversation.Router
	Sessions *session.Manager
	Tickets  *handoff.Manager
	Limiter  *httpmiddleware.RateLimiter

	stores *Stores
	logger *logging.Logger
}

// BuildApp assembles stores, providers and HTTP routes from config. reg
// receives the support metrics and backs /metrics.
func BuildApp(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, reg *prometheus.Registry, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	sm := metrics.NewSupportMetrics(reg)

	stores, err := BuildStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	policy, err := buildPolicy(cfg)
	if err != nil {
		stores.Close()
		return nil, err
	}

	sessions := session.NewManager(stores.Sessions,
		session.WithLogger(logger),
		session.WithMetrics(sm),
		session.WithIdleTTL(cfg.SessionIdleTTL),
	)
	tickets := BuildTicketManager(cfg, awsCfg, sm, logger)
	prov := BuildProviders(cfg, awsCfg, stores.Identity, logger)

	turns, err := conversation.NewRouter(conversation.Deps{
		Sessions:   sessions,
		Auth:       auth.NewMachine(stores.Identity, policy),
		Tickets:    tickets,
		Classifier: prov.Classifier,
		FAQ:        prov.FAQ,
		Account:    prov.Account,
		Summarizer: prov.Summarizer,
	},
		conversation.WithHistoryWindow(cfg.HistoryWindow),
		conversation.WithLowConfidence(cfg.LowConfidenceHandoff),
		conversation.WithWaitTimeout(cfg.HandoffWaitTimeout),
		conversation.WithLogger(logger),
		conversation.WithMetrics(sm),
	)
	if err != nil {
		stores.Close()
		return nil, err
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.MessageRateLimit > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.MessageRateLimit, cfg.MessageRateBurst)
	}

	readyChecks := make(map[string]router.ReadyCheck, len(stores.ReadyChecks))
	for name, check := range stores.ReadyChecks {
		readyChecks[name] = check
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(turns, sessions, logger),
		AgentHandler:        handoff.NewHandler(tickets, logger),
		WebChat:             webchat.NewHandler(turns, sessions, cfg.CORSAllowedOrigins, logger),
		AgentJWTSecret:      cfg.AgentJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimiter:         limiter,
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadyChecks:         readyChecks,
	})

	return &App{
		Handler:  handler,
		Router:   turns,
		Sessions: sessions,
		Tickets:  tickets,
		Limiter:  limiter,
		stores:   stores,
		logger:   logger,
	}, nil
}

func buildPolicy(cfg *appconfig.Config) (auth.Policy, error) {
	policy := auth.DefaultPolicy()
	if cfg.AuthMaxAttempts > 0 {
		policy.MaxAttempts = cfg.AuthMaxAttempts
	}
	if cfg.AuthSessionWindow > 0 {
		policy.SessionWindow = cfg.AuthSessionWindow
	}
	if len(cfg.AuthRequiredFactors) > 0 {
		factors, err := auth.ParseFactors(cfg.AuthRequiredFactors)
		if err != nil {
			return auth.Policy{}, fmt.Errorf("bootstrap: auth factors: %w", err)
		}
		if len(factors) > 0 {
			policy.RequiredFactors = factors
		}
	}
	return policy, nil
}

// Run starts background maintenance and blocks until ctx is done.
func (a *App) Run(ctx context.Context) {
	go a.Sessions.Run(ctx, evictInterval)
	if a.Limiter != nil {
		go a.Limiter.Run(ctx)
	}
	if a.stores.Purger != nil {
		go a.every(ctx, purgeInterval, func() {
			n, err := a.stores.Purger.PurgeExpired(ctx)
			if err != nil {
				a.logger.Warn("session purge failed", "error", err)
				return
			}
			if n > 0 {
				a.logger.Info("expired sessions purged", "count", n)
			}
		})
	}
	a.every(ctx, pruneInterval, func() {
		if n := a.Tickets.Prune(time.Now(), closedTicketTTL); n > 0 {
			a.logger.Info("closed tickets pruned", "count", n)
		}
	})
}

func (a *App) every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Close releases store connections.
func (a *App) Close() {
	a.stores.Close()
}
