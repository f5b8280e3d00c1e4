package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/billing-support-ai/internal/auth"
	"github.com/wolfman30/billing-support-ai/internal/conversation"
	"github.com/wolfman30/billing-support-ai/internal/handoff"
	httpmiddleware "github.com/wolfman30/billing-support-ai/internal/http/middleware"
	"github.com/wolfman30/billing-support-ai/internal/identity"
	"github.com/wolfman30/billing-support-ai/internal/providers"
	"github.com/wolfman30/billing-support-ai/internal/session"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

const testSecret = "router-test-secret"

func newTestConfig(t *testing.T) *Config {
	t.Helper()

	logger := logging.Default()
	ids := identity.NewMemoryStore(identity.DemoCustomers()...)
	sessions := session.NewManager(session.NewMemoryStore(time.Hour))
	tickets := handoff.NewManager()
	faq := providers.NewStaticFAQ(providers.DefaultFAQ())
	turns, err := conversation.NewRouter(conversation.Deps{
		Sessions:   sessions,
		Auth:       auth.NewMachine(ids, auth.DefaultPolicy()),
		Tickets:    tickets,
		Classifier: providers.NewKeywordClassifier(faq),
		FAQ:        faq,
		Account:    providers.NewLedgerResponder(ids),
	}, conversation.WithWaitTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatalf("build conversation router: %v", err)
	}

	return &Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(turns, sessions, logger),
		AgentHandler:        handoff.NewHandler(tickets, logger),
		AgentJWTSecret:      testSecret,
		CORSAllowedOrigins:  []string{"https://billing.example.com"},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	}
}

func serve(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func agentToken(t *testing.T) string {
	t.Helper()
	claims := httpmiddleware.AgentClaims{
		Name: "Alex",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := New(newTestConfig(t))

	rr := serve(router, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterReadyEndpoint(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.ReadyChecks = map[string]ReadyCheck{
		"sessions": func(context.Context) error { return nil },
		"identity": func(context.Context) error { return errors.New("connection refused") },
	}
	router := New(cfg)

	rr := serve(router, http.MethodGet, "/ready", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "connection refused") {
		t.Fatalf("expected failing check in body, got %s", rr.Body.String())
	}

	cfg.ReadyChecks = nil
	rr = serve(New(cfg), http.MethodGet, "/ready", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with no checks, got %d", rr.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	rr := serve(New(newTestConfig(t)), http.MethodGet, "/metrics", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "# metrics") {
		t.Fatalf("metrics handler not mounted: %d %s", rr.Code, rr.Body.String())
	}
}

func TestRouterCustomerMessage(t *testing.T) {
	router := New(newTestConfig(t))

	rr := serve(router, http.MethodPost, "/v1/messages", `{"message":"How do I sign up for autopay?"}`, map[string]string{
		"Content-Type": "application/json",
		"Origin":       "https://billing.example.com",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://billing.example.com" {
		t.Fatalf("expected CORS origin echo, got %q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	var reply conversation.Reply
	if err := json.NewDecoder(rr.Body).Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Route != conversation.RouteFAQ {
		t.Fatalf("expected faq route, got %q", reply.Route)
	}
}

func TestRouterRateLimitsCustomers(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.RateLimiter = httpmiddleware.NewRateLimiter(0.001, 1)
	router := New(cfg)

	headers := map[string]string{"X-Session-ID": "s-flood"}
	first := serve(router, http.MethodGet, "/v1/sessions/s-flood", "", headers)
	if first.Code == http.StatusTooManyRequests {
		t.Fatal("first request should pass the limiter")
	}
	second := serve(router, http.MethodGet, "/v1/sessions/s-flood", "", headers)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}

	health := serve(router, http.MethodGet, "/health", "", headers)
	if health.Code != http.StatusOK {
		t.Fatalf("health should not be rate limited, got %d", health.Code)
	}
}

func TestRouterAgentRoutesRequireJWT(t *testing.T) {
	router := New(newTestConfig(t))

	rr := serve(router, http.MethodGet, "/agent/tickets", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	rr = serve(router, http.MethodGet, "/agent/tickets", "", map[string]string{"Authorization": agentToken(t)})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRouterAgentRoutesDisabledWithoutSecret(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.AgentJWTSecret = ""
	rr := serve(New(cfg), http.MethodGet, "/agent/tickets", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when agent auth is unconfigured, got %d", rr.Code)
	}
}
