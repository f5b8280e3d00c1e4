package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/billing-support-ai/internal/auth"
	appconfig "github.com/wolfman30/billing-support-ai/internal/config"
	"github.com/wolfman30/billing-support-ai/internal/identity"
	"github.com/wolfman30/billing-support-ai/internal/notify"
	"github.com/wolfman30/billing-support-ai/internal/providers"
	"github.com/wolfman30/billing-support-ai/internal/session"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		SessionStore:        "memory",
		SessionTTL:          time.Hour,
		SessionIdleTTL:      30 * time.Minute,
		IdentityStore:       "memory",
		SeedDemoData:        true,
		AuthMaxAttempts:     3,
		AuthRequiredFactors: []string{"SSN"},
		AuthSessionWindow:   30 * time.Minute,
		HistoryWindow:       10,
		HandoffWaitTimeout:  10 * time.Millisecond,
		EmailProvider:       "log",
		AWSRegion:           "us-east-1",
	}
}

func TestBuildStoresRequiresConfig(t *testing.T) {
	if _, err := BuildStores(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildStoresMemory(t *testing.T) {
	stores, err := BuildStores(context.Background(), testConfig(), logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stores.Close()

	if _, ok := stores.Sessions.(*session.MemoryStore); !ok {
		t.Fatalf("expected memory session store, got %T", stores.Sessions)
	}
	if stores.Purger != nil {
		t.Fatalf("memory store should not need purging")
	}
	rec, err := stores.Identity.FindByIdentifier(context.Background(), "jane.doe@example.com")
	if err != nil || rec == nil {
		t.Fatalf("expected seeded demo customer, got %v, %v", rec, err)
	}
}

func TestBuildStoresUnknownKind(t *testing.T) {
	cfg := testConfig()
	cfg.SessionStore = "cassandra"
	if _, err := BuildStores(context.Background(), cfg, nil); err == nil || !strings.Contains(err.Error(), "cassandra") {
		t.Fatalf("expected unknown session store error, got %v", err)
	}

	cfg = testConfig()
	cfg.IdentityStore = "ldap"
	if _, err := BuildStores(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected unknown identity store error")
	}
}

func TestBuildStoresPostgresNeedsURL(t *testing.T) {
	cfg := testConfig()
	cfg.SessionStore = "postgres"
	if _, err := BuildStores(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected DATABASE_URL error")
	}
}

func TestBuildStoresRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.SessionStore = "redis"
	cfg.RedisAddr = mr.Addr()

	stores, err := BuildStores(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stores.Close()

	if _, ok := stores.Sessions.(*session.RedisStore); !ok {
		t.Fatalf("expected redis session store, got %T", stores.Sessions)
	}
	check, ok := stores.ReadyChecks["redis"]
	if !ok {
		t.Fatalf("expected redis ready check")
	}
	if err := check(context.Background()); err != nil {
		t.Fatalf("ready check failed: %v", err)
	}
}

func TestBuildRedisClientUnreachableReturnsNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &appconfig.Config{RedisAddr: addr}
	if client := BuildRedisClient(context.Background(), cfg, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when redis is down")
	}
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true); client != nil {
		t.Fatalf("expected nil client without an address")
	}
}

func TestBuildEmailSenderVariants(t *testing.T) {
	cfg := testConfig()

	cfg.EmailProvider = "log"
	if _, ok := BuildEmailSender(cfg, aws.Config{}, nil).(*notify.LogSender); !ok {
		t.Fatalf("expected log sender")
	}

	cfg.EmailProvider = "sendgrid"
	cfg.SendGridAPIKey = ""
	if _, ok := BuildEmailSender(cfg, aws.Config{}, nil).(*notify.LogSender); !ok {
		t.Fatalf("expected log sender fallback without API key")
	}

	cfg.SendGridAPIKey = "SG.test"
	if _, ok := BuildEmailSender(cfg, aws.Config{}, nil).(*notify.SendGridSender); !ok {
		t.Fatalf("expected sendgrid sender")
	}

	cfg.EmailProvider = "ses"
	if _, ok := BuildEmailSender(cfg, aws.Config{Region: "us-east-1"}, nil).(*notify.SESSender); !ok {
		t.Fatalf("expected ses sender")
	}
}

func TestBuildProvidersNoModelUsesRules(t *testing.T) {
	p := BuildProviders(testConfig(), aws.Config{}, identity.NewMemoryStore(), logging.New("error"))
	if _, ok := p.Classifier.(*providers.KeywordClassifier); !ok {
		t.Fatalf("expected keyword classifier, got %T", p.Classifier)
	}
	if _, ok := p.Summarizer.(*providers.TemplateSummarizer); !ok {
		t.Fatalf("expected template summarizer, got %T", p.Summarizer)
	}
	if p.FAQ == nil || p.Account == nil {
		t.Fatalf("expected FAQ and account responders")
	}
}

func TestBuildProvidersWithModelUsesBedrock(t *testing.T) {
	cfg := testConfig()
	cfg.BedrockModelID = "anthropic.claude-3-haiku"
	p := BuildProviders(cfg, aws.Config{Region: "us-east-1"}, identity.NewMemoryStore(), logging.New("error"))
	if _, ok := p.Classifier.(*providers.LLMClassifier); !ok {
		t.Fatalf("expected LLM classifier, got %T", p.Classifier)
	}
	if _, ok := p.Summarizer.(*providers.LLMSummarizer); !ok {
		t.Fatalf("expected LLM summarizer, got %T", p.Summarizer)
	}
}

func TestBuildTicketManagerPlain(t *testing.T) {
	if BuildTicketManager(nil, aws.Config{}, nil, nil) == nil {
		t.Fatalf("expected manager without config")
	}
	if BuildTicketManager(testConfig(), aws.Config{}, nil, logging.New("error")) == nil {
		t.Fatalf("expected manager")
	}
}

func TestBuildPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRequiredFactors = []string{"ssn", "dob"}
	cfg.AuthMaxAttempts = 5
	policy, err := buildPolicy(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.MaxAttempts != 5 || len(policy.RequiredFactors) != 2 || policy.RequiredFactors[1] != auth.FactorDOB {
		t.Fatalf("unexpected policy %+v", policy)
	}

	cfg.AuthRequiredFactors = []string{"PIN"}
	if _, err := buildPolicy(cfg); err == nil {
		t.Fatalf("expected unknown factor error")
	}
}

func TestBuildAppServesCustomerAPI(t *testing.T) {
	app, err := BuildApp(context.Background(), testConfig(), aws.Config{}, prometheus.NewRegistry(), logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	rr := httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{"message":"what payment methods do you accept?"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("message: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Session-ID") == "" {
		t.Fatalf("expected session id header")
	}

	rr = httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rr.Body.String(), "billing_router_turns_total") {
		t.Fatalf("expected router metrics to be exported")
	}
}

func TestBuildAppRequiresConfig(t *testing.T) {
	if _, err := BuildApp(context.Background(), nil, aws.Config{}, nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
