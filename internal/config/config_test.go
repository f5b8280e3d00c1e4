package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("AUTH_REQUIRED_FACTORS", "")
	t.Setenv("AUTH_MAX_ATTEMPTS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SessionStore != "memory" {
		t.Fatalf("expected memory session store, got %s", cfg.SessionStore)
	}
	if cfg.AuthMaxAttempts != 3 {
		t.Fatalf("expected 3 auth attempts, got %d", cfg.AuthMaxAttempts)
	}
	if len(cfg.AuthRequiredFactors) != 1 || cfg.AuthRequiredFactors[0] != "SSN" {
		t.Fatalf("expected SSN-only factor policy, got %v", cfg.AuthRequiredFactors)
	}
	if cfg.AuthSessionWindow != 30*time.Minute {
		t.Fatalf("expected 30m session window, got %s", cfg.AuthSessionWindow)
	}
	if cfg.LowConfidenceHandoff != 0.3 {
		t.Fatalf("expected 0.3 low confidence threshold, got %v", cfg.LowConfidenceHandoff)
	}
}

func TestDemoDataSeededOnlyInDevelopment(t *testing.T) {
	t.Setenv("SEED_DEMO_DATA", "")

	t.Setenv("ENV", "")
	if !Load().SeedDemoData {
		t.Fatal("expected demo seeding in development")
	}

	t.Setenv("ENV", "production")
	if Load().SeedDemoData {
		t.Fatal("expected demo seeding off outside development")
	}

	t.Setenv("SEED_DEMO_DATA", "true")
	if !Load().SeedDemoData {
		t.Fatal("expected explicit SEED_DEMO_DATA to win")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_STORE", " Redis ")
	t.Setenv("AUTH_REQUIRED_FACTORS", "ssn, dob,,")
	t.Setenv("AUTH_SESSION_WINDOW", "45m")
	t.Setenv("HANDOFF_WAIT_TIMEOUT", "5s")
	t.Setenv("ROUTER_LOW_CONFIDENCE", "0.45")
	t.Setenv("SEED_DEMO_DATA", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://Billing.example.com, *")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.SessionStore != "redis" {
		t.Fatalf("expected normalized store name, got %q", cfg.SessionStore)
	}
	if len(cfg.AuthRequiredFactors) != 2 || cfg.AuthRequiredFactors[1] != "DOB" {
		t.Fatalf("expected SSN,DOB factors, got %v", cfg.AuthRequiredFactors)
	}
	if cfg.AuthSessionWindow != 45*time.Minute {
		t.Fatalf("expected 45m window, got %s", cfg.AuthSessionWindow)
	}
	if cfg.HandoffWaitTimeout != 5*time.Second {
		t.Fatalf("expected 5s wait, got %s", cfg.HandoffWaitTimeout)
	}
	if cfg.LowConfidenceHandoff != 0.45 {
		t.Fatalf("expected 0.45 threshold, got %v", cfg.LowConfidenceHandoff)
	}
	if cfg.SeedDemoData {
		t.Fatal("expected demo seeding disabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != "https://Billing.example.com" {
		t.Fatalf("expected origins kept verbatim, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("AUTH_MAX_ATTEMPTS", "three")
	t.Setenv("AUTH_SESSION_WINDOW", "soon")
	cfg := Load()
	if cfg.AuthMaxAttempts != 3 {
		t.Fatalf("expected fallback attempts, got %d", cfg.AuthMaxAttempts)
	}
	if cfg.AuthSessionWindow != 30*time.Minute {
		t.Fatalf("expected fallback window, got %s", cfg.AuthSessionWindow)
	}
}
