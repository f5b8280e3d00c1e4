package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	AgentJWTSecret string

	// Customer API
	CORSAllowedOrigins []string
	MessageRateLimit   float64 // requests per second per session
	MessageRateBurst   int

	// Session storage
	SessionStore   string // memory, redis or postgres
	SessionTTL     time.Duration
	SessionIdleTTL time.Duration
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// Identity store
	IdentityStore string // memory or postgres
	SeedDemoData  bool   // defaults to true only when ENV=development

	// Authentication policy
	AuthMaxAttempts     int
	AuthRequiredFactors []string
	AuthSessionWindow   time.Duration

	// Router policy
	HistoryWindow        int
	LowConfidenceHandoff float64
	HandoffWaitTimeout   time.Duration

	// AWS
	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSEndpointOverride  string
	BedrockModelID       string
	TicketEventsQueueURL string
	TicketArchiveTable   string

	// Agent alerts
	AgentAlertEmail  string
	EmailProvider    string // sendgrid or ses
	SendGridAPIKey   string
	EmailFromAddress string
	EmailFromName    string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment values win.
func Load() *Config {
	_ = godotenv.Load()
	env := getEnv("ENV", "development")

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            env,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AgentJWTSecret: getEnv("AGENT_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		MessageRateLimit:   getEnvAsFloat("MESSAGE_RATE_LIMIT", 2),
		MessageRateBurst:   getEnvAsInt("MESSAGE_RATE_BURST", 5),

		SessionStore:   strings.ToLower(strings.TrimSpace(getEnv("SESSION_STORE", "memory"))),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SessionIdleTTL: getEnvAsDuration("SESSION_IDLE_TTL", 30*time.Minute),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		IdentityStore: strings.ToLower(strings.TrimSpace(getEnv("IDENTITY_STORE", "memory"))),
		SeedDemoData:  getEnvAsBool("SEED_DEMO_DATA", env == "development"),

		AuthMaxAttempts:     getEnvAsInt("AUTH_MAX_ATTEMPTS", 3),
		AuthRequiredFactors: upperAll(getEnvAsList("AUTH_REQUIRED_FACTORS", []string{"SSN"})),
		AuthSessionWindow:   getEnvAsDuration("AUTH_SESSION_WINDOW", 30*time.Minute),

		HistoryWindow:        getEnvAsInt("ROUTER_HISTORY_WINDOW", 10),
		LowConfidenceHandoff: getEnvAsFloat("ROUTER_LOW_CONFIDENCE", 0.3),
		HandoffWaitTimeout:   getEnvAsDuration("HANDOFF_WAIT_TIMEOUT", 20*time.Second),

		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BedrockModelID:       getEnv("BEDROCK_MODEL_ID", ""),
		TicketEventsQueueURL: getEnv("TICKET_EVENTS_QUEUE_URL", ""),
		TicketArchiveTable:   getEnv("TICKET_ARCHIVE_TABLE", ""),

		AgentAlertEmail:  getEnv("AGENT_ALERT_EMAIL", ""),
		EmailProvider:    strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "sendgrid"))),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Billing Support"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
