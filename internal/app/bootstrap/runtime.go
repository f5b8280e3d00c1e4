package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/billing-support-ai/internal/config"
	"github.com/wolfman30/billing-support-ai/internal/identity"
	"github.com/wolfman30/billing-support-ai/internal/session"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Purger drops expired rows from a durable session store.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Stores bundles the persistence selected by configuration.
type Stores struct {
	Sessions session.Store
	Identity identity.Store
	// Purger is set when the session store needs periodic cleanup.
	Purger      Purger
	ReadyChecks map[string]func(context.Context) error

	closers []func()
}

// Close releases every connection pool opened by BuildStores.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// BuildStores opens the session and identity stores named in config.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stores := &Stores{ReadyChecks: map[string]func(context.Context) error{}}
	if err := buildSessionStore(ctx, cfg, logger, stores); err != nil {
		stores.Close()
		return nil, err
	}
	if err := buildIdentityStore(ctx, cfg, logger, stores); err != nil {
		stores.Close()
		return nil, err
	}
	return stores, nil
}

func buildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, stores *Stores) error {
	switch cfg.SessionStore {
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return fmt.Errorf("bootstrap: session store redis: %s unreachable", cfg.RedisAddr)
		}
		stores.closers = append(stores.closers, func() { _ = client.Close() })
		stores.Sessions = session.NewRedisStore(client, cfg.SessionTTL, nil)
		stores.ReadyChecks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		logger.Info("session store ready", "backend", "redis", "addr", cfg.RedisAddr)

	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return fmt.Errorf("bootstrap: session store postgres requires DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("bootstrap: open session pool: %w", err)
		}
		stores.closers = append(stores.closers, pool.Close)
		pg := session.NewPostgresStore(pool, cfg.SessionTTL)
		stores.Sessions = pg
		stores.Purger = pg
		stores.ReadyChecks["sessions_postgres"] = pool.Ping
		logger.Info("session store ready", "backend", "postgres")

	case "", "memory":
		stores.Sessions = session.NewMemoryStore(cfg.SessionTTL)
		logger.Info("session store ready", "backend", "memory")

	default:
		return fmt.Errorf("bootstrap: unknown session store %q", cfg.SessionStore)
	}
	return nil
}

func buildIdentityStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, stores *Stores) error {
	switch cfg.IdentityStore {
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return fmt.Errorf("bootstrap: identity store postgres requires DATABASE_URL")
		}
		db, err := identity.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		stores.closers = append(stores.closers, func() { _ = db.Close() })
		pg := identity.NewPostgresStore(db)
		if cfg.SeedDemoData {
			for _, c := range identity.DemoCustomers() {
				if err := pg.Upsert(ctx, c); err != nil {
					logger.Warn("failed to seed demo customer", "customer_id", c.ID, "error", err)
				}
			}
		}
		stores.Identity = pg
		stores.ReadyChecks["identity_postgres"] = pg.Ping
		logger.Info("identity store ready", "backend", "postgres", "seeded", cfg.SeedDemoData)

	case "", "memory":
		var seed []identity.CustomerRecord
		if cfg.SeedDemoData {
			seed = identity.DemoCustomers()
		}
		stores.Identity = identity.NewMemoryStore(seed...)
		logger.Info("identity store ready", "backend", "memory", "customers", len(seed))

	default:
		return fmt.Errorf("bootstrap: unknown identity store %q", cfg.IdentityStore)
	}
	return nil
}
