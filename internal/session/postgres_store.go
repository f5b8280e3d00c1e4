package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps sessions in the conversation_sessions table.
type PostgresStore struct {
	pool rowQuerier
	ttl  time.Duration
	now  func() time.Time
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	if pool == nil {
		panic("session: pgx pool required")
	}
	return newPostgresStoreWithExec(pool, ttl)
}

func newPostgresStoreWithExec(exec rowQuerier, ttl time.Duration) *PostgresStore {
	if exec == nil {
		panic("session: exec required")
	}
	return &PostgresStore{pool: exec, ttl: ttl, now: time.Now}
}

func (s *PostgresStore) Get(ctx context.Context, id string) ([]byte, error) {
	query := `SELECT data FROM conversation_sessions WHERE id = $1 AND expires_at > $2`
	var data []byte
	if err := s.pool.QueryRow(ctx, query, id, s.now().UTC()).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: load %s: %w", id, err)
	}
	return data, nil
}

// Put upserts the payload and slides expires_at forward. Writing the bytes
// already stored is a no-op, so the row's metadata only moves on change.
func (s *PostgresStore) Put(ctx context.Context, id string, data []byte) error {
	now := s.now().UTC()
	ttl := s.ttl
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	query := `
		INSERT INTO conversation_sessions (id, data, updated_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at
		WHERE conversation_sessions.data IS DISTINCT FROM EXCLUDED.data
	`
	if _, err := s.pool.Exec(ctx, query, id, data, now, now.Add(ttl)); err != nil {
		return fmt.Errorf("session: persist %s: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM conversation_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	return nil
}

// PurgeExpired removes rows past their expiry and reports how many were dropped.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	ct, err := s.pool.Exec(ctx, `DELETE FROM conversation_sessions WHERE expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("session: purge expired: %w", err)
	}
	return ct.RowsAffected(), nil
}
