package session

import (
	"context"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestPostgresStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newPostgresStoreWithExec(mock, time.Hour)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO conversation_sessions").
		WithArgs("s-1", []byte(`{"v":1}`), now, now.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if err := store.Put(ctx, "s-1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}

	mock.ExpectQuery("SELECT data FROM conversation_sessions").WithArgs("s-1", now).
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow([]byte(`{"v":1}`)))
	data, err := store.Get(ctx, "s-1")
	if err != nil || string(data) != `{"v":1}` {
		t.Fatalf("unexpected get %q %v", data, err)
	}

	mock.ExpectQuery("SELECT data FROM conversation_sessions").WithArgs("s-miss", now).WillReturnError(pgx.ErrNoRows)
	data, err = store.Get(ctx, "s-miss")
	if err != nil || data != nil {
		t.Fatalf("expected miss, got %q %v", data, err)
	}

	mock.ExpectExec("DELETE FROM conversation_sessions WHERE id").WithArgs("s-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	if err := store.Delete(ctx, "s-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	mock.ExpectExec("DELETE FROM conversation_sessions WHERE expires_at").WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	purged, err := store.PurgeExpired(ctx)
	if err != nil || purged != 3 {
		t.Fatalf("expected 3 purged, got %d %v", purged, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStoreUnchangedPutLeavesRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newPostgresStoreWithExec(mock, time.Hour)
	store.now = func() time.Time { return now }

	mock.ExpectExec(`WHERE conversation_sessions.data IS DISTINCT FROM EXCLUDED.data`).
		WithArgs("s-1", []byte(`{"v":1}`), now, now.Add(time.Hour)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	if err := store.Put(context.Background(), "s-1", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
