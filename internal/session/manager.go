package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/billing-support-ai/internal/observability/metrics"
	"github.com/wolfman30/billing-support-ai/pkg/logging"
)

// Manager is the single owner of live sessions. Callers serialize turns
// with Lock before mutating a session obtained from GetOrCreate.
type Manager struct {
	store   Store
	cache   sync.Map // id -> *cacheEntry
	locks   *keyedLock
	idleTTL time.Duration
	logger  *logging.Logger
	metrics *metrics.SupportMetrics
	now     func() time.Time
}

type cacheEntry struct {
	session  *Session
	lastSeen atomic.Int64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

func WithLogger(logger *logging.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(sm *metrics.SupportMetrics) ManagerOption {
	return func(m *Manager) { m.metrics = sm }
}

// WithIdleTTL sets how long an untouched session stays cached.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.idleTTL = ttl }
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(store Store, opts ...ManagerOption) *Manager {
	if store == nil {
		panic("session: store required")
	}
	m := &Manager{
		store:   store,
		locks:   newKeyedLock(),
		idleTTL: 30 * time.Minute,
		logger:  logging.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID returns a fresh opaque session id.
func NewID() string {
	return uuid.NewString()
}

// Lock blocks until the caller owns the session id or ctx ends.
func (m *Manager) Lock(ctx context.Context, id string) (func(), error) {
	unlock, err := m.locks.acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: lock %s: %w", id, err)
	}
	return unlock, nil
}

// GetOrCreate returns the cached session, the stored one, or a new anonymous
// session that has already been written to the store.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("session: id required")
	}
	if v, ok := m.cache.Load(id); ok {
		entry := v.(*cacheEntry)
		entry.lastSeen.Store(m.now().UnixNano())
		return entry.session, nil
	}

	sess, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		sess = New(id, m.now().UTC())
		if err := m.put(ctx, sess); err != nil {
			return nil, err
		}
		m.metrics.ObserveSession("created")
		m.logger.Debug("session created", "session_id", id)
	} else {
		m.metrics.ObserveSession("restored")
	}

	entry := &cacheEntry{session: sess}
	entry.lastSeen.Store(m.now().UnixNano())
	actual, _ := m.cache.LoadOrStore(id, entry)
	return actual.(*cacheEntry).session, nil
}

// Snapshot returns a copy of the session without creating one. The boolean
// is false when the id is unknown.
func (m *Manager) Snapshot(ctx context.Context, id string) (*Session, bool, error) {
	unlock, err := m.Lock(ctx, id)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	if v, ok := m.cache.Load(id); ok {
		return v.(*cacheEntry).session.Clone(), true, nil
	}
	sess, err := m.load(ctx, id)
	if err != nil || sess == nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Save persists the session as-is. Saving the same state twice is harmless.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session: cannot save session without id")
	}
	if err := m.put(ctx, sess); err != nil {
		return err
	}
	entry := &cacheEntry{session: sess}
	entry.lastSeen.Store(m.now().UnixNano())
	m.cache.Store(sess.ID, entry)
	return nil
}

// Delete forgets the session in both cache and store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.cache.Delete(id)
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.metrics.ObserveSession("deleted")
	return nil
}

// EvictIdle drops cached sessions not touched since idleTTL. Sessions held
// by a turn in progress are skipped.
func (m *Manager) EvictIdle(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idleTTL).UnixNano()
	evicted := 0
	m.cache.Range(func(key, value any) bool {
		id := key.(string)
		entry := value.(*cacheEntry)
		if entry.lastSeen.Load() > cutoff {
			return true
		}
		unlock, ok := m.locks.tryAcquire(id)
		if !ok {
			return true
		}
		m.cache.CompareAndDelete(id, entry)
		unlock()
		evicted++
		return true
	})
	if evicted > 0 {
		m.metrics.ObserveSession("evicted")
		m.logger.Debug("evicted idle sessions", "count", evicted)
	}
	return evicted
}

// Run evicts idle sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(m.now())
		}
	}
}

func (m *Manager) load(ctx context.Context, id string) (*Session, error) {
	data, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	sess, err := Decode(data)
	if err != nil {
		m.metrics.ObserveSession("corrupt")
		m.logger.Error("discarding corrupt session", "session_id", id, "error", err)
		if delErr := m.store.Delete(ctx, id); delErr != nil {
			m.logger.Warn("failed to delete corrupt session", "session_id", id, "error", delErr)
		}
		return nil, nil
	}
	return sess, nil
}

func (m *Manager) put(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}
	return m.store.Put(ctx, sess.ID, data)
}
