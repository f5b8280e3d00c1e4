package session

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// Store is the durable home of serialized sessions. Get returns (nil, nil)
// when the id is unknown or expired.
type Store interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps serialized sessions in process memory with a TTL.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	ttl     time.Duration
	now     func() time.Time
}

type memoryRecord struct {
	data      []byte
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store. A zero ttl keeps records forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !rec.expiresAt.IsZero() && !s.now().Before(rec.expiresAt) {
		s.mu.Lock()
		delete(s.records, id)
		s.mu.Unlock()
		return nil, nil
	}
	return append([]byte(nil), rec.data...), nil
}

// Put stores a copy of data and restarts its TTL unless the live record
// already holds the same bytes.
func (s *MemoryStore) Put(ctx context.Context, id string, data []byte) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.records[id]; ok && bytes.Equal(cur.data, data) &&
		(cur.expiresAt.IsZero() || now.Before(cur.expiresAt)) {
		return nil
	}
	rec := memoryRecord{data: append([]byte(nil), data...)}
	if s.ttl > 0 {
		rec.expiresAt = now.Add(s.ttl)
	}
	s.records[id] = rec
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}
