package identity

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used for development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	byID      map[string]*CustomerRecord
	byPhone   map[string]string
	byEmail   map[string]string
	byAccount map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store pre-loaded with the given customers.
func NewMemoryStore(customers ...CustomerRecord) *MemoryStore {
	s := &MemoryStore{
		byID:      make(map[string]*CustomerRecord),
		byPhone:   make(map[string]string),
		byEmail:   make(map[string]string),
		byAccount: make(map[string]string),
	}
	for i := range customers {
		s.Put(customers[i])
	}
	return s
}

// Put inserts or replaces a customer and refreshes its indexes.
func (s *MemoryStore) Put(c CustomerRecord) {
	rec := c.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[rec.ID] = rec
	if phone := NormalizePhone(rec.Phone); phone != "" {
		s.byPhone[phone] = rec.ID
	}
	if email := NormalizeEmail(rec.Email); email != "" {
		s.byEmail[email] = rec.ID
	}
	if account := NormalizeAccount(rec.AccountNumber); account != "" {
		s.byAccount[account] = rec.ID
	}
}

func (s *MemoryStore) FindByIdentifier(ctx context.Context, identifier string) (*CustomerRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if phone := phoneCandidate(identifier); phone != "" {
		if id, ok := s.byPhone[phone]; ok {
			return s.byID[id].Clone(), nil
		}
	}
	if email := NormalizeEmail(identifier); email != "" {
		if id, ok := s.byEmail[email]; ok {
			return s.byID[id].Clone(), nil
		}
	}
	if account := NormalizeAccount(identifier); account != "" {
		if id, ok := s.byAccount[account]; ok {
			return s.byID[id].Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByID(ctx context.Context, customerID string) (*CustomerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}
