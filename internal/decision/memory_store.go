package decision

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*Decision
	byCustomer map[string][]*Decision
	order      []*Decision // insertion order, oldest first
}

// NewMemoryStore creates an in-memory decision store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*Decision),
		byCustomer: make(map[string][]*Decision),
	}
}

func (s *MemoryStore) Record(ctx context.Context, d *Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := copyDecision(d)
	s.byID[c.ID] = c
	if c.CustomerID != "" {
		s.byCustomer[c.CustomerID] = append(s.byCustomer[c.CustomerID], c)
	}
	s.order = append(s.order, c)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return copyDecision(d), nil
}

func (s *MemoryStore) ListByCustomer(ctx context.Context, customerID string, limit int) ([]*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recentFirst(s.byCustomer[customerID], limit), nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return recentFirst(s.order, limit), nil
}

func recentFirst(all []*Decision, limit int) []*Decision {
	if len(all) == 0 {
		return nil
	}
	start := len(all) - limit
	if start < 0 {
		start = 0
	}
	result := make([]*Decision, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		result = append(result, copyDecision(all[i]))
	}
	return result
}

func copyDecision(d *Decision) *Decision {
	c := *d
	c.KeyFactors = append([]string(nil), d.KeyFactors...)
	c.RecommendedActions = append([]string(nil), d.RecommendedActions...)
	return &c
}
