package history

import (
	"context"
	"sync"

	"github.com/sentra-io/sentra/internal/fraud"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu        sync.RWMutex
	baselines map[string]*fraud.CustomerHistory
}

// NewMemoryStore creates an in-memory baseline store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{baselines: make(map[string]*fraud.CustomerHistory)}
}

func (s *MemoryStore) Get(ctx context.Context, customerID string) (*fraud.CustomerHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.baselines[customerID]
	if !ok {
		return nil, nil
	}
	return copyHistory(h), nil
}

func (s *MemoryStore) Upsert(ctx context.Context, h *fraud.CustomerHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baselines[h.CustomerID] = copyHistory(h)
	return nil
}

func copyHistory(h *fraud.CustomerHistory) *fraud.CustomerHistory {
	c := *h
	c.UsualHours = append([]int(nil), h.UsualHours...)
	if h.TxCountLastHour != nil {
		v := *h.TxCountLastHour
		c.TxCountLastHour = &v
	}
	if h.TxCountLastDay != nil {
		v := *h.TxCountLastDay
		c.TxCountLastDay = &v
	}
	return &c
}
