package rates

import (
	"context"
	"sync"
)

type memoryKey struct {
	currency string
	date     string
}

// MemoryStore is an in-process Store used in development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	rows  map[memoryKey]ExchangeRate
	order []memoryKey
}

// NewMemoryStore builds an empty in-memory rate store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[memoryKey]ExchangeRate)}
}

func (s *MemoryStore) All(_ context.Context) ([]ExchangeRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExchangeRate, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.rows[k])
	}
	return out, nil
}

func (s *MemoryStore) Upsert(_ context.Context, rates []ExchangeRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rates {
		r.Currency = NormalizeCode(r.Currency)
		r.AsOf = r.AsOf.UTC()
		k := memoryKey{currency: r.Currency, date: r.AsOf.Format("2006-01-02")}
		if _, exists := s.rows[k]; !exists {
			s.order = append(s.order, k)
		}
		s.rows[k] = r
	}
	return nil
}
