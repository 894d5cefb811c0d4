package memory

import (
	"context"
	"sort"
	"sync"

	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
)

// InMemory is a size standard table held in process memory.
type InMemory struct {
	mu   sync.RWMutex
	rows map[domain.NAICSCode]sizestd.Standard
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[domain.NAICSCode]sizestd.Standard)}
}

// UpsertAll replaces rows by NAICS code.
func (s *InMemory) UpsertAll(_ context.Context, rows []sizestd.Standard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.rows[r.NAICS] = r
	}
	return nil
}

// List returns all rows sorted by NAICS code.
func (s *InMemory) List(_ context.Context) ([]sizestd.Standard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sizestd.Standard, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NAICS < out[j].NAICS })
	return out, nil
}
