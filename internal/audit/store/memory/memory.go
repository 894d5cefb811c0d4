package memory

import (
	"context"
	"sort"
	"sync"

	"gonogo/internal/audit"
	"gonogo/pkg/domain"
	"gonogo/pkg/platform/sentinel"
)

// InMemoryStore keeps audit records in insertion order.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []*audit.Record
	byID    map[domain.AuditRecordID]*audit.Record
	byJob   map[domain.JobID][]*audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[domain.AuditRecordID]*audit.Record),
		byJob: make(map[domain.JobID][]*audit.Record),
	}
}

func (s *InMemoryStore) Append(_ context.Context, r *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[r.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records = append(s.records, r)
	s.byID[r.ID] = r
	if r.JobID != nil {
		s.byJob[*r.JobID] = append(s.byJob[*r.JobID], r)
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.AuditRecordID) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) ListByJob(_ context.Context, jobID domain.JobID) ([]*audit.Record, error) {
	s.mu.RLock()
	out := append([]*audit.Record{}, s.byJob[jobID]...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return *out[i].ItemIndex < *out[j].ItemIndex })
	return out, nil
}

// ListAll returns every record in insertion order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*audit.Record{}, s.records...), nil
}
