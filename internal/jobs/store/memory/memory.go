package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"gonogo/internal/jobs"
	"gonogo/pkg/domain"
	"gonogo/pkg/platform/sentinel"
)

type entry struct {
	mu    sync.Mutex
	job   jobs.Job
	items []jobs.Item
}

// InMemoryStore keeps jobs in process. Each job has its own lock so items of
// different jobs never contend.
type InMemoryStore struct {
	mu   sync.RWMutex
	jobs map[domain.JobID]*entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{jobs: make(map[domain.JobID]*entry)}
}

func (s *InMemoryStore) Create(_ context.Context, job *jobs.Job, items []*jobs.Item) error {
	e := &entry{job: *job, items: make([]jobs.Item, len(items))}
	for i, it := range items {
		if it.Index != i {
			return sentinel.ErrInvalidState
		}
		e.items[i] = *it
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return sentinel.ErrConflict
	}
	s.jobs[job.ID] = e
	return nil
}

func (s *InMemoryStore) lookup(id domain.JobID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e, nil
}

func (s *InMemoryStore) Transition(_ context.Context, id domain.JobID, from, to jobs.Status, reason string, at time.Time) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status != from {
		return sentinel.ErrInvalidState
	}
	if to == jobs.StatusCompleted {
		for i := range e.items {
			if e.items[i].Status == jobs.ItemPending {
				return sentinel.ErrInvalidState
			}
		}
	}
	e.job.Status = to
	e.job.UpdatedAt = at
	if reason != "" {
		e.job.FailureReason = reason
	}
	if to.IsTerminal() {
		finished := at
		e.job.FinishedAt = &finished
	}
	return nil
}

func (s *InMemoryStore) CompleteItem(_ context.Context, id domain.JobID, index int, out jobs.Outcome) error {
	e, err := s.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.items) {
		return sentinel.ErrNotFound
	}
	it := &e.items[index]
	if it.Status != jobs.ItemPending || !out.Status.IsTerminal() {
		return sentinel.ErrInvalidState
	}
	it.Status = out.Status
	it.Result = out.Result
	it.ErrorCode = out.ErrorCode
	it.ErrorMessage = out.ErrorMessage
	it.AuditRecordID = out.AuditRecordID
	it.UpdatedAt = out.At
	return nil
}

func (s *InMemoryStore) FailPending(_ context.Context, id domain.JobID, code, message string, at time.Time) (int, error) {
	e, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for i := range e.items {
		it := &e.items[i]
		if it.Status != jobs.ItemPending {
			continue
		}
		it.Status = jobs.ItemError
		it.ErrorCode = code
		it.ErrorMessage = message
		it.UpdatedAt = at
		n++
	}
	return n, nil
}

func (s *InMemoryStore) ClaimWebhook(_ context.Context, id domain.JobID, at time.Time) (bool, error) {
	e, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.WebhookAttemptedAt != nil {
		return false, nil
	}
	attempted := at
	e.job.WebhookAttemptedAt = &attempted
	return true, nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.JobID) (*jobs.Job, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	job := e.job
	return &job, nil
}

func (s *InMemoryStore) Snapshot(_ context.Context, id domain.JobID) (*jobs.Snapshot, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	job := e.job
	items := make([]*jobs.Item, len(e.items))
	for i := range e.items {
		it := e.items[i]
		items[i] = &it
	}
	return jobs.NewSnapshot(&job, items), nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, statuses ...jobs.Status) ([]*jobs.Job, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []*jobs.Job
	for _, e := range entries {
		e.mu.Lock()
		job := e.job
		e.mu.Unlock()
		if slices.Contains(statuses, job.Status) {
			out = append(out, &job)
		}
	}
	slices.SortFunc(out, func(a, b *jobs.Job) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}
