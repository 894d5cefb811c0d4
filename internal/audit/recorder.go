package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gonogo/internal/audit/metrics"
	"gonogo/internal/decision"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/platform/sentinel"
)

// Store persists audit records. Implementations never update or delete.
type Store interface {
	Append(ctx context.Context, r *Record) error
	// Get returns sentinel.ErrNotFound when no record has the id.
	Get(ctx context.Context, id domain.AuditRecordID) (*Record, error)
	// ListByJob returns a job's records in item order.
	ListByJob(ctx context.Context, jobID domain.JobID) ([]*Record, error)
}

// Streamer receives records once they are durable. It must not block.
type Streamer interface {
	Enqueue(r *Record)
}

// Recorder writes one audit record per completed evaluation. Writes are
// synchronous and fail closed: the caller gets no record ID unless the store
// accepted the record.
type Recorder struct {
	store    Store
	streamer Streamer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithStreamer forwards durable records, typically to Kafka.
func WithStreamer(s Streamer) Option {
	return func(r *Recorder) {
		r.streamer = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

func New(store Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	r := &Recorder{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record persists the entry and returns the new record ID.
func (r *Recorder) Record(ctx context.Context, entry decision.AuditEntry) (domain.AuditRecordID, error) {
	rec, err := NewRecord(entry, r.now().UTC())
	if err != nil {
		return domain.AuditRecordID{}, err
	}

	start := time.Now()
	err = r.store.Append(ctx, rec)
	r.metrics.ObservePersist(time.Since(start), err)
	if err != nil {
		r.logger.ErrorContext(ctx, "audit record persistence failed",
			"request_id", entry.RequestID,
			"identifier_kind", entry.Identifier.Kind(),
			"error", err,
		)
		return domain.AuditRecordID{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to persist audit record")
	}

	if r.streamer != nil {
		r.streamer.Enqueue(rec)
	}
	return rec.ID, nil
}

// Get fetches one record.
func (r *Recorder) Get(ctx context.Context, id domain.AuditRecordID) (*Record, error) {
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "audit record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load audit record")
	}
	return rec, nil
}

// ListByJob returns the records written for a job's items, in item order.
func (r *Recorder) ListByJob(ctx context.Context, jobID domain.JobID) ([]*Record, error) {
	recs, err := r.store.ListByJob(ctx, jobID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list audit records")
	}
	return recs, nil
}
