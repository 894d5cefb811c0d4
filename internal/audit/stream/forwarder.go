// Package stream forwards durable audit records to an external log.
//
// Records are queued in memory after the database write and published in
// batches by a background worker, so a slow or unavailable broker never
// blocks an evaluation. The database remains the system of record; a record
// dropped from the queue is still queryable through the API.
package stream

import (
	"context"
	"log/slog"
	"time"

	"gonogo/internal/audit"
	"gonogo/internal/audit/metrics"
	"gonogo/pkg/platform/circuit"
)

// Publisher delivers a batch of records.
type Publisher interface {
	Publish(ctx context.Context, records []*audit.Record) error
}

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
	shutdownFlushTimeout = 5 * time.Second
)

// Forwarder implements audit.Streamer.
type Forwarder struct {
	buffer    *RingBuffer
	publisher Publisher
	breaker   *circuit.Breaker
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	wake      chan struct{}
	pending   []*audit.Record
}

type Option func(*Forwarder)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Forwarder) {
		f.metrics = m
	}
}

func WithBufferSize(n int) Option {
	return func(f *Forwarder) {
		f.buffer = NewRingBuffer(n)
	}
}

func WithBatchSize(n int) Option {
	return func(f *Forwarder) {
		if n > 0 {
			f.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.interval = d
		}
	}
}

func NewForwarder(publisher Publisher, opts ...Option) *Forwarder {
	f := &Forwarder{
		buffer:    NewRingBuffer(0),
		publisher: publisher,
		breaker:   circuit.New("audit-stream", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(1)),
		batchSize: defaultBatchSize,
		interval:  defaultFlushInterval,
		logger:    slog.New(slog.DiscardHandler),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Enqueue queues a record without blocking.
func (f *Forwarder) Enqueue(r *audit.Record) {
	if f.buffer.Enqueue(r) {
		f.metrics.AddStreamDropped(1)
	}
	f.metrics.SetStreamBacklog(f.buffer.Len())
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Run publishes queued records until ctx is cancelled, then makes one final
// bounded attempt to flush what is left.
func (f *Forwarder) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			f.drain(flushCtx)
			cancel()
			if left := f.buffer.Len() + len(f.pending); left > 0 {
				f.logger.Warn("audit stream stopped with unpublished records", "count", left)
			}
			return nil
		case <-ticker.C:
			f.drain(ctx)
		case <-f.wake:
			f.drain(ctx)
		}
	}
}

// drain publishes until the queue is empty or a publish fails. A failed
// batch is retried first on the next pass so order is kept.
func (f *Forwarder) drain(ctx context.Context) {
	for {
		batch := f.pending
		if len(batch) == 0 {
			batch = f.buffer.DequeueBatch(f.batchSize)
		}
		if len(batch) == 0 {
			return
		}

		if err := f.publisher.Publish(ctx, batch); err != nil {
			f.pending = batch
			f.metrics.IncStreamFailures()
			if _, change := f.breaker.RecordFailure(); change.Opened {
				f.logger.ErrorContext(ctx, "audit stream unavailable; records are buffered", "error", err)
			}
			return
		}

		f.pending = nil
		f.metrics.AddStreamPublished(len(batch))
		f.metrics.SetStreamBacklog(f.buffer.Len())
		if _, change := f.breaker.RecordSuccess(); change.Closed {
			f.logger.InfoContext(ctx, "audit stream recovered")
		}
	}
}
