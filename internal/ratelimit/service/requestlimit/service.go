package requestlimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gonogo/internal/ratelimit/metrics"
	"gonogo/internal/ratelimit/models"
	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/platform/circuit"
)

// BucketStore manages sliding window counters.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

// DefaultLimit is 60 requests per caller per minute.
var DefaultLimit = models.Limit{Requests: 60, Window: time.Minute}

type Service struct {
	buckets  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limit    models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLimit(limit models.Limit) Option {
	return func(s *Service) {
		s.limit = limit
	}
}

// WithFallback serves checks from store while the primary store is failing.
func WithFallback(store BucketStore) Option {
	return func(s *Service) {
		s.fallback = store
	}
}

// WithBreaker replaces the default primary-store circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}

	svc := &Service{
		buckets: buckets,
		limit:   DefaultLimit,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if !svc.limit.Valid() {
		return nil, errors.New("rate limit requests and window must be positive")
	}
	if svc.fallback != nil && svc.breaker == nil {
		svc.breaker = circuit.New("ratelimit")
	}
	return svc, nil
}

// Limit returns the configured budget.
func (s *Service) Limit() models.Limit {
	return s.limit
}

// Allow checks and consumes one request from the caller's budget.
func (s *Service) Allow(ctx context.Context, caller string) (*models.Result, error) {
	key := models.CallerKey(caller)

	result, err := s.buckets.Allow(ctx, key, s.limit.Requests, s.limit.Window)
	if err != nil {
		s.metrics.IncrementStoreErrors()
		result, err = s.onPrimaryFailure(ctx, key, err)
	} else if s.breaker != nil {
		usePrimary, change := s.breaker.RecordSuccess()
		if change.Closed {
			s.logger.InfoContext(ctx, "rate limit store recovered; leaving fallback")
			s.metrics.SetFallbackActive(false)
		}
		if !usePrimary {
			result, err = s.fallback.Allow(ctx, key, s.limit.Requests, s.limit.Window)
		}
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}

	s.metrics.IncrementDecision(result.Allowed)
	if !result.Allowed {
		s.logger.InfoContext(ctx, "rate limit exceeded",
			"caller", caller,
			"limit", s.limit.Requests,
			"window_seconds", int(s.limit.Window.Seconds()),
			"retry_after_seconds", result.RetryAfterSeconds(),
		)
	}
	return result, nil
}

func (s *Service) onPrimaryFailure(ctx context.Context, key string, cause error) (*models.Result, error) {
	if s.breaker == nil {
		return nil, cause
	}
	useFallback, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.WarnContext(ctx, "rate limit store failing; using in-memory fallback", "error", cause)
		s.metrics.SetFallbackActive(true)
	}
	if !useFallback {
		return nil, cause
	}
	return s.fallback.Allow(ctx, key, s.limit.Requests, s.limit.Window)
}
