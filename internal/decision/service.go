package decision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gonogo/internal/decision/metrics"
	"gonogo/internal/evidence"
	dErrors "gonogo/pkg/domain-errors"
	"gonogo/pkg/requestcontext"
)

const defaultEvidenceTimeout = 10 * time.Second

// Service is the Evaluator. It composes the exclusion, registration and size
// checks into one audited EligibilityResult.
type Service struct {
	exclusions      evidence.ExclusionProvider
	registration    evidence.RegistrationProvider
	sizes           SizeDeterminer
	recorder        AuditRecorder
	policy          UnknownSizePolicy
	evidenceTimeout time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	now             func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithUnknownSizePolicy sets whether an unknown size verdict passes.
func WithUnknownSizePolicy(p UnknownSizePolicy) Option {
	return func(s *Service) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithEvidenceTimeout bounds the concurrent provider lookups.
func WithEvidenceTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.evidenceTimeout = d
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the evaluation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds an Evaluator. All four collaborators are required.
func New(
	exclusions evidence.ExclusionProvider,
	registration evidence.RegistrationProvider,
	sizes SizeDeterminer,
	recorder AuditRecorder,
	opts ...Option,
) (*Service, error) {
	if exclusions == nil {
		return nil, errors.New("exclusion provider is required")
	}
	if registration == nil {
		return nil, errors.New("registration provider is required")
	}
	if sizes == nil {
		return nil, errors.New("size determiner is required")
	}
	if recorder == nil {
		return nil, errors.New("audit recorder is required")
	}

	s := &Service{
		exclusions:      exclusions,
		registration:    registration,
		sizes:           sizes,
		recorder:        recorder,
		policy:          UnknownSizeAllow,
		evidenceTimeout: defaultEvidenceTimeout,
		logger:          slog.New(slog.DiscardHandler),
		tracer:          otel.Tracer("gonogo/decision"),
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate produces one EligibilityResult and records it.
//
// Errors: CodeInvalidInput before any provider call; CodeStorage when the audit
// write fails, in which case no result is returned. Provider failures never
// error; they degrade the affected check.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (*EligibilityResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "decision.Evaluate", trace.WithAttributes(
		attribute.String("identifier.kind", string(req.Identifier.Kind())),
		attribute.String("naics", string(req.NAICS)),
	))
	defer span.End()
	defer func() { s.metrics.ObserveEvaluateLatency(time.Since(start)) }()

	gathered := s.gatherEvidence(ctx, req.Identifier)
	size := s.sizes.Determine(req.NAICS, req.Basis)
	result := BuildResult(gathered, size, s.policy, s.now())

	recordID, err := s.recorder.Record(ctx, AuditEntry{
		Identifier: req.Identifier,
		NAICS:      req.NAICS,
		Result:     result,
		JobID:      req.JobID,
		ItemIndex:  req.ItemIndex,
		Requester:  req.Requester,
		RequestID:  requestcontext.RequestID(ctx),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit write failed")
		s.metrics.IncrementOutcome("storage_error")
		s.logger.ErrorContext(ctx, "evaluation audit write failed",
			"request_id", requestcontext.RequestID(ctx),
			"identifier_kind", req.Identifier.Kind(),
			"naics", req.NAICS,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to record evaluation")
	}
	result = result.Clone()
	result.AuditRecordID = recordID

	span.SetAttributes(
		attribute.Bool("eligible", result.Eligible),
		attribute.Bool("degraded", result.Degraded()),
	)
	s.metrics.IncrementOutcome(outcomeLabel(result))
	s.logger.InfoContext(ctx, "eligibility evaluated",
		"request_id", requestcontext.RequestID(ctx),
		"audit_record_id", recordID,
		"identifier_kind", req.Identifier.Kind(),
		"naics", req.NAICS,
		"eligible", result.Eligible,
		"reasons", result.ReasonCodes(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func outcomeLabel(r *EligibilityResult) string {
	switch {
	case r.Degraded():
		return "degraded"
	case r.Eligible:
		return "eligible"
	default:
		return "ineligible"
	}
}
