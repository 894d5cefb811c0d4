// Package simulated provides offline exclusion and registration providers
// that return fixed clean results with evidence shaped like the live ones.
package simulated

import (
	"context"
	"time"

	"gonogo/internal/evidence"
	"gonogo/internal/evidence/providers"
	"gonogo/pkg/domain"
)

type settings struct {
	latency  time.Duration
	now      func() time.Time
	failures map[string]bool
	excluded map[string]bool
	statuses map[string]evidence.RegistrationStatus
}

// Option configures a simulated provider.
type Option func(*settings)

// WithLatency delays every lookup by d, or until the context is done.
func WithLatency(d time.Duration) Option {
	return func(s *settings) { s.latency = d }
}

// WithClock overrides the timestamp source for evidence.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithFailureFor makes lookups for the given identifiers fail with a
// provider outage.
func WithFailureFor(ids ...domain.Identifier) Option {
	return func(s *settings) {
		for _, id := range ids {
			s.failures[id.String()] = true
		}
	}
}

// WithExcluded returns one active exclusion hit for the given identifiers.
func WithExcluded(ids ...domain.Identifier) Option {
	return func(s *settings) {
		for _, id := range ids {
			s.excluded[id.String()] = true
		}
	}
}

// WithRegistrationStatus overrides the registration status reported for id.
func WithRegistrationStatus(id domain.Identifier, status evidence.RegistrationStatus) Option {
	return func(s *settings) { s.statuses[id.String()] = status }
}

func newSettings(opts []Option) settings {
	s := settings{
		now:      func() time.Time { return time.Now().UTC() },
		failures: map[string]bool{},
		excluded: map[string]bool{},
		statuses: map[string]evidence.RegistrationStatus{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) wait(ctx context.Context, providerID string) error {
	if s.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return providers.FromTransport(providerID, ctx.Err())
	}
}

// ExclusionProvider reports no exclusions unless configured otherwise.
type ExclusionProvider struct {
	s settings
}

func NewExclusionProvider(opts ...Option) *ExclusionProvider {
	return &ExclusionProvider{s: newSettings(opts)}
}

func (p *ExclusionProvider) Source() string { return evidence.SourceExclusions }

func (p *ExclusionProvider) CheckExclusions(ctx context.Context, id domain.Identifier) (*evidence.ExclusionResult, error) {
	if err := p.s.wait(ctx, evidence.SourceExclusions); err != nil {
		return nil, err
	}
	if p.s.failures[id.String()] {
		return nil, providers.NewProviderError(providers.ErrorProviderOutage, evidence.SourceExclusions, "simulated outage", nil)
	}

	now := p.s.now()
	result := &evidence.ExclusionResult{
		AsOf: now,
		Evidence: evidence.Evidence{
			Source:    evidence.SourceExclusions,
			Reference: evidence.MockReference,
			FetchedAt: now,
		},
	}
	if p.s.excluded[id.String()] {
		result.Hits = []evidence.ExclusionHit{{
			Name:   id.Value(),
			Type:   "Ineligible (Proceedings Completed)",
			Status: "Active",
		}}
	}
	return result, nil
}

// RegistrationProvider reports an active registration unless configured otherwise.
type RegistrationProvider struct {
	s settings
}

func NewRegistrationProvider(opts ...Option) *RegistrationProvider {
	return &RegistrationProvider{s: newSettings(opts)}
}

func (p *RegistrationProvider) Source() string { return evidence.SourceRegistration }

func (p *RegistrationProvider) LookupRegistration(ctx context.Context, id domain.Identifier) (*evidence.RegistrationResult, error) {
	if err := p.s.wait(ctx, evidence.SourceRegistration); err != nil {
		return nil, err
	}
	if p.s.failures[id.String()] {
		return nil, providers.NewProviderError(providers.ErrorProviderOutage, evidence.SourceRegistration, "simulated outage", nil)
	}

	status := evidence.RegistrationActive
	if st, ok := p.s.statuses[id.String()]; ok {
		status = st
	}
	uei, cage, legalName := id.Fields()
	now := p.s.now()
	return &evidence.RegistrationResult{
		Status:    status,
		UEI:       uei,
		CAGE:      cage,
		LegalName: legalName,
		AsOf:      now,
		Evidence: evidence.Evidence{
			Source:    evidence.SourceRegistration,
			Reference: evidence.MockReference,
			FetchedAt: now,
		},
	}, nil
}
