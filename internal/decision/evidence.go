package decision

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"gonogo/pkg/domain"
)

// gatherEvidence runs the exclusion and registration lookups concurrently under
// a shared timeout. Provider failures are kept on the result rather than
// cancelling the sibling lookup, so both checks are always attempted.
func (s *Service) gatherEvidence(ctx context.Context, id domain.Identifier) *GatheredEvidence {
	ctx, cancel := context.WithTimeout(ctx, s.evidenceTimeout)
	defer cancel()

	var g errgroup.Group
	gathered := &GatheredEvidence{}

	g.Go(func() error {
		start := time.Now()
		gathered.Exclusions, gathered.ExclusionsErr = s.exclusions.CheckExclusions(ctx, id)
		gathered.Latencies.Exclusions = time.Since(start)
		s.metrics.ObserveEvidenceLatency("exclusions", gathered.Latencies.Exclusions, gathered.ExclusionsErr)
		if gathered.ExclusionsErr != nil {
			s.logger.WarnContext(ctx, "exclusion check degraded",
				"identifier_kind", id.Kind(),
				"source", s.exclusions.Source(),
				"error", gathered.ExclusionsErr,
			)
		}
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		gathered.Registration, gathered.RegistrationErr = s.registration.LookupRegistration(ctx, id)
		gathered.Latencies.Registration = time.Since(start)
		s.metrics.ObserveEvidenceLatency("registration", gathered.Latencies.Registration, gathered.RegistrationErr)
		if gathered.RegistrationErr != nil {
			s.logger.WarnContext(ctx, "registration check degraded",
				"identifier_kind", id.Kind(),
				"source", s.registration.Source(),
				"error", gathered.RegistrationErr,
			)
		}
		return nil
	})

	_ = g.Wait()
	return gathered
}
