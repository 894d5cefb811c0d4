// Package contract holds reusable checks every exclusion and registration
// provider must pass, live or simulated.
package contract

import (
	"context"
	"errors"
	"testing"

	"gonogo/internal/evidence"
	"gonogo/internal/evidence/providers"
	"gonogo/pkg/domain"
)

// ContractSuite runs both provider kinds against each identifier and checks
// the evidence they attach.
type ContractSuite struct {
	Exclusions   evidence.ExclusionProvider
	Registration evidence.RegistrationProvider
	Identifiers  []domain.Identifier
}

// Run executes all contract checks in the suite.
func (s *ContractSuite) Run(t *testing.T) {
	t.Helper()
	for _, id := range s.Identifiers {
		t.Run("exclusions/"+id.String(), func(t *testing.T) {
			if s.Exclusions == nil {
				t.Skip("no exclusion provider")
			}
			res, err := s.Exclusions.CheckExclusions(context.Background(), id)
			if err != nil {
				t.Fatalf("exclusion lookup failed: %v", err)
			}
			checkEvidence(t, s.Exclusions.Source(), res.Evidence)
			if res.AsOf.IsZero() {
				t.Error("AsOf not set")
			}
		})

		t.Run("registration/"+id.String(), func(t *testing.T) {
			if s.Registration == nil {
				t.Skip("no registration provider")
			}
			res, err := s.Registration.LookupRegistration(context.Background(), id)
			if err != nil {
				t.Fatalf("registration lookup failed: %v", err)
			}
			checkEvidence(t, s.Registration.Source(), res.Evidence)
			switch res.Status {
			case evidence.RegistrationActive, evidence.RegistrationInactive, evidence.RegistrationNotFound:
			default:
				t.Errorf("unknown registration status %q", res.Status)
			}
		})
	}
}

func checkEvidence(t *testing.T, source string, ev evidence.Evidence) {
	t.Helper()
	if ev.Source != source {
		t.Errorf("expected evidence source %s, got %s", source, ev.Source)
	}
	if ev.Reference == "" {
		t.Error("evidence reference not set")
	}
	if ev.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

// ErrorContractTest validates that provider failures follow the taxonomy.
type ErrorContractTest struct {
	Exclusions    evidence.ExclusionProvider
	Registration  evidence.RegistrationProvider
	Identifier    domain.Identifier
	ExpectedError providers.ErrorCategory
	ExpectedRetry bool
}

// Run executes the error contract against each configured provider.
func (ect *ErrorContractTest) Run(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if ect.Exclusions != nil {
		_, err := ect.Exclusions.CheckExclusions(ctx, ect.Identifier)
		ect.check(t, "exclusions", err)
	}
	if ect.Registration != nil {
		_, err := ect.Registration.LookupRegistration(ctx, ect.Identifier)
		ect.check(t, "registration", err)
	}
}

func (ect *ErrorContractTest) check(t *testing.T, kind string, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error but got none", kind)
	}
	var pe *providers.ProviderError
	if !errors.As(err, &pe) {
		t.Errorf("%s: expected *providers.ProviderError, got %T", kind, err)
		return
	}
	if pe.Category != ect.ExpectedError {
		t.Errorf("%s: expected error category %s, got %s", kind, ect.ExpectedError, pe.Category)
	}
	if pe.Retryable != ect.ExpectedRetry {
		t.Errorf("%s: expected retryable=%v, got %v", kind, ect.ExpectedRetry, pe.Retryable)
	}
}
