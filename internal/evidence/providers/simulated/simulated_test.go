package simulated

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonogo/internal/evidence"
	"gonogo/internal/evidence/providers"
	"gonogo/internal/evidence/providers/contract"
	"gonogo/pkg/domain"
)

var (
	clean  = domain.MustIdentifier(domain.IdentifierUEI, "ABC123DEF456")
	broken = domain.MustIdentifier(domain.IdentifierCAGE, "9FAIL")
)

func TestSimulatedProvidersContract(t *testing.T) {
	cs := &contract.ContractSuite{
		Exclusions:   NewExclusionProvider(),
		Registration: NewRegistrationProvider(),
		Identifiers: []domain.Identifier{
			clean,
			domain.MustIdentifier(domain.IdentifierCAGE, "1ABC2"),
			domain.MustIdentifier(domain.IdentifierLegalName, "Acme Widgets LLC"),
		},
	}
	cs.Run(t)

	errTest := &contract.ErrorContractTest{
		Exclusions:    NewExclusionProvider(WithFailureFor(broken)),
		Registration:  NewRegistrationProvider(WithFailureFor(broken)),
		Identifier:    broken,
		ExpectedError: providers.ErrorProviderOutage,
		ExpectedRetry: true,
	}
	errTest.Run(t)
}

func TestCleanResults(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	exc, err := NewExclusionProvider(WithClock(func() time.Time { return fixed })).CheckExclusions(context.Background(), clean)
	require.NoError(t, err)
	assert.Empty(t, exc.Hits)
	assert.Equal(t, evidence.MockReference, exc.Evidence.Reference)
	assert.Equal(t, fixed, exc.Evidence.FetchedAt)

	reg, err := NewRegistrationProvider().LookupRegistration(context.Background(), clean)
	require.NoError(t, err)
	assert.Equal(t, evidence.RegistrationActive, reg.Status)
	assert.Equal(t, "ABC123DEF456", reg.UEI)
	assert.Equal(t, evidence.MockReference, reg.Evidence.Reference)
}

func TestConfiguredOutcomes(t *testing.T) {
	exc, err := NewExclusionProvider(WithExcluded(clean)).CheckExclusions(context.Background(), clean)
	require.NoError(t, err)
	assert.Equal(t, 1, exc.ActiveHits())

	reg, err := NewRegistrationProvider(WithRegistrationStatus(clean, evidence.RegistrationInactive)).
		LookupRegistration(context.Background(), clean)
	require.NoError(t, err)
	assert.Equal(t, evidence.RegistrationInactive, reg.Status)

	// failures are per identifier
	_, err = NewExclusionProvider(WithFailureFor(broken)).CheckExclusions(context.Background(), clean)
	assert.NoError(t, err)
}

func TestLatencyHonoursContext(t *testing.T) {
	p := NewRegistrationProvider(WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.LookupRegistration(ctx, clean)
	assert.Equal(t, providers.ErrorTimeout, providers.GetCategory(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
