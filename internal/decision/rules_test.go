package decision

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonogo/internal/evidence"
	"gonogo/internal/evidence/providers"
	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
)

var evalTime = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func cleanEvidence() *GatheredEvidence {
	return &GatheredEvidence{
		Exclusions: &evidence.ExclusionResult{
			Evidence: evidence.Evidence{Source: evidence.SourceExclusions, Reference: evidence.MockReference, FetchedAt: evalTime},
		},
		Registration: &evidence.RegistrationResult{
			Status:   evidence.RegistrationActive,
			UEI:      "ABC123DEF456",
			Evidence: evidence.Evidence{Source: evidence.SourceRegistration, Reference: evidence.MockReference, FetchedAt: evalTime},
		},
	}
}

func determination(t *testing.T, value int64) sizestd.Determination {
	t.Helper()
	std := sizestd.Defaults()[0]
	require.Equal(t, domain.NAICSCode("541511"), std.NAICS)
	basis, err := sizestd.NewSizeBasis("receipts", decimal.NewFromInt(value))
	require.NoError(t, err)
	return sizestd.Determine(std.NAICS, basis, &std, sizestd.SourceDefault)
}

func reasonCodesOf(r *EligibilityResult) []ReasonCode {
	out := make([]ReasonCode, len(r.Reasons))
	for i, reason := range r.Reasons {
		out[i] = reason.Code
	}
	return out
}

func sources(r *EligibilityResult) []string {
	out := make([]string, len(r.Evidence))
	for i, ev := range r.Evidence {
		out[i] = ev.Source
	}
	return out
}

func TestBuildResultReceiptsScenario(t *testing.T) {
	t.Run("34M against 34.5M is small and eligible", func(t *testing.T) {
		r := BuildResult(cleanEvidence(), determination(t, 34_000_000), UnknownSizeAllow, evalTime)
		assert.True(t, r.Eligible)
		assert.Equal(t, []ReasonCode{ReasonNoExclusions, ReasonRegistrationActive, ReasonSizeSmall}, reasonCodesOf(r))
		assert.Equal(t, "No exclusions; active registration; size small for 541511 (threshold: 34500000 USD)", r.Summary)
	})

	t.Run("36M against 34.5M is not small and ineligible", func(t *testing.T) {
		r := BuildResult(cleanEvidence(), determination(t, 36_000_000), UnknownSizeAllow, evalTime)
		assert.False(t, r.Eligible)
		assert.Contains(t, reasonCodesOf(r), ReasonSizeNotSmall)
	})

	t.Run("value equal to threshold is small", func(t *testing.T) {
		r := BuildResult(cleanEvidence(), determination(t, 34_500_000), UnknownSizeAllow, evalTime)
		assert.True(t, r.Eligible)
		assert.Equal(t, sizestd.VerdictSmall, r.Size.Verdict)
	})
}

func TestBuildResultUnknownSizePolicy(t *testing.T) {
	std := sizestd.Defaults()[0]
	unknown := sizestd.Determine(std.NAICS, nil, &std, sizestd.SourceDefault)

	allow := BuildResult(cleanEvidence(), unknown, UnknownSizeAllow, evalTime)
	assert.True(t, allow.Eligible, "unknown size passes by default")
	assert.Equal(t, ReasonSizeUnknown, allow.Reasons[2].Code)
	assert.NotContains(t, reasonCodesOf(allow), ReasonSizeNotSmall)
	assert.Contains(t, allow.Summary, "size evidence required")

	deny := BuildResult(cleanEvidence(), unknown, UnknownSizeDeny, evalTime)
	assert.False(t, deny.Eligible)
	assert.Equal(t, reasonCodesOf(allow), reasonCodesOf(deny), "policy changes the verdict, not the reasons")
}

func TestBuildResultNegativeChecks(t *testing.T) {
	size := determination(t, 1_000_000)

	t.Run("active exclusion blocks", func(t *testing.T) {
		g := cleanEvidence()
		g.Exclusions.Hits = []evidence.ExclusionHit{{Name: "ACME", Status: "Active"}, {Name: "ACME", Status: "Inactive"}}
		r := BuildResult(g, size, UnknownSizeAllow, evalTime)
		assert.False(t, r.Eligible)
		assert.Equal(t, ReasonHasExclusions, r.Reasons[0].Code)
		assert.Equal(t, "1 active exclusion(s) found.", r.Reasons[0].Message)
		assert.Equal(t, 1, r.Exclusions.ActiveHits)
		assert.Len(t, r.Exclusions.Hits, 2)
	})

	t.Run("inactive-only exclusions pass", func(t *testing.T) {
		g := cleanEvidence()
		g.Exclusions.Hits = []evidence.ExclusionHit{{Name: "ACME", Status: "Inactive"}}
		r := BuildResult(g, size, UnknownSizeAllow, evalTime)
		assert.True(t, r.Eligible)
		assert.Equal(t, ReasonNoExclusions, r.Reasons[0].Code)
	})

	t.Run("inactive registration blocks", func(t *testing.T) {
		g := cleanEvidence()
		g.Registration.Status = evidence.RegistrationInactive
		r := BuildResult(g, size, UnknownSizeAllow, evalTime)
		assert.False(t, r.Eligible)
		assert.Equal(t, ReasonRegistrationInactive, r.Reasons[1].Code)
	})

	t.Run("missing registration blocks", func(t *testing.T) {
		g := cleanEvidence()
		g.Registration.Status = evidence.RegistrationNotFound
		r := BuildResult(g, size, UnknownSizeAllow, evalTime)
		assert.False(t, r.Eligible)
		assert.Equal(t, ReasonRegistrationNotFound, r.Reasons[1].Code)
	})
}

func TestBuildResultDegradedChecks(t *testing.T) {
	size := determination(t, 1_000_000)
	outage := providers.NewProviderError(providers.ErrorProviderOutage, evidence.SourceExclusions, "down", nil)

	g := &GatheredEvidence{
		ExclusionsErr:   outage,
		RegistrationErr: errors.New("boom"),
	}
	r := BuildResult(g, size, UnknownSizeAllow, evalTime)

	assert.False(t, r.Eligible, "degraded checks do not pass")
	assert.True(t, r.Degraded())
	assert.Equal(t, []ReasonCode{ReasonExclusionsCheckUnavailable, ReasonRegistrationCheckUnavailable, ReasonSizeSmall}, reasonCodesOf(r))
	assert.Equal(t, "provider_outage", r.Exclusions.FailureReason)
	assert.Equal(t, "internal", r.Registration.FailureReason)

	require.Len(t, r.Evidence, 3, "evidence is recorded for every attempted check")
	assert.Equal(t, []string{evidence.SourceExclusions, evidence.SourceRegistration, evidence.SourceSizeStandard}, sources(r))
	assert.Equal(t, unavailableReference, r.Evidence[0].Reference)
	assert.Equal(t, evalTime, r.Evidence[1].FetchedAt)
	assert.Equal(t, "default:541511", r.Evidence[2].Reference)
}

func TestBuildResultNoStandard(t *testing.T) {
	size := sizestd.Determine("999999", nil, nil, "")
	r := BuildResult(cleanEvidence(), size, UnknownSizeAllow, evalTime)
	assert.True(t, r.Eligible)
	assert.Equal(t, ReasonSizeUnknown, r.Reasons[2].Code)
	assert.Equal(t, "none:999999", r.Evidence[2].Reference)
}

func TestParseUnknownSizePolicy(t *testing.T) {
	p, err := ParseUnknownSizePolicy("")
	require.NoError(t, err)
	assert.Equal(t, UnknownSizeAllow, p)

	p, err = ParseUnknownSizePolicy(" DENY ")
	require.NoError(t, err)
	assert.Equal(t, UnknownSizeDeny, p)

	_, err = ParseUnknownSizePolicy("maybe")
	assert.Error(t, err)
}
