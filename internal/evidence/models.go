// Package evidence defines what the exclusion and registration providers
// return and the capability interfaces the evaluator depends on.
package evidence

import (
	"context"
	"strings"
	"time"

	"gonogo/pkg/domain"
)

// Source names recorded on evidence.
const (
	SourceExclusions   = "sam_exclusions_api"
	SourceRegistration = "sam_entity_api"
	SourceSizeStandard = "sba_size_standards"
)

// MockReference marks evidence produced by a simulated provider.
const MockReference = "mock"

// Evidence records which source was consulted, where, and when.
// Immutable once produced.
type Evidence struct {
	Source    string
	Reference string
	FetchedAt time.Time
}

// ExclusionHit is one debarment or suspension record returned for an identifier.
type ExclusionHit struct {
	Name    string
	Type    string
	Status  string
	EndDate string
}

// IsActive treats a hit as active unless the source explicitly marks it inactive.
func (h ExclusionHit) IsActive() bool {
	return !strings.EqualFold(strings.TrimSpace(h.Status), "inactive")
}

// ExclusionResult is the outcome of one exclusion lookup.
type ExclusionResult struct {
	Hits     []ExclusionHit
	AsOf     time.Time
	Evidence Evidence
}

// ActiveHits counts the hits that block eligibility.
func (r *ExclusionResult) ActiveHits() int {
	n := 0
	for _, h := range r.Hits {
		if h.IsActive() {
			n++
		}
	}
	return n
}

// RegistrationStatus is the registry state of an entity.
type RegistrationStatus string

const (
	RegistrationActive   RegistrationStatus = "active"
	RegistrationInactive RegistrationStatus = "inactive"
	RegistrationNotFound RegistrationStatus = "not_found"
)

// RegistrationResult is the outcome of one registration lookup.
type RegistrationResult struct {
	Status    RegistrationStatus
	UEI       string
	CAGE      string
	LegalName string
	AsOf      time.Time
	Evidence  Evidence
}

// ExclusionProvider looks up exclusion records for an identifier.
// Failures are returned as *providers.ProviderError.
type ExclusionProvider interface {
	Source() string
	CheckExclusions(ctx context.Context, id domain.Identifier) (*ExclusionResult, error)
}

// RegistrationProvider looks up registration status for an identifier.
// An unknown entity is a RegistrationNotFound result, not an error.
type RegistrationProvider interface {
	Source() string
	LookupRegistration(ctx context.Context, id domain.Identifier) (*RegistrationResult, error)
}
