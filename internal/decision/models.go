package decision

import (
	"strings"
	"time"

	"gonogo/internal/evidence"
	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
)

// UnknownSizePolicy decides whether an unknown size verdict passes.
type UnknownSizePolicy string

const (
	UnknownSizeAllow UnknownSizePolicy = "allow"
	UnknownSizeDeny  UnknownSizePolicy = "deny"
)

// ParseUnknownSizePolicy constructs a policy from configuration. Empty means allow.
func ParseUnknownSizePolicy(s string) (UnknownSizePolicy, error) {
	switch p := UnknownSizePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", UnknownSizeAllow:
		return UnknownSizeAllow, nil
	case UnknownSizeDeny:
		return p, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown size policy must be allow or deny")
	}
}

// ReasonCode identifies one reason on an eligibility result.
type ReasonCode string

const (
	ReasonNoExclusions                 ReasonCode = "NO_EXCLUSIONS"
	ReasonHasExclusions                ReasonCode = "HAS_EXCLUSIONS"
	ReasonExclusionsCheckUnavailable   ReasonCode = "EXCLUSIONS_CHECK_UNAVAILABLE"
	ReasonRegistrationActive           ReasonCode = "REGISTRATION_ACTIVE"
	ReasonRegistrationInactive         ReasonCode = "REGISTRATION_INACTIVE"
	ReasonRegistrationNotFound         ReasonCode = "REGISTRATION_NOT_FOUND"
	ReasonRegistrationCheckUnavailable ReasonCode = "REGISTRATION_CHECK_UNAVAILABLE"
	ReasonSizeSmall                    ReasonCode = "SIZE_SMALL"
	ReasonSizeNotSmall                 ReasonCode = "SIZE_NOT_SMALL"
	ReasonSizeUnknown                  ReasonCode = "SIZE_UNKNOWN"
)

// Reason is one entry in the ordered reason list.
type Reason struct {
	Code    ReasonCode
	Message string
}

// EvaluateRequest is the input to one evaluation. JobID and ItemIndex are set
// only for job items.
type EvaluateRequest struct {
	Identifier domain.Identifier
	NAICS      domain.NAICSCode
	Basis      *sizestd.SizeBasis
	JobID      *domain.JobID
	ItemIndex  *int
	Requester  string
}

// Validate rejects requests that must never reach a provider.
func (r EvaluateRequest) Validate() error {
	if r.Identifier.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "an identifier is required")
	}
	if _, err := domain.ParseNAICSCode(string(r.NAICS)); err != nil {
		return err
	}
	if r.Basis != nil && r.Basis.Value.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidInput, "size basis value must not be negative")
	}
	if (r.JobID == nil) != (r.ItemIndex == nil) {
		return dErrors.New(dErrors.CodeInvariantViolation, "job id and item index must be set together")
	}
	return nil
}

// ExclusionCheck is the exclusion sub-result. Degraded means the provider
// failed and Hits is empty.
type ExclusionCheck struct {
	Degraded      bool
	FailureReason string
	Hits          []evidence.ExclusionHit
	ActiveHits    int
}

// RegistrationCheck is the registration sub-result.
type RegistrationCheck struct {
	Degraded      bool
	FailureReason string
	Status        evidence.RegistrationStatus
	UEI           string
	CAGE          string
	LegalName     string
}

// EligibilityResult is the immutable outcome of one evaluation.
type EligibilityResult struct {
	Eligible      bool
	Summary       string
	Reasons       []Reason
	Evidence      []evidence.Evidence
	Exclusions    ExclusionCheck
	Registration  RegistrationCheck
	Size          sizestd.Determination
	EvaluatedAt   time.Time
	AuditRecordID domain.AuditRecordID
}

// Degraded reports whether any provider-backed check could not be completed.
func (r *EligibilityResult) Degraded() bool {
	return r.Exclusions.Degraded || r.Registration.Degraded
}

// ReasonCodes returns the codes in order.
func (r *EligibilityResult) ReasonCodes() []string {
	codes := make([]string, len(r.Reasons))
	for i, reason := range r.Reasons {
		codes[i] = string(reason.Code)
	}
	return codes
}

// Clone returns a deep copy, so a result handed to the audit trail is never
// shared with the caller.
func (r *EligibilityResult) Clone() *EligibilityResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Reasons = append([]Reason(nil), r.Reasons...)
	out.Evidence = append([]evidence.Evidence(nil), r.Evidence...)
	out.Exclusions.Hits = append([]evidence.ExclusionHit(nil), r.Exclusions.Hits...)
	if r.Size.Standard != nil {
		std := *r.Size.Standard
		out.Size.Standard = &std
	}
	if r.Size.Basis != nil {
		basis := *r.Size.Basis
		out.Size.Basis = &basis
	}
	return &out
}

// AuditEntry is what the evaluator hands to the audit recorder.
type AuditEntry struct {
	Identifier domain.Identifier
	NAICS      domain.NAICSCode
	Result     *EligibilityResult
	JobID      *domain.JobID
	ItemIndex  *int
	Requester  string
	RequestID  string
}
