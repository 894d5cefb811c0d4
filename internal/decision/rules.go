package decision

import (
	"fmt"
	"strings"
	"time"

	"gonogo/internal/evidence"
	"gonogo/internal/evidence/providers"
	"gonogo/internal/sizestd"
)

// unavailableReference marks evidence for a check whose provider failed.
const unavailableReference = "unavailable"

// GatheredEvidence holds the raw provider outcomes for one evaluation. Exactly
// one of each result/error pair is set.
type GatheredEvidence struct {
	Exclusions      *evidence.ExclusionResult
	ExclusionsErr   error
	Registration    *evidence.RegistrationResult
	RegistrationErr error
	Latencies       struct {
		Exclusions   time.Duration
		Registration time.Duration
	}
}

// BuildResult applies the decision rule to gathered evidence and a size
// determination. It is pure and always emits reasons and evidence in the order
// exclusions, registration, size.
//
// eligible = no active exclusions AND registration active AND size != not_small.
// Degraded checks do not pass. Unknown size passes unless policy is deny.
func BuildResult(g *GatheredEvidence, size sizestd.Determination, policy UnknownSizePolicy, at time.Time) *EligibilityResult {
	result := &EligibilityResult{
		Size:        size,
		EvaluatedAt: at,
	}
	var summary []string

	// Exclusions
	exclusionsOK := false
	switch {
	case g.ExclusionsErr != nil || g.Exclusions == nil:
		result.Exclusions = ExclusionCheck{Degraded: true, FailureReason: failureReason(g.ExclusionsErr)}
		result.add(ReasonExclusionsCheckUnavailable, "Exclusion check unavailable: "+result.Exclusions.FailureReason)
		result.Evidence = append(result.Evidence, unavailable(evidence.SourceExclusions, at))
		summary = append(summary, "exclusions unavailable")
	default:
		active := g.Exclusions.ActiveHits()
		result.Exclusions = ExclusionCheck{Hits: g.Exclusions.Hits, ActiveHits: active}
		result.Evidence = append(result.Evidence, g.Exclusions.Evidence)
		if active > 0 {
			result.add(ReasonHasExclusions, fmt.Sprintf("%d active exclusion(s) found.", active))
			summary = append(summary, "Has exclusions")
		} else {
			exclusionsOK = true
			result.add(ReasonNoExclusions, "No active exclusions found.")
			summary = append(summary, "No exclusions")
		}
	}

	// Registration
	registrationOK := false
	switch {
	case g.RegistrationErr != nil || g.Registration == nil:
		result.Registration = RegistrationCheck{Degraded: true, FailureReason: failureReason(g.RegistrationErr)}
		result.add(ReasonRegistrationCheckUnavailable, "Registration check unavailable: "+result.Registration.FailureReason)
		result.Evidence = append(result.Evidence, unavailable(evidence.SourceRegistration, at))
		summary = append(summary, "registration unavailable")
	default:
		reg := g.Registration
		result.Registration = RegistrationCheck{Status: reg.Status, UEI: reg.UEI, CAGE: reg.CAGE, LegalName: reg.LegalName}
		result.Evidence = append(result.Evidence, reg.Evidence)
		switch reg.Status {
		case evidence.RegistrationActive:
			registrationOK = true
			result.add(ReasonRegistrationActive, "Entity has an active registration.")
			summary = append(summary, "active registration")
		case evidence.RegistrationNotFound:
			result.add(ReasonRegistrationNotFound, "No registration found for the identifier.")
			summary = append(summary, "registration not found")
		default:
			result.add(ReasonRegistrationInactive, "Entity registration is not active.")
			summary = append(summary, "registration not active")
		}
	}

	// Size
	sizeOK := true
	result.Evidence = append(result.Evidence, sizeEvidence(size, at))
	switch size.Verdict {
	case sizestd.VerdictSmall:
		result.add(ReasonSizeSmall, "Meets small business threshold: "+size.Detail+".")
		summary = append(summary, fmt.Sprintf("size small for %s (threshold: %s)", size.NAICS, threshold(size)))
	case sizestd.VerdictNotSmall:
		sizeOK = false
		result.add(ReasonSizeNotSmall, "Exceeds small business threshold: "+size.Detail+".")
		summary = append(summary, fmt.Sprintf("size not small for %s (threshold: %s)", size.NAICS, threshold(size)))
	default:
		sizeOK = policy != UnknownSizeDeny
		result.add(ReasonSizeUnknown, "Size could not be determined: "+size.Detail+".")
		summary = append(summary, "size evidence required")
	}

	result.Eligible = exclusionsOK && registrationOK && sizeOK
	result.Summary = strings.Join(summary, "; ")
	return result
}

func (r *EligibilityResult) add(code ReasonCode, message string) {
	r.Reasons = append(r.Reasons, Reason{Code: code, Message: message})
}

func failureReason(err error) string {
	if err == nil {
		return string(providers.ErrorInternal)
	}
	return string(providers.GetCategory(err))
}

func unavailable(source string, at time.Time) evidence.Evidence {
	return evidence.Evidence{Source: source, Reference: unavailableReference, FetchedAt: at}
}

// sizeEvidence references the table row or default used, e.g. "table:541511".
func sizeEvidence(size sizestd.Determination, at time.Time) evidence.Evidence {
	ref := "none:" + string(size.NAICS)
	if size.Standard != nil {
		ref = string(size.Source) + ":" + string(size.NAICS)
	}
	return evidence.Evidence{Source: evidence.SourceSizeStandard, Reference: ref, FetchedAt: at}
}

func threshold(size sizestd.Determination) string {
	if size.Standard == nil {
		return "n/a"
	}
	return strings.TrimSpace(size.Standard.Threshold.String() + " " + size.Standard.Unit)
}
