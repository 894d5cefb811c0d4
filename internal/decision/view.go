package decision

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"gonogo/internal/evidence"
	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
)

// View is the JSON form of an EligibilityResult. The single-check response,
// job results and persisted audit records all use it.
type View struct {
	Eligible      bool             `json:"eligible"`
	Summary       string           `json:"summary"`
	Reasons       []ReasonView     `json:"reasons"`
	Exclusions    ExclusionsView   `json:"exclusions"`
	Registration  RegistrationView `json:"registration"`
	Size          SizeView         `json:"size"`
	Evidence      []EvidenceView   `json:"evidence"`
	EvaluatedAt   time.Time        `json:"evaluated_at"`
	AuditRecordID string           `json:"audit_record_id,omitempty"`
}

type ReasonView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ExclusionsView struct {
	Count         int       `json:"count"`
	Degraded      bool      `json:"degraded"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Hits          []HitView `json:"hits"`
}

type HitView struct {
	Name            string `json:"name"`
	Type            string `json:"type,omitempty"`
	ExclusionStatus string `json:"exclusion_status,omitempty"`
	ExclusionEnd    string `json:"exclusion_end,omitempty"`
}

type RegistrationView struct {
	Status        string `json:"status,omitempty"`
	Degraded      bool   `json:"degraded"`
	FailureReason string `json:"failure_reason,omitempty"`
	UEI           string `json:"uei,omitempty"`
	CAGE          string `json:"cage,omitempty"`
	LegalName     string `json:"legal_name,omitempty"`
}

type SizeView struct {
	Status        string       `json:"status"`
	NAICS         string       `json:"naics"`
	Title         string       `json:"title,omitempty"`
	Basis         string       `json:"basis"`
	DeclaredBasis string       `json:"declared_basis,omitempty"`
	Value         *json.Number `json:"value,omitempty"`
	Threshold     *json.Number `json:"threshold,omitempty"`
	Unit          string       `json:"unit,omitempty"`
	EffectiveFY   int          `json:"effective_fy,omitempty"`
	Source        string       `json:"source,omitempty"`
	Cause         string       `json:"cause,omitempty"`
	Detail        string       `json:"detail"`
}

type EvidenceView struct {
	Source    string    `json:"source"`
	Reference string    `json:"reference"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewView renders a result. Nil in, nil out.
func NewView(r *EligibilityResult) *View {
	if r == nil {
		return nil
	}
	v := &View{
		Eligible:    r.Eligible,
		Summary:     r.Summary,
		Reasons:     make([]ReasonView, 0, len(r.Reasons)),
		Evidence:    make([]EvidenceView, 0, len(r.Evidence)),
		EvaluatedAt: r.EvaluatedAt,
		Exclusions: ExclusionsView{
			Count:         r.Exclusions.ActiveHits,
			Degraded:      r.Exclusions.Degraded,
			FailureReason: r.Exclusions.FailureReason,
			Hits:          make([]HitView, 0, len(r.Exclusions.Hits)),
		},
		Registration: RegistrationView{
			Status:        string(r.Registration.Status),
			Degraded:      r.Registration.Degraded,
			FailureReason: r.Registration.FailureReason,
			UEI:           r.Registration.UEI,
			CAGE:          r.Registration.CAGE,
			LegalName:     r.Registration.LegalName,
		},
		Size: newSizeView(r.Size),
	}
	if !r.AuditRecordID.IsNil() {
		v.AuditRecordID = r.AuditRecordID.String()
	}
	for _, reason := range r.Reasons {
		v.Reasons = append(v.Reasons, ReasonView{Code: string(reason.Code), Message: reason.Message})
	}
	for _, ev := range r.Evidence {
		v.Evidence = append(v.Evidence, EvidenceView{Source: ev.Source, Reference: ev.Reference, FetchedAt: ev.FetchedAt})
	}
	for _, h := range r.Exclusions.Hits {
		v.Exclusions.Hits = append(v.Exclusions.Hits, HitView{
			Name:            h.Name,
			Type:            h.Type,
			ExclusionStatus: h.Status,
			ExclusionEnd:    h.EndDate,
		})
	}
	return v
}

func newSizeView(d sizestd.Determination) SizeView {
	sv := SizeView{
		Status: string(d.Verdict),
		NAICS:  string(d.NAICS),
		Title:  d.NAICS.Title(),
		Basis:  "unknown",
		Source: string(d.Source),
		Cause:  string(d.Cause),
		Detail: d.Detail,
	}
	if d.Standard != nil {
		sv.Title = d.Standard.DisplayTitle()
		sv.Basis = string(d.Standard.Basis)
		sv.Threshold = number(d.Standard.Threshold)
		sv.Unit = d.Standard.Unit
		sv.EffectiveFY = d.Standard.EffectiveFY
	}
	if d.Basis != nil {
		sv.DeclaredBasis = string(d.Basis.Kind)
		sv.Value = number(d.Basis.Value)
	}
	return sv
}

func number(d decimal.Decimal) *json.Number {
	n := json.Number(d.String())
	return &n
}

// Result rebuilds the EligibilityResult a View was rendered from.
func (v *View) Result() (*EligibilityResult, error) {
	r := &EligibilityResult{
		Eligible:    v.Eligible,
		Summary:     v.Summary,
		EvaluatedAt: v.EvaluatedAt,
		Exclusions: ExclusionCheck{
			Degraded:      v.Exclusions.Degraded,
			FailureReason: v.Exclusions.FailureReason,
			ActiveHits:    v.Exclusions.Count,
		},
		Registration: RegistrationCheck{
			Degraded:      v.Registration.Degraded,
			FailureReason: v.Registration.FailureReason,
			Status:        evidence.RegistrationStatus(v.Registration.Status),
			UEI:           v.Registration.UEI,
			CAGE:          v.Registration.CAGE,
			LegalName:     v.Registration.LegalName,
		},
	}
	if v.AuditRecordID != "" {
		id, err := domain.ParseAuditRecordID(v.AuditRecordID)
		if err != nil {
			return nil, err
		}
		r.AuditRecordID = id
	}
	for _, reason := range v.Reasons {
		r.Reasons = append(r.Reasons, Reason{Code: ReasonCode(reason.Code), Message: reason.Message})
	}
	for _, ev := range v.Evidence {
		r.Evidence = append(r.Evidence, evidence.Evidence{Source: ev.Source, Reference: ev.Reference, FetchedAt: ev.FetchedAt})
	}
	for _, h := range v.Exclusions.Hits {
		r.Exclusions.Hits = append(r.Exclusions.Hits, evidence.ExclusionHit{
			Name:    h.Name,
			Type:    h.Type,
			Status:  h.ExclusionStatus,
			EndDate: h.ExclusionEnd,
		})
	}

	size, err := v.Size.determination()
	if err != nil {
		return nil, err
	}
	r.Size = size
	return r, nil
}

func (sv SizeView) determination() (sizestd.Determination, error) {
	d := sizestd.Determination{
		NAICS:   domain.NAICSCode(sv.NAICS),
		Verdict: sizestd.Verdict(sv.Status),
		Cause:   sizestd.UnknownCause(sv.Cause),
		Detail:  sv.Detail,
		Source:  sizestd.Source(sv.Source),
	}
	if sv.Threshold != nil {
		threshold, err := decimal.NewFromString(sv.Threshold.String())
		if err != nil {
			return d, err
		}
		d.Standard = &sizestd.Standard{
			NAICS:       d.NAICS,
			Title:       sv.Title,
			Basis:       sizestd.BasisKind(sv.Basis),
			Threshold:   threshold,
			Unit:        sv.Unit,
			EffectiveFY: sv.EffectiveFY,
		}
	}
	if sv.Value != nil {
		value, err := decimal.NewFromString(sv.Value.String())
		if err != nil {
			return d, err
		}
		d.Basis = &sizestd.SizeBasis{Kind: sizestd.BasisKind(sv.DeclaredBasis), Value: value}
	}
	return d, nil
}
