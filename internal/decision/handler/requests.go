package handler

import (
	"github.com/shopspring/decimal"

	"gonogo/internal/decision"
	"gonogo/internal/sizestd"
	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
)

// CheckRequest is the body of POST /eligibility/check and one item of a bulk
// submission.
type CheckRequest struct {
	Identifier IdentifierRequest `json:"identifier"`
	NAICS      string            `json:"naics" validate:"required"`
	SizeBasis  *SizeBasisRequest `json:"size_basis,omitempty"`

	// Parsed values (populated by Validate)
	parsedIdentifier domain.Identifier
	parsedNAICS      domain.NAICSCode
	parsedBasis      *sizestd.SizeBasis
}

// IdentifierRequest carries exactly one of the three identifier fields.
type IdentifierRequest struct {
	UEI       string `json:"uei,omitempty" validate:"max=64"`
	CAGE      string `json:"cage,omitempty" validate:"max=64"`
	LegalName string `json:"legal_name,omitempty" validate:"max=1024"`
}

type SizeBasisRequest struct {
	Kind  string           `json:"kind" validate:"required"`
	Value *decimal.Decimal `json:"value" validate:"required"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CheckRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	id, err := domain.ParseIdentifier(r.Identifier.UEI, r.Identifier.CAGE, r.Identifier.LegalName)
	if err != nil {
		return err
	}
	r.parsedIdentifier = id

	code, err := domain.ParseNAICSCode(r.NAICS)
	if err != nil {
		return err
	}
	r.parsedNAICS = code

	if r.SizeBasis != nil {
		if r.SizeBasis.Value == nil {
			return dErrors.New(dErrors.CodeInvalidInput, "size_basis.value is required")
		}
		basis, err := sizestd.NewSizeBasis(r.SizeBasis.Kind, *r.SizeBasis.Value)
		if err != nil {
			return err
		}
		r.parsedBasis = basis
	}
	return nil
}

// EvaluateRequest builds the domain request. Call only after Validate.
func (r *CheckRequest) EvaluateRequest(requester string) decision.EvaluateRequest {
	return decision.EvaluateRequest{
		Identifier: r.parsedIdentifier,
		NAICS:      r.parsedNAICS,
		Basis:      r.parsedBasis,
		Requester:  requester,
	}
}
