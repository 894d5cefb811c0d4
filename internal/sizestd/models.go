package sizestd

import (
	"strings"

	"github.com/shopspring/decimal"

	"gonogo/pkg/domain"
	dErrors "gonogo/pkg/domain-errors"
)

// BasisKind names what a size standard measures.
type BasisKind string

const (
	BasisReceipts  BasisKind = "receipts"
	BasisEmployees BasisKind = "employees"
)

// ParseBasisKind constructs a BasisKind from external input.
//
// Errors: returns CodeInvalidInput for anything other than receipts or employees.
func ParseBasisKind(s string) (BasisKind, error) {
	switch k := BasisKind(strings.ToLower(strings.TrimSpace(s))); k {
	case BasisReceipts, BasisEmployees:
		return k, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "size basis kind is required")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "size basis kind must be receipts or employees")
	}
}

// SizeBasis is the caller's declared measurement for an entity.
// Invariant: Kind is recognized and Value is not negative.
type SizeBasis struct {
	Kind  BasisKind
	Value decimal.Decimal
}

// NewSizeBasis validates a declared basis.
func NewSizeBasis(kind string, value decimal.Decimal) (*SizeBasis, error) {
	k, err := ParseBasisKind(kind)
	if err != nil {
		return nil, err
	}
	if value.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "size basis value must not be negative")
	}
	return &SizeBasis{Kind: k, Value: value}, nil
}

// Standard is one row of the size standard table, keyed by NAICS code.
type Standard struct {
	NAICS       domain.NAICSCode
	Title       string
	Basis       BasisKind
	Threshold   decimal.Decimal
	Unit        string
	EffectiveFY int
}

// Validate enforces threshold > 0 and a recognized basis kind.
func (s Standard) Validate() error {
	if _, err := domain.ParseNAICSCode(string(s.NAICS)); err != nil {
		return err
	}
	if s.Basis != BasisReceipts && s.Basis != BasisEmployees {
		return dErrors.New(dErrors.CodeValidation, "size standard basis must be receipts or employees")
	}
	if !s.Threshold.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "size standard threshold must be greater than zero")
	}
	if s.EffectiveFY < 0 {
		return dErrors.New(dErrors.CodeValidation, "size standard effective fiscal year must not be negative")
	}
	return nil
}

// DisplayTitle returns the row title or the built-in NAICS title.
func (s Standard) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.NAICS.Title()
}

// Source tells where a resolved standard came from.
type Source string

const (
	SourceTable   Source = "table"
	SourceDefault Source = "default"
)

// Verdict is the outcome of a size determination.
type Verdict string

const (
	VerdictSmall    Verdict = "small"
	VerdictNotSmall Verdict = "not_small"
	VerdictUnknown  Verdict = "unknown"
)

// UnknownCause explains an unknown verdict.
type UnknownCause string

const (
	CauseNone          UnknownCause = ""
	CauseNoStandard    UnknownCause = "no_standard"
	CauseNoBasis       UnknownCause = "no_basis"
	CauseBasisMismatch UnknownCause = "basis_mismatch"
)

// Determination is the full size determination for one evaluation.
type Determination struct {
	NAICS    domain.NAICSCode
	Verdict  Verdict
	Cause    UnknownCause
	Detail   string
	Standard *Standard
	Source   Source
	Basis    *SizeBasis
}
