package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "gonogo/pkg/domain-errors"
)

// IdentifierKind names which registry key identifies an entity.
type IdentifierKind string

const (
	IdentifierUEI       IdentifierKind = "uei"
	IdentifierCAGE      IdentifierKind = "cage"
	IdentifierLegalName IdentifierKind = "legal_name"
)

const (
	ueiLength          = 12
	cageLength         = 5
	maxLegalNameLength = 256
)

// Identifier is the correlation key for provider calls and audit records.
// Invariant: exactly one kind is set and its value is well-formed.
//
// Usage: construct via ParseIdentifier at trust boundaries; the zero value is
// not a valid identifier.
type Identifier struct {
	kind  IdentifierKind
	value string
}

// ParseIdentifier builds an Identifier from the three optional request fields.
//
// Errors: returns CodeInvalidInput when none or more than one field is supplied,
// or when the supplied value is malformed.
func ParseIdentifier(uei, cage, legalName string) (Identifier, error) {
	uei = strings.TrimSpace(uei)
	cage = strings.TrimSpace(cage)
	legalName = strings.TrimSpace(legalName)

	supplied := 0
	for _, v := range []string{uei, cage, legalName} {
		if v != "" {
			supplied++
		}
	}
	switch {
	case supplied == 0:
		return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "an identifier is required: uei, cage or legal_name")
	case supplied > 1:
		return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "exactly one of uei, cage or legal_name must be supplied")
	}

	switch {
	case uei != "":
		uei = strings.ToUpper(uei)
		if len(uei) != ueiLength || !isAlphanumeric(uei) {
			return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "uei must be 12 alphanumeric characters")
		}
		return Identifier{kind: IdentifierUEI, value: uei}, nil
	case cage != "":
		cage = strings.ToUpper(cage)
		if len(cage) != cageLength || !isAlphanumeric(cage) {
			return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "cage must be 5 alphanumeric characters")
		}
		return Identifier{kind: IdentifierCAGE, value: cage}, nil
	default:
		if !utf8.ValidString(legalName) || utf8.RuneCountInString(legalName) > maxLegalNameLength {
			return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "legal_name must be valid text of at most 256 characters")
		}
		for _, r := range legalName {
			if unicode.IsControl(r) {
				return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "legal_name contains control characters")
			}
		}
		return Identifier{kind: IdentifierLegalName, value: legalName}, nil
	}
}

// NewIdentifier builds an identifier from a stored kind and value.
func NewIdentifier(kind IdentifierKind, value string) (Identifier, error) {
	switch kind {
	case IdentifierUEI:
		return ParseIdentifier(value, "", "")
	case IdentifierCAGE:
		return ParseIdentifier("", value, "")
	case IdentifierLegalName:
		return ParseIdentifier("", "", value)
	}
	return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "unknown identifier kind "+string(kind))
}

// MustIdentifier is NewIdentifier for fixtures and constants; it panics on error.
func MustIdentifier(kind IdentifierKind, value string) Identifier {
	id, err := NewIdentifier(kind, value)
	if err != nil {
		panic(err)
	}
	return id
}

func (i Identifier) Kind() IdentifierKind { return i.kind }
func (i Identifier) Value() string        { return i.value }
func (i Identifier) IsZero() bool         { return i.kind == "" }

// String renders the identifier as kind:value for logs and cache keys.
func (i Identifier) String() string {
	if i.IsZero() {
		return ""
	}
	return string(i.kind) + ":" + i.value
}

// Fields returns the identifier spread back over the request field names.
func (i Identifier) Fields() (uei, cage, legalName string) {
	switch i.kind {
	case IdentifierUEI:
		return i.value, "", ""
	case IdentifierCAGE:
		return "", i.value, ""
	case IdentifierLegalName:
		return "", "", i.value
	}
	return "", "", ""
}

func isAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
