package domain

import dErrors "gonogo/pkg/domain-errors"

// NAICSCode is a six-digit industry classification code.
// Invariant: exactly six ASCII digits.
type NAICSCode string

// naicsTitles covers the codes the service ships defaults for.
var naicsTitles = map[NAICSCode]string{
	"541511": "Custom Computer Programming Services",
	"541512": "Computer Systems Design Services",
	"236220": "Commercial and Institutional Building Construction",
	"336611": "Ship Building and Repairing",
}

// ParseNAICSCode validates a classification code from external input.
//
// Errors: returns CodeInvalidInput unless the value is exactly six digits.
func ParseNAICSCode(s string) (NAICSCode, error) {
	if len(s) != 6 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "naics must be exactly six digits")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "naics must be exactly six digits")
		}
	}
	return NAICSCode(s), nil
}

// Title returns the built-in title for the code, or "Unknown NAICS".
func (c NAICSCode) Title() string {
	if t, ok := naicsTitles[c]; ok {
		return t
	}
	return "Unknown NAICS"
}

func (c NAICSCode) String() string { return string(c) }
