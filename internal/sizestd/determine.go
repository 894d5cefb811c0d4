package sizestd

import (
	"fmt"

	"gonogo/pkg/domain"
)

// Determine compares a declared basis against the resolved standard for code.
// A nil std means no standard is on file. It never compares values measured in
// different basis kinds, and value == threshold counts as small.
func Determine(code domain.NAICSCode, basis *SizeBasis, std *Standard, source Source) Determination {
	d := Determination{NAICS: code, Standard: std, Source: source, Basis: basis}

	switch {
	case std == nil:
		d.Verdict = VerdictUnknown
		d.Cause = CauseNoStandard
		d.Source = ""
		d.Detail = fmt.Sprintf("no size standard on file for NAICS %s", code)
	case basis == nil:
		d.Verdict = VerdictUnknown
		d.Cause = CauseNoBasis
		d.Detail = fmt.Sprintf("no size basis supplied; NAICS %s is measured by %s", code, std.Basis)
	case basis.Kind != std.Basis:
		d.Verdict = VerdictUnknown
		d.Cause = CauseBasisMismatch
		d.Detail = fmt.Sprintf("size basis %s does not match the %s standard for NAICS %s", basis.Kind, std.Basis, code)
	case basis.Value.LessThanOrEqual(std.Threshold):
		d.Verdict = VerdictSmall
		d.Detail = fmt.Sprintf("%s %s is at or below the %s %s threshold for NAICS %s",
			basis.Kind, basis.Value.String(), std.Threshold.String(), std.Unit, code)
	default:
		d.Verdict = VerdictNotSmall
		d.Detail = fmt.Sprintf("%s %s exceeds the %s %s threshold for NAICS %s",
			basis.Kind, basis.Value.String(), std.Threshold.String(), std.Unit, code)
	}
	return d
}
