package sizestd

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basis(kind BasisKind, v int64) *SizeBasis {
	return &SizeBasis{Kind: kind, Value: decimal.NewFromInt(v)}
}

func TestDetermine(t *testing.T) {
	receipts := &Standard{NAICS: "541511", Basis: BasisReceipts, Threshold: decimal.NewFromInt(34_500_000), Unit: "USD", EffectiveFY: 2025}

	tests := []struct {
		name    string
		basis   *SizeBasis
		std     *Standard
		verdict Verdict
		cause   UnknownCause
		detail  string
	}{
		{name: "below threshold", basis: basis(BasisReceipts, 34_000_000), std: receipts, verdict: VerdictSmall},
		{name: "at threshold is small", basis: basis(BasisReceipts, 34_500_000), std: receipts, verdict: VerdictSmall, detail: "at or below"},
		{name: "above threshold", basis: basis(BasisReceipts, 36_000_000), std: receipts, verdict: VerdictNotSmall, detail: "exceeds"},
		{name: "one over threshold", basis: basis(BasisReceipts, 34_500_001), std: receipts, verdict: VerdictNotSmall},
		{name: "zero value", basis: basis(BasisReceipts, 0), std: receipts, verdict: VerdictSmall},
		{name: "no basis", std: receipts, verdict: VerdictUnknown, cause: CauseNoBasis, detail: "no size basis supplied"},
		{name: "basis mismatch", basis: basis(BasisEmployees, 10), std: receipts, verdict: VerdictUnknown, cause: CauseBasisMismatch, detail: "does not match"},
		{name: "no standard", basis: basis(BasisReceipts, 10), verdict: VerdictUnknown, cause: CauseNoStandard, detail: "no size standard on file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Determine("541511", tt.basis, tt.std, SourceDefault)
			assert.Equal(t, tt.verdict, d.Verdict)
			assert.Equal(t, tt.cause, d.Cause)
			if tt.detail != "" {
				assert.Contains(t, d.Detail, tt.detail)
			}
		})
	}
}

func TestDetermineFractionalBoundary(t *testing.T) {
	std := &Standard{NAICS: "541511", Basis: BasisReceipts, Threshold: decimal.RequireFromString("34500000.50"), Unit: "USD"}

	d := Determine("541511", &SizeBasis{Kind: BasisReceipts, Value: decimal.RequireFromString("34500000.5")}, std, SourceTable)
	assert.Equal(t, VerdictSmall, d.Verdict)

	d = Determine("541511", &SizeBasis{Kind: BasisReceipts, Value: decimal.RequireFromString("34500000.51")}, std, SourceTable)
	assert.Equal(t, VerdictNotSmall, d.Verdict)
}

func TestNewSizeBasis(t *testing.T) {
	b, err := NewSizeBasis("Receipts", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, BasisReceipts, b.Kind)

	_, err = NewSizeBasis("revenue", decimal.NewFromInt(5))
	assert.ErrorContains(t, err, "receipts or employees")

	_, err = NewSizeBasis("employees", decimal.NewFromInt(-1))
	assert.ErrorContains(t, err, "must not be negative")
}

func TestStandardValidate(t *testing.T) {
	valid := Standard{NAICS: "541511", Basis: BasisReceipts, Threshold: decimal.NewFromInt(1), Unit: "USD", EffectiveFY: 2025}
	require.NoError(t, valid.Validate())

	zero := valid
	zero.Threshold = decimal.Zero
	assert.Error(t, zero.Validate())

	badBasis := valid
	badBasis.Basis = "revenue"
	assert.Error(t, badBasis.Validate())

	badCode := valid
	badCode.NAICS = "5415"
	assert.Error(t, badCode.Validate())
}
