package sizestd

import "github.com/shopspring/decimal"

// Built-in standards used when the table has no row for a code.
var defaultStandards = []Standard{
	{NAICS: "541511", Title: "Custom Computer Programming Services", Basis: BasisReceipts, Threshold: decimal.NewFromInt(34_500_000), Unit: "USD", EffectiveFY: 2025},
	{NAICS: "541512", Title: "Computer Systems Design Services", Basis: BasisReceipts, Threshold: decimal.NewFromInt(34_500_000), Unit: "USD", EffectiveFY: 2025},
	{NAICS: "336611", Title: "Ship Building and Repairing", Basis: BasisEmployees, Threshold: decimal.NewFromInt(1300), Unit: "employees", EffectiveFY: 2025},
}

// Defaults returns a copy of the built-in standards.
func Defaults() []Standard {
	out := make([]Standard, len(defaultStandards))
	copy(out, defaultStandards)
	return out
}
