// Package money converts between the decimal representation used at the
// store/external boundaries and the integer minor units used for all internal
// arithmetic. Rounding happens only at this boundary, never mid-computation.
package money

import "github.com/shopspring/decimal"

// minorUnitExponent is the number of decimal places in a minor unit (cents).
const minorUnitExponent = 2

// ToMinorUnits converts a decimal amount to integer minor units, rounding
// half-up at the second decimal place.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(minorUnitExponent).Round(0).IntPart()
}

// FromMinorUnits converts integer minor units back to a decimal amount.
func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -minorUnitExponent)
}

// WithinTolerance reports whether two minor-unit amounts differ by at most
// one minor unit. Legacy rows were written from floating-point values, so
// exact equality is too strict when matching them.
func WithinTolerance(a, b int64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}
