package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Storage precision of balances and amounts: NUMERIC(50,18).
const (
	AmountMaxDigits   = 50
	AmountScale       = 18
	AmountMaxIntegers = AmountMaxDigits - AmountScale
)

// ValidateAmount checks that d can be stored without rounding or overflow.
func ValidateAmount(d decimal.Decimal) error {
	if d.Exponent() < -AmountScale {
		// Trailing zeros do not count against the scale.
		if !d.Equal(d.Truncate(AmountScale)) {
			return fmt.Errorf("%w: more than %d fractional digits", ErrAmountPrecision, AmountScale)
		}
	}
	if integerDigits(d) > AmountMaxIntegers {
		return fmt.Errorf("%w: more than %d integer digits", ErrAmountPrecision, AmountMaxIntegers)
	}
	return nil
}

func integerDigits(d decimal.Decimal) int {
	s := d.Abs().Truncate(0).String()
	if s == "0" {
		return 0
	}
	return len(s)
}
