package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// All ledger amounts carry exactly two decimal digits. Round2 is the single
// rounding rule used wherever fees or splits are computed (half-up at 2 decimals).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Parse parses a decimal amount string and normalizes it to 2 decimals.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if d.Exponent() < -2 {
		return decimal.Zero, fmt.Errorf("amount %q has more than 2 decimal places", raw)
	}
	return d.Round(2), nil
}

// Split applies a percentage rate (e.g. 0.10 for 10%) to gross and returns
// (fee, net) such that fee + net == gross exactly.
func Split(gross, rate decimal.Decimal) (fee, net decimal.Decimal) {
	fee = Round2(gross.Mul(rate))
	net = gross.Sub(fee)
	return fee, net
}
