package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// parseAmount parses a money string into a non-negative decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a valid amount: %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must not be negative")
	}
	return d.Round(2), nil
}
