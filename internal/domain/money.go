package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places every monetary value carries.
// Amounts are fixed-point at this scale (minor units), never raw binary floats.
const MoneyScale = 2

// AmountTolerance is the epsilon used when comparing sums of per-participant
// amounts against a total.
var AmountTolerance = decimal.New(1, -MoneyScale) // 0.01

// PercentTolerance is the epsilon used when comparing a percentage sum
// against 100.
var PercentTolerance = decimal.New(1, -1) // 0.1

// ParseAmount converts raw user input into a monetary value.
// Non-numeric or negative input is treated as zero; no error is raised.
// The result is always rounded to MoneyScale.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}

	return d.Round(MoneyScale)
}

// RoundMoney rounds a value to MoneyScale decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
