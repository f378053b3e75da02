package domain

import "github.com/shopspring/decimal"

// SplitMethod is the algorithm used to distribute a total among participants
type SplitMethod string

const (
	SplitMethodEqually      SplitMethod = "EQUALLY"
	SplitMethodPercentages  SplitMethod = "PERCENTAGES"
	SplitMethodExactAmounts SplitMethod = "EXACT_AMOUNTS"
	SplitMethodShares       SplitMethod = "SHARES"
	SplitMethodAdjustments  SplitMethod = "ADJUSTMENTS"
)

// Valid reports whether the split method is one of the known values
func (m SplitMethod) Valid() bool {
	switch m {
	case SplitMethodEqually, SplitMethodPercentages, SplitMethodExactAmounts,
		SplitMethodShares, SplitMethodAdjustments:
		return true
	}
	return false
}

// Shares bounds for the SHARES method. Values outside are clamped, never
// rejected.
const (
	MinShares = 1
	MaxShares = 10
)

// SplitDetail is the per-participant breakdown produced by the engine.
// Only the field relevant to the active method is user-entered; the rest
// are derived.
type SplitDetail struct {
	Amount     decimal.Decimal
	Percentage decimal.Decimal
	Shares     int
	Adjustment decimal.Decimal
}
