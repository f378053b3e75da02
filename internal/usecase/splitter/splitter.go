package splitter

import (
	"github.com/shopspring/decimal"
	"github.com/tallyup/tally-backend/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
)

// Inputs holds the raw per-participant values the user has entered so far.
// Only the map matching the active method is user-edited; the others are
// ignored by Calculate.
type Inputs struct {
	Percentages map[domain.PersonID]decimal.Decimal
	Amounts     map[domain.PersonID]decimal.Decimal
	Shares      map[domain.PersonID]int
	Adjustments map[domain.PersonID]decimal.Decimal
}

// NewInputs creates an empty input set
func NewInputs() Inputs {
	return Inputs{
		Percentages: make(map[domain.PersonID]decimal.Decimal),
		Amounts:     make(map[domain.PersonID]decimal.Decimal),
		Shares:      make(map[domain.PersonID]int),
		Adjustments: make(map[domain.PersonID]decimal.Decimal),
	}
}

// SeedDefaults fills in default values for every participant that has no
// entry yet. It never overwrites a value the user has already typed, so
// reactive recomputation cannot fight user input.
// Defaults: percentage = 100/n, amount = total/n, shares = 1, adjustment = 0.
func SeedDefaults(total decimal.Decimal, participants []domain.PersonID, in *Inputs) {
	n := int64(len(participants))
	if n == 0 {
		return
	}

	defaultPercent := hundred.DivRound(decimal.NewFromInt(n), domain.MoneyScale)
	defaultAmount := total.DivRound(decimal.NewFromInt(n), domain.MoneyScale)

	for _, id := range participants {
		if _, ok := in.Percentages[id]; !ok {
			in.Percentages[id] = defaultPercent
		}
		if _, ok := in.Amounts[id]; !ok {
			in.Amounts[id] = defaultAmount
		}
		if _, ok := in.Shares[id]; !ok {
			in.Shares[id] = domain.MinShares
		}
		if _, ok := in.Adjustments[id]; !ok {
			in.Adjustments[id] = decimal.Zero
		}
	}
}

// Calculate converts the total and the raw inputs into the final
// per-participant breakdown for the given method. It is a pure function of
// its arguments; missing entries fall back to the method's neutral value
// (zero, or one share).
//
// Equal and share division is not penny-exact when the total does not divide
// evenly; the remainder is intentionally not redistributed.
func Calculate(method domain.SplitMethod, total decimal.Decimal, participants []domain.PersonID, in Inputs) map[domain.PersonID]domain.SplitDetail {
	splits := make(map[domain.PersonID]domain.SplitDetail, len(participants))
	if len(participants) == 0 {
		return splits
	}

	switch method {
	case domain.SplitMethodEqually:
		calculateEqually(total, participants, splits)
	case domain.SplitMethodPercentages:
		calculatePercentages(total, participants, in, splits)
	case domain.SplitMethodExactAmounts:
		calculateExactAmounts(total, participants, in, splits)
	case domain.SplitMethodShares:
		calculateShares(total, participants, in, splits)
	case domain.SplitMethodAdjustments:
		calculateAdjustments(total, participants, in, splits)
	}

	return splits
}

// Balanced reports whether the current inputs satisfy the method's balance
// predicate:
//
//	EQUALLY, SHARES    always, once there is at least one participant
//	EXACT_AMOUNTS      sum of entered amounts equals total within 0.01
//	PERCENTAGES        sum of entered percentages equals 100 within 0.1
//	ADJUSTMENTS        always (no sum constraint is enforced on adjustments)
func Balanced(method domain.SplitMethod, total decimal.Decimal, participants []domain.PersonID, in Inputs) bool {
	if len(participants) == 0 {
		return false
	}

	switch method {
	case domain.SplitMethodExactAmounts:
		sum := decimal.Zero
		for _, id := range participants {
			sum = sum.Add(in.Amounts[id])
		}
		return sum.Sub(total).Abs().LessThanOrEqual(domain.AmountTolerance)
	case domain.SplitMethodPercentages:
		sum := decimal.Zero
		for _, id := range participants {
			sum = sum.Add(in.Percentages[id])
		}
		return sum.Sub(hundred).Abs().LessThanOrEqual(domain.PercentTolerance)
	default:
		return true
	}
}

func calculateEqually(total decimal.Decimal, participants []domain.PersonID, splits map[domain.PersonID]domain.SplitDetail) {
	n := decimal.NewFromInt(int64(len(participants)))
	amount := total.DivRound(n, domain.MoneyScale)
	percent := hundred.DivRound(n, domain.MoneyScale)

	for _, id := range participants {
		splits[id] = domain.SplitDetail{
			Amount:     amount,
			Percentage: percent,
			Shares:     domain.MinShares,
		}
	}
}

func calculatePercentages(total decimal.Decimal, participants []domain.PersonID, in Inputs, splits map[domain.PersonID]domain.SplitDetail) {
	for _, id := range participants {
		pct := in.Percentages[id]
		amount := domain.RoundMoney(pct.Mul(total).Div(hundred))
		splits[id] = domain.SplitDetail{
			Amount:     amount,
			Percentage: pct,
			Shares:     domain.MinShares,
		}
	}
}

func calculateExactAmounts(total decimal.Decimal, participants []domain.PersonID, in Inputs, splits map[domain.PersonID]domain.SplitDetail) {
	for _, id := range participants {
		amount := domain.RoundMoney(in.Amounts[id])
		splits[id] = domain.SplitDetail{
			Amount:     amount,
			Percentage: percentOf(amount, total),
			Shares:     domain.MinShares,
		}
	}
}

func calculateShares(total decimal.Decimal, participants []domain.PersonID, in Inputs, splits map[domain.PersonID]domain.SplitDetail) {
	totalShares := int64(0)
	for _, id := range participants {
		totalShares += int64(shareCount(in, id))
	}
	totalSharesDec := decimal.NewFromInt(totalShares)

	for _, id := range participants {
		shares := shareCount(in, id)
		sharesDec := decimal.NewFromInt(int64(shares))
		amount := domain.RoundMoney(sharesDec.Mul(total).Div(totalSharesDec))
		splits[id] = domain.SplitDetail{
			Amount:     amount,
			Percentage: sharesDec.Mul(hundred).DivRound(totalSharesDec, domain.MoneyScale),
			Shares:     shares,
		}
	}
}

func calculateAdjustments(total decimal.Decimal, participants []domain.PersonID, in Inputs, splits map[domain.PersonID]domain.SplitDetail) {
	n := decimal.NewFromInt(int64(len(participants)))

	adjustmentSum := decimal.Zero
	for _, id := range participants {
		adjustmentSum = adjustmentSum.Add(in.Adjustments[id])
	}

	// Everyone starts from an equal base of what is left after adjustments.
	// The zero floor below means the sum of finals can fall short of the
	// total when an adjustment exceeds the base; that leak is accepted here.
	base := total.Sub(adjustmentSum).Div(n)

	for _, id := range participants {
		adjustment := in.Adjustments[id]
		final := base.Add(adjustment)
		if final.IsNegative() {
			final = decimal.Zero
		}
		final = domain.RoundMoney(final)
		splits[id] = domain.SplitDetail{
			Amount:     final,
			Percentage: percentOf(final, total),
			Shares:     domain.MinShares,
			Adjustment: adjustment,
		}
	}
}

// percentOf returns amount/total*100 rounded to two places, or zero when the
// total is zero.
func percentOf(amount, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(hundred).DivRound(total, domain.MoneyScale)
}

// shareCount returns the entered share count clamped to the valid range,
// treating a missing entry as the minimum.
func shareCount(in Inputs, id domain.PersonID) int {
	shares, ok := in.Shares[id]
	if !ok || shares < domain.MinShares {
		return domain.MinShares
	}
	if shares > domain.MaxShares {
		return domain.MaxShares
	}
	return shares
}
