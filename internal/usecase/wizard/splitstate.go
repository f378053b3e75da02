package wizard

import (
	"github.com/shopspring/decimal"
	"github.com/tallyup/tally-backend/internal/domain"
	"github.com/tallyup/tally-backend/internal/usecase/splitter"
)

// SplitCalculationState holds the third wizard stage: the chosen method and
// the raw per-participant inputs. The final breakdown is always derived from
// the other two stages' amount and participant set; nothing here is stored
// pre-computed.
type SplitCalculationState struct {
	details      *AmountDetailsState
	participants *ParticipantState
	method       domain.SplitMethod
	inputs       splitter.Inputs
}

// NewSplitCalculationState creates the third stage over the first two.
// The method starts at EQUALLY.
func NewSplitCalculationState(details *AmountDetailsState, participants *ParticipantState) *SplitCalculationState {
	return &SplitCalculationState{
		details:      details,
		participants: participants,
		method:       domain.SplitMethodEqually,
		inputs:       splitter.NewInputs(),
	}
}

// Method returns the active split method
func (s *SplitCalculationState) Method() domain.SplitMethod {
	return s.method
}

// SetMethod switches the active method. Switching discards all prior
// per-participant inputs and re-seeds defaults; setting the method already
// active is a no-op so typed values survive.
func (s *SplitCalculationState) SetMethod(m domain.SplitMethod) {
	if !m.Valid() || m == s.method {
		return
	}
	s.method = m
	s.inputs = splitter.NewInputs()
	s.InitializeDefaults()
}

// UpdatePercentage records a participant's percentage, clamped to [0,100].
// Updating a non-participant is a caller bug and panics.
func (s *SplitCalculationState) UpdatePercentage(id domain.PersonID, value decimal.Decimal) {
	s.participants.mustContain(id)
	if value.IsNegative() {
		value = decimal.Zero
	} else if value.GreaterThan(decimal.NewFromInt(100)) {
		value = decimal.NewFromInt(100)
	}
	s.inputs.Percentages[id] = value
}

// UpdateAmount records a participant's exact amount, clamped to ≥ 0
func (s *SplitCalculationState) UpdateAmount(id domain.PersonID, value decimal.Decimal) {
	s.participants.mustContain(id)
	if value.IsNegative() {
		value = decimal.Zero
	}
	s.inputs.Amounts[id] = domain.RoundMoney(value)
}

// UpdateShares records a participant's share count, clamped to [1,10]
func (s *SplitCalculationState) UpdateShares(id domain.PersonID, count int) {
	s.participants.mustContain(id)
	if count < domain.MinShares {
		count = domain.MinShares
	} else if count > domain.MaxShares {
		count = domain.MaxShares
	}
	s.inputs.Shares[id] = count
}

// UpdateAdjustment records a participant's adjustment. Adjustments are
// deliberately unclamped: negative values mean "owes less than the base".
func (s *SplitCalculationState) UpdateAdjustment(id domain.PersonID, value decimal.Decimal) {
	s.participants.mustContain(id)
	s.inputs.Adjustments[id] = value
}

// InitializeDefaults seeds default inputs for every participant that has no
// entry yet. Values the user already typed are never overwritten.
func (s *SplitCalculationState) InitializeDefaults() {
	splitter.SeedDefaults(s.details.Amount(), s.participants.Participants(), &s.inputs)
}

// CalculatedSplits derives the final per-participant breakdown from the
// current amount, participant set, method and raw inputs.
func (s *SplitCalculationState) CalculatedSplits() map[domain.PersonID]domain.SplitDetail {
	return splitter.Calculate(s.method, s.details.Amount(), s.participants.Participants(), s.inputs)
}

// IsBalanced reports whether the raw inputs satisfy the active method's
// balance predicate.
func (s *SplitCalculationState) IsBalanced() bool {
	return splitter.Balanced(s.method, s.details.Amount(), s.participants.Participants(), s.inputs)
}
