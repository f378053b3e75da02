package wizard

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tallyup/tally-backend/internal/domain"
)

// AmountDetailsState holds the first wizard stage: total amount, name,
// category and transaction type. All numeric input is silently clamped;
// setters never fail.
type AmountDetailsState struct {
	amount          decimal.Decimal
	name            string
	category        domain.Category
	txType          domain.TransactionType
	requireCategory bool
}

// NewAmountDetailsState creates an empty first stage.
// requireCategory decides whether a category selection gates advancement;
// product variants disagree, so it is a policy flag rather than baked in.
func NewAmountDetailsState(requireCategory bool) *AmountDetailsState {
	return &AmountDetailsState{
		txType:          domain.TransactionTypeExpense,
		requireCategory: requireCategory,
	}
}

// SetAmount parses raw user input into the total amount.
// Non-numeric or negative input is treated as zero; no error is raised.
func (s *AmountDetailsState) SetAmount(raw string) {
	s.amount = domain.ParseAmount(raw)
}

// SetName sets the transaction name
func (s *AmountDetailsState) SetName(name string) {
	s.name = name
}

// SetCategory selects a category. An unknown value clears the selection
// rather than erroring, matching the clamp-don't-fail input policy.
func (s *AmountDetailsState) SetCategory(c domain.Category) {
	if !c.Valid() {
		s.category = domain.CategoryNone
		return
	}
	s.category = c
}

// SetType sets the transaction direction. Unknown values keep the default.
func (s *AmountDetailsState) SetType(t domain.TransactionType) {
	if t == domain.TransactionTypeExpense || t == domain.TransactionTypeIncome {
		s.txType = t
	}
}

// Amount returns the parsed total
func (s *AmountDetailsState) Amount() decimal.Decimal {
	return s.amount
}

// Name returns the transaction name
func (s *AmountDetailsState) Name() string {
	return s.name
}

// Category returns the selected category, or CategoryNone
func (s *AmountDetailsState) Category() domain.Category {
	return s.category
}

// Type returns the transaction direction
func (s *AmountDetailsState) Type() domain.TransactionType {
	return s.txType
}

// CanAdvance reports whether this stage is complete: a positive amount, a
// non-blank name, and a category when the policy requires one.
func (s *AmountDetailsState) CanAdvance() bool {
	if !s.amount.IsPositive() {
		return false
	}
	if strings.TrimSpace(s.name) == "" {
		return false
	}
	if s.requireCategory && s.category == domain.CategoryNone {
		return false
	}
	return true
}

// ValidationMessage describes the first unmet guard, or "" when complete
func (s *AmountDetailsState) ValidationMessage() string {
	if !s.amount.IsPositive() {
		return "amount must be greater than zero"
	}
	if strings.TrimSpace(s.name) == "" {
		return "name cannot be empty"
	}
	if s.requireCategory && s.category == domain.CategoryNone {
		return "select a category"
	}
	return ""
}
