package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionTypeExpense TransactionType = "EXPENSE"
	TransactionTypeIncome  TransactionType = "INCOME"
)

// TransactionDraft is the finalize-time snapshot of a wizard session.
// It is immutable once produced; the persistence layer owns it thereafter.
type TransactionDraft struct {
	ID           uuid.UUID
	Type         TransactionType
	Amount       decimal.Decimal
	CurrencyCode string
	Name         string
	Category     Category
	IsSplit      bool
	PayerID      *PersonID
	Participants []PersonID
	Method       *SplitMethod
	Splits       map[PersonID]SplitDetail
	CreatedAt    time.Time
}

// Validate ensures the draft adheres to domain rules
// Returns an error if validation fails
func (d *TransactionDraft) Validate() error {
	if d.Type != TransactionTypeExpense && d.Type != TransactionTypeIncome {
		return errors.New("draft type must be EXPENSE or INCOME")
	}

	if d.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("draft amount must be positive")
	}

	if d.Name == "" {
		return errors.New("draft name cannot be empty")
	}

	if d.CurrencyCode == "" {
		return errors.New("draft currency code cannot be empty")
	}

	if !d.IsSplit {
		return nil
	}

	// Split drafts additionally carry payer, participants, method and splits
	if d.PayerID == nil {
		return errors.New("split draft must have a payer")
	}

	if len(d.Participants) < 2 {
		return errors.New("split draft must have at least two participants")
	}

	payerIncluded := false
	for _, id := range d.Participants {
		if id == *d.PayerID {
			payerIncluded = true
			break
		}
	}
	if !payerIncluded {
		return errors.New("payer must be one of the participants")
	}

	if d.Method == nil || !d.Method.Valid() {
		return errors.New("split draft must have a valid split method")
	}

	if len(d.Splits) != len(d.Participants) {
		return errors.New("split draft must have a split detail per participant")
	}
	for _, id := range d.Participants {
		if _, ok := d.Splits[id]; !ok {
			return errors.New("split draft must have a split detail per participant")
		}
	}

	return nil
}
