package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallyup/tally-backend/internal/domain"
)

// draftRepository implements domain.DraftRepository
type draftRepository struct {
	db *DB
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(db *DB) domain.DraftRepository {
	return &draftRepository{db: db}
}

// Create persists a finalized draft with its per-participant splits
func (r *draftRepository) Create(ctx context.Context, draft *domain.TransactionDraft) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var payerID interface{}
	if draft.PayerID != nil {
		payerID = *draft.PayerID
	}
	var method interface{}
	if draft.Method != nil {
		method = string(*draft.Method)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO drafts (id, type, amount, currency_code, name, category, is_split, payer_id, method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		draft.ID,
		string(draft.Type),
		draft.Amount.String(),
		draft.CurrencyCode,
		draft.Name,
		string(draft.Category),
		draft.IsSplit,
		payerID,
		method,
		draft.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}

	for _, participant := range draft.Participants {
		detail := draft.Splits[participant]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO draft_splits (draft_id, person_id, amount, percentage, shares, adjustment)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			draft.ID,
			participant,
			detail.Amount.String(),
			detail.Percentage.String(),
			detail.Shares,
			detail.Adjustment.String(),
		); err != nil {
			return fmt.Errorf("failed to insert draft split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a persisted draft by id
func (r *draftRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TransactionDraft, error) {
	draft, err := r.scanDraft(r.db.QueryRowContext(ctx, `
		SELECT id, type, amount, currency_code, name, category, is_split, payer_id, method, created_at
		FROM drafts
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("draft not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get draft by ID: %w", err)
	}

	if err := r.loadSplits(ctx, draft); err != nil {
		return nil, err
	}

	return draft, nil
}

// List retrieves persisted drafts, newest first
func (r *draftRepository) List(ctx context.Context, limit, offset int) ([]*domain.TransactionDraft, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, amount, currency_code, name, category, is_split, payer_id, method, created_at
		FROM drafts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*domain.TransactionDraft
	for rows.Next() {
		draft, err := r.scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drafts: %w", err)
	}

	for _, draft := range drafts {
		if err := r.loadSplits(ctx, draft); err != nil {
			return nil, err
		}
	}

	return drafts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *draftRepository) scanDraft(row rowScanner) (*domain.TransactionDraft, error) {
	var draft domain.TransactionDraft
	var draftType, category string
	var amountStr string
	var payerID sql.NullString
	var method sql.NullString

	err := row.Scan(
		&draft.ID,
		&draftType,
		&amountStr,
		&draft.CurrencyCode,
		&draft.Name,
		&category,
		&draft.IsSplit,
		&payerID,
		&method,
		&draft.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	draft.Type = domain.TransactionType(draftType)
	draft.Category = domain.Category(category)

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	draft.Amount = amount

	if payerID.Valid {
		parsed, err := uuid.Parse(payerID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse payer_id: %w", err)
		}
		draft.PayerID = &parsed
	}
	if method.Valid {
		m := domain.SplitMethod(method.String)
		draft.Method = &m
	}

	return &draft, nil
}

func (r *draftRepository) loadSplits(ctx context.Context, draft *domain.TransactionDraft) error {
	if !draft.IsSplit {
		return nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT person_id, amount, percentage, shares, adjustment
		FROM draft_splits
		WHERE draft_id = $1
		ORDER BY person_id
	`, draft.ID)
	if err != nil {
		return fmt.Errorf("failed to list draft splits: %w", err)
	}
	defer rows.Close()

	draft.Splits = make(map[domain.PersonID]domain.SplitDetail)
	for rows.Next() {
		var personID domain.PersonID
		var amountStr, percentageStr, adjustmentStr string
		var shares int
		if err := rows.Scan(&personID, &amountStr, &percentageStr, &shares, &adjustmentStr); err != nil {
			return fmt.Errorf("failed to scan draft split: %w", err)
		}

		detail := domain.SplitDetail{Shares: shares}
		if detail.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return fmt.Errorf("failed to parse split amount: %w", err)
		}
		if detail.Percentage, err = decimal.NewFromString(percentageStr); err != nil {
			return fmt.Errorf("failed to parse split percentage: %w", err)
		}
		if detail.Adjustment, err = decimal.NewFromString(adjustmentStr); err != nil {
			return fmt.Errorf("failed to parse split adjustment: %w", err)
		}

		draft.Participants = append(draft.Participants, personID)
		draft.Splits[personID] = detail
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate draft splits: %w", err)
	}

	return nil
}
