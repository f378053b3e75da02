// Package sqlite provides a SQLite-backed implementation of the directory
// and draft repositories, for single-binary local runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tallyup/tally-backend/internal/domain"
)

// Ensure Store implements both repository interfaces
var (
	_ domain.DirectoryAdmin  = (*Store)(nil)
	_ domain.DraftRepository = (*Store)(nil)
)

// Store implements the directory and draft repositories over one SQLite file
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- directory ---

// ListPeople retrieves every person in the directory
func (s *Store) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM people ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	var people []*domain.Person
	for rows.Next() {
		var idStr, name string
		if err := rows.Scan(&idStr, &name); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse person id: %w", err)
		}
		people = append(people, &domain.Person{ID: id, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate people: %w", err)
	}

	return people, nil
}

// PersonByID retrieves a single person by id
func (s *Store) PersonByID(ctx context.Context, id domain.PersonID) (*domain.Person, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM people WHERE id = ?", id.String(),
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	return &domain.Person{ID: id, Name: name}, nil
}

// ListGroups retrieves every group in the directory with its members
func (s *Store) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM groups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		var idStr, name string
		if err := rows.Scan(&idStr, &name); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse group id: %w", err)
		}
		groups = append(groups, &domain.Group{ID: id, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for _, group := range groups {
		members, err := s.groupMembers(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		group.Members = members
	}

	return groups, nil
}

// GroupByID retrieves a single group by id with its members
func (s *Store) GroupByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM groups WHERE id = ?", id.String(),
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := s.groupMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.Group{ID: id, Name: name, Members: members}, nil
}

// CreatePerson adds a person to the directory
func (s *Store) CreatePerson(ctx context.Context, person *domain.Person) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO people (id, name) VALUES (?, ?)",
		person.ID.String(), person.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

// CreateGroup adds a group and its memberships to the directory
func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO groups (id, name) VALUES (?, ?)",
		group.ID.String(), group.Name,
	); err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	for _, member := range group.Members {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, person_id) VALUES (?, ?)",
			group.ID.String(), member.String(),
		); err != nil {
			return fmt.Errorf("failed to add group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) groupMembers(ctx context.Context, groupID uuid.UUID) ([]domain.PersonID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT person_id FROM group_members WHERE group_id = ? ORDER BY person_id",
		groupID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var members []domain.PersonID
	for rows.Next() {
		var memberStr string
		if err := rows.Scan(&memberStr); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		member, err := uuid.Parse(memberStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse member id: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return members, nil
}

// --- drafts ---

// Create persists a finalized draft with its per-participant splits
func (s *Store) Create(ctx context.Context, draft *domain.TransactionDraft) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var payerID interface{}
	if draft.PayerID != nil {
		payerID = draft.PayerID.String()
	}
	var method interface{}
	if draft.Method != nil {
		method = string(*draft.Method)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO drafts (id, type, amount, currency_code, name, category, is_split, payer_id, method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.ID.String(),
		string(draft.Type),
		draft.Amount.String(),
		draft.CurrencyCode,
		draft.Name,
		string(draft.Category),
		draft.IsSplit,
		payerID,
		method,
		draft.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert draft: %w", err)
	}

	for _, participant := range draft.Participants {
		detail := draft.Splits[participant]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO draft_splits (draft_id, person_id, amount, percentage, shares, adjustment)
			VALUES (?, ?, ?, ?, ?, ?)`,
			draft.ID.String(),
			participant.String(),
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
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.TransactionDraft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, amount, currency_code, name, category, is_split, payer_id, method, created_at
		FROM drafts
		WHERE id = ?`, id.String())

	draft, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("draft not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	if err := s.loadSplits(ctx, draft); err != nil {
		return nil, err
	}

	return draft, nil
}

// List retrieves persisted drafts, newest first
func (s *Store) List(ctx context.Context, limit, offset int) ([]*domain.TransactionDraft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, amount, currency_code, name, category, is_split, payer_id, method, created_at
		FROM drafts
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*domain.TransactionDraft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drafts: %w", err)
	}

	for _, draft := range drafts {
		if err := s.loadSplits(ctx, draft); err != nil {
			return nil, err
		}
	}

	return drafts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraft(row rowScanner) (*domain.TransactionDraft, error) {
	var draft domain.TransactionDraft
	var idStr, draftType, amountStr, category string
	var payerID, method sql.NullString
	var createdAt int64

	err := row.Scan(
		&idStr,
		&draftType,
		&amountStr,
		&draft.CurrencyCode,
		&draft.Name,
		&category,
		&draft.IsSplit,
		&payerID,
		&method,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if draft.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("failed to parse draft id: %w", err)
	}
	draft.Type = domain.TransactionType(draftType)
	draft.Category = domain.Category(category)
	draft.CreatedAt = time.Unix(createdAt, 0).UTC()

	if draft.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}

	if payerID.Valid {
		parsed, err := uuid.Parse(payerID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse payer id: %w", err)
		}
		draft.PayerID = &parsed
	}
	if method.Valid {
		m := domain.SplitMethod(method.String)
		draft.Method = &m
	}

	return &draft, nil
}

func (s *Store) loadSplits(ctx context.Context, draft *domain.TransactionDraft) error {
	if !draft.IsSplit {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT person_id, amount, percentage, shares, adjustment
		FROM draft_splits
		WHERE draft_id = ?
		ORDER BY person_id`, draft.ID.String())
	if err != nil {
		return fmt.Errorf("failed to list draft splits: %w", err)
	}
	defer rows.Close()

	draft.Splits = make(map[domain.PersonID]domain.SplitDetail)
	for rows.Next() {
		var personStr, amountStr, percentageStr, adjustmentStr string
		var shares int
		if err := rows.Scan(&personStr, &amountStr, &percentageStr, &shares, &adjustmentStr); err != nil {
			return fmt.Errorf("failed to scan draft split: %w", err)
		}

		personID, err := uuid.Parse(personStr)
		if err != nil {
			return fmt.Errorf("failed to parse split person id: %w", err)
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
