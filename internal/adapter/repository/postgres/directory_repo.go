package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tallyup/tally-backend/internal/domain"
)

// directoryRepository implements domain.DirectoryAdmin
type directoryRepository struct {
	db *DB
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *DB) domain.DirectoryAdmin {
	return &directoryRepository{db: db}
}

// ListPeople retrieves every person in the directory
func (r *directoryRepository) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM people ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	var people []*domain.Person
	for rows.Next() {
		var person domain.Person
		if err := rows.Scan(&person.ID, &person.Name); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, &person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate people: %w", err)
	}

	return people, nil
}

// PersonByID retrieves a single person by id
func (r *directoryRepository) PersonByID(ctx context.Context, id domain.PersonID) (*domain.Person, error) {
	var person domain.Person
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM people WHERE id = $1`, id,
	).Scan(&person.ID, &person.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("person not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get person by ID: %w", err)
	}

	return &person, nil
}

// ListGroups retrieves every group in the directory with its members
func (r *directoryRepository) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		var group domain.Group
		if err := rows.Scan(&group.ID, &group.Name); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	for _, group := range groups {
		members, err := r.groupMembers(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		group.Members = members
	}

	return groups, nil
}

// GroupByID retrieves a single group by id with its members
func (r *directoryRepository) GroupByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	var group domain.Group
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM groups WHERE id = $1`, id,
	).Scan(&group.ID, &group.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get group by ID: %w", err)
	}

	members, err := r.groupMembers(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	group.Members = members

	return &group, nil
}

// CreatePerson adds a person to the directory
func (r *directoryRepository) CreatePerson(ctx context.Context, person *domain.Person) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO people (id, name) VALUES ($1, $2)`,
		person.ID, person.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

// CreateGroup adds a group and its memberships to the directory
func (r *directoryRepository) CreateGroup(ctx context.Context, group *domain.Group) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO groups (id, name) VALUES ($1, $2)`,
		group.ID, group.Name,
	); err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	for _, member := range group.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, person_id) VALUES ($1, $2)`,
			group.ID, member,
		); err != nil {
			return fmt.Errorf("failed to add group member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *directoryRepository) groupMembers(ctx context.Context, groupID uuid.UUID) ([]domain.PersonID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT person_id FROM group_members WHERE group_id = $1 ORDER BY person_id`, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var members []domain.PersonID
	for rows.Next() {
		var member domain.PersonID
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}

	return members, nil
}
