package domain

import (
	"context"

	"github.com/google/uuid"
)

// Directory defines the read-only view of the external person directory.
// The core never mutates the directory.
type Directory interface {
	// ListPeople retrieves every person in the directory
	ListPeople(ctx context.Context) ([]*Person, error)

	// PersonByID retrieves a single person by id
	PersonByID(ctx context.Context, id PersonID) (*Person, error)

	// ListGroups retrieves every group in the directory
	ListGroups(ctx context.Context) ([]*Group, error)

	// GroupByID retrieves a single group by id
	GroupByID(ctx context.Context, id uuid.UUID) (*Group, error)
}

// DraftRepository defines the persistence collaborator that receives
// finalized drafts. The wizard only hands drafts off; readback methods
// exist for the API surface, not for the core.
type DraftRepository interface {
	// Create persists a finalized draft
	Create(ctx context.Context, draft *TransactionDraft) error

	// GetByID retrieves a persisted draft by id
	GetByID(ctx context.Context, id uuid.UUID) (*TransactionDraft, error)

	// List retrieves persisted drafts, newest first
	List(ctx context.Context, limit, offset int) ([]*TransactionDraft, error)
}

// DirectoryAdmin extends Directory with the write operations the seeder
// needs. Production callers only ever see Directory.
type DirectoryAdmin interface {
	Directory

	// CreatePerson adds a person to the directory
	CreatePerson(ctx context.Context, person *Person) error

	// CreateGroup adds a group to the directory
	CreateGroup(ctx context.Context, group *Group) error
}
