package seeder

import (
	"context"

	"github.com/google/uuid"
	"github.com/tallyup/tally-backend/internal/domain"
)

// Fixed UUIDs for the demo directory, so re-runs are idempotent and dev
// tokens can reference a stable person id.
var (
	DEMO_ALICE = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	DEMO_BOB   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	DEMO_CARLA = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	DEMO_DAN   = uuid.MustParse("00000000-0000-0000-0000-000000000004")

	DEMO_FLATMATES = uuid.MustParse("00000000-0000-0000-0000-000000000101")
)

// DirectorySeeder ensures the directory has demo people and groups to pick
// from on a fresh install
type DirectorySeeder struct {
	repo domain.DirectoryAdmin
}

// NewDirectorySeeder creates a new DirectorySeeder instance
func NewDirectorySeeder(repo domain.DirectoryAdmin) *DirectorySeeder {
	return &DirectorySeeder{
		repo: repo,
	}
}

// Seed ensures the demo people and groups exist in the directory
// If an entry doesn't exist, it creates it
func (s *DirectorySeeder) Seed(ctx context.Context) error {
	people := []domain.Person{
		{ID: DEMO_ALICE, Name: "Alice"},
		{ID: DEMO_BOB, Name: "Bob"},
		{ID: DEMO_CARLA, Name: "Carla"},
		{ID: DEMO_DAN, Name: "Dan"},
	}

	for _, person := range people {
		if _, err := s.repo.PersonByID(ctx, person.ID); err == nil {
			continue
		}
		p := person
		if err := s.repo.CreatePerson(ctx, &p); err != nil {
			return err
		}
	}

	groups := []domain.Group{
		{
			ID:      DEMO_FLATMATES,
			Name:    "Flatmates",
			Members: []domain.PersonID{DEMO_ALICE, DEMO_BOB, DEMO_CARLA},
		},
	}

	for _, group := range groups {
		if _, err := s.repo.GroupByID(ctx, group.ID); err == nil {
			continue
		}
		g := group
		if err := s.repo.CreateGroup(ctx, &g); err != nil {
			return err
		}
	}

	return nil
}
