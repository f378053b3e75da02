package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/tallyup/tally-backend/internal/domain"
)

// MockDirectoryAdmin is a mock implementation of domain.DirectoryAdmin
type MockDirectoryAdmin struct {
	mock.Mock
}

func (m *MockDirectoryAdmin) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Person), args.Error(1)
}

func (m *MockDirectoryAdmin) PersonByID(ctx context.Context, id domain.PersonID) (*domain.Person, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Person), args.Error(1)
}

func (m *MockDirectoryAdmin) ListGroups(ctx context.Context) ([]*domain.Group, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Group), args.Error(1)
}

func (m *MockDirectoryAdmin) GroupByID(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockDirectoryAdmin) CreatePerson(ctx context.Context, person *domain.Person) error {
	args := m.Called(ctx, person)
	return args.Error(0)
}

func (m *MockDirectoryAdmin) CreateGroup(ctx context.Context, group *domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func TestDirectorySeeder_Seed_EmptyDirectory(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockDirectoryAdmin)
	seeder := NewDirectorySeeder(mockRepo)

	mockRepo.On("PersonByID", ctx, mock.AnythingOfType("uuid.UUID")).Return(nil, errors.New("not found"))
	mockRepo.On("GroupByID", ctx, mock.AnythingOfType("uuid.UUID")).Return(nil, errors.New("not found"))

	mockRepo.On("CreatePerson", ctx, mock.MatchedBy(func(p *domain.Person) bool {
		return p.Name != ""
	})).Return(nil)
	mockRepo.On("CreateGroup", ctx, mock.MatchedBy(func(g *domain.Group) bool {
		return g.ID == DEMO_FLATMATES && len(g.Members) == 3
	})).Return(nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNumberOfCalls(t, "CreatePerson", 4)
	mockRepo.AssertNumberOfCalls(t, "CreateGroup", 1)
}

func TestDirectorySeeder_Seed_AlreadySeeded(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockDirectoryAdmin)
	seeder := NewDirectorySeeder(mockRepo)

	mockRepo.On("PersonByID", ctx, mock.AnythingOfType("uuid.UUID")).Return(&domain.Person{ID: DEMO_ALICE, Name: "Alice"}, nil)
	mockRepo.On("GroupByID", ctx, mock.AnythingOfType("uuid.UUID")).Return(&domain.Group{ID: DEMO_FLATMATES, Name: "Flatmates"}, nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	mockRepo.AssertNumberOfCalls(t, "CreatePerson", 0)
	mockRepo.AssertNumberOfCalls(t, "CreateGroup", 0)
}

func TestDirectorySeeder_Seed_CreateFails(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockDirectoryAdmin)
	seeder := NewDirectorySeeder(mockRepo)

	mockRepo.On("PersonByID", ctx, mock.AnythingOfType("uuid.UUID")).Return(nil, errors.New("not found"))
	mockRepo.On("CreatePerson", ctx, mock.Anything).Return(errors.New("db down"))

	err := seeder.Seed(ctx)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
