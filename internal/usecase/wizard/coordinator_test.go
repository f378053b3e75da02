package wizard

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tallyup/tally-backend/internal/domain"
)

// MockDraftRepository is a mock implementation of domain.DraftRepository
type MockDraftRepository struct {
	mock.Mock
}

func (m *MockDraftRepository) Create(ctx context.Context, draft *domain.TransactionDraft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

func (m *MockDraftRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TransactionDraft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransactionDraft), args.Error(1)
}

func (m *MockDraftRepository) List(ctx context.Context, limit, offset int) ([]*domain.TransactionDraft, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.TransactionDraft), args.Error(1)
}

// fillStageOne completes the amount stage
func fillStageOne(c *Coordinator) {
	c.SetAmount("100")
	c.SetName("Team dinner")
	c.SetCategory(domain.CategoryFood)
}

func newTestCoordinator(clock Clock, drafts domain.DraftRepository) *Coordinator {
	return NewCoordinator(Config{
		Clock:        clock,
		Drafts:       drafts,
		CurrencyCode: "USD",
	})
}

func TestCoordinator_AdvanceBlockedUntilStageComplete(t *testing.T) {
	clock := newFakeClock()
	c := newTestCoordinator(clock, nil)

	err := c.Advance()
	assert.ErrorIs(t, err, ErrAdvanceBlocked)
	assert.Equal(t, StageAmount, c.Stage(), "stage unchanged after refusal")

	fillStageOne(c)
	require.NoError(t, c.Advance())
	assert.Equal(t, StageParticipants, c.Stage())
}

func TestCoordinator_TransitionCooldown(t *testing.T) {
	clock := newFakeClock()
	c := newTestCoordinator(clock, nil)
	fillStageOne(c)
	c.AddParticipant(uuid.New())
	c.AddParticipant(uuid.New())
	c.EnableSplit(true)

	require.NoError(t, c.Advance())

	// A second advance inside the cooldown window is refused even though
	// the next stage's guard is satisfied.
	err := c.Advance()
	assert.ErrorIs(t, err, ErrTransitionInFlight)
	assert.Equal(t, StageParticipants, c.Stage())

	clock.Advance(TransitionCooldown)
	require.NoError(t, c.Advance())
	assert.Equal(t, StageSplit, c.Stage())
}

func TestCoordinator_AdvanceSeedsSplitDefaults(t *testing.T) {
	clock := newFakeClock()
	c := newTestCoordinator(clock, nil)
	fillStageOne(c)

	a, b := uuid.New(), uuid.New()
	c.EnableSplit(true)
	c.AddParticipant(a)
	c.AddParticipant(b)

	require.NoError(t, c.Advance())
	clock.Advance(TransitionCooldown)
	require.NoError(t, c.Advance())

	splits := c.Split().CalculatedSplits()
	require.Len(t, splits, 2)
	assert.Equal(t, 1, splits[a].Shares)
}

func TestCoordinator_Retreat(t *testing.T) {
	clock := newFakeClock()
	c := newTestCoordinator(clock, nil)

	assert.ErrorIs(t, c.Retreat(), ErrAtFirstStage)

	fillStageOne(c)
	require.NoError(t, c.Advance())
	require.NoError(t, c.Retreat())
	assert.Equal(t, StageAmount, c.Stage())
}

func TestCoordinator_FinalizePersonal(t *testing.T) {
	drafts := new(MockDraftRepository)
	drafts.On("Create", mock.Anything, mock.AnythingOfType("*domain.TransactionDraft")).Return(nil)

	clock := newFakeClock()
	c := newTestCoordinator(clock, drafts)
	fillStageOne(c)

	draft, err := c.Finalize(context.Background())
	require.NoError(t, err)
	assert.False(t, draft.IsSplit)
	assert.Nil(t, draft.PayerID)
	assert.Nil(t, draft.Method)
	assert.Equal(t, "Team dinner", draft.Name)
	assert.Equal(t, "USD", draft.CurrencyCode)
	assert.Equal(t, clock.Now(), draft.CreatedAt)
	drafts.AssertExpectations(t)
}

func TestCoordinator_FinalizeSplit(t *testing.T) {
	drafts := new(MockDraftRepository)
	drafts.On("Create", mock.Anything, mock.AnythingOfType("*domain.TransactionDraft")).Return(nil)

	clock := newFakeClock()
	c := newTestCoordinator(clock, drafts)
	fillStageOne(c)

	a, b := uuid.New(), uuid.New()
	c.EnableSplit(true)
	c.AddParticipant(a)
	c.AddParticipant(b)

	draft, err := c.Finalize(context.Background())
	require.NoError(t, err)
	assert.True(t, draft.IsSplit)
	require.NotNil(t, draft.PayerID)
	assert.Equal(t, a, *draft.PayerID)
	require.NotNil(t, draft.Method)
	assert.Equal(t, domain.SplitMethodEqually, *draft.Method)
	assert.Len(t, draft.Participants, 2)
	assert.Len(t, draft.Splits, 2)
	assert.NoError(t, draft.Validate())
}

func TestCoordinator_FinalizeRefusedWhenUnbalanced(t *testing.T) {
	clock := newFakeClock()
	c := newTestCoordinator(clock, nil)
	fillStageOne(c)

	a, b := uuid.New(), uuid.New()
	c.EnableSplit(true)
	c.AddParticipant(a)
	c.AddParticipant(b)

	require.NoError(t, c.Advance())
	clock.Advance(TransitionCooldown)
	require.NoError(t, c.Advance())

	c.SetMethod(domain.SplitMethodExactAmounts)
	c.UpdateAmount(a, domain.ParseAmount("10"))
	c.UpdateAmount(b, domain.ParseAmount("10"))

	_, err := c.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrNotBalanced)
}

func TestCoordinator_FinalizeRepeatable(t *testing.T) {
	drafts := new(MockDraftRepository)
	drafts.On("Create", mock.Anything, mock.AnythingOfType("*domain.TransactionDraft")).Return(nil)

	clock := newFakeClock()
	c := newTestCoordinator(clock, drafts)
	fillStageOne(c)

	a, b := uuid.New(), uuid.New()
	c.EnableSplit(true)
	c.AddParticipant(a)
	c.AddParticipant(b)

	first, err := c.Finalize(context.Background())
	require.NoError(t, err)
	second, err := c.Finalize(context.Background())
	require.NoError(t, err)

	// Two finalizes without intervening mutation differ only in id and
	// timestamp.
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Type, second.Type)
	assert.True(t, first.Amount.Equal(second.Amount))
	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, first.Participants, second.Participants)
	assert.Equal(t, *first.PayerID, *second.PayerID)
	assert.Equal(t, *first.Method, *second.Method)
	assert.Equal(t, first.Splits, second.Splits)
}

func TestCoordinator_Reset(t *testing.T) {
	clock := newFakeClock()
	c := newTestCoordinator(clock, nil)
	fillStageOne(c)
	c.EnableSplit(true)
	c.AddParticipant(uuid.New())
	require.NoError(t, c.Advance())

	c.Reset()
	assert.Equal(t, StageAmount, c.Stage())
	assert.False(t, c.Details().CanAdvance())
	assert.Equal(t, 0, c.Participants().Count())
	assert.False(t, c.Participants().SplitEnabled())
}

func TestCoordinator_ChangeNotificationDebounced(t *testing.T) {
	clock := newFakeClock()
	fired := 0

	c := NewCoordinator(Config{
		Clock:    clock,
		OnChange: func() { fired++ },
	})

	// A burst of edits coalesces into a single notification once the quiet
	// interval elapses.
	c.SetAmount("1")
	c.SetAmount("12")
	c.SetAmount("120")
	assert.Equal(t, 0, fired, "nothing fires inside the burst")

	clock.Advance(DebounceInterval)
	assert.Equal(t, 1, fired)

	c.SetName("Lunch")
	clock.Advance(DebounceInterval)
	assert.Equal(t, 2, fired)
}
