package wizard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallyup/tally-backend/internal/domain"
)

// Stage identifies one of the wizard's three stages
type Stage string

const (
	StageAmount       Stage = "AMOUNT"
	StageParticipants Stage = "PARTICIPANTS"
	StageSplit        Stage = "SPLIT"
)

// The stage machine is linear: forward and backward neighbours only,
// no skipping.
var (
	nextStage = map[Stage]Stage{
		StageAmount:       StageParticipants,
		StageParticipants: StageSplit,
	}
	prevStage = map[Stage]Stage{
		StageParticipants: StageAmount,
		StageSplit:        StageParticipants,
	}
)

// TransitionCooldown is how long after a transition starts before the next
// one may begin. Guards against double-submission from rapid repeated
// triggers, not data correctness.
const TransitionCooldown = 350 * time.Millisecond

// Config carries the coordinator's collaborators and session policy
type Config struct {
	// Clock drives the transition cooldown and the change debounce.
	// Defaults to the system clock.
	Clock Clock

	// Drafts receives the finalized draft. May be nil for library use;
	// Finalize then only returns the draft.
	Drafts domain.DraftRepository

	// CurrentUser, when known, is preferred for payer auto-assignment
	CurrentUser *domain.PersonID

	// CurrencyCode is stamped onto the finalized draft
	CurrencyCode string

	// RequireCategory gates stage-one advancement on a category selection
	RequireCategory bool

	// OnChange, when set, is invoked (debounced) after every mutation
	OnChange func()
}

// Coordinator composes the three stage states and owns the current stage,
// the transition guards, and the finalize operation. All four state holders
// are created together for one wizard session and discarded together.
type Coordinator struct {
	cfg Config

	details      *AmountDetailsState
	participants *ParticipantState
	split        *SplitCalculationState

	stage          Stage
	lastTransition time.Time
	transitioned   bool
	debouncer      *Debouncer
}

// NewCoordinator starts a fresh wizard session at the first stage
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = NewSystemClock()
	}
	if cfg.CurrencyCode == "" {
		cfg.CurrencyCode = "USD"
	}

	c := &Coordinator{cfg: cfg}
	c.initStates()
	if cfg.OnChange != nil {
		c.debouncer = NewDebouncer(cfg.Clock, DebounceInterval, cfg.OnChange)
	}
	return c
}

func (c *Coordinator) initStates() {
	c.details = NewAmountDetailsState(c.cfg.RequireCategory)
	c.participants = NewParticipantState(c.cfg.CurrentUser)
	c.split = NewSplitCalculationState(c.details, c.participants)
	c.stage = StageAmount
	c.lastTransition = time.Time{}
	c.transitioned = false
}

// Stage returns the current wizard stage
func (c *Coordinator) Stage() Stage {
	return c.stage
}

// Details exposes read access to the first stage
func (c *Coordinator) Details() *AmountDetailsState {
	return c.details
}

// Participants exposes read access to the second stage
func (c *Coordinator) Participants() *ParticipantState {
	return c.participants
}

// Split exposes read access to the third stage
func (c *Coordinator) Split() *SplitCalculationState {
	return c.split
}

// --- stage one mutations ---

// SetAmount parses and stores the raw amount input
func (c *Coordinator) SetAmount(raw string) {
	c.details.SetAmount(raw)
	c.changed()
}

// SetName stores the transaction name
func (c *Coordinator) SetName(name string) {
	c.details.SetName(name)
	c.changed()
}

// SetCategory stores the category selection
func (c *Coordinator) SetCategory(category domain.Category) {
	c.details.SetCategory(category)
	c.changed()
}

// SetType stores the transaction direction
func (c *Coordinator) SetType(t domain.TransactionType) {
	c.details.SetType(t)
	c.changed()
}

// --- stage two mutations ---

// EnableSplit toggles between a shared and a personal transaction
func (c *Coordinator) EnableSplit(enabled bool) {
	c.participants.EnableSplit(enabled)
	c.changed()
}

// AddParticipant inserts a person into the participant set
func (c *Coordinator) AddParticipant(id domain.PersonID) {
	c.participants.AddParticipant(id)
	c.changed()
}

// RemoveParticipant removes a person from the participant set
func (c *Coordinator) RemoveParticipant(id domain.PersonID) error {
	if err := c.participants.RemoveParticipant(id); err != nil {
		return err
	}
	c.changed()
	return nil
}

// SelectPayer marks a participant as the payer
func (c *Coordinator) SelectPayer(id domain.PersonID) {
	c.participants.SelectPayer(id)
	c.changed()
}

// SelectGroup bulk-adds a directory group's members
func (c *Coordinator) SelectGroup(group domain.Group) {
	c.participants.SelectGroup(group)
	c.changed()
}

// --- stage three mutations ---

// SetMethod switches the split method, discarding prior inputs
func (c *Coordinator) SetMethod(m domain.SplitMethod) {
	c.split.SetMethod(m)
	c.changed()
}

// UpdatePercentage records a clamped percentage input
func (c *Coordinator) UpdatePercentage(id domain.PersonID, value decimal.Decimal) {
	c.split.UpdatePercentage(id, value)
	c.changed()
}

// UpdateAmount records a clamped exact-amount input
func (c *Coordinator) UpdateAmount(id domain.PersonID, value decimal.Decimal) {
	c.split.UpdateAmount(id, value)
	c.changed()
}

// UpdateShares records a clamped share-count input
func (c *Coordinator) UpdateShares(id domain.PersonID, count int) {
	c.split.UpdateShares(id, count)
	c.changed()
}

// UpdateAdjustment records an adjustment input
func (c *Coordinator) UpdateAdjustment(id domain.PersonID, value decimal.Decimal) {
	c.split.UpdateAdjustment(id, value)
	c.changed()
}

// --- transitions ---

// CanAdvance reports whether the current stage's guard is satisfied.
// At the last stage it reports whether the split is balanced, which is the
// finalize affordance.
func (c *Coordinator) CanAdvance() bool {
	switch c.stage {
	case StageAmount:
		return c.details.CanAdvance()
	case StageParticipants:
		return c.participants.CanAdvance()
	default:
		return !c.participants.SplitEnabled() || c.split.IsBalanced()
	}
}

// ValidationMessage describes why the current stage cannot advance, or ""
func (c *Coordinator) ValidationMessage() string {
	switch c.stage {
	case StageAmount:
		return c.details.ValidationMessage()
	case StageParticipants:
		return c.participants.ValidationMessage()
	default:
		if c.participants.SplitEnabled() && !c.split.IsBalanced() {
			return "split inputs are not balanced"
		}
		return ""
	}
}

// Advance moves to the next stage.
// It refuses with ErrTransitionInFlight while the cooldown from the previous
// transition is running, and with ErrAdvanceBlocked when the current stage's
// guard is unsatisfied; the stage is left unchanged either way. Moving into
// the split stage seeds default inputs for the participant set.
func (c *Coordinator) Advance() error {
	next, ok := nextStage[c.stage]
	if !ok {
		return ErrAdvanceBlocked
	}

	now := c.cfg.Clock.Now()
	if c.transitioned && now.Sub(c.lastTransition) < TransitionCooldown {
		return ErrTransitionInFlight
	}

	if !c.CanAdvance() {
		return ErrAdvanceBlocked
	}

	c.stage = next
	c.lastTransition = now
	c.transitioned = true

	if next == StageSplit {
		c.split.InitializeDefaults()
	}

	c.changed()
	return nil
}

// Retreat moves back one stage. Always allowed except from the first stage.
func (c *Coordinator) Retreat() error {
	prev, ok := prevStage[c.stage]
	if !ok {
		return ErrAtFirstStage
	}
	c.stage = prev
	c.changed()
	return nil
}

// Finalize produces the immutable draft and hands it to the persistence
// collaborator. Allowed only when stages one and two are complete and, for a
// split transaction, the inputs are balanced. Finalize does not mutate the
// session: calling it twice without intervening mutation yields structurally
// identical drafts apart from id and timestamp.
func (c *Coordinator) Finalize(ctx context.Context) (*domain.TransactionDraft, error) {
	if !c.details.CanAdvance() || !c.participants.CanAdvance() {
		return nil, ErrAdvanceBlocked
	}
	if c.participants.SplitEnabled() && !c.split.IsBalanced() {
		return nil, ErrNotBalanced
	}

	draft := &domain.TransactionDraft{
		ID:           uuid.New(),
		Type:         c.details.Type(),
		Amount:       c.details.Amount(),
		CurrencyCode: c.cfg.CurrencyCode,
		Name:         c.details.Name(),
		Category:     c.details.Category(),
		IsSplit:      c.participants.SplitEnabled(),
		CreatedAt:    c.cfg.Clock.Now(),
	}

	if draft.IsSplit {
		payer := *c.participants.Payer()
		method := c.split.Method()
		draft.PayerID = &payer
		draft.Method = &method
		draft.Participants = c.participants.Participants()
		draft.Splits = c.split.CalculatedSplits()
	}

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	if c.cfg.Drafts != nil {
		if err := c.cfg.Drafts.Create(ctx, draft); err != nil {
			return nil, err
		}
	}

	return draft, nil
}

// Reset returns the session to its initial empty state
func (c *Coordinator) Reset() {
	c.initStates()
	c.changed()
}

// Close cancels any pending change notification
func (c *Coordinator) Close() {
	if c.debouncer != nil {
		c.debouncer.Stop()
	}
}

func (c *Coordinator) changed() {
	if c.debouncer != nil {
		c.debouncer.Trigger()
	}
}
