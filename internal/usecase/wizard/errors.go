package wizard

import "errors"

var (
	// ErrAdvanceBlocked signals that the current stage's guard is not
	// satisfied; the stage is left unchanged.
	ErrAdvanceBlocked = errors.New("current stage is not complete")

	// ErrTransitionInFlight signals that a transition was requested while
	// the cooldown from the previous one is still running.
	ErrTransitionInFlight = errors.New("a stage transition is already in flight")

	// ErrAtFirstStage signals a retreat from the first stage.
	ErrAtFirstStage = errors.New("already at the first stage")

	// ErrMinimumParticipants signals a removal that would drop the
	// participant set below its floor while split mode is active; the set
	// is left unchanged.
	ErrMinimumParticipants = errors.New("a split needs at least two participants")

	// ErrNotBalanced signals a finalize attempt while the split inputs do
	// not satisfy the active method's balance predicate.
	ErrNotBalanced = errors.New("split inputs are not balanced")
)
