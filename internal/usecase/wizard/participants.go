package wizard

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/tallyup/tally-backend/internal/domain"
)

// MinSplitParticipants is the participant floor while split mode is active
const MinSplitParticipants = 2

// ParticipantState holds the second wizard stage: who is involved and who
// fronted the money. Invariant: the payer is always a member of the
// participant set whenever the set is non-empty.
type ParticipantState struct {
	currentUser  *domain.PersonID
	participants map[domain.PersonID]struct{}
	payer        *domain.PersonID
	activeGroup  *uuid.UUID
	splitEnabled bool
}

// NewParticipantState creates an empty second stage.
// currentUser, when known, is preferred for payer auto-assignment.
func NewParticipantState(currentUser *domain.PersonID) *ParticipantState {
	return &ParticipantState{
		currentUser:  currentUser,
		participants: make(map[domain.PersonID]struct{}),
	}
}

// EnableSplit toggles between a shared (split) and a personal transaction
func (s *ParticipantState) EnableSplit(enabled bool) {
	s.splitEnabled = enabled
}

// SplitEnabled reports whether this is a shared transaction
func (s *ParticipantState) SplitEnabled() bool {
	return s.splitEnabled
}

// AddParticipant inserts id into the set. Adding an existing participant is
// a no-op. If no payer is set yet, one is auto-assigned: the current user
// when they are in the set, otherwise the id just added.
func (s *ParticipantState) AddParticipant(id domain.PersonID) {
	s.participants[id] = struct{}{}

	if s.payer == nil {
		if s.currentUser != nil && s.contains(*s.currentUser) {
			payer := *s.currentUser
			s.payer = &payer
			return
		}
		payer := id
		s.payer = &payer
	}
}

// RemoveParticipant removes id from the set.
// Returns ErrMinimumParticipants, leaving the set unchanged, when the set is
// at its floor while split mode is active. Removing the payer reassigns the
// payer deterministically: the current user if still present, else the
// lowest-sorted remaining id, else nobody.
// Removing an id that is not a participant is a caller bug and panics.
func (s *ParticipantState) RemoveParticipant(id domain.PersonID) error {
	s.mustContain(id)

	if s.splitEnabled && len(s.participants) <= MinSplitParticipants {
		return ErrMinimumParticipants
	}

	delete(s.participants, id)

	// The group no longer exactly represents the set; drop the association
	// but keep its members.
	s.activeGroup = nil

	if s.payer != nil && *s.payer == id {
		s.payer = s.reassignedPayer()
	}

	return nil
}

// SelectPayer marks id as the participant who fronted the money.
// Selecting a non-participant is a caller bug and panics.
func (s *ParticipantState) SelectPayer(id domain.PersonID) {
	s.mustContain(id)
	payer := id
	s.payer = &payer
}

// SelectGroup bulk-adds the group's members and records the group as the
// active selection. Participants already present outside the group are kept.
func (s *ParticipantState) SelectGroup(group domain.Group) {
	for _, member := range group.Members {
		s.AddParticipant(member)
	}
	groupID := group.ID
	s.activeGroup = &groupID
}

// Participants returns the member ids in deterministic (sorted) order
func (s *ParticipantState) Participants() []domain.PersonID {
	out := make([]domain.PersonID, 0, len(s.participants))
	for id := range s.participants {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// Count returns the participant set size
func (s *ParticipantState) Count() int {
	return len(s.participants)
}

// Payer returns the current payer, or nil when the set is empty
func (s *ParticipantState) Payer() *domain.PersonID {
	return s.payer
}

// ActiveGroup returns the id of the selected group, if the set still
// reflects one
func (s *ParticipantState) ActiveGroup() *uuid.UUID {
	return s.activeGroup
}

// CanAdvance reports whether this stage is complete: a payer plus at least
// two participants when split mode is on; unconditionally complete for a
// personal transaction.
func (s *ParticipantState) CanAdvance() bool {
	if !s.splitEnabled {
		return true
	}
	return s.payer != nil && len(s.participants) >= MinSplitParticipants
}

// ValidationMessage describes the first unmet guard, or "" when complete
func (s *ParticipantState) ValidationMessage() string {
	if !s.splitEnabled {
		return ""
	}
	if len(s.participants) < MinSplitParticipants {
		return "add at least two participants"
	}
	if s.payer == nil {
		return "select who paid"
	}
	return ""
}

func (s *ParticipantState) contains(id domain.PersonID) bool {
	_, ok := s.participants[id]
	return ok
}

func (s *ParticipantState) mustContain(id domain.PersonID) {
	if !s.contains(id) {
		panic(fmt.Sprintf("wizard: %s is not a current participant", id))
	}
}

// reassignedPayer picks the replacement payer after the payer was removed:
// the current user when still present, otherwise the lowest-sorted id.
func (s *ParticipantState) reassignedPayer() *domain.PersonID {
	if len(s.participants) == 0 {
		return nil
	}
	if s.currentUser != nil && s.contains(*s.currentUser) {
		payer := *s.currentUser
		return &payer
	}
	ids := s.Participants()
	payer := ids[0]
	return &payer
}
