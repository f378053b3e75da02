package httpapi

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tallyup/tally-backend/internal/domain"
	"github.com/tallyup/tally-backend/internal/usecase/wizard"
)

// session pairs one wizard coordinator with the person who opened it.
// The mutex serializes handler access; the coordinator itself is not
// safe for concurrent use.
type session struct {
	mu    sync.Mutex
	id    uuid.UUID
	owner domain.PersonID
	coord *wizard.Coordinator
}

// sessionRegistry is the in-memory home of live wizard sessions. Sessions
// are ephemeral; a restart loses them, only finalized drafts persist.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[uuid.UUID]*session)}
}

func (r *sessionRegistry) add(owner domain.PersonID, coord *wizard.Coordinator) *session {
	s := &session{id: uuid.New(), owner: owner, coord: coord}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	return s
}

func (r *sessionRegistry) get(id uuid.UUID) (*session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	return s, ok
}

func (r *sessionRegistry) remove(id uuid.UUID) (*session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	return s, ok
}
