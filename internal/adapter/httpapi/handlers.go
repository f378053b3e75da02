package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyup/tally-backend/internal/domain"
	"github.com/tallyup/tally-backend/internal/usecase/wizard"
)

// createSession handles POST /sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	owner, _ := PersonFromContext(r.Context())

	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid request body")
			return
		}
	}

	coord := wizard.NewCoordinator(wizard.Config{
		Clock:           s.clock,
		Drafts:          s.drafts,
		CurrentUser:     &owner,
		CurrencyCode:    s.currency,
		RequireCategory: s.requireCategory,
	})
	if req.Split {
		coord.EnableSplit(true)
		coord.AddParticipant(owner)
	}

	sess := s.registry.add(owner, coord)

	sess.mu.Lock()
	view := newSessionView(sess)
	sess.mu.Unlock()

	writeJSON(w, http.StatusCreated, view)
}

// getSession handles GET /sessions/{id}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	sess.mu.Lock()
	view := newSessionView(sess)
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, view)
}

// deleteSession handles DELETE /sessions/{id}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	if removed, ok := s.registry.remove(sess.id); ok {
		removed.mu.Lock()
		removed.coord.Close()
		removed.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Session abandoned"})
}

// updateDetails handles PUT /sessions/{id}/details.
// Absent fields are left untouched; present fields are coerced the way the
// wizard coerces them (garbage amounts become zero, unknown categories clear
// the selection).
func (s *Server) updateDetails(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req detailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if req.Amount != nil {
		sess.coord.SetAmount(*req.Amount)
	}
	if req.Name != nil {
		sess.coord.SetName(*req.Name)
	}
	if req.Category != nil {
		sess.coord.SetCategory(domain.Category(*req.Category))
	}
	if req.Type != nil {
		sess.coord.SetType(domain.TransactionType(*req.Type))
	}

	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// addParticipant handles POST /sessions/{id}/participants
func (s *Server) addParticipant(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	personID, ok := s.decodePersonID(w, r)
	if !ok {
		return
	}

	if _, err := s.directory.PersonByID(r.Context(), personID); err != nil {
		notFound(w, "Person not found")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.coord.AddParticipant(personID)
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// removeParticipant handles DELETE /sessions/{id}/participants/{pid}
func (s *Server) removeParticipant(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	personID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		badRequest(w, "Invalid person ID")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !containsID(sess.coord.Participants().Participants(), personID) {
		notFound(w, "Person is not a participant")
		return
	}

	if err := sess.coord.RemoveParticipant(personID); err != nil {
		if errors.Is(err, wizard.ErrMinimumParticipants) {
			conflict(w, "MINIMUM_PARTICIPANTS", err.Error())
			return
		}
		internalError(w, "Failed to remove participant")
		return
	}

	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// selectPayer handles PUT /sessions/{id}/payer
func (s *Server) selectPayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	personID, ok := s.decodePersonID(w, r)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !containsID(sess.coord.Participants().Participants(), personID) {
		unprocessable(w, "PAYER_NOT_PARTICIPANT", "Payer must be one of the participants")
		return
	}

	sess.coord.SelectPayer(personID)
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// selectGroup handles POST /sessions/{id}/group
func (s *Server) selectGroup(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		badRequest(w, "Invalid group ID")
		return
	}

	group, err := s.directory.GroupByID(r.Context(), groupID)
	if err != nil {
		notFound(w, "Group not found")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.coord.SelectGroup(*group)
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// setSplitMode handles PUT /sessions/{id}/split-mode
func (s *Server) setSplitMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req splitModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.coord.EnableSplit(req.Enabled)
	if req.Enabled && !containsID(sess.coord.Participants().Participants(), sess.owner) {
		sess.coord.AddParticipant(sess.owner)
	}

	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// setMethod handles PUT /sessions/{id}/method
func (s *Server) setMethod(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	var req methodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	method := domain.SplitMethod(req.Method)
	if !method.Valid() {
		unprocessable(w, "UNKNOWN_METHOD", "Unknown split method")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.coord.SetMethod(method)
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// updateSplit handles PUT /sessions/{id}/splits/{pid}.
// Each field present in the body feeds the matching method input; the wizard
// clamps out-of-range values silently.
func (s *Server) updateSplit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	personID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		badRequest(w, "Invalid person ID")
		return
	}

	var req splitUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !containsID(sess.coord.Participants().Participants(), personID) {
		notFound(w, "Person is not a participant")
		return
	}

	if req.Percentage != nil {
		value, err := decimal.NewFromString(*req.Percentage)
		if err != nil {
			badRequest(w, "Invalid percentage")
			return
		}
		sess.coord.UpdatePercentage(personID, value)
	}
	if req.Amount != nil {
		value, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			badRequest(w, "Invalid amount")
			return
		}
		sess.coord.UpdateAmount(personID, value)
	}
	if req.Shares != nil {
		sess.coord.UpdateShares(personID, *req.Shares)
	}
	if req.Adjustment != nil {
		value, err := decimal.NewFromString(*req.Adjustment)
		if err != nil {
			badRequest(w, "Invalid adjustment")
			return
		}
		sess.coord.UpdateAdjustment(personID, value)
	}

	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// advance handles POST /sessions/{id}/advance
func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.coord.Advance(); err != nil {
		switch {
		case errors.Is(err, wizard.ErrTransitionInFlight):
			conflict(w, "TRANSITION_IN_FLIGHT", err.Error())
		case errors.Is(err, wizard.ErrAdvanceBlocked):
			s.metrics.blockedTransitions.Inc()
			unprocessable(w, "ADVANCE_BLOCKED", sess.coord.ValidationMessage())
		default:
			internalError(w, "Failed to advance")
		}
		return
	}

	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// retreat handles POST /sessions/{id}/retreat
func (s *Server) retreat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.coord.Retreat(); err != nil {
		switch {
		case errors.Is(err, wizard.ErrTransitionInFlight):
			conflict(w, "TRANSITION_IN_FLIGHT", err.Error())
		case errors.Is(err, wizard.ErrAtFirstStage):
			conflict(w, "AT_FIRST_STAGE", err.Error())
		default:
			internalError(w, "Failed to retreat")
		}
		return
	}

	writeJSON(w, http.StatusOK, newSessionView(sess))
}

// finalize handles POST /sessions/{id}/finalize
func (s *Server) finalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFromRequest(w, r)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	draft, err := sess.coord.Finalize(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, wizard.ErrNotBalanced):
			unprocessable(w, "NOT_BALANCED", err.Error())
		case errors.Is(err, wizard.ErrAdvanceBlocked):
			unprocessable(w, "INCOMPLETE", sess.coord.ValidationMessage())
		default:
			s.logger.Error("finalize failed", "session_id", sess.id, "error", err)
			internalError(w, "Failed to finalize draft")
		}
		return
	}

	s.metrics.draftsFinalized.Inc()
	writeJSON(w, http.StatusCreated, newDraftView(draft))
}

// listPeople handles GET /people
func (s *Server) listPeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.directory.ListPeople(r.Context())
	if err != nil {
		internalError(w, "Failed to list people")
		return
	}

	views := make([]personView, 0, len(people))
	for _, p := range people {
		views = append(views, personView{ID: p.ID.String(), Name: p.Name})
	}
	writeJSON(w, http.StatusOK, views)
}

// listGroups handles GET /groups
func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.directory.ListGroups(r.Context())
	if err != nil {
		internalError(w, "Failed to list groups")
		return
	}

	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView{
			ID:      g.ID.String(),
			Name:    g.Name,
			Members: idStrings(g.Members),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// listDrafts handles GET /drafts
func (s *Server) listDrafts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	drafts, err := s.drafts.List(r.Context(), limit, offset)
	if err != nil {
		internalError(w, "Failed to list drafts")
		return
	}

	views := make([]draftView, 0, len(drafts))
	for _, d := range drafts {
		views = append(views, newDraftView(d))
	}
	writeJSON(w, http.StatusOK, views)
}

// getDraft handles GET /drafts/{id}
func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "Invalid draft ID")
		return
	}

	draft, err := s.drafts.GetByID(r.Context(), id)
	if err != nil {
		notFound(w, "Draft not found")
		return
	}

	writeJSON(w, http.StatusOK, newDraftView(draft))
}

// mintToken handles POST /auth/token. Development convenience: exchanges a
// directory person id for a bearer token, no password involved. Disabled
// unless DEV_AUTH is set.
func (s *Server) mintToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}

	personID, err := uuid.Parse(req.PersonID)
	if err != nil {
		badRequest(w, "Invalid person ID")
		return
	}

	person, err := s.directory.PersonByID(r.Context(), personID)
	if err != nil {
		notFound(w, "Person not found")
		return
	}

	token, err := s.jwt.Generate(person)
	if err != nil {
		internalError(w, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// healthz handles GET /healthz
func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sessionFromRequest resolves {id} to a live session owned by the caller.
// Writes the error response itself when resolution fails.
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "Invalid session ID")
		return nil, false
	}

	sess, ok := s.registry.get(id)
	if !ok {
		notFound(w, "Session not found")
		return nil, false
	}

	caller, _ := PersonFromContext(r.Context())
	if sess.owner != caller {
		forbidden(w, "Session belongs to another user")
		return nil, false
	}

	return sess, true
}

func (s *Server) decodePersonID(w http.ResponseWriter, r *http.Request) (domain.PersonID, bool) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return domain.PersonID{}, false
	}

	personID, err := uuid.Parse(req.PersonID)
	if err != nil {
		badRequest(w, "Invalid person ID")
		return domain.PersonID{}, false
	}

	return personID, true
}

func containsID(ids []domain.PersonID, id domain.PersonID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
