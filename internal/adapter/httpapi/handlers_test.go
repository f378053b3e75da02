package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyup/tally-backend/internal/auth"
	"github.com/tallyup/tally-backend/internal/domain"
	"github.com/tallyup/tally-backend/internal/usecase/wizard"
)

// --- fakes ---

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Unix(1700000000, 0)}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) AfterFunc(time.Duration, func()) wizard.Timer {
	return stubTimer{}
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubTimer struct{}

func (stubTimer) Stop() bool               { return false }
func (stubTimer) Reset(time.Duration) bool { return false }

type fakeDirectory struct {
	people map[domain.PersonID]*domain.Person
	groups map[uuid.UUID]*domain.Group
}

func newFakeDirectory(people ...*domain.Person) *fakeDirectory {
	d := &fakeDirectory{
		people: make(map[domain.PersonID]*domain.Person),
		groups: make(map[uuid.UUID]*domain.Group),
	}
	for _, p := range people {
		d.people[p.ID] = p
	}
	return d
}

func (d *fakeDirectory) ListPeople(context.Context) ([]*domain.Person, error) {
	out := make([]*domain.Person, 0, len(d.people))
	for _, p := range d.people {
		out = append(out, p)
	}
	return out, nil
}

func (d *fakeDirectory) PersonByID(_ context.Context, id domain.PersonID) (*domain.Person, error) {
	p, ok := d.people[id]
	if !ok {
		return nil, fmt.Errorf("person not found: %s", id)
	}
	return p, nil
}

func (d *fakeDirectory) ListGroups(context.Context) ([]*domain.Group, error) {
	out := make([]*domain.Group, 0, len(d.groups))
	for _, g := range d.groups {
		out = append(out, g)
	}
	return out, nil
}

func (d *fakeDirectory) GroupByID(_ context.Context, id uuid.UUID) (*domain.Group, error) {
	g, ok := d.groups[id]
	if !ok {
		return nil, fmt.Errorf("group not found: %s", id)
	}
	return g, nil
}

type memDraftRepo struct {
	mu     sync.Mutex
	drafts []*domain.TransactionDraft
}

func (r *memDraftRepo) Create(_ context.Context, draft *domain.TransactionDraft) error {
	r.mu.Lock()
	r.drafts = append(r.drafts, draft)
	r.mu.Unlock()
	return nil
}

func (r *memDraftRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.TransactionDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.drafts {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("draft not found: %s", id)
}

func (r *memDraftRepo) List(_ context.Context, limit, offset int) ([]*domain.TransactionDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= len(r.drafts) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.drafts) {
		end = len(r.drafts)
	}
	return r.drafts[offset:end], nil
}

// --- test harness ---

type testEnv struct {
	server  *Server
	handler http.Handler
	clock   *stubClock
	repo    *memDraftRepo
	dir     *fakeDirectory
	jwt     *auth.JWTManager

	alice *domain.Person
	bob   *domain.Person
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	alice := &domain.Person{ID: uuid.New(), Name: "Alice"}
	bob := &domain.Person{ID: uuid.New(), Name: "Bob"}

	clock := newStubClock()
	repo := &memDraftRepo{}
	dir := newFakeDirectory(alice, bob)
	manager := auth.NewJWTManager("test-secret", time.Hour)

	server := NewServer(Options{
		Directory:       dir,
		Drafts:          repo,
		JWT:             manager,
		Currency:        "USD",
		RequireCategory: true,
		DevAuth:         true,
		Clock:           clock,
	})

	return &testEnv{
		server:  server,
		handler: server.Routes(),
		clock:   clock,
		repo:    repo,
		dir:     dir,
		jwt:     manager,
		alice:   alice,
		bob:     bob,
	}
}

func (e *testEnv) token(t *testing.T, person *domain.Person) string {
	t.Helper()
	token, err := e.jwt.Generate(person)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// --- tests ---

func TestHealthzNeedsNoAuth(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodGet, "/api/v1/people", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMintTokenGrantsAccess(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/auth/token", "", tokenRequest{PersonID: env.alice.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData[map[string]string](t, resp)
	require.NotEmpty(t, data["token"])

	rec, _ = env.do(t, http.MethodGet, "/api/v1/people", data["token"], nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMintTokenUnknownPerson(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/auth/token", "", tokenRequest{PersonID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSplitExpenseFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	// Open a split session: the caller joins as participant and payer
	rec, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, createSessionRequest{Split: true})
	require.Equal(t, http.StatusCreated, rec.Code)
	view := decodeData[sessionView](t, resp)
	assert.Equal(t, "AMOUNT", view.Stage)
	assert.Contains(t, view.Participants.IDs, env.alice.ID.String())
	assert.Equal(t, env.alice.ID.String(), view.Participants.PayerID)

	sessionPath := "/api/v1/sessions/" + view.ID

	// Fill stage one
	amount, name, category := "90", "Dinner", "FOOD"
	rec, resp = env.do(t, http.MethodPut, sessionPath+"/details", token, detailsRequest{
		Amount: &amount, Name: &name, Category: &category,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeData[sessionView](t, resp)
	assert.True(t, view.CanAdvance)
	assert.Equal(t, "90.00", view.Details.Amount)

	rec, resp = env.do(t, http.MethodPost, sessionPath+"/advance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeData[sessionView](t, resp)
	assert.Equal(t, "PARTICIPANTS", view.Stage)

	// Add the second participant and move to the split stage
	rec, resp = env.do(t, http.MethodPost, sessionPath+"/participants", token, personRequest{PersonID: env.bob.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeData[sessionView](t, resp)
	assert.Len(t, view.Participants.IDs, 2)

	env.clock.Advance(wizard.TransitionCooldown + time.Millisecond)
	rec, resp = env.do(t, http.MethodPost, sessionPath+"/advance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeData[sessionView](t, resp)
	require.Equal(t, "SPLIT", view.Stage)
	require.NotNil(t, view.Split)
	assert.Equal(t, "EQUALLY", view.Split.Method)
	assert.True(t, view.Split.Balanced)
	require.Len(t, view.Split.Entries, 2)
	for _, entry := range view.Split.Entries {
		assert.Equal(t, "45.00", entry.Amount)
	}

	// Finalize and check the persisted draft
	rec, resp = env.do(t, http.MethodPost, sessionPath+"/finalize", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	draft := decodeData[draftView](t, resp)
	assert.Equal(t, "90.00", draft.Amount)
	assert.Equal(t, "USD", draft.CurrencyCode)
	assert.True(t, draft.IsSplit)
	assert.Len(t, draft.Splits, 2)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.server.metrics.draftsFinalized))

	rec, resp = env.do(t, http.MethodGet, "/api/v1/drafts/"+draft.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = env.do(t, http.MethodGet, "/api/v1/drafts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	drafts := decodeData[[]draftView](t, resp)
	require.Len(t, drafts, 1)
	assert.Equal(t, draft.ID, drafts[0].ID)
}

func TestAdvanceBlockedOnEmptyStage(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, nil)
	view := decodeData[sessionView](t, resp)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/advance", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ADVANCE_BLOCKED", resp.Error.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.server.metrics.blockedTransitions))
}

func TestAdvanceCooldown(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, nil)
	view := decodeData[sessionView](t, resp)
	sessionPath := "/api/v1/sessions/" + view.ID

	amount, name, category := "10", "Coffee", "FOOD"
	env.do(t, http.MethodPut, sessionPath+"/details", token, detailsRequest{
		Amount: &amount, Name: &name, Category: &category,
	})

	rec, _ := env.do(t, http.MethodPost, sessionPath+"/advance", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second transition inside the cooldown window is refused
	rec, resp = env.do(t, http.MethodPost, sessionPath+"/advance", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TRANSITION_IN_FLIGHT", resp.Error.Code)

	env.clock.Advance(wizard.TransitionCooldown + time.Millisecond)
	rec, _ = env.do(t, http.MethodPost, sessionPath+"/advance", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionOwnership(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.token(t, env.alice)
	bobToken := env.token(t, env.bob)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", aliceToken, nil)
	view := decodeData[sessionView](t, resp)

	rec, _ := env.do(t, http.MethodGet, "/api/v1/sessions/"+view.ID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSessionNotFound(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	rec, _ := env.do(t, http.MethodGet, "/api/v1/sessions/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSessionForgetsIt(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, nil)
	view := decodeData[sessionView](t, resp)

	rec, _ := env.do(t, http.MethodDelete, "/api/v1/sessions/"+view.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/sessions/"+view.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddUnknownParticipant(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, createSessionRequest{Split: true})
	view := decodeData[sessionView](t, resp)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/participants", token,
		personRequest{PersonID: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveParticipantAtFloor(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, createSessionRequest{Split: true})
	view := decodeData[sessionView](t, resp)
	sessionPath := "/api/v1/sessions/" + view.ID

	env.do(t, http.MethodPost, sessionPath+"/participants", token, personRequest{PersonID: env.bob.ID.String()})

	rec, resp := env.do(t, http.MethodDelete, sessionPath+"/participants/"+env.bob.ID.String(), token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MINIMUM_PARTICIPANTS", resp.Error.Code)
}

func TestSelectPayerMustBeParticipant(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, createSessionRequest{Split: true})
	view := decodeData[sessionView](t, resp)

	rec, _ := env.do(t, http.MethodPut, "/api/v1/sessions/"+view.ID+"/payer", token,
		personRequest{PersonID: env.bob.ID.String()})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSelectGroupBulkAdds(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	group := &domain.Group{
		ID:      uuid.New(),
		Name:    "Flatmates",
		Members: []domain.PersonID{env.alice.ID, env.bob.ID},
	}
	env.dir.groups[group.ID] = group

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, createSessionRequest{Split: true})
	view := decodeData[sessionView](t, resp)

	rec, resp := env.do(t, http.MethodPost, "/api/v1/sessions/"+view.ID+"/group", token,
		groupRequest{GroupID: group.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeData[sessionView](t, resp)
	assert.Len(t, view.Participants.IDs, 2)
	assert.Equal(t, group.ID.String(), view.Participants.GroupID)
}

func TestSetUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, createSessionRequest{Split: true})
	view := decodeData[sessionView](t, resp)

	rec, _ := env.do(t, http.MethodPut, "/api/v1/sessions/"+view.ID+"/method", token,
		methodRequest{Method: "HALF_AND_HALF"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFinalizeRefusedWhenUnbalanced(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, createSessionRequest{Split: true})
	view := decodeData[sessionView](t, resp)
	sessionPath := "/api/v1/sessions/" + view.ID

	amount, name, category := "200", "Rent", "HOUSING"
	env.do(t, http.MethodPut, sessionPath+"/details", token, detailsRequest{
		Amount: &amount, Name: &name, Category: &category,
	})
	env.do(t, http.MethodPost, sessionPath+"/participants", token, personRequest{PersonID: env.bob.ID.String()})

	env.do(t, http.MethodPut, sessionPath+"/method", token, methodRequest{Method: "PERCENTAGES"})
	pct := "80"
	_, resp = env.do(t, http.MethodPut, sessionPath+"/splits/"+env.alice.ID.String(), token,
		splitUpdateRequest{Percentage: &pct})
	view = decodeData[sessionView](t, resp)
	require.NotNil(t, view.Split)
	assert.False(t, view.Split.Balanced)

	rec, resp := env.do(t, http.MethodPost, sessionPath+"/finalize", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_BALANCED", resp.Error.Code)
}

func TestUpdateSplitSharesClamped(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.alice)

	_, resp := env.do(t, http.MethodPost, "/api/v1/sessions", token, createSessionRequest{Split: true})
	view := decodeData[sessionView](t, resp)
	sessionPath := "/api/v1/sessions/" + view.ID

	amount, name, category := "120", "Trip", "TRAVEL"
	env.do(t, http.MethodPut, sessionPath+"/details", token, detailsRequest{
		Amount: &amount, Name: &name, Category: &category,
	})
	env.do(t, http.MethodPost, sessionPath+"/participants", token, personRequest{PersonID: env.bob.ID.String()})
	env.do(t, http.MethodPut, sessionPath+"/method", token, methodRequest{Method: "SHARES"})

	shares := 99
	_, resp = env.do(t, http.MethodPut, sessionPath+"/splits/"+env.alice.ID.String(), token,
		splitUpdateRequest{Shares: &shares})
	view = decodeData[sessionView](t, resp)
	require.NotNil(t, view.Split)
	for _, entry := range view.Split.Entries {
		if entry.PersonID == env.alice.ID.String() {
			assert.Equal(t, 10, entry.Shares)
		}
	}
}
