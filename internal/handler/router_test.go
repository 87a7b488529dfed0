package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tasknest/tasknest-go/internal/crypto"
	"github.com/tasknest/tasknest-go/internal/model"
	"github.com/tasknest/tasknest-go/internal/repository"
	"github.com/tasknest/tasknest-go/internal/service"
)

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T, exposeErrors bool) *testServer {
	t.Helper()
	return newTestServerWithStore(t, repository.NewMemoryStore(), exposeErrors)
}

func newTestServerWithStore(t *testing.T, store *repository.Store, exposeErrors bool) *testServer {
	t.Helper()
	tokens, err := crypto.NewTokenService("test-secret", "tasknest", time.Hour)
	require.NoError(t, err)

	router := NewRouter(Deps{
		Auth:           service.NewAuthService(store.Users, tokens, bcrypt.MinCost),
		Tasks:          service.NewTaskService(store.Tasks),
		Tokens:         tokens,
		Health:         store.Health,
		RequestTimeout: 5 * time.Second,
		ExposeErrors:   exposeErrors,
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signup(email, password string) model.AuthResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/signup", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp model.AuthResponse
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) createTask(token, body string) model.TaskResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/tasks", token, body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var env model.TaskEnvelope
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Task
}

func decodeTasks(t *testing.T, rec *httptest.ResponseRecorder) []model.TaskResponse {
	t.Helper()
	var list model.TaskListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	return list.Tasks
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(http.MethodGet, "/health/store", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Store connection healthy","driver":"memory","database":"memory","collections":["users","tasks"]}`, rec.Body.String())
}

type failingHealth struct{}

func (failingHealth) Ping(context.Context) error { return errors.New("dial tcp: connection refused") }
func (failingHealth) Describe(context.Context) (repository.Status, error) {
	return repository.Status{}, nil
}

func TestHealthStore_ErrorGating(t *testing.T) {
	for _, expose := range []bool{true, false} {
		store := repository.NewMemoryStore()
		store.Health = failingHealth{}
		s := newTestServerWithStore(t, store, expose)

		rec := s.do(http.MethodGet, "/health/store", "", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		if expose {
			assert.JSONEq(t, `{"success":false,"error":"dial tcp: connection refused"}`, rec.Body.String())
		} else {
			assert.JSONEq(t, `{"success":false,"error":"Internal server error"}`, rec.Body.String())
		}
	}
}

func TestSignupFlow(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(http.MethodPost, "/auth/signup", "", `{"email":"a@x.io","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp model.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "User created successfully", resp.Message)
	assert.Equal(t, "a@x.io", resp.User.Email)
	assert.NotEmpty(t, resp.Token)
	assert.NotContains(t, rec.Body.String(), "secret1")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(http.MethodGet, "/tasks", resp.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tasks":[]}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/auth/me", resp.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":{"id":"`+resp.User.ID+`","email":"a@x.io"}}`, rec.Body.String())
}

func TestSignup_Errors(t *testing.T) {
	s := newTestServer(t, false)
	s.signup("a@x.io", "secret1")

	tests := []struct {
		name string
		body string
		code int
	}{
		{"duplicate", `{"email":"a@x.io","password":"other12"}`, http.StatusConflict},
		{"missing password", `{"email":"b@x.io"}`, http.StatusBadRequest},
		{"short password", `{"email":"b@x.io","password":"12345"}`, http.StatusBadRequest},
		{"not json", `email=b@x.io`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"wrong type", `{"email":42,"password":"secret1"}`, http.StatusBadRequest},
		{"array body", `[]`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/auth/signup", "", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSignup_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, false)

	body := `{"email":"a@x.io","password":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := s.do(http.MethodPost, "/auth/signup", "", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLogin_IndistinguishableFailures(t *testing.T) {
	s := newTestServer(t, false)
	created := s.signup("a@x.io", "secret1")

	ok := s.do(http.MethodPost, "/auth/login", "", `{"email":"a@x.io","password":"secret1"}`)
	require.Equal(t, http.StatusOK, ok.Code)
	var resp model.AuthResponse
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &resp))
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, created.User, resp.User)

	wrongPassword := s.do(http.MethodPost, "/auth/login", "", `{"email":"a@x.io","password":"wrong12"}`)
	unknownEmail := s.do(http.MethodPost, "/auth/login", "", `{"email":"nobody@x.io","password":"secret1"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	missing := s.do(http.MethodPost, "/auth/login", "", `{"email":"a@x.io"}`)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestTasks_RequireAuth(t *testing.T) {
	s := newTestServer(t, false)
	token := s.signup("a@x.io", "secret1").Token
	task := s.createTask(token, `{"title":"mine"}`)

	expired, err := crypto.NewTokenService("test-secret", "tasknest", -time.Minute)
	require.NoError(t, err)
	expiredToken, err := expired.Issue("u1", "a@x.io")
	require.NoError(t, err)

	requests := []struct{ method, path, body string }{
		{http.MethodGet, "/tasks", ""},
		{http.MethodPost, "/tasks", `{"title":"x"}`},
		{http.MethodPatch, "/tasks/" + task.ID, `{"title":"x"}`},
		{http.MethodDelete, "/tasks/" + task.ID, ""},
		{http.MethodGet, "/auth/me", ""},
	}
	for _, tok := range []string{"", "garbage", expiredToken} {
		for _, r := range requests {
			rec := s.do(r.method, r.path, tok, r.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.path)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
		}
	}

	rec := s.do(http.MethodGet, "/tasks", token, "")
	tasks := decodeTasks(t, rec)
	require.Len(t, tasks, 1)
	assert.Equal(t, task, tasks[0])
}

func TestTasks_CreateListRoundTrip(t *testing.T) {
	s := newTestServer(t, false)
	token := s.signup("a@x.io", "secret1").Token

	created := s.createTask(token, `{"title":"Write report","description":"Q1","priority":"high","status":"in-progress","dueDate":"2024-05-01"}`)
	assert.Equal(t, "Write report", created.Title)
	assert.Equal(t, "Q1", created.Description)
	assert.Equal(t, model.PriorityHigh, created.Priority)
	assert.Equal(t, model.StatusInProgress, created.Status)
	assert.True(t, created.DueDate.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	defaults := s.createTask(token, `{"title":"Plain"}`)
	assert.Equal(t, model.PriorityMedium, defaults.Priority)
	assert.Equal(t, model.StatusTodo, defaults.Status)
	assert.False(t, defaults.DueDate.IsZero())

	rec := s.do(http.MethodGet, "/tasks", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.TaskResponse{created, defaults}, decodeTasks(t, rec))
}

func TestTasks_CreateValidation(t *testing.T) {
	s := newTestServer(t, false)
	token := s.signup("a@x.io", "secret1").Token

	bodies := []string{
		`{}`,
		`{"title":""}`,
		`{"description":"no title"}`,
		`{"title":"x","priority":"urgent"}`,
		`{"title":"x","status":"done"}`,
		`{"title":"x","dueDate":"someday"}`,
		`{"title":7}`,
	}
	for _, body := range bodies {
		rec := s.do(http.MethodPost, "/tasks", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := s.do(http.MethodGet, "/tasks", token, "")
	assert.Empty(t, decodeTasks(t, rec))
}

func TestTasks_IgnoresImmutableFields(t *testing.T) {
	s := newTestServer(t, false)
	alice := s.signup("a@x.io", "secret1")
	bob := s.signup("b@x.io", "secret1")

	created := s.createTask(alice.Token, `{"title":"mine","userId":"`+bob.User.ID+`","id":"fixed"}`)
	assert.NotEqual(t, "fixed", created.ID)

	rec := s.do(http.MethodGet, "/tasks", bob.Token, "")
	assert.Empty(t, decodeTasks(t, rec))

	rec = s.do(http.MethodPatch, "/tasks/"+created.ID, alice.Token, `{"id":"other","createdAt":"2000-01-01T00:00:00Z","status":"completed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var env model.TaskEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, created.ID, env.Task.ID)
	assert.Equal(t, created.CreatedAt, env.Task.CreatedAt)
	assert.Equal(t, model.StatusCompleted, env.Task.Status)
}

func TestTasks_UpdatePartial(t *testing.T) {
	s := newTestServer(t, false)
	token := s.signup("a@x.io", "secret1").Token
	created := s.createTask(token, `{"title":"draft","description":"notes","priority":"low"}`)

	rec := s.do(http.MethodPatch, "/tasks/"+created.ID, token, `{"priority":"high"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var env model.TaskEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))

	want := created
	want.Priority = model.PriorityHigh
	assert.Equal(t, want, env.Task)

	rec = s.do(http.MethodPatch, "/tasks/"+created.ID, token, `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, want, env.Task)

	rec = s.do(http.MethodPatch, "/tasks/"+created.ID, token, `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasks_OtherOwnerGetsNotFound(t *testing.T) {
	s := newTestServer(t, false)
	alice := s.signup("a@x.io", "secret1").Token
	bob := s.signup("b@x.io", "secret1").Token
	task := s.createTask(alice, `{"title":"private"}`)

	crossUpdate := s.do(http.MethodPatch, "/tasks/"+task.ID, bob, `{"title":"hijacked"}`)
	crossDelete := s.do(http.MethodDelete, "/tasks/"+task.ID, bob, "")
	absentUpdate := s.do(http.MethodPatch, "/tasks/does-not-exist", bob, `{"title":"hijacked"}`)

	assert.Equal(t, http.StatusNotFound, crossUpdate.Code)
	assert.Equal(t, http.StatusNotFound, crossDelete.Code)
	assert.Equal(t, http.StatusNotFound, absentUpdate.Code)
	assert.Equal(t, absentUpdate.Body.String(), crossUpdate.Body.String())

	rec := s.do(http.MethodGet, "/tasks", alice, "")
	tasks := decodeTasks(t, rec)
	require.Len(t, tasks, 1)
	assert.Equal(t, task, tasks[0])

	rec = s.do(http.MethodGet, "/tasks", bob, "")
	assert.Empty(t, decodeTasks(t, rec))
}

func TestTasks_Delete(t *testing.T) {
	s := newTestServer(t, false)
	token := s.signup("a@x.io", "secret1").Token
	task := s.createTask(token, `{"title":"temp"}`)

	rec := s.do(http.MethodDelete, "/tasks/"+task.ID, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Task deleted successfully"}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/tasks/"+task.ID, token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/tasks", token, "")
	assert.Empty(t, decodeTasks(t, rec))
}
