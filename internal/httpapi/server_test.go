package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/logging"
	"github.com/TimurManjosov/flaglite/internal/service"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/TimurManjosov/flaglite/internal/store/sqlitestore"
	"github.com/google/uuid"
)

// testServer is the full stack — sqlite store, services, router — so
// these tests exercise exactly what a deployed binary serves, minus
// the TCP listener.
type testServer struct {
	handler http.Handler
	store   store.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flaglite.db")
	st, err := sqlitestore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	tokens := authn.NewTokenIssuer("test-secret-at-least-32-bytes-long!!")
	resolver := authn.NewResolver(st, st, tokens)
	server := NewServer(
		service.NewAuthService(st, tokens),
		service.NewProjectService(st),
		service.NewFlagService(st),
		service.NewEvaluationService(st),
		resolver,
		logging.New("error"),
	)
	return &testServer{handler: server.Router(), store: st}
}

// do issues a request against the router and decodes the JSON response
// body into out (if out is non-nil).
func (ts *testServer) do(t *testing.T, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

type signupBody struct {
	User struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
	} `json:"user"`
	Token   string `json:"token"`
	Project struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	} `json:"project"`
	Environments []struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	} `json:"environments"`
	ApiKey struct {
		ID  uuid.UUID `json:"id"`
		Key string    `json:"key"`
	} `json:"api_key"`
}

func (ts *testServer) signup(t *testing.T, username, password, projectName string) signupBody {
	t.Helper()
	var body signupBody
	rec := ts.do(t, http.MethodPost, "/v1/auth/signup", "",
		map[string]string{"username": username, "password": password, "project_name": projectName}, &body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}
	return body
}

// environmentKey mints and stores an environment-scoped API key the
// way an operator would obtain one out of band, returning its
// plaintext for use as a bearer token.
func (ts *testServer) environmentKey(t *testing.T, projectID, environmentID uuid.UUID) string {
	t.Helper()
	generated, err := authn.GenerateApiKey(domain.ApiKeyKindEnvironment)
	if err != nil {
		t.Fatalf("GenerateApiKey: %v", err)
	}
	key := domain.ApiKey{
		ID:            uuid.New(),
		SecretHash:    generated.SecretHash,
		Prefix:        generated.Prefix,
		Kind:          domain.ApiKeyKindEnvironment,
		ProjectID:     projectID,
		EnvironmentID: &environmentID,
		CreatedAt:     store.Now(),
	}
	if err := ts.store.CreateApiKey(context.Background(), key); err != nil {
		t.Fatalf("CreateApiKey: %v", err)
	}
	return generated.Plaintext
}

func (s signupBody) envID(t *testing.T, name string) uuid.UUID {
	t.Helper()
	for _, e := range s.Environments {
		if e.Name == name {
			return e.ID
		}
	}
	t.Fatalf("no environment named %q in signup response", name)
	return uuid.UUID{}
}

type flagBody struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Environments map[string]struct {
		Enabled bool  `json:"enabled"`
		Rollout int32 `json:"rollout"`
	} `json:"environments"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]string
	rec := ts.do(t, http.MethodGet, "/health", "", nil, &body)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v, want 200 {status:ok}", rec.Code, body)
	}
}

func TestSignupCreatesFullTenancy(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")

	if signup.Project.Name != "acme" {
		t.Errorf("project name = %q, want acme", signup.Project.Name)
	}

	var projects []struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	rec := ts.do(t, http.MethodGet, "/v1/projects", signup.Token, nil, &projects)
	if rec.Code != http.StatusOK || len(projects) != 1 || projects[0].Name != "acme" {
		t.Fatalf("projects = %d %v, want exactly [acme]", rec.Code, projects)
	}

	var envs []struct {
		Name string `json:"name"`
	}
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/v1/projects/%s/environments", signup.Project.ID), signup.Token, nil, &envs)
	if rec.Code != http.StatusOK || len(envs) != 3 {
		t.Fatalf("environments = %d %v, want 3", rec.Code, envs)
	}
	want := map[string]bool{"development": true, "staging": true, "production": true}
	for _, e := range envs {
		if !want[e.Name] {
			t.Errorf("unexpected environment %q", e.Name)
		}
	}
}

func TestCreateFlagStartsDisabledEverywhere(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/v1/projects/%s/flags", signup.Project.ID), signup.Token,
		map[string]string{"key": "new-checkout", "name": "New Checkout"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create flag status = %d, body %s", rec.Code, rec.Body.String())
	}

	var flag flagBody
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/v1/projects/%s/flags/new-checkout", signup.Project.ID), signup.Token, nil, &flag)
	if rec.Code != http.StatusOK {
		t.Fatalf("get flag status = %d", rec.Code)
	}
	if len(flag.Environments) != 3 {
		t.Fatalf("got %d environments, want 3", len(flag.Environments))
	}
	for name, state := range flag.Environments {
		if state.Enabled || state.Rollout != 100 {
			t.Errorf("env %s = %+v, want {enabled:false rollout:100}", name, state)
		}
	}
}

func TestRolloutStickiness(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")
	pid := signup.Project.ID

	ts.do(t, http.MethodPost, fmt.Sprintf("/v1/projects/%s/flags", pid), signup.Token,
		map[string]string{"key": "new-checkout", "name": "New Checkout"}, nil)
	rec := ts.do(t, http.MethodPatch, fmt.Sprintf("/v1/projects/%s/flags/new-checkout/environments/production", pid), signup.Token,
		map[string]any{"enabled": true, "rollout_percentage": 50}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}

	envKey := ts.environmentKey(t, pid, signup.envID(t, "production"))

	var first struct {
		Key     string `json:"key"`
		Enabled bool   `json:"enabled"`
	}
	rec = ts.do(t, http.MethodGet, "/v1/flags/new-checkout?user_id=user-42", envKey, nil, &first)
	if rec.Code != http.StatusOK || first.Key != "new-checkout" {
		t.Fatalf("evaluate = %d %+v", rec.Code, first)
	}

	for i := 0; i < 100; i++ {
		var got struct {
			Enabled bool `json:"enabled"`
		}
		ts.do(t, http.MethodGet, "/v1/flags/new-checkout?user_id=user-42", envKey, nil, &got)
		if got.Enabled != first.Enabled {
			t.Fatalf("iteration %d: enabled=%v, want %v (sticky)", i, got.Enabled, first.Enabled)
		}
	}
}

func TestAnonymousPartialRolloutIsDisabled(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")
	pid := signup.Project.ID

	ts.do(t, http.MethodPost, fmt.Sprintf("/v1/projects/%s/flags", pid), signup.Token,
		map[string]string{"key": "new-checkout", "name": "New Checkout"}, nil)
	ts.do(t, http.MethodPatch, fmt.Sprintf("/v1/projects/%s/flags/new-checkout/environments/production", pid), signup.Token,
		map[string]any{"enabled": true, "rollout_percentage": 50}, nil)

	envKey := ts.environmentKey(t, pid, signup.envID(t, "production"))

	var result struct {
		Enabled bool `json:"enabled"`
	}
	rec := ts.do(t, http.MethodGet, "/v1/flags/new-checkout", envKey, nil, &result)
	if rec.Code != http.StatusOK || result.Enabled {
		t.Errorf("anonymous at 50%% = %d enabled=%v, want 200 false", rec.Code, result.Enabled)
	}

	ts.do(t, http.MethodPatch, fmt.Sprintf("/v1/projects/%s/flags/new-checkout/environments/production", pid), signup.Token,
		map[string]any{"rollout_percentage": 100}, nil)
	rec = ts.do(t, http.MethodGet, "/v1/flags/new-checkout", envKey, nil, &result)
	if rec.Code != http.StatusOK || !result.Enabled {
		t.Errorf("anonymous at 100%% = %d enabled=%v, want 200 true", rec.Code, result.Enabled)
	}
}

func TestTogglePairRoundTrips(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")
	pid := signup.Project.ID

	ts.do(t, http.MethodPost, fmt.Sprintf("/v1/projects/%s/flags", pid), signup.Token,
		map[string]string{"key": "flip", "name": "Flip"}, nil)

	togglePath := fmt.Sprintf("/v1/projects/%s/flags/flip/toggle?environment=development", pid)
	var first, second struct {
		Key         string `json:"key"`
		Environment string `json:"environment"`
		Enabled     bool   `json:"enabled"`
	}
	rec := ts.do(t, http.MethodPost, togglePath, signup.Token, nil, &first)
	if rec.Code != http.StatusOK || !first.Enabled {
		t.Fatalf("first toggle = %d %+v, want enabled true", rec.Code, first)
	}
	rec = ts.do(t, http.MethodPost, togglePath, signup.Token, nil, &second)
	if rec.Code != http.StatusOK || second.Enabled {
		t.Fatalf("second toggle = %d %+v, want back to disabled", rec.Code, second)
	}
}

func TestDuplicateSignupConflicts(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "alice", "hunter2pw", "acme")

	var errBody struct {
		Error string `json:"error"`
	}
	rec := ts.do(t, http.MethodPost, "/v1/auth/signup", "",
		map[string]string{"username": "alice", "password": "hunter2pw"}, &errBody)
	if rec.Code != http.StatusConflict || errBody.Error != "conflict" {
		t.Errorf("duplicate signup = %d %q, want 409 conflict", rec.Code, errBody.Error)
	}
}

func TestEnvironmentKeyCannotManageFlags(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")
	pid := signup.Project.ID
	envKey := ts.environmentKey(t, pid, signup.envID(t, "development"))

	var errBody struct {
		Error string `json:"error"`
	}
	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/v1/projects/%s/flags", pid), envKey,
		map[string]string{"key": "nope", "name": "Nope"}, &errBody)
	if rec.Code != http.StatusForbidden || errBody.Error != "forbidden" {
		t.Errorf("create flag with env key = %d %q, want 403 forbidden", rec.Code, errBody.Error)
	}
}

func TestEvaluateUnknownFlagFailsClosed(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")
	envKey := ts.environmentKey(t, signup.Project.ID, signup.envID(t, "production"))

	var result struct {
		Key     string `json:"key"`
		Enabled bool   `json:"enabled"`
	}
	rec := ts.do(t, http.MethodGet, "/v1/flags/does-not-exist", envKey, nil, &result)
	if rec.Code != http.StatusNotFound || result.Enabled {
		t.Errorf("unknown flag = %d enabled=%v, want 404 false", rec.Code, result.Enabled)
	}
	if result.Key != "does-not-exist" {
		t.Errorf("fail-closed body key = %q, want does-not-exist", result.Key)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ts := newTestServer(t)
	ts.signup(t, "carol", "correctpw1", "acme")

	var wrongPw, unknown struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	recWrong := ts.do(t, http.MethodPost, "/v1/auth/login", "",
		map[string]string{"username": "carol", "password": "wrongpassword"}, &wrongPw)
	recUnknown := ts.do(t, http.MethodPost, "/v1/auth/login", "",
		map[string]string{"username": "nobody-here", "password": "whatever1"}, &unknown)

	if recWrong.Code != http.StatusUnauthorized || recUnknown.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d/%d, want 401/401", recWrong.Code, recUnknown.Code)
	}
	if wrongPw != unknown {
		t.Errorf("bodies differ: %+v vs %+v", wrongPw, unknown)
	}
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodGet, "/v1/projects"},
		{http.MethodGet, fmt.Sprintf("/v1/projects/%s/flags", signup.Project.ID)},
		{http.MethodGet, "/v1/flags/anything"},
		{http.MethodGet, "/v1/auth/me"},
	} {
		rec := ts.do(t, tc.method, tc.path, "", nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")

	var user struct {
		Username string `json:"username"`
	}
	rec := ts.do(t, http.MethodGet, "/v1/auth/me", signup.Token, nil, &user)
	if rec.Code != http.StatusOK || user.Username != "alice" {
		t.Errorf("me = %d %q, want 200 alice", rec.Code, user.Username)
	}
}

func TestDeleteFlag(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")
	pid := signup.Project.ID

	ts.do(t, http.MethodPost, fmt.Sprintf("/v1/projects/%s/flags", pid), signup.Token,
		map[string]string{"key": "gone", "name": "Gone"}, nil)

	rec := ts.do(t, http.MethodDelete, fmt.Sprintf("/v1/projects/%s/flags/gone", pid), signup.Token, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", rec.Code)
	}
	rec = ts.do(t, http.MethodGet, fmt.Sprintf("/v1/projects/%s/flags/gone", pid), signup.Token, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestProjectKeyCanReadFlags(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")
	pid := signup.Project.ID

	ts.do(t, http.MethodPost, fmt.Sprintf("/v1/projects/%s/flags", pid), signup.Token,
		map[string]string{"key": "readable", "name": "Readable"}, nil)

	var flags []flagBody
	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/v1/projects/%s/flags", pid), signup.ApiKey.Key, nil, &flags)
	if rec.Code != http.StatusOK || len(flags) != 1 || flags[0].Key != "readable" {
		t.Errorf("list flags with project key = %d %v, want [readable]", rec.Code, flags)
	}
}

func TestInvalidBodiesAreBadRequests(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/projects/%s/flags", signup.Project.ID), bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+signup.Token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}
}

func TestRolloutValidationIs422(t *testing.T) {
	ts := newTestServer(t)
	signup := ts.signup(t, "alice", "hunter2pw", "acme")
	pid := signup.Project.ID

	ts.do(t, http.MethodPost, fmt.Sprintf("/v1/projects/%s/flags", pid), signup.Token,
		map[string]string{"key": "rng", "name": "Range"}, nil)

	var errBody struct {
		Error string `json:"error"`
	}
	rec := ts.do(t, http.MethodPatch, fmt.Sprintf("/v1/projects/%s/flags/rng/environments/production", pid), signup.Token,
		map[string]any{"rollout_percentage": 150}, &errBody)
	if rec.Code != http.StatusUnprocessableEntity || errBody.Error != "validation_error" {
		t.Errorf("rollout 150 = %d %q, want 422 validation_error", rec.Code, errBody.Error)
	}
}
