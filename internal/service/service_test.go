package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/TimurManjosov/flaglite/internal/store/sqlitestore"
	"github.com/google/uuid"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flaglite.db")
	s, err := sqlitestore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	return s
}

func strPtr(s string) *string { return &s }

// signupFixture wires a store + auth service and runs one signup,
// returning everything a downstream test needs: the store, the issued
// token resolved to a user principal, and the created project.
func signupFixture(t *testing.T) (store.Store, *authn.Resolver, *SignupResult) {
	t.Helper()
	s := newTestStore(t)
	tokens := authn.NewTokenIssuer("test-secret-at-least-32-bytes-long!!")
	auth := NewAuthService(s, tokens)

	result, err := auth.Signup(context.Background(), strPtr("alice"), "hunter2pw", strPtr("acme"))
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	resolver := authn.NewResolver(s, s, tokens)
	return s, resolver, result
}

func userPrincipal(t *testing.T, resolver *authn.Resolver, token string) *authn.Principal {
	t.Helper()
	p, err := resolver.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve user token: %v", err)
	}
	return p
}

func TestSignup_CreatesFullTenancy(t *testing.T) {
	_, _, result := signupFixture(t)

	if result.Project.Name != "acme" {
		t.Errorf("project name = %q, want acme", result.Project.Name)
	}
	if len(result.Environments) != 3 {
		t.Fatalf("got %d environments, want 3", len(result.Environments))
	}
	want := map[string]bool{"development": true, "staging": true, "production": true}
	for _, e := range result.Environments {
		if !want[e.Name] {
			t.Errorf("unexpected environment %q", e.Name)
		}
	}
	if result.ApiKey.Key == "" {
		t.Error("expected a plaintext api key at signup")
	}
}

func TestSignup_DuplicateUsernameConflicts(t *testing.T) {
	s := newTestStore(t)
	tokens := authn.NewTokenIssuer("test-secret-at-least-32-bytes-long!!")
	auth := NewAuthService(s, tokens)
	ctx := context.Background()

	if _, err := auth.Signup(ctx, strPtr("bob"), "hunter2pw", nil); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, err := auth.Signup(ctx, strPtr("bob"), "hunter2pw", nil)
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("second signup error = %v, want ErrConflict", err)
	}
}

func TestSignup_ShortPasswordIsValidationError(t *testing.T) {
	s := newTestStore(t)
	tokens := authn.NewTokenIssuer("test-secret-at-least-32-bytes-long!!")
	auth := NewAuthService(s, tokens)

	_, err := auth.Signup(context.Background(), strPtr("shortpw"), "abc", nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestLogin_WrongPasswordAndUnknownUsernameAreIndistinguishable(t *testing.T) {
	s := newTestStore(t)
	tokens := authn.NewTokenIssuer("test-secret-at-least-32-bytes-long!!")
	auth := NewAuthService(s, tokens)
	ctx := context.Background()

	if _, err := auth.Signup(ctx, strPtr("carol"), "correctpw1", nil); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, errWrongPw := auth.Login(ctx, "carol", "wrongpassword")
	_, errUnknown := auth.Login(ctx, "nobody-at-all", "whatever1")

	if !errors.Is(errWrongPw, ErrUnauthorized) || !errors.Is(errUnknown, ErrUnauthorized) {
		t.Fatalf("errWrongPw=%v errUnknown=%v, both want ErrUnauthorized", errWrongPw, errUnknown)
	}
}

func TestLogin_ReturnsFirstProject(t *testing.T) {
	s := newTestStore(t)
	tokens := authn.NewTokenIssuer("test-secret-at-least-32-bytes-long!!")
	auth := NewAuthService(s, tokens)
	ctx := context.Background()
	if _, err := auth.Signup(ctx, strPtr("dora"), "hunter2pw", strPtr("proj1")); err != nil {
		t.Fatalf("signup: %v", err)
	}

	result, err := auth.Login(ctx, "dora", "hunter2pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Project == nil || result.Project.Name != "proj1" {
		t.Errorf("login project = %+v, want proj1", result.Project)
	}
}

func TestMe_RequiresUserPrincipal(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	tokens := authn.NewTokenIssuer("test-secret-at-least-32-bytes-long!!")
	auth := NewAuthService(s, tokens)

	principal := userPrincipal(t, resolver, signup.Token)
	view, err := auth.Me(context.Background(), principal)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if view.Username != signup.User.Username {
		t.Errorf("Me username = %q, want %q", view.Username, signup.User.Username)
	}

	if _, err := auth.Me(context.Background(), nil); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Me(nil) error = %v, want ErrUnauthorized", err)
	}
}

func TestCreateFlag_SeedsAllEnvironmentsDisabled(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	principal := userPrincipal(t, resolver, signup.Token)
	flags := NewFlagService(s)
	ctx := context.Background()

	view, err := flags.CreateFlag(ctx, principal, signup.Project.ID, CreateFlagParams{Key: "new-checkout", Name: "New Checkout"})
	if err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}
	if len(view.Environments) != 3 {
		t.Fatalf("got %d environment states, want 3", len(view.Environments))
	}
	for name, st := range view.Environments {
		if st.Enabled || st.RolloutPercentage != 100 {
			t.Errorf("env %s = %+v, want {enabled:false rollout:100}", name, st)
		}
	}
}

func TestCreateFlag_DuplicateKeyConflicts(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	principal := userPrincipal(t, resolver, signup.Token)
	flags := NewFlagService(s)
	ctx := context.Background()

	if _, err := flags.CreateFlag(ctx, principal, signup.Project.ID, CreateFlagParams{Key: "dup", Name: "Dup"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := flags.CreateFlag(ctx, principal, signup.Project.ID, CreateFlagParams{Key: "dup", Name: "Dup"})
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("second create error = %v, want ErrConflict", err)
	}
}

func TestCreateFlag_InvalidKeyIsValidationError(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	principal := userPrincipal(t, resolver, signup.Token)
	flags := NewFlagService(s)

	_, err := flags.CreateFlag(context.Background(), principal, signup.Project.ID, CreateFlagParams{Key: "Bad_Key!", Name: "x"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestToggleFlagValue_RoundTrips(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	principal := userPrincipal(t, resolver, signup.Token)
	flags := NewFlagService(s)
	ctx := context.Background()

	if _, err := flags.CreateFlag(ctx, principal, signup.Project.ID, CreateFlagParams{Key: "flip", Name: "Flip"}); err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}

	first, err := flags.ToggleFlagValue(ctx, principal, signup.Project.ID, "flip", "development")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	second, err := flags.ToggleFlagValue(ctx, principal, signup.Project.ID, "flip", "development")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if first.Enabled == second.Enabled {
		t.Errorf("two toggles should flip twice: first=%v second=%v", first.Enabled, second.Enabled)
	}
	if second.Enabled != false {
		t.Errorf("two toggles should return to initial state (false), got %v", second.Enabled)
	}
}

func TestUpdateFlagValue_RolloutOutOfRangeIsValidationError(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	principal := userPrincipal(t, resolver, signup.Token)
	flags := NewFlagService(s)
	ctx := context.Background()

	if _, err := flags.CreateFlag(ctx, principal, signup.Project.ID, CreateFlagParams{Key: "rng", Name: "Range"}); err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}

	bad := int32(150)
	_, err := flags.UpdateFlagValue(ctx, principal, signup.Project.ID, "rng", "production", UpdateFlagValueParams{RolloutPercentage: &bad})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestDeleteFlag_RemovesIt(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	principal := userPrincipal(t, resolver, signup.Token)
	flags := NewFlagService(s)
	ctx := context.Background()

	if _, err := flags.CreateFlag(ctx, principal, signup.Project.ID, CreateFlagParams{Key: "gone", Name: "Gone"}); err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}
	if err := flags.DeleteFlag(ctx, principal, signup.Project.ID, "gone"); err != nil {
		t.Fatalf("DeleteFlag: %v", err)
	}
	_, err := flags.GetFlag(ctx, principal, signup.Project.ID, "gone")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetFlag after delete = %v, want ErrNotFound", err)
	}
}

func TestEnvironmentKeyCannotManageFlags(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	principal := userPrincipal(t, resolver, signup.Token)
	flags := NewFlagService(s)
	projects := NewProjectService(s)
	ctx := context.Background()

	envs, err := projects.ListEnvironments(ctx, principal, signup.Project.ID)
	if err != nil {
		t.Fatalf("ListEnvironments: %v", err)
	}
	var devEnvID = envs[0].ID
	for _, e := range envs {
		if e.Name == "development" {
			devEnvID = e.ID
		}
	}

	generated, err := authn.GenerateApiKey("environment")
	if err != nil {
		t.Fatalf("GenerateApiKey: %v", err)
	}
	apiKey := mustStoreEnvironmentKey(t, s, signup.Project.ID, devEnvID, generated)
	envPrincipal := &authn.Principal{Kind: authn.PrincipalEnvironmentKey, ApiKey: apiKey}

	_, err = flags.CreateFlag(ctx, envPrincipal, signup.Project.ID, CreateFlagParams{Key: "nope", Name: "Nope"})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("CreateFlag with environment key = %v, want ErrForbidden", err)
	}
}

func TestEvaluate_UnknownFlagIsNotFound(t *testing.T) {
	s, _, signup := signupFixture(t)
	eval := NewEvaluationService(s)
	projects := NewProjectService(s)
	ctx := context.Background()

	tokens := authn.NewTokenIssuer("test-secret-at-least-32-bytes-long!!")
	resolver := authn.NewResolver(s, s, tokens)
	principal := userPrincipal(t, resolver, signup.Token)

	envs, err := projects.ListEnvironments(ctx, principal, signup.Project.ID)
	if err != nil {
		t.Fatalf("ListEnvironments: %v", err)
	}
	generated, err := authn.GenerateApiKey("environment")
	if err != nil {
		t.Fatalf("GenerateApiKey: %v", err)
	}
	apiKey := mustStoreEnvironmentKey(t, s, signup.Project.ID, envs[0].ID, generated)
	envPrincipal := &authn.Principal{Kind: authn.PrincipalEnvironmentKey, ApiKey: apiKey}

	_, err = eval.Evaluate(ctx, envPrincipal, "does-not-exist", "user-1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Evaluate unknown flag = %v, want ErrNotFound", err)
	}
}

func TestEvaluate_FailsClosed(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	principal := userPrincipal(t, resolver, signup.Token)
	flags := NewFlagService(s)
	projects := NewProjectService(s)
	eval := NewEvaluationService(s)
	ctx := context.Background()

	if _, err := flags.CreateFlag(ctx, principal, signup.Project.ID, CreateFlagParams{Key: "rollout-flag", Name: "Rollout"}); err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}
	enabled := true
	fifty := int32(50)
	if _, err := flags.UpdateFlagValue(ctx, principal, signup.Project.ID, "rollout-flag", "production", UpdateFlagValueParams{Enabled: &enabled, RolloutPercentage: &fifty}); err != nil {
		t.Fatalf("UpdateFlagValue: %v", err)
	}

	envs, err := projects.ListEnvironments(ctx, principal, signup.Project.ID)
	if err != nil {
		t.Fatalf("ListEnvironments: %v", err)
	}
	var prodEnvID = envs[0].ID
	for _, e := range envs {
		if e.Name == "production" {
			prodEnvID = e.ID
		}
	}
	generated, err := authn.GenerateApiKey("environment")
	if err != nil {
		t.Fatalf("GenerateApiKey: %v", err)
	}
	apiKey := mustStoreEnvironmentKey(t, s, signup.Project.ID, prodEnvID, generated)
	envPrincipal := &authn.Principal{Kind: authn.PrincipalEnvironmentKey, ApiKey: apiKey}

	// Anonymous (no user id) against a partial rollout must fail closed.
	result, err := eval.Evaluate(ctx, envPrincipal, "rollout-flag", "")
	if err != nil {
		t.Fatalf("Evaluate anonymous: %v", err)
	}
	if result.Enabled {
		t.Error("anonymous user against 50% rollout should be disabled, got enabled")
	}

	// Setting rollout to 100 makes anonymous evaluation enabled.
	hundred := int32(100)
	if _, err := flags.UpdateFlagValue(ctx, principal, signup.Project.ID, "rollout-flag", "production", UpdateFlagValueParams{RolloutPercentage: &hundred}); err != nil {
		t.Fatalf("UpdateFlagValue: %v", err)
	}
	result, err = eval.Evaluate(ctx, envPrincipal, "rollout-flag", "")
	if err != nil {
		t.Fatalf("Evaluate anonymous at 100%%: %v", err)
	}
	if !result.Enabled {
		t.Error("anonymous user against 100% rollout should be enabled")
	}
}

func TestEvaluate_StickyAcrossRepeatedCalls(t *testing.T) {
	s, resolver, signup := signupFixture(t)
	principal := userPrincipal(t, resolver, signup.Token)
	flags := NewFlagService(s)
	projects := NewProjectService(s)
	eval := NewEvaluationService(s)
	ctx := context.Background()

	if _, err := flags.CreateFlag(ctx, principal, signup.Project.ID, CreateFlagParams{Key: "sticky", Name: "Sticky"}); err != nil {
		t.Fatalf("CreateFlag: %v", err)
	}
	enabled := true
	fifty := int32(50)
	if _, err := flags.UpdateFlagValue(ctx, principal, signup.Project.ID, "sticky", "production", UpdateFlagValueParams{Enabled: &enabled, RolloutPercentage: &fifty}); err != nil {
		t.Fatalf("UpdateFlagValue: %v", err)
	}

	envs, err := projects.ListEnvironments(ctx, principal, signup.Project.ID)
	if err != nil {
		t.Fatalf("ListEnvironments: %v", err)
	}
	var prodEnvID = envs[0].ID
	for _, e := range envs {
		if e.Name == "production" {
			prodEnvID = e.ID
		}
	}
	generated, err := authn.GenerateApiKey("environment")
	if err != nil {
		t.Fatalf("GenerateApiKey: %v", err)
	}
	apiKey := mustStoreEnvironmentKey(t, s, signup.Project.ID, prodEnvID, generated)
	envPrincipal := &authn.Principal{Kind: authn.PrincipalEnvironmentKey, ApiKey: apiKey}

	first, err := eval.Evaluate(ctx, envPrincipal, "sticky", "user-42")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := 0; i < 100; i++ {
		got, err := eval.Evaluate(ctx, envPrincipal, "sticky", "user-42")
		if err != nil {
			t.Fatalf("Evaluate iteration %d: %v", i, err)
		}
		if got.Enabled != first.Enabled {
			t.Fatalf("iteration %d: enabled=%v, want %v (sticky)", i, got.Enabled, first.Enabled)
		}
	}
}

// mustStoreEnvironmentKey persists an environment-scoped API key
// generated by authn.GenerateApiKey so it can be resolved into a
// usable Principal in tests that need to call evaluation/flag
// services as an SDK rather than a signed-in user.
func mustStoreEnvironmentKey(t *testing.T, s store.Store, projectID, environmentID uuid.UUID, generated authn.GeneratedApiKey) *domain.ApiKey {
	t.Helper()
	key := domain.ApiKey{
		ID:            uuid.New(),
		SecretHash:    generated.SecretHash,
		Prefix:        generated.Prefix,
		Kind:          domain.ApiKeyKindEnvironment,
		ProjectID:     projectID,
		EnvironmentID: &environmentID,
		CreatedAt:     store.Now(),
	}
	if err := s.CreateApiKey(context.Background(), key); err != nil {
		t.Fatalf("CreateApiKey: %v", err)
	}
	return &key
}
