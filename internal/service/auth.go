package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

// MinPasswordLength is the minimum accepted password length at signup.
const MinPasswordLength = 8

// DefaultProjectName is used when signup omits project_name.
const DefaultProjectName = "default"

// AuthService implements signup, login, and principal-to-user
// resolution.
type AuthService struct {
	store  store.Store
	tokens *authn.TokenIssuer
}

func NewAuthService(s store.Store, tokens *authn.TokenIssuer) *AuthService {
	return &AuthService{store: s, tokens: tokens}
}

// SignupResult is the full tenancy created by one signup call.
type SignupResult struct {
	User         UserView
	Token        string
	Project      ProjectView
	Environments []EnvironmentView
	ApiKey       ApiKeyCreatedView
}

// Signup creates a user, their first project, its three default
// environments, and one project-scoped API key in a single
// transaction, then issues a JWT for the new user.
func (s *AuthService) Signup(ctx context.Context, username *string, password string, projectName *string) (*SignupResult, error) {
	if len(password) < MinPasswordLength {
		return nil, newValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	name := DefaultProjectName
	if projectName != nil && *projectName != "" {
		name = *projectName
	}

	passwordHash, err := authn.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := store.Now()
	user := domain.User{ID: uuid.New(), PasswordHash: passwordHash, CreatedAt: now}
	project := domain.Project{ID: uuid.New(), OwnerUserID: user.ID, Name: name, CreatedAt: now}

	envs := make([]domain.Environment, len(domain.DefaultEnvironments))
	for i, envName := range domain.DefaultEnvironments {
		envs[i] = domain.Environment{ID: uuid.New(), ProjectID: project.ID, Name: envName, CreatedAt: now}
	}

	generatedKey, err := authn.GenerateApiKey(domain.ApiKeyKindProject)
	if err != nil {
		return nil, err
	}
	apiKey := domain.ApiKey{
		ID:         uuid.New(),
		SecretHash: generatedKey.SecretHash,
		Prefix:     generatedKey.Prefix,
		Kind:       domain.ApiKeyKindProject,
		ProjectID:  project.ID,
		CreatedAt:  now,
	}

	attemptedUsername, err := s.resolveUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	user.Username = attemptedUsername

	if err := s.store.CreateUserAndProject(ctx, user, project, envs, apiKey); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &SignupResult{
		User:         userView(user),
		Token:        token,
		Project:      projectView(project),
		Environments: environmentViews(envs),
		ApiKey:       ApiKeyCreatedView{ID: apiKey.ID, Key: generatedKey.Plaintext, Prefix: generatedKey.Prefix},
	}, nil
}

// resolveUsername returns the caller-supplied username unchanged (the
// store's unique index is the source of truth on conflict), or
// generates a readable one and retries until it is free.
func (s *AuthService) resolveUsername(ctx context.Context, username *string) (string, error) {
	if username != nil && *username != "" {
		return *username, nil
	}

	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		candidate, err := generateReadableUsername()
		if err != nil {
			return "", err
		}
		if _, err := s.store.FindUserByUsername(ctx, candidate); errors.Is(err, store.ErrNotFound) {
			return candidate, nil
		}
	}
	return "", store.ErrConflict
}

// LoginResult mirrors signup's shape minus the freshly-created
// project/environments/api-key, since login returns the user's
// existing first project for convenience rather than creating one.
type LoginResult struct {
	Token        string
	User         UserView
	Project      *ProjectView
	Environments []EnvironmentView
}

// Login verifies credentials and issues a fresh JWT. Unknown username
// and wrong password return the identical error so the client cannot
// distinguish account existence from a bad password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Run a hash comparison against a fixed dummy value anyway so
			// the unknown-username path costs about the same as the
			// wrong-password path.
			authn.VerifyPassword(password, dummyPasswordHash)
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if !authn.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrUnauthorized
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{Token: token, User: userView(*user)}

	projects, err := s.store.ListProjectsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(projects) > 0 {
		p := projects[0]
		pv := projectView(p)
		result.Project = &pv

		envs, err := s.store.ListEnvironmentsForProject(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		result.Environments = environmentViews(envs)
	}

	return result, nil
}

// Me returns the user bound to principal, which must be a user
// principal (a JWT), not an API key.
func (s *AuthService) Me(ctx context.Context, principal *authn.Principal) (*UserView, error) {
	if principal == nil || principal.Kind != authn.PrincipalUser {
		return nil, ErrUnauthorized
	}
	user, err := s.store.FindUserByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	view := userView(*user)
	return &view, nil
}

// dummyPasswordHash is a valid hash compared against on the
// unknown-username path so that path costs about the same as comparing
// a real user's stored hash. The plaintext it was generated from is
// irrelevant and never checked.
var dummyPasswordHash = func() string {
	h, err := authn.HashPassword("placeholder-timing-equalizer")
	if err != nil {
		panic(err)
	}
	return h
}()
