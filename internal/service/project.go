package service

import (
	"context"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

// ProjectService implements project and environment provisioning and
// listing.
type ProjectService struct {
	store store.Store
}

func NewProjectService(s store.Store) *ProjectService {
	return &ProjectService{store: s}
}

// CreateProject creates a project, its three default environments, and
// one project-scoped API key in a single transaction, owned by the
// calling user. Only a user principal may create a project.
func (s *ProjectService) CreateProject(ctx context.Context, principal *authn.Principal, name string) (*ProjectView, []EnvironmentView, error) {
	if principal == nil || principal.Kind != authn.PrincipalUser {
		return nil, nil, ErrForbidden
	}
	if name == "" {
		return nil, nil, newValidationError("name", "must not be empty")
	}

	now := store.Now()
	project := domain.Project{ID: uuid.New(), OwnerUserID: principal.UserID, Name: name, CreatedAt: now}
	envs := make([]domain.Environment, len(domain.DefaultEnvironments))
	for i, envName := range domain.DefaultEnvironments {
		envs[i] = domain.Environment{ID: uuid.New(), ProjectID: project.ID, Name: envName, CreatedAt: now}
	}
	generatedKey, err := authn.GenerateApiKey(domain.ApiKeyKindProject)
	if err != nil {
		return nil, nil, err
	}
	apiKey := domain.ApiKey{
		ID:         uuid.New(),
		SecretHash: generatedKey.SecretHash,
		Prefix:     generatedKey.Prefix,
		Kind:       domain.ApiKeyKindProject,
		ProjectID:  project.ID,
		CreatedAt:  now,
	}

	if err := s.store.CreateProjectWithDefaults(ctx, project, envs, apiKey); err != nil {
		return nil, nil, err
	}

	pv := projectView(project)
	return &pv, environmentViews(envs), nil
}

// ListProjects returns the projects owned by the calling user.
func (s *ProjectService) ListProjects(ctx context.Context, principal *authn.Principal) ([]ProjectView, error) {
	if principal == nil || principal.Kind != authn.PrincipalUser {
		return nil, ErrForbidden
	}
	projects, err := s.store.ListProjectsForUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectView, len(projects))
	for i, p := range projects {
		out[i] = projectView(p)
	}
	return out, nil
}

// ListEnvironments returns a project's environments. A user principal
// must own the project; a project key must be scoped to it.
func (s *ProjectService) ListEnvironments(ctx context.Context, principal *authn.Principal, projectID uuid.UUID) ([]EnvironmentView, error) {
	if err := authorizeProjectAccess(ctx, s.store, principal, projectID); err != nil {
		return nil, err
	}
	envs, err := s.store.ListEnvironmentsForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return environmentViews(envs), nil
}
