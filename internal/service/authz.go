package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/TimurManjosov/flaglite/internal/authn"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

// authorizeProjectAccess is shared by every project-scoped operation:
// a user principal must own the project, a project key must belong to
// it. Environment keys are rejected; they may only evaluate flags.
func authorizeProjectAccess(ctx context.Context, s store.Store, principal *authn.Principal, projectID uuid.UUID) error {
	if principal == nil {
		return ErrForbidden
	}
	switch principal.Kind {
	case authn.PrincipalUser:
		project, err := s.FindProjectByID(ctx, projectID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.ErrNotFound
			}
			return fmt.Errorf("service: look up project: %w", err)
		}
		if project.OwnerUserID != principal.UserID {
			return ErrForbidden
		}
		return nil
	case authn.PrincipalProjectKey:
		if principal.ApiKey == nil || principal.ApiKey.ProjectID != projectID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
