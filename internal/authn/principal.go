package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TimurManjosov/flaglite/internal/domain"
	"github.com/TimurManjosov/flaglite/internal/store"
	"github.com/google/uuid"
)

// PrincipalKind distinguishes the three ways a request can be
// authenticated. Handlers declare which kinds they accept.
type PrincipalKind string

const (
	PrincipalUser           PrincipalKind = "user"
	PrincipalProjectKey     PrincipalKind = "project_key"
	PrincipalEnvironmentKey PrincipalKind = "environment_key"
)

// Principal identifies the caller of an authenticated request.
type Principal struct {
	Kind   PrincipalKind
	UserID uuid.UUID      // set when Kind == PrincipalUser
	ApiKey *domain.ApiKey // set when Kind is one of the key kinds
}

// ErrNoCredentials means the request carried no bearer token at all.
var ErrNoCredentials = errors.New("authn: no credentials")

// ErrUnauthenticated means a bearer token was present but did not
// resolve to any user or key.
var ErrUnauthenticated = errors.New("authn: unauthenticated")

// Resolver turns a bearer token into a Principal by sniffing its
// prefix: ffl_proj_ and ffl_env_ route to an API key lookup, anything
// else is treated as a JWT.
type Resolver struct {
	users  store.Users
	keys   store.ApiKeys
	tokens *TokenIssuer
}

func NewResolver(users store.Users, keys store.ApiKeys, tokens *TokenIssuer) *Resolver {
	return &Resolver{users: users, keys: keys, tokens: tokens}
}

// ExtractBearerToken strips a case-insensitive "Bearer " prefix from
// an Authorization header value.
func ExtractBearerToken(authHeader string) string {
	token := strings.TrimSpace(authHeader)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// Resolve resolves a raw bearer token into a Principal.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrNoCredentials
	}

	switch {
	case strings.HasPrefix(token, domain.ProjectKeyPrefix), strings.HasPrefix(token, domain.EnvironmentKeyPrefix):
		return r.resolveApiKey(ctx, token)
	default:
		return r.resolveJWT(ctx, token)
	}
}

func (r *Resolver) resolveApiKey(ctx context.Context, token string) (*Principal, error) {
	hash := HashApiKeySecret(token)
	key, err := r.keys.FindApiKeyByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("authn: look up api key: %w", err)
	}

	kind := PrincipalProjectKey
	if key.Kind == domain.ApiKeyKindEnvironment {
		kind = PrincipalEnvironmentKey
	}
	return &Principal{Kind: kind, ApiKey: key}, nil
}

func (r *Resolver) resolveJWT(ctx context.Context, token string) (*Principal, error) {
	userID, err := r.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if _, err := r.users.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("authn: look up user: %w", err)
	}
	return &Principal{Kind: PrincipalUser, UserID: userID}, nil
}

// Accepts reports whether p's kind is one of the allowed kinds.
func (p *Principal) Accepts(kinds ...PrincipalKind) bool {
	for _, k := range kinds {
		if p.Kind == k {
			return true
		}
	}
	return false
}
