package authn

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/TimurManjosov/flaglite/internal/domain"
)

// GeneratedApiKey is the plaintext secret and the record fields derived
// from it. The plaintext is returned to the caller exactly once, at
// creation time, and never stored.
type GeneratedApiKey struct {
	Plaintext  string
	SecretHash string
	Prefix     string
}

// GenerateApiKey produces a new random key secret for the given kind.
// Unlike user passwords, key secrets are hashed with SHA-256 rather
// than a salted KDF: every authenticated request on the evaluation hot
// path carries a key, and the store looks it up by an equality index
// (FindApiKeyByHash) rather than by iterating and comparing — a
// per-call random salt makes that lookup impossible, so the secret
// itself supplies the entropy instead of the hash function's work
// factor.
func GenerateApiKey(kind domain.ApiKeyKind) (GeneratedApiKey, error) {
	prefix := domain.EnvironmentKeyPrefix
	if kind == domain.ApiKeyKindProject {
		prefix = domain.ProjectKeyPrefix
	}

	randomBytes := make([]byte, domain.MinKeySecretChars)
	if _, err := rand.Read(randomBytes); err != nil {
		return GeneratedApiKey{}, fmt.Errorf("authn: generate key secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(randomBytes)
	plaintext := prefix + secret

	return GeneratedApiKey{
		Plaintext:  plaintext,
		SecretHash: HashApiKeySecret(plaintext),
		Prefix:     prefix,
	}, nil
}

// HashApiKeySecret deterministically hashes a key's plaintext so it can
// be looked up by exact match.
func HashApiKeySecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
