package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// maxUsernameAttempts bounds the retry loop generating a unique
// readable username at signup; a Conflict after this many tries means
// the keyspace is saturated or something is wrong with uniqueness
// enforcement.
const maxUsernameAttempts = 20

var usernameAdjectives = []string{
	"quiet", "brave", "gentle", "careful", "bright", "calm", "eager",
	"fuzzy", "jolly", "kind", "lively", "mellow", "nimble", "proud",
	"sunny", "swift", "tidy", "vivid", "witty", "zesty",
}

var usernameNouns = []string{
	"falcon", "otter", "heron", "wren", "badger", "marten", "lynx",
	"sparrow", "beetle", "cricket", "dolphin", "gecko", "hedgehog",
	"ibis", "jackal", "koala", "lemur", "newt", "osprey", "panther",
}

// generateReadableUsername produces a "two-word dictionary form" name
// like "quiet-falcon-42", used when signup omits a username.
func generateReadableUsername() (string, error) {
	adj, err := randomElement(usernameAdjectives)
	if err != nil {
		return "", err
	}
	noun, err := randomElement(usernameNouns)
	if err != nil {
		return "", err
	}
	suffix, err := randomInt(1000)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%d", adj, noun, suffix), nil
}

func randomElement(words []string) (string, error) {
	n, err := randomInt(len(words))
	if err != nil {
		return "", err
	}
	return words[n], nil
}

func randomInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("service: generate random int: %w", err)
	}
	return int(n.Int64()), nil
}
