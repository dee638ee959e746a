// Package bucket provides the deterministic user-bucketing function
// that makes percentage rollouts sticky without per-user storage.
//
// The algorithm is a wire contract, not an implementation detail:
// clients (SDKs) compute the same bucket locally for caching, so the
// hash choice and reduction must never change without a breaking-change
// announcement.
package bucket

import (
	"github.com/twmb/murmur3"
)

// separator is the single byte placed between the flag key and the
// user id before hashing.
const separator = 0x3A // ':'

// Of returns a bucket in [0,100) for the given flag key and user id.
//
// Same (flagKey, userID) always produces the same bucket, across
// processes, restarts, and both storage adapters. If userID is empty,
// Of returns 0; callers are expected to treat an empty userID as
// "anonymous" and apply their own anonymous-evaluation rule, not to
// rely on bucket 0 having any special meaning.
func Of(flagKey, userID string) int {
	if userID == "" {
		return 0
	}
	buf := make([]byte, 0, len(flagKey)+1+len(userID))
	buf = append(buf, flagKey...)
	buf = append(buf, separator)
	buf = append(buf, userID...)

	hi, lo := murmur3.Sum128(buf)
	_ = hi // only the low 64 bits are part of the wire contract
	return int(lo % 100)
}

// EnabledForUser reports whether a user falls inside a rollout
// percentage for a flag. It is pure and never mutates state.
//
// Monotonicity: for fixed (flagKey, userID), increasing rolloutPct
// never flips an enabled user to disabled, because the bucket is fixed
// and the comparison is bucket < rolloutPct.
func EnabledForUser(flagKey, userID string, rolloutPct int32) bool {
	return Of(flagKey, userID) < int(rolloutPct)
}
