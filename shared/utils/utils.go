// Package utils holds small helpers shared between the engine, the session
// store, and the CLI.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/zeebo/xxh3"
	shared "histedit/shared/types"
)

// HashContent returns the content-addressed sha256 hex digest of content,
// for wherever a stable, collision-resistant identity is required. No
// caller in this module uses it; checkpoints are keyed by uuid.
func HashContent(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// CacheKey builds a cheap, non-cryptographic digest for the legality
// memoization cache: each state owns its own cache, and the key covers the
// revs plus an operation name, re-derived on every call, so a fast hash
// beats sha256 here.
func CacheKey(revs []shared.Rev, arg string) uint64 {
	h := xxh3.New()
	for _, r := range revs {
		var b [8]byte
		putVarint(b[:], int64(r))
		h.Write(b[:])
	}
	h.WriteString("|")
	h.WriteString(arg)
	return h.Sum64()
}

func putVarint(b []byte, v int64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// SortedKeys returns the keys of m in ascending order, used throughout the
// stack builder to make per-commit file processing order deterministic.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
