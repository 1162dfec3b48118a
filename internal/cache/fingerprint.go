package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContextPrefixLen is how many runes of the context take part in the key.
// The full context is large and changes only on restart.
const ContextPrefixLen = 100

// Fingerprint derives the cache key for a question asked against a context.
func Fingerprint(userInput, context string) string {
	h := sha256.New()
	h.Write([]byte(userInput))
	h.Write([]byte(prefix(context, ContextPrefixLen)))
	return hex.EncodeToString(h.Sum(nil))
}

func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
