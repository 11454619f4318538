package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// NormalizeKeyword canonicalizes a keyword for cache keying: trim, lower-case,
// and collapse internal whitespace runs to a single space. Keywords that
// differ only in case or surrounding whitespace share one cache entry.
func NormalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
}

// QueryKey derives the cache key for a keyword from its normalized form.
func QueryKey(prefix, keyword string) string {
	sum := sha256.Sum256([]byte(NormalizeKeyword(keyword)))
	return fmt.Sprintf("%s:query:%s", prefix, hex.EncodeToString(sum[:]))
}
