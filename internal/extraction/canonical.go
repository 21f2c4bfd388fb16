package extraction

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

var punctuationFolder = strings.NewReplacer(
	"—", "-", // em dash
	"–", "-", // en dash
	"“", `"`,
	"”", `"`,
	"‘", `"`,
	"’", `"`,
	"`", `"`,
)

// Canonicalize normalises a transcript so insignificant formatting changes
// map to the same cache key. It trims, collapses whitespace, folds dashes and
// typographic quotes to ASCII, and lowercases.
func Canonicalize(transcript string) string {
	t := CollapseWhitespace(transcript)
	t = punctuationFolder.Replace(t)
	return strings.ToLower(t)
}

// CacheKey builds the content-addressed key for a model extraction.
func CacheKey(model string, seed int, anchorDateISO, canonical string) string {
	return strings.Join([]string{
		ScoringVersion,
		ExtractionRulesVersion,
		model,
		strconv.Itoa(seed),
		anchorDateISO,
		canonical,
	}, "|")
}

// KeyDigest returns a short hex digest of a cache key, safe for logs and
// for backends with key-length limits.
func KeyDigest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
