package cache

import (
	"crypto/md5" // #nosec G501 -- cache fingerprint, not a security boundary.
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
)

// FieldDelimiter separates fingerprint fields and joined restrictions.
const FieldDelimiter = "_"

// Keyer derives cache keys from recipe request parameters.
//
// Contract:
// - Determinism: same normalized inputs must produce the same key.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key from the request fields.
	Key(name string, servings int, restrictions []string) string
}

// RecipeKeyer is the default Keyer. It delegates to Fingerprint.
type RecipeKeyer struct{}

// NewRecipeKeyer creates a new default keyer.
func NewRecipeKeyer() *RecipeKeyer {
	return &RecipeKeyer{}
}

// Key generates a deterministic cache key.
func (k *RecipeKeyer) Key(name string, servings int, restrictions []string) string {
	return Fingerprint(name, servings, restrictions)
}

// Fingerprint returns the 32 character lowercase hex MD5 of
//
//	lower(trim(name)) + "_" + servings + "_" + join(sort(restrictions), "_")
//
// An absent or empty restriction list contributes an empty string. Restriction
// values are not case folded. The format is fixed so any implementation that
// follows it produces the same keys.
func Fingerprint(name string, servings int, restrictions []string) string {
	return hashFingerprint(canonicalize(name, servings, restrictions))
}

// canonicalize builds the pre-digest string for Fingerprint.
func canonicalize(name string, servings int, restrictions []string) string {
	var joined string
	if len(restrictions) > 0 {
		sorted := slices.Clone(restrictions)
		slices.Sort(sorted)
		joined = strings.Join(sorted, FieldDelimiter)
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(name)))
	b.WriteString(FieldDelimiter)
	b.WriteString(strconv.Itoa(servings))
	b.WriteString(FieldDelimiter)
	b.WriteString(joined)
	return b.String()
}

func hashFingerprint(s string) string {
	sum := md5.Sum([]byte(s)) // #nosec G401 -- see import.
	return hex.EncodeToString(sum[:])
}

// Ensure RecipeKeyer implements Keyer
var _ Keyer = (*RecipeKeyer)(nil)
