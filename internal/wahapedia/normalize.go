package wahapedia

import (
	"strings"

	"golang.org/x/text/cases"
)

var quoteFolder = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"`", "'",
	"´", "'",
	"“", `"`,
	"”", `"`,
)

// NormalizeName is the key every name lookup compares on: typographic quotes
// folded to ASCII, surrounding space trimmed, Unicode case-folded.
func NormalizeName(s string) string {
	s = strings.TrimSpace(quoteFolder.Replace(s))
	// Casers carry state and must not be shared between goroutines.
	return cases.Fold().String(s)
}

// SameName compares two free-text names after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
