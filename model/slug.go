package model

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	slugInvalid   = regexp.MustCompile(`[^a-z0-9_\s-]`)
	slugSeparator = regexp.MustCompile(`[-\s]+`)
	nonASCII      = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })
)

// Slugify converts a display name into its canonical URL-safe slug:
// lowercase ASCII letters, digits, underscores and single hyphens.
func Slugify(name string) string {
	// NFKD splits accented letters so the base letter survives the ASCII filter.
	// Transformers carry state, so the chain is built per call.
	fold := transform.Chain(norm.NFKD, runes.Remove(nonASCII))
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	s := slugInvalid.ReplaceAllString(strings.ToLower(folded), "")
	s = slugSeparator.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}
