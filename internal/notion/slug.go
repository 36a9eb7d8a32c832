package notion

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultSlug is used when a title has no usable characters.
const DefaultSlug = "untitled"

var (
	slugQuotes     = strings.NewReplacer("'", "", "\"", "", "’", "", "‘", "")
	slugDisallowed = regexp.MustCompile(`[^\p{L}\p{N}\p{M}]+`)
)

// Slugify derives a filesystem-safe, deterministic name from a title.
// Unicode letters are kept (NFKC-normalized and lowercased), every other run
// of characters collapses to a single dash. Sibling collisions are the
// caller's concern.
func Slugify(title string) string {
	s := norm.NFKC.String(title)
	s = strings.ToLower(s)
	s = slugQuotes.Replace(s)
	s = slugDisallowed.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return DefaultSlug
	}
	return s
}
