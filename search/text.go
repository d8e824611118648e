package search

import (
	"strings"

	"github.com/poiesic/coursesearch/storage"
)

// MaxQueryLength is the number of characters of a query that are kept.
const MaxQueryLength = 256

// Truncate returns the first max characters of s. It counts runes, so a
// multi-byte character is never split.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// ExtractFirstQuote returns the text strictly between the first two double
// quotes of s. ok is false when s has no closed quote.
func ExtractFirstQuote(s string) (quoted string, ok bool) {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}

// preFilter picks the pre-filter expression of a query: its first quoted
// span, or match-all.
func preFilter(query string) string {
	quoted, ok := ExtractFirstQuote(query)
	if !ok || strings.TrimSpace(quoted) == "" {
		return storage.MatchAll
	}
	return quoted
}
