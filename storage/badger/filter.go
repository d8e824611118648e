package badger

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/poiesic/coursesearch/storage"
)

// isMatchAll reports whether filter accepts every document.
func isMatchAll(filter string) bool {
	filter = strings.TrimSpace(filter)
	return filter == "" || filter == storage.MatchAll
}

// usesQuerySyntax reports whether filter is written in the bleve query
// string language: some term is a field:value pair on a declared field, or
// carries a leading + or - on a whole term. Punctuation inside ordinary
// text (a colon after a word, a dash between words) does not count.
func usesQuerySyntax(filter string, fields map[string]struct{}) bool {
	for _, term := range strings.Fields(filter) {
		bare := strings.TrimLeft(term, "+-")
		if bare == "" {
			continue
		}
		if bare != term {
			return true
		}
		name, value, ok := strings.Cut(bare, ":")
		if !ok || value == "" {
			continue
		}
		if _, declared := fields[name]; declared {
			return true
		}
	}
	return false
}

// filterFields describes the index a pre-filter runs against.
type filterFields struct {
	// text lists the fields a plain word may match.
	text []string
	// declared holds every field name usable in field:value terms.
	declared map[string]struct{}
	// analyzer splits plain text the way the text fields were indexed.
	analyzer analysis.Analyzer
}

// words splits filter into index terms with the text analyzer, so a word
// such as women's stays whole exactly as it was indexed.
func (f filterFields) words(filter string) []string {
	tokens := f.analyzer.Analyze([]byte(filter))
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok.Term) > 0 {
			words = append(words, string(tok.Term))
		}
	}
	return words
}

// buildFilterQuery translates a pre-filter expression into a bleve query.
//
// Expressions using query string syntax (code:0220, +writ:true, -title:lab)
// are passed to bleve verbatim. Anything else is split into words and every
// word must appear in at least one text field, each field analyzing the
// word its own way. A filter with no words matches everything.
func buildFilterQuery(filter string, fields filterFields) (query.Query, error) {
	filter = strings.TrimSpace(filter)
	if isMatchAll(filter) {
		return bleve.NewMatchAllQuery(), nil
	}
	if usesQuerySyntax(filter, fields.declared) {
		q := bleve.NewQueryStringQuery(filter)
		if _, err := q.Parse(); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", storage.ErrInvalidFilter, filter, err)
		}
		return q, nil
	}

	words := fields.words(filter)
	if len(words) == 0 {
		return bleve.NewMatchAllQuery(), nil
	}

	must := make([]query.Query, 0, len(words))
	for _, word := range words {
		anyField := make([]query.Query, 0, len(fields.text))
		for _, field := range fields.text {
			q := bleve.NewMatchQuery(word)
			q.SetField(field)
			anyField = append(anyField, q)
		}
		must = append(must, bleve.NewDisjunctionQuery(anyField...))
	}
	return bleve.NewConjunctionQuery(must...), nil
}
