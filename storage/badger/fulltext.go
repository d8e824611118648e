package badger

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/poiesic/coursesearch/storage"
)

// Analyzer names registered on every text index mapping.
const (
	noStemAnalyzer  = "course_nostem"
	stemmedAnalyzer = "course_stemmed"
)

// textIndex is the full-text and tag half of a course index.
type textIndex struct {
	index     bleve.Index
	textNames []string
	tagNames  []string
	fields    filterFields
}

// createIndexMapping builds the bleve mapping for the text and tag fields
// of req. Text fields tokenize on Unicode word boundaries and lowercase;
// stemmed ones also apply the Porter stemmer. Neither drops stop words.
// Tag fields are matched as a whole value.
func createIndexMapping(req *storage.CreateIndexRequest) (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := indexMapping.AddCustomAnalyzer(noStemAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, err
	}
	if err := indexMapping.AddCustomAnalyzer(stemmedAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name, porter.Name},
	}); err != nil {
		return nil, err
	}

	docMapping := bleve.NewDocumentStaticMapping()

	for _, f := range req.FieldsOfType(storage.FieldText) {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = stemmedAnalyzer
		if f.NoStem {
			field.Analyzer = noStemAnalyzer
		}
		field.Store = false
		docMapping.AddFieldMappingsAt(f.Name, field)
	}

	for _, f := range req.FieldsOfType(storage.FieldTag) {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = keyword.Name
		field.Store = false
		field.IncludeInAll = false
		docMapping.AddFieldMappingsAt(f.Name, field)
	}

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = noStemAnalyzer
	indexMapping.StoreDynamic = false
	indexMapping.IndexDynamic = false

	return indexMapping, nil
}

func newTextIndex(req *storage.CreateIndexRequest) (*textIndex, error) {
	indexMapping, err := createIndexMapping(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidSchema, err)
	}

	index, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, err
	}

	analyzer := indexMapping.AnalyzerNamed(noStemAnalyzer)
	if analyzer == nil {
		index.Close()
		return nil, fmt.Errorf("%w: analyzer %s unavailable", storage.ErrInvalidSchema, noStemAnalyzer)
	}

	t := &textIndex{
		index:  index,
		fields: filterFields{declared: map[string]struct{}{}, analyzer: analyzer},
	}
	for _, f := range req.FieldsOfType(storage.FieldText) {
		t.textNames = append(t.textNames, f.Name)
		t.fields.declared[f.Name] = struct{}{}
	}
	for _, f := range req.FieldsOfType(storage.FieldTag) {
		t.tagNames = append(t.tagNames, f.Name)
		t.fields.declared[f.Name] = struct{}{}
	}
	t.fields.text = t.textNames
	return t, nil
}

// project turns a decoded document body into the bleve document of the
// declared fields. Tag values are rendered as lowercase strings, so a JSON
// true is matched by the tag "true".
func (t *textIndex) project(body map[string]any) map[string]any {
	doc := make(map[string]any, len(t.textNames)+len(t.tagNames))
	for _, name := range t.textNames {
		if v, ok := body[name]; ok && v != nil {
			doc[name] = fmt.Sprint(v)
		}
	}
	for _, name := range t.tagNames {
		if v, ok := body[name]; ok && v != nil {
			doc[name] = strings.ToLower(fmt.Sprint(v))
		}
	}
	return doc
}

// indexBatch indexes docs, keyed by document key, in one bleve batch.
func (t *textIndex) indexBatch(docs map[string]map[string]any) error {
	batch := t.index.NewBatch()
	for id, body := range docs {
		if err := batch.Index(id, t.project(body)); err != nil {
			return err
		}
	}
	return t.index.Batch(batch)
}

// matching returns the keys of every document accepted by filter.
func (t *textIndex) matching(filter string) (map[string]struct{}, error) {
	q, err := buildFilterQuery(filter, t.fields)
	if err != nil {
		return nil, err
	}

	count, err := t.index.DocCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return map[string]struct{}{}, nil
	}

	req := bleve.NewSearchRequest(q)
	req.Size = int(count)
	res, err := t.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", storage.ErrInvalidFilter, filter, err)
	}

	ids := make(map[string]struct{}, len(res.Hits))
	for _, hit := range res.Hits {
		ids[hit.ID] = struct{}{}
	}
	return ids, nil
}

func (t *textIndex) close() error {
	return t.index.Close()
}
