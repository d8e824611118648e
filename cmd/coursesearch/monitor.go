package main

import (
	"fmt"
	"io"

	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/search"
	"github.com/poiesic/coursesearch/storage"
)

// printMonitor keeps the ranked distances of a search and, when verbose,
// prints every stage.
type printMonitor struct {
	out       io.Writer
	verbose   bool
	distances map[string]float32
	order     []string
}

var _ search.SearchMonitor = (*printMonitor)(nil)

func (m *printMonitor) printf(format string, args ...any) {
	if m.verbose && m.out != nil {
		fmt.Fprintf(m.out, format, args...)
	}
}

func (m *printMonitor) Start(query string) {
	m.printf("query: %q\n", query)
}

func (m *printMonitor) AfterQueryPreparation(query, preFilter string, limit int) {
	m.printf("prepared: %q filter=%q limit=%d\n", query, preFilter, limit)
}

func (m *printMonitor) AfterQueryEmbedding(vector []float32) {
	m.printf("embedded: %d dimensions\n", len(vector))
}

func (m *printMonitor) AfterKNNSearch(result *storage.KNNResult) {
	m.distances = make(map[string]float32, len(result.Hits))
	for _, hit := range result.Hits {
		m.distances[hit.ID] = hit.Distance
	}
	m.printf("knn: %d candidates, %d hits\n", result.Candidates, len(result.Hits))
}

func (m *printMonitor) AfterDocumentRetrieval(courses []*core.Course) {
	m.printf("fetched: %d documents\n", len(courses))
}

func (m *printMonitor) Finish(results []*core.Course) {
	m.order = make([]string, len(results))
	for i, course := range results {
		m.order[i] = storage.DocumentKey(course)
	}
	m.printf("done: %d results\n", len(results))
}

// distance returns the distance of result i.
func (m *printMonitor) distance(i int) float32 {
	if i >= len(m.order) {
		return 0
	}
	return m.distances[m.order[i]]
}
