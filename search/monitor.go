package search

import (
	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/storage"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryPreparation(query, preFilter string, limit int)
	AfterQueryEmbedding(vector []float32)
	AfterKNNSearch(result *storage.KNNResult)
	AfterDocumentRetrieval(courses []*core.Course)
	Finish(results []*core.Course)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                           {}
func (n *noopMonitor) AfterQueryPreparation(_, _ string, _ int) {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)          {}
func (n *noopMonitor) AfterKNNSearch(_ *storage.KNNResult)      {}
func (n *noopMonitor) AfterDocumentRetrieval(_ []*core.Course)  {}
func (n *noopMonitor) Finish(_ []*core.Course)                  {}
