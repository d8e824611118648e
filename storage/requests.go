package storage

import "github.com/poiesic/coursesearch/core"

// MatchAll is the pre-filter that accepts every document.
const MatchAll = "*"

// SortOrder orders KNN hits by distance.
type SortOrder int

const (
	// SortAscending puts the nearest document first.
	SortAscending SortOrder = iota
	// SortDescending puts the farthest document first.
	SortDescending
)

// KNNQuery is a hybrid query: PreFilter narrows the candidates, then the K
// nearest of them to Vector are returned.
type KNNQuery struct {
	// Index names the index to search. Empty means IndexName.
	Index string
	// PreFilter is an expression in the store's filter language.
	// Empty or MatchAll accepts every document.
	PreFilter string
	// K is the number of neighbors to return.
	K int
	// Vector is the query embedding.
	Vector []float32
	// Order of the returned hits. The zero value is SortAscending.
	Order SortOrder
}

// IndexName returns the index the query targets.
func (q *KNNQuery) IndexName() string {
	if q.Index == "" {
		return IndexName
	}
	return q.Index
}

// KNNHit is one ranked identifier.
type KNNHit struct {
	ID       string
	Distance float32
}

// KNNResult carries the ranked hits of a KNNQuery, without bodies.
type KNNResult struct {
	// Candidates is the number of documents that passed the pre-filter.
	Candidates int
	Hits       []KNNHit
}

// IDs returns the hit identifiers in rank order.
func (r *KNNResult) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, hit := range r.Hits {
		ids[i] = hit.ID
	}
	return ids
}

// Document is one keyed write of a WriteBatch.
type Document struct {
	Key    string
	Course *core.Course
}

// WriteBatch is a set of document writes applied as one batch.
type WriteBatch struct {
	Documents []Document
}

// NewWriteBatch keys every course with DocumentKey.
func NewWriteBatch(courses []*core.Course) *WriteBatch {
	docs := make([]Document, len(courses))
	for i, course := range courses {
		docs[i] = Document{Key: DocumentKey(course), Course: course}
	}
	return &WriteBatch{Documents: docs}
}

// WriteResult reports the outcome of a WriteBatch.
type WriteResult struct {
	Written int
}
