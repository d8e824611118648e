package badger

import (
	"slices"

	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/storage"
)

// flatIndex is a brute-force vector table. Vectors are normalized on insert
// so cosine distance reduces to 1 - dot product. Rows keep their insertion
// order, which breaks distance ties.
type flatIndex struct {
	dim     int
	ids     []string
	vectors [][]float32
	rows    map[string]int
}

func newFlatIndex(dim int) *flatIndex {
	return &flatIndex{
		dim:  dim,
		rows: make(map[string]int),
	}
}

// upsert stores v under id. An existing id keeps its row.
func (f *flatIndex) upsert(id string, v []float32) {
	normalized := core.NormalizeVector(v)
	if row, ok := f.rows[id]; ok {
		f.vectors[row] = normalized
		return
	}
	f.rows[id] = len(f.ids)
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, normalized)
}

func (f *flatIndex) len() int {
	return len(f.ids)
}

// search ranks every row accepted by allow (nil accepts all) by cosine
// distance to query and returns at most k hits.
func (f *flatIndex) search(query []float32, k int, allow map[string]struct{}, order storage.SortOrder) []storage.KNNHit {
	q := core.NormalizeVector(query)

	hits := make([]storage.KNNHit, 0, min(k, f.len()))
	for row, id := range f.ids {
		if allow != nil {
			if _, ok := allow[id]; !ok {
				continue
			}
		}
		hits = append(hits, storage.KNNHit{
			ID:       id,
			Distance: 1 - dotProduct(q, f.vectors[row]),
		})
	}

	slices.SortStableFunc(hits, func(a, b storage.KNNHit) int {
		if order == storage.SortDescending {
			a, b = b, a
		}
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
