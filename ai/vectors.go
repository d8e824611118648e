package ai

import (
	"fmt"

	"github.com/poiesic/coursesearch/core"
)

// CheckVectors verifies that an embedder answered with exactly want vectors
// of dim values each. Positional zipping depends on both.
func CheckVectors(vectors [][]float32, want, dim int) error {
	if len(vectors) != want {
		return fmt.Errorf("%w. expected %d, received %d", core.ErrEmbeddingMismatch, want, len(vectors))
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, expected %d", core.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}
