package gemini

import (
	"context"
	"testing"

	"github.com/poiesic/coursesearch/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		cfg := ai.NewConfig(
			ai.WithProvider(ai.ProviderGemini),
			ai.WithEmbeddingModel("gemini-embedding-001"),
		)
		_, err := NewProvider(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "APIKey")
	})

	t.Run("configured", func(t *testing.T) {
		cfg := ai.NewConfig(
			ai.WithProvider(ai.ProviderGemini),
			ai.WithEmbeddingModel("gemini-embedding-001"),
			ai.WithAPIKey("test-key"),
		)
		provider, err := NewProvider(context.Background(), cfg)
		require.NoError(t, err)
		defer provider.Close()

		assert.Equal(t, 1536, provider.Dimensions())
		embedder, ok := provider.Embedder().(*Embedder)
		require.True(t, ok)
		assert.Equal(t, maxBatch, embedder.batchSize, "batch size capped at the API limit")
	})
}
