package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/coursesearch/ai"
	"github.com/poiesic/coursesearch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions"`
}

type embeddingDatum struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// newEmbeddingServer answers /v1/embeddings with one vector per input;
// vector i is [i+1, 0, ..., 0] of width dim. extra adds surplus vectors.
func newEmbeddingServer(t *testing.T, dim, extra int, seen *embeddingRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if seen != nil {
			*seen = req
		}

		data := make([]embeddingDatum, 0, len(req.Input)+extra)
		for i := 0; i < len(req.Input)+extra; i++ {
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			data = append(data, embeddingDatum{Object: "embedding", Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
}

func testConfig(host string, dim int) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(host),
		ai.WithAPIKey("test-key"),
		ai.WithDimensions(dim),
	)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	var seen embeddingRequest
	srv := newEmbeddingServer(t, 4, 0, &seen)
	defer srv.Close()

	embedder, err := NewEmbedder(testConfig(srv.URL, 4))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), []string{"first", "second", "third"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Len(t, v, 4)
		assert.Equal(t, float32(i+1), v[0], "vector %d out of place", i)
	}

	assert.Equal(t, "text-embedding-3-small", seen.Model)
	assert.Equal(t, 4, seen.Dimensions)
}

func TestEmbedder_EmbedText(t *testing.T) {
	srv := newEmbeddingServer(t, 4, 0, nil)
	defer srv.Close()

	embedder, err := NewEmbedder(testConfig(srv.URL, 4))
	require.NoError(t, err)

	vector, err := embedder.EmbedText(context.Background(), "intro to algorithms")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, vector)
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv := newEmbeddingServer(t, 3, 0, nil)
	defer srv.Close()

	embedder, err := NewEmbedder(testConfig(srv.URL, 4))
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestEmbedder_CountMismatch(t *testing.T) {
	srv := newEmbeddingServer(t, 4, 1, nil)
	defer srv.Close()

	embedder, err := NewEmbedder(testConfig(srv.URL, 4))
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, core.ErrEmbeddingMismatch)
}

func TestEmbedder_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "quota exceeded"}}`))
	}))
	defer srv.Close()

	embedder, err := NewEmbedder(testConfig(srv.URL, 4))
	require.NoError(t, err)

	_, err = embedder.EmbedText(context.Background(), "anything")
	require.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(testConfig("http://localhost:11434", 8))
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.Equal(t, 8, provider.Dimensions())

	_, err = NewProvider(ai.NewConfig(ai.WithEmbeddingModel("")))
	assert.Error(t, err)
}
