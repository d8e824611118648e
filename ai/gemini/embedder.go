package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/coursesearch/ai"
	"google.golang.org/genai"
)

// maxBatch is the Gemini API limit on contents per batch embed request.
const maxBatch = 100

// Task types understood by gemini-embedding-001.
const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// Embedder embeds text through the Gemini API.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions int
	batchSize  int
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(ctx context.Context, config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &Embedder{
		client:     client,
		model:      config.EmbeddingModel,
		dimensions: config.Dimensions,
		batchSize:  min(config.BatchSize, maxBatch),
		logger:     slog.Default().With("component", "gemini-embedder"),
	}, nil
}

// NewEmbedder creates an embedder for config.
func NewEmbedder(ctx context.Context, config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(ctx, config)
}

// EmbedText generates one query embedding.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates document embeddings for texts, in order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vectors, err := e.embed(ctx, texts[start:end], taskDocument)
		if err != nil {
			e.logger.Error("failed to generate embeddings", "count", len(texts), "offset", start, "err", err)
			return nil, err
		}
		result = append(result, vectors...)
	}
	return result, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	outputDim := int32(e.dimensions)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: &outputDim,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	vectors := make([][]float32, 0, len(texts))
	if resp != nil {
		for _, emb := range resp.Embeddings {
			if emb == nil {
				vectors = append(vectors, nil)
				continue
			}
			vectors = append(vectors, emb.Values)
		}
	}
	if err := ai.CheckVectors(vectors, len(texts), e.dimensions); err != nil {
		return nil, err
	}
	return vectors, nil
}
