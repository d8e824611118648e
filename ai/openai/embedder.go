package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/coursesearch/ai"
	"github.com/poiesic/coursesearch/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder embeds text through an OpenAI-compatible API.
type Embedder struct {
	embedder   embeddings.Embedder
	dimensions int
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local OpenAI-compatible services accept any token
	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithEmbeddingDimensions(config.Dimensions),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(config.BatchSize),
	)
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder:   embedder,
		dimensions: config.Dimensions,
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates an embedder for config.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates one embedding.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, translateError(err)
	}
	if err := ai.CheckVectors(vectors, 1, e.dimensions); err != nil {
		e.logger.Error("embedder returned unusable result", "err", err)
		return nil, err
	}

	return vectors[0], nil
}

// EmbedTexts generates embeddings for texts, in order. langchaingo splits
// the texts into requests of at most BatchSize entries.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, translateError(err)
	}
	if err := ai.CheckVectors(vectors, len(texts), e.dimensions); err != nil {
		e.logger.Error("embedder returned unusable result", "count", len(texts), "err", err)
		return nil, err
	}

	return vectors, nil
}

// translateError maps langchaingo's length check onto core.ErrEmbeddingMismatch.
func translateError(err error) error {
	if errors.Is(err, openai.ErrUnexpectedResponseLength) {
		return fmt.Errorf("%w: %w", core.ErrEmbeddingMismatch, err)
	}
	return err
}
