// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package coursesearch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/coursesearch/ai"
	"github.com/poiesic/coursesearch/ai/gemini"
	"github.com/poiesic/coursesearch/ai/openai"
	"github.com/poiesic/coursesearch/ingestion"
	"github.com/poiesic/coursesearch/search"
	"github.com/poiesic/coursesearch/storage"
	"github.com/poiesic/coursesearch/storage/badger"
)

// Engine owns the store and the embedding provider and hands out the
// components built on them.
type Engine struct {
	store       *badger.Store
	provider    ai.AIProvider
	fingerprint ingestion.FingerprintPolicy
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig    *ai.Config
	provider    ai.AIProvider
	storeOpts   []badger.Option
	fingerprint ingestion.FingerprintPolicy
}

// WithAIConfig sets the embedding provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) EngineOption {
	return func(o *engineOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider uses provider instead of building one from the AI config.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithStoreOptions passes options to the store.
func WithStoreOptions(opts ...badger.Option) EngineOption {
	return func(o *engineOptions) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// WithFingerprintPolicy sets the policy of the builders the engine creates.
func WithFingerprintPolicy(policy ingestion.FingerprintPolicy) EngineOption {
	return func(o *engineOptions) {
		o.fingerprint = policy
	}
}

// NewProvider creates the embedding provider named by cfg.Provider.
func NewProvider(ctx context.Context, cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderGemini:
		return gemini.NewProvider(ctx, cfg)
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// NewEngine opens the store at dbPath, in memory when dbPath is empty, and
// creates the embedding provider.
func NewEngine(ctx context.Context, dbPath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = NewProvider(ctx, options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	store, err := badger.OpenStore(dbPath, options.storeOpts...)
	if err != nil {
		provider.Close()
		return nil, err
	}

	return &Engine{
		store:       store,
		provider:    provider,
		fingerprint: options.fingerprint,
		logger:      slog.Default().With("component", "engine"),
	}, nil
}

func (e *Engine) Close() error {
	// Close AI provider first
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
	}

	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

func (e *Engine) Store() storage.Index {
	return e.store
}

func (e *Engine) Provider() ai.AIProvider {
	return e.provider
}

// WaitForReady blocks until the store answers a ping.
func (e *Engine) WaitForReady(ctx context.Context, attempts int, delay time.Duration) error {
	return ingestion.WaitForReady(ctx, e.store, attempts, delay)
}

// NewBuilder creates a snapshot builder checking vectors against the
// provider's dimensions.
func (e *Engine) NewBuilder(opts ...ingestion.BuilderOption) (*ingestion.Builder, error) {
	defaults := []ingestion.BuilderOption{
		ingestion.WithDimensions(e.provider.Dimensions()),
		ingestion.WithFingerprintPolicy(e.fingerprint),
	}
	return ingestion.NewBuilder(e.provider.Embedder(), append(defaults, opts...)...)
}

func (e *Engine) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	builder, err := e.NewBuilder()
	if err != nil {
		return nil, err
	}
	return ingestion.NewPipeline(e.store, builder, opts...)
}

func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(e.store, e.provider, opts...)
}
