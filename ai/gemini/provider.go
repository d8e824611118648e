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


package gemini

import (
	"context"
	"log/slog"

	"github.com/poiesic/coursesearch/ai"
)

// Provider implements ai.AIProvider on top of the Gemini API.
type Provider struct {
	config   *ai.Config
	embedder *Embedder
	logger   *slog.Logger
}

// NewProvider creates a provider for config. No request is made until the
// first embedding call.
func NewProvider(ctx context.Context, config *ai.Config) (ai.AIProvider, error) {
	embedder, err := newEmbedder(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:   config,
		embedder: embedder,
		logger:   slog.Default().With("component", "gemini-provider"),
	}, nil
}

func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *Provider) Dimensions() int {
	return p.config.Dimensions
}

func (p *Provider) Close() error {
	p.logger.Debug("closing Gemini provider")
	return nil
}
