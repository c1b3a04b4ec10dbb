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


package openai

import (
	"log/slog"

	"github.com/poiesic/floatchat/ai"
)

// Provider implements ai.AIProvider over OpenAI-compatible endpoints.
// Embeddings and generation may live on different hosts; the filter
// extractor shares the generation client.
type Provider struct {
	embedder  *Embedder
	generator *Generator
	extractor *FilterExtractor
	logger    *slog.Logger
}

// NewProvider validates config and builds the model clients. No request
// is made until a service is used.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(config)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		embedder:  embedder,
		generator: generator,
		extractor: NewFilterExtractor(generator, config.FilterModel),
		logger:    slog.Default().With("component", "openai-provider"),
	}
	p.logger.Debug("model services configured",
		"embedding_host", config.EmbeddingHost,
		"embedding_model", config.EmbeddingModel,
		"generation_host", config.GenerationHost,
		"filter_model", config.FilterModel,
		"answer_model", config.AnswerModel)
	return p, nil
}

func (p *Provider) Embedder() ai.Embedder { return p.embedder }

func (p *Provider) Generator() ai.Generator { return p.generator }

func (p *Provider) FilterExtractor() ai.FilterExtractor { return p.extractor }

// Close is a no-op; the HTTP clients hold no resources that need release.
func (p *Provider) Close() error {
	return nil
}

var _ ai.AIProvider = (*Provider)(nil)
