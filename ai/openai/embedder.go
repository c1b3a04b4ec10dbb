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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/storage"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder over an OpenAI-compatible /embeddings
// endpoint. Every vector it returns has the dimension of the first one
// it received.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	dim      atomic.Int64
	logger   *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Local embedding servers ignore the token; hosted ones need the key.
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(newStatusDoer(config.Timeout)),
	)
	if err != nil {
		return nil, err
	}

	inner, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: inner,
		model:    config.EmbeddingModel,
		logger:   slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates an embedder for config.EmbeddingHost.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText embeds a single query string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in one request, returning vectors in input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.logger.Debug("embedding texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("embedding request failed", "count", len(texts), "err", err)
		return nil, asRemoteError(err)
	}
	if len(vectors) != len(texts) {
		return nil, &core.RemoteServiceError{
			Status: http.StatusOK,
			Body:   fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vectors)),
		}
	}
	for _, v := range vectors {
		if err := e.checkDimension(len(v)); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// checkDimension pins the first dimension seen and rejects any other.
func (e *Embedder) checkDimension(n int) error {
	if n == 0 {
		return &core.RemoteServiceError{Status: http.StatusOK, Body: "empty embedding returned by " + e.model}
	}
	if e.dim.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if want := e.dim.Load(); int64(n) != want {
		return fmt.Errorf("%w: model %s returned %d dimensions, expected %d",
			storage.ErrDimensionMismatch, e.model, n, want)
	}
	return nil
}

var _ ai.Embedder = (*Embedder)(nil)
