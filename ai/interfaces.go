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


package ai

import (
	"context"

	"github.com/poiesic/floatchat/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from a prompt with a named model.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate sends prompt to model and returns the response text.
	// A non-success response is reported as *core.RemoteServiceError.
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// FilterExtractor turns a free-text query into a structured search filter.
// Implementations must be thread-safe for concurrent use.
type FilterExtractor interface {
	// ExtractFilters returns the filter described by query. An empty
	// filter with a nil error means the query names no constraints.
	// Remote or parse failures are reported as *core.ExtractionError;
	// callers decide whether to fall back to an empty filter.
	ExtractFilters(ctx context.Context, query string) (core.Filter, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider is constructed once per process and its services are shared
// across concurrent requests.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the text generation service.
	Generator() Generator

	// FilterExtractor returns the query filter extraction service.
	FilterExtractor() FilterExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
