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


package mock

import "github.com/poiesic/floatchat/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder, generator and extractor instances.
type MockProvider struct {
	embedder  *MockEmbedder
	generator *MockGenerator
	extractor *MockFilterExtractor
}

// NewMockProvider creates a new mock provider with default mock services.
// The concrete type is returned so tests can reach the underlying mocks.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder:  NewMockEmbedder(),
		generator: NewMockGenerator("mock answer"),
		extractor: NewMockFilterExtractor(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// A nil service is replaced by its default mock.
func NewMockProviderWithServices(embedder *MockEmbedder, generator *MockGenerator, extractor *MockFilterExtractor) *MockProvider {
	p := NewMockProvider()
	if embedder != nil {
		p.embedder = embedder
	}
	if generator != nil {
		p.generator = generator
	}
	if extractor != nil {
		p.extractor = extractor
	}
	return p
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the mock generator.
func (p *MockProvider) Generator() ai.Generator {
	return p.generator
}

// FilterExtractor returns the mock filter extractor.
func (p *MockProvider) FilterExtractor() ai.FilterExtractor {
	return p.extractor
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockGenerator returns the underlying mock generator for test assertions.
func (p *MockProvider) GetMockGenerator() *MockGenerator {
	return p.generator
}

// GetMockExtractor returns the underlying mock extractor for test assertions.
func (p *MockProvider) GetMockExtractor() *MockFilterExtractor {
	return p.extractor
}

var (
	_ ai.AIProvider      = (*MockProvider)(nil)
	_ ai.Embedder        = (*MockEmbedder)(nil)
	_ ai.Generator       = (*MockGenerator)(nil)
	_ ai.FilterExtractor = (*MockFilterExtractor)(nil)
)
