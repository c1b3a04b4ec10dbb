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

import (
	"context"
	"sync"

	"github.com/poiesic/floatchat/core"
)

// GenerateCall records one Generate invocation.
type GenerateCall struct {
	Prompt string
	Model  string
}

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, Response is returned.
	GenerateFunc func(ctx context.Context, prompt, model string) (string, error)

	// Response is the default completion text.
	Response string

	mu    sync.Mutex
	calls []GenerateCall
}

// NewMockGenerator creates a mock generator that answers with response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

// WithGenerateFunc sets a custom generation function.
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, prompt, model string) (string, error)) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = fn
	return m
}

// Generate records the call and returns the configured response.
func (m *MockGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{Prompt: prompt, Model: model})
	fn, resp := m.GenerateFunc, m.Response
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, model)
	}
	return resp, nil
}

// Calls returns a copy of the recorded calls.
func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateCall(nil), m.calls...)
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls and the custom function.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.GenerateFunc = nil
}

// MockFilterExtractor is a test double for ai.FilterExtractor.
type MockFilterExtractor struct {
	// ExtractFiltersFunc is called by ExtractFilters if set.
	// If nil, Filter is returned.
	ExtractFiltersFunc func(ctx context.Context, query string) (core.Filter, error)

	// Filter is the default extraction result.
	Filter core.Filter

	mu        sync.Mutex
	callCount int
}

// NewMockFilterExtractor creates a mock extractor returning the empty filter.
func NewMockFilterExtractor() *MockFilterExtractor {
	return &MockFilterExtractor{}
}

// WithFilter sets the filter returned by default.
func (m *MockFilterExtractor) WithFilter(f core.Filter) *MockFilterExtractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Filter = f
	return m
}

// WithExtractFiltersFunc sets a custom extraction function.
func (m *MockFilterExtractor) WithExtractFiltersFunc(fn func(ctx context.Context, query string) (core.Filter, error)) *MockFilterExtractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractFiltersFunc = fn
	return m
}

// ExtractFilters returns the configured filter.
func (m *MockFilterExtractor) ExtractFilters(ctx context.Context, query string) (core.Filter, error) {
	m.mu.Lock()
	m.callCount++
	fn, f := m.ExtractFiltersFunc, m.Filter
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, query)
	}
	return f, nil
}

// CallCount returns the number of ExtractFilters calls.
func (m *MockFilterExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom behavior.
func (m *MockFilterExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractFiltersFunc = nil
	m.Filter = core.Filter{}
}
