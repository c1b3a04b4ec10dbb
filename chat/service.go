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


package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/search"
)

// DefaultTopK is the number of profiles placed into an answer prompt.
const DefaultTopK = 5

// Retriever finds the profiles relevant to a question.
// *search.Retriever satisfies it.
type Retriever interface {
	Search(ctx context.Context, query string, topK int, monitor search.SearchMonitor) (*search.Result, error)
}

// Answer is a generated reply and the data it was grounded on.
type Answer struct {
	Text    string
	Model   string
	Filter  core.Filter
	Matches []search.Match
	Elapsed time.Duration
}

// Service answers questions from retrieved profiles. It is safe for
// concurrent use.
type Service struct {
	retriever Retriever
	generator ai.Generator
	model     string
	topK      int
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithModel sets the default answer model. An empty model lets the
// generator use its configured model.
func WithModel(model string) Option {
	return func(s *Service) error {
		s.model = model
		return nil
	}
}

// WithTopK sets how many profiles are retrieved per question.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(s *Service) error {
		if k < 1 {
			return fmt.Errorf("%w: %d", search.ErrInvalidTopK, k)
		}
		s.topK = k
		return nil
	}
}

// NewService creates a Service.
func NewService(retriever Retriever, generator ai.Generator, opts ...Option) (*Service, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Service{
		retriever: retriever,
		generator: generator,
		topK:      DefaultTopK,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "chat")

	return s, nil
}

// Answer answers question with the service's default model.
func (s *Service) Answer(ctx context.Context, question string) (*Answer, error) {
	return s.AnswerWithModel(ctx, question, s.model)
}

// AnswerWithModel answers question using model for the final generation.
func (s *Service) AnswerWithModel(ctx context.Context, question, model string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	start := time.Now()

	result, err := s.retriever.Search(ctx, question, s.topK, nil)
	if err != nil {
		s.logger.Error("retrieval failed", "err", err)
		return nil, fmt.Errorf("%w: retrieve: %w", ErrRequestFailed, err)
	}
	if result.FilterErr == nil && !result.Filter.IsEmpty() {
		s.logger.Info("extracted filters", "filter", result.Filter, "candidates", result.Candidates)
	}

	prompt := BuildPrompt(question, result.Profiles())
	s.logger.Info("generating answer", "model", model, "context_profiles", len(result.Matches))

	text, err := s.generator.Generate(ctx, prompt, model)
	if err != nil {
		s.logger.Error("answer generation failed", "model", model, "err", err)
		return nil, fmt.Errorf("%w: generate: %w", ErrRequestFailed, err)
	}

	return &Answer{
		Text:    strings.TrimSpace(text),
		Model:   model,
		Filter:  result.Filter,
		Matches: result.Matches,
		Elapsed: time.Since(start),
	}, nil
}
