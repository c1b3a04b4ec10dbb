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
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4096

// statusDoer sends requests through an http.Client and turns non-2xx
// responses into *core.RemoteServiceError before the client library sees them.
type statusDoer struct {
	client *http.Client
	title  string
}

func newStatusDoer(timeout time.Duration) *statusDoer {
	return &statusDoer{
		client: &http.Client{Timeout: timeout},
		title:  "FloatChat",
	}
}

// Do implements the langchaingo openaiclient.Doer interface.
func (d *statusDoer) Do(req *http.Request) (*http.Response, error) {
	if d.title != "" {
		req.Header.Set("X-Title", d.title)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &core.RemoteServiceError{Body: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, &core.RemoteServiceError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	return resp, nil
}

// Generator implements ai.Generator using an OpenAI-compatible chat API.
type Generator struct {
	client llms.Model
	logger *slog.Logger
}

// newGenerator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newGenerator(config *ai.Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GenerationHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.AnswerModel),
		openai.WithHTTPClient(newStatusDoer(config.Timeout)),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client: client,
		logger: slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new text generator using the provided configuration.
//
// Returns ai.Generator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.Generator, error) {
	return newGenerator(config)
}

// Generate sends prompt as a single user message to model.
func (g *Generator) Generate(ctx context.Context, prompt, model string) (string, error) {
	g.logger.Debug("generating completion", "model", model, "prompt_length", len(prompt))

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	opts := []llms.CallOption{llms.WithTemperature(0.0)}
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}

	response, err := g.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		g.logger.Error("failed to generate content", "model", model, "err", err)
		return "", asRemoteError(err)
	}

	if len(response.Choices) < 1 {
		return "", &core.RemoteServiceError{Status: http.StatusOK, Body: "no choices returned from model"}
	}
	return response.Choices[0].Content, nil
}

// asRemoteError returns err as a *core.RemoteServiceError, wrapping it if the
// client library did not preserve the one produced by statusDoer.
func asRemoteError(err error) error {
	var remote *core.RemoteServiceError
	if errors.As(err, &remote) {
		return remote
	}
	return &core.RemoteServiceError{Body: err.Error()}
}
