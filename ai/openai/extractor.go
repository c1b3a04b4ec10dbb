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
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/core"
)

// FilterExtractor implements ai.FilterExtractor by prompting a generation
// model for a JSON object of filter fields.
type FilterExtractor struct {
	generator ai.Generator
	model     string
	now       func() time.Time
	logger    *slog.Logger
}

// ExtractorOption configures a FilterExtractor.
type ExtractorOption func(*FilterExtractor)

// WithClock overrides the clock used to resolve relative dates.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *FilterExtractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithExtractorLogger sets the logger for the extractor.
func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *FilterExtractor) {
		if logger != nil {
			e.logger = logger.With("component", "filter-extractor")
		}
	}
}

// NewFilterExtractor creates an extractor that asks model, through generator,
// for search filters.
func NewFilterExtractor(generator ai.Generator, model string, opts ...ExtractorOption) *FilterExtractor {
	e := &FilterExtractor{
		generator: generator,
		model:     model,
		now:       time.Now,
		logger:    slog.Default().With("component", "filter-extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFilters makes a single generation attempt and parses the reply.
// Any failure is returned as *core.ExtractionError.
func (e *FilterExtractor) ExtractFilters(ctx context.Context, query string) (core.Filter, error) {
	prompt := buildFilterPrompt(query, e.now())

	response, err := e.generator.Generate(ctx, prompt, e.model)
	if err != nil {
		e.logger.Warn("filter extraction request failed", "err", err)
		return core.Filter{}, &core.ExtractionError{Err: err}
	}

	filter, err := parseFilterResponse(response)
	if err != nil {
		e.logger.Warn("could not parse filter extraction response", "response", response, "err", err)
		return core.Filter{}, &core.ExtractionError{Response: response, Err: err}
	}

	e.logger.Debug("extracted filters", "filter", filter)
	return filter, nil
}

// parseFilterResponse decodes a model reply into a validated filter.
func parseFilterResponse(response string) (core.Filter, error) {
	text := repairJSON(extractJSONObject(response))

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return core.Filter{}, fmt.Errorf("decode filter json: %w", err)
	}

	var f core.Filter
	var err error
	if f.MinLat, err = numberField(raw, "min_lat"); err != nil {
		return core.Filter{}, err
	}
	if f.MaxLat, err = numberField(raw, "max_lat"); err != nil {
		return core.Filter{}, err
	}
	if f.MinLon, err = numberField(raw, "min_lon"); err != nil {
		return core.Filter{}, err
	}
	if f.MaxLon, err = numberField(raw, "max_lon"); err != nil {
		return core.Filter{}, err
	}

	start, err := dateField(raw, "start_date")
	if err != nil {
		return core.Filter{}, err
	}
	f.Start = start

	end, err := dateField(raw, "end_date")
	if err != nil {
		return core.Filter{}, err
	}
	if end != nil {
		f.End = core.Ref(core.EndOfDay(*end))
	}

	if f.FloatID, err = floatIDField(raw, "float_wmo_id"); err != nil {
		return core.Filter{}, err
	}

	if err := core.ValidateFilter(f); err != nil {
		return core.Filter{}, err
	}
	return f, nil
}

// present returns the raw value for key, treating null and blank strings as absent.
func present(raw map[string]any, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

func numberField(raw map[string]any, key string) (*float64, error) {
	v, ok := present(raw, key)
	if !ok {
		return nil, nil
	}
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return nil, fmt.Errorf("%s: expected a number, got %T", key, v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &f, nil
}

func dateField(raw map[string]any, key string) (*time.Time, error) {
	v, ok := present(raw, key)
	if !ok {
		return nil, nil
	}
	s, isStr := v.(string)
	if !isStr {
		return nil, fmt.Errorf("%s: expected a YYYY-MM-DD string, got %T", key, v)
	}
	t, err := time.Parse(core.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &t, nil
}

func floatIDField(raw map[string]any, key string) (*string, error) {
	v, ok := present(raw, key)
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case json.Number:
		return core.Ref(t.String()), nil
	case string:
		return core.Ref(strings.TrimSpace(t)), nil
	default:
		return nil, fmt.Errorf("%s: expected a string or number, got %T", key, v)
	}
}

var _ ai.FilterExtractor = (*FilterExtractor)(nil)
