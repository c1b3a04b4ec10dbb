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


package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/storage"
)

// DefaultCandidateCap bounds the number of profiles a filter may select
// before the vector search.
const DefaultCandidateCap = 1000

// Match is a retrieved profile and its distance from the query.
type Match struct {
	Profile  *core.Profile
	Distance float32
}

// Result describes one retrieval.
type Result struct {
	// Filter is the filter applied; empty when none was extracted.
	Filter core.Filter
	// FilterErr is the extraction failure that was coalesced to an empty
	// filter, if any.
	FilterErr error
	// Candidates is the size of the pre-filtered id set, or -1 when the
	// vector search was unrestricted.
	Candidates int
	// Matches holds the profiles, nearest first.
	Matches []Match
}

// Profiles returns the matched profiles in rank order.
func (r *Result) Profiles() []*core.Profile {
	out := make([]*core.Profile, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = m.Profile
	}
	return out
}

// Retriever runs hybrid filter plus vector retrieval. It is safe for
// concurrent use.
type Retriever struct {
	profiles     storage.ProfileRepository
	index        storage.VectorIndex
	embedder     ai.Embedder
	extractor    ai.FilterExtractor
	candidateCap int
	monitor      SearchMonitor
	logger       *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithCandidateCap sets the maximum number of filter candidates.
// Default is DefaultCandidateCap.
func WithCandidateCap(limit int) Option {
	return func(r *Retriever) error {
		if limit < 1 {
			return ErrInvalidCandidateCap
		}
		r.candidateCap = limit
		return nil
	}
}

// WithMonitor sets a monitor that observes every retrieval.
func WithMonitor(monitor SearchMonitor) Option {
	return func(r *Retriever) error {
		r.monitor = monitor
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(
	profiles storage.ProfileRepository,
	index storage.VectorIndex,
	provider ai.AIProvider,
	opts ...Option,
) (*Retriever, error) {
	if profiles == nil {
		return nil, ErrProfileRepositoryRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	r := &Retriever{
		profiles:     profiles,
		index:        index,
		embedder:     provider.Embedder(),
		extractor:    provider.FilterExtractor(),
		candidateCap: DefaultCandidateCap,
		logger:       slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "retriever")

	return r, nil
}

// Retrieve returns up to topK profiles relevant to query, most relevant
// first. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]*core.Profile, error) {
	result, err := r.Search(ctx, query, topK, nil)
	if err != nil {
		return nil, err
	}
	return result.Profiles(), nil
}

// Search performs a retrieval and reports its intermediate state. monitor,
// if non-nil, observes this call in addition to the Retriever's own monitor.
func (r *Retriever) Search(ctx context.Context, query string, topK int, monitor SearchMonitor) (*Result, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopK, topK)
	}
	mon := MultiMonitor(r.monitor, monitor)
	mon.Start(query)

	result := &Result{Candidates: -1, Matches: []Match{}}

	// 1. Extract filters; failure means no filter.
	filter, err := r.extractor.ExtractFilters(ctx, query)
	if err != nil {
		r.logger.Warn("filter extraction failed, searching without filters", "err", err)
		result.FilterErr = err
		filter = core.Filter{}
	}
	result.Filter = filter
	mon.AfterFilterExtraction(filter, err)

	// 2. Pre-filter candidates in the relational store.
	var restrict []core.ID
	if !filter.IsEmpty() {
		restrict, err = r.profiles.CandidateIDs(ctx, filter, r.candidateCap)
		if err != nil {
			r.logger.Error("candidate search failed", "filter", filter, "err", err)
			return nil, err
		}
		if restrict == nil {
			restrict = []core.ID{}
		}
		result.Candidates = len(restrict)
		mon.AfterCandidateSearch(restrict)
		r.logger.Debug("filter candidates", "filter", filter, "candidates", len(restrict))

		if len(restrict) == 0 {
			mon.Finish(result.Matches)
			return result, nil
		}
	}

	// 3. Embed the query.
	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	// 4. Nearest neighbours, restricted to candidates if any.
	hits, err := r.index.Query(ctx, vector, topK, restrict)
	if err != nil {
		r.logger.Error("vector search failed", "err", err)
		return nil, err
	}
	mon.AfterVectorSearch(hits)
	if len(hits) == 0 {
		mon.Finish(result.Matches)
		return result, nil
	}

	// 5. Resolve ids; profiles missing from the store are dropped.
	ids := make([]core.ID, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	profiles, err := r.profiles.GetProfiles(ctx, ids...)
	if err != nil {
		r.logger.Error("error retrieving profiles", "count", len(ids), "err", err)
		return nil, err
	}
	mon.AfterRecordRetrieval(profiles)

	// 6. Keep the index's distance order.
	byID := make(map[core.ID]*core.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	for _, h := range hits {
		p, ok := byID[h.ID]
		if !ok {
			r.logger.Debug("vector hit has no stored profile", "id", h.ID)
			continue
		}
		result.Matches = append(result.Matches, Match{Profile: p, Distance: h.Distance})
		if len(result.Matches) == topK {
			break
		}
	}

	mon.Finish(result.Matches)
	return result, nil
}
