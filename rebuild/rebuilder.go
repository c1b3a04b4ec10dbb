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


package rebuild

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/storage"
	"github.com/poiesic/floatchat/storage/flat"
)

// Config holds configuration for an index rebuild.
type Config struct {
	// BatchSize is the number of summaries embedded per request.
	BatchSize int

	// PageSize is the number of floats aggregated per store query.
	PageSize int

	// ReportInterval is how often to report progress, in floats.
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// Normalize scales vectors to unit length before indexing, making L2
	// ranking equivalent to cosine ranking.
	Normalize bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      64,
		PageSize:       DefaultPageSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result describes a completed rebuild.
type Result struct {
	// Generation names the index generation written, empty when there
	// were no floats and the previous index was left in place.
	Generation string
	Floats     int
	Dimension  int
	Elapsed    time.Duration
}

// Rebuilder regenerates the float-level index under a directory.
type Rebuilder struct {
	profiles storage.ProfileRepository
	dir      string
	config   *Config
	progress io.Writer
	embedder *batchEmbedder
	iterator *FloatIterator
	logger   *slog.Logger
}

// NewRebuilder creates a rebuilder writing generations under dir.
// progress receives a human-readable progress line and may be nil.
func NewRebuilder(profiles storage.ProfileRepository, embedder ai.Embedder, dir string, config *Config, progress io.Writer) (*Rebuilder, error) {
	if profiles == nil {
		return nil, ErrProfileRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if dir == "" {
		return nil, ErrIndexDirRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	if config.MaxRetries <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}

	logger := slog.Default().With("component", "rebuild")
	return &Rebuilder{
		profiles: profiles,
		dir:      dir,
		config:   config,
		progress: progress,
		embedder: &batchEmbedder{
			embedder:       embedder,
			maxRetries:     config.MaxRetries,
			retryBaseDelay: config.RetryDelay,
			logger:         logger,
		},
		iterator: NewFloatIterator(profiles, config.PageSize),
		logger:   logger,
	}, nil
}

// Run summarizes every float, embeds the summaries and swaps in a new
// index generation. With no floats in the store nothing is written.
func (r *Rebuilder) Run(ctx context.Context) (*Result, error) {
	r.logger.Info("starting float index rebuild", "dir", r.dir)

	floats, err := r.iterator.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate floats: %w", err)
	}
	if len(floats) == 0 {
		r.logger.Warn("no floats found, skipping index creation")
		fmt.Fprintf(r.progress, "No floats found in database (0 floats)\n")
		return &Result{}, nil
	}
	r.logger.Info("found float metadata", "floats", len(floats))
	fmt.Fprintf(r.progress, "Rebuilding float index for %d floats (batch size: %d)\n",
		len(floats), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(floats), r.config.ReportInterval)
	tracker.Start()

	var index *flat.Index
	mapping := make(map[int]string, len(floats))
	for start := 0; start < len(floats); start += r.config.BatchSize {
		batch := floats[start:min(start+r.config.BatchSize, len(floats))]

		texts := make([]string, len(batch))
		for i, s := range batch {
			texts[i] = FloatSummary(s)
		}
		vectors, err := r.embedder.embed(ctx, texts)
		if err != nil {
			return nil, err
		}

		if index == nil {
			index = flat.NewIndex(len(vectors[0]), r.config.Normalize)
		}
		for i, vec := range vectors {
			pos, err := index.Add(vec)
			if err != nil {
				return nil, fmt.Errorf("float %s: %w", batch[i].FloatID, err)
			}
			mapping[pos] = batch[i].FloatID
		}
		tracker.Add(len(batch))
	}
	tracker.Finish()

	gen, err := flat.Save(r.dir, index, mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to save float index: %w", err)
	}

	result := &Result{
		Generation: gen,
		Floats:     index.Len(),
		Dimension:  index.Dimension(),
		Elapsed:    tracker.Elapsed(),
	}
	r.logger.Info("float index rebuilt", "generation", gen, "floats", result.Floats, "dimension", result.Dimension, "elapsed", result.Elapsed)
	fmt.Fprintf(r.progress, "Rebuild complete. Indexed %d floats in %v\n",
		result.Floats, result.Elapsed.Round(time.Millisecond))

	return result, nil
}
