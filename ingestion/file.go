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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/dataset"
	"github.com/poiesic/floatchat/storage"
)

// processFile runs one file through the tracking state machine. It never
// returns an error; failures are reported in the result.
func (p *Pipeline) processFile(ctx context.Context, logger *slog.Logger, path, archiveDir string) *FileResult {
	start := time.Now()
	name := filepath.Base(path)
	result := &FileResult{File: name}
	logger = logger.With("file", name)
	defer func() { p.monitor.FileFinished(result, time.Since(start)) }()

	fail := func(err error) *FileResult {
		result.Status = core.FileStatusFailed
		result.Err = err
		logger.Error("file processing failed", "err", err)
		// Record the failure even when the run is being cancelled.
		rec := &core.FileRecord{Filename: name, Hash: result.Hash, Status: core.FileStatusFailed}
		if markErr := p.tracking.MarkFile(context.WithoutCancel(ctx), rec); markErr != nil {
			logger.Error("could not record failed status", "err", markErr)
		}
		return result
	}

	hash, err := core.FileHash(path)
	if err != nil {
		return fail(fmt.Errorf("hash file: %w", err))
	}
	result.Hash = hash

	if err := p.tracking.MarkFile(ctx, &core.FileRecord{Filename: name, Hash: hash, Status: core.FileStatusInProgress}); err != nil {
		return fail(fmt.Errorf("mark in progress: %w", err))
	}

	prior, err := p.tracking.FindSuccessfulByHash(ctx, hash)
	switch {
	case err == nil && prior.Filename != name:
		logger.Info("content already ingested, skipping", "original", prior.Filename)
		result.Duplicate = true
		return p.succeed(ctx, logger, path, archiveDir, result)
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return fail(fmt.Errorf("look up content hash: %w", err))
	}

	ds, err := p.opener.Open(path)
	if err != nil {
		return fail(fmt.Errorf("open dataset: %w", err))
	}
	table, err := dataset.Flatten(name, ds)
	if err != nil {
		return fail(err)
	}
	if len(table.Variables) == 0 {
		return fail(fmt.Errorf("%w in %s", ErrNoMeasurementVariables, name))
	}
	if len(table.Skipped) > 0 {
		logger.Debug("variables outside coordinate dimensions skipped", "variables", table.Skipped)
	}
	logger.Info("processing file", "raw_rows", table.Len, "variables", table.Variables, "float_wmo_id", table.FloatID)

	commit := func(batch []unit) error {
		inserted, err := p.persist(ctx, batch)
		if err != nil {
			return fmt.Errorf("batch %d: %w", result.Batches+1, err)
		}
		result.Inserted += inserted
		result.Batches++
		logger.Info("batch committed", "batch", result.Batches, "units", len(batch), "inserted", inserted)
		return nil
	}

	b := &batcher{size: p.batchSize}
	units := 0
	for u := range p.proc.units(table) {
		units++
		result.Rows += u.rows
		if full := b.add(u); full != nil {
			if err := commit(full); err != nil {
				return fail(err)
			}
		}
	}
	if rest := b.flush(); rest != nil {
		if err := commit(rest); err != nil {
			return fail(err)
		}
	}

	if units == 0 {
		logger.Warn("file has no usable rows", "err", core.ErrVacuousFile, "raw_rows", table.Len)
		result.Vacuous = true
	}
	return p.succeed(ctx, logger, path, archiveDir, result)
}

// succeed records success and then archives the file. The tracking record
// is written first, so an archive failure leaves the file in place without
// it being processed again.
func (p *Pipeline) succeed(ctx context.Context, logger *slog.Logger, path, archiveDir string, result *FileResult) *FileResult {
	rec := &core.FileRecord{Filename: result.File, Hash: result.Hash, Status: core.FileStatusSuccess}
	if err := p.tracking.MarkFile(ctx, rec); err != nil {
		result.Status = core.FileStatusFailed
		result.Err = fmt.Errorf("mark success: %w", err)
		logger.Error("could not record success", "err", err)
		return result
	}
	result.Status = core.FileStatusSuccess

	if err := archive(path, archiveDir); err != nil {
		logger.Error("could not archive file", "dir", archiveDir, "err", err)
		return result
	}
	result.Archived = true
	logger.Info("file processed", "inserted", result.Inserted, "duplicate", result.Duplicate, "vacuous", result.Vacuous)
	return result
}

// batcher groups units so each batch holds about size rows. A unit is
// never split across batches, and only the pending batch is held.
type batcher struct {
	size    int
	rows    int
	pending []unit
}

// add queues u. When u does not fit, the pending batch is returned and u
// starts the next one.
func (b *batcher) add(u unit) []unit {
	var full []unit
	if b.rows > 0 && b.rows+u.rows > b.size {
		full = b.flush()
	}
	b.pending = append(b.pending, u)
	b.rows += u.rows
	return full
}

// flush returns the pending batch, or nil when nothing is queued.
func (b *batcher) flush() []unit {
	if len(b.pending) == 0 {
		return nil
	}
	full := b.pending
	b.pending, b.rows = nil, 0
	return full
}

// persist stores one batch in a single relational transaction: upsert,
// measurement rows, summaries, embeddings and the vector index add. Any
// error rolls the batch back. It returns the number of new profiles.
func (p *Pipeline) persist(ctx context.Context, batch []unit) (int, error) {
	start := time.Now()
	rows := 0
	profiles := make([]*core.Profile, len(batch))
	byProfile := make(map[*core.Profile]unit, len(batch))
	for i, u := range batch {
		profiles[i] = u.profile
		byProfile[u.profile] = u
		rows += u.rows
	}

	var inserted []*core.Profile
	err := p.profiles.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		inserted, err = p.profiles.UpsertProfiles(ctx, profiles...)
		if err != nil {
			return fmt.Errorf("upsert profiles: %w", err)
		}
		if len(inserted) == 0 {
			return nil
		}

		var levels []*core.Measurement
		ids := make([]core.ID, len(inserted))
		texts := make([]string, len(inserted))
		for i, prof := range inserted {
			u := byProfile[prof]
			ids[i] = prof.ID
			texts[i] = p.proc.summarize(u)
			for _, l := range u.levels {
				l.ProfileID = prof.ID
				levels = append(levels, l)
			}
		}

		if len(levels) > 0 {
			if err := p.profiles.InsertMeasurements(ctx, levels...); err != nil {
				return fmt.Errorf("insert measurements: %w", err)
			}
		}

		vectors, err := p.fanout.embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed summaries: %w", err)
		}
		if err := p.index.Add(ctx, ids, vectors); err != nil {
			return fmt.Errorf("add to vector index: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	p.monitor.BatchCommitted(rows, len(inserted), time.Since(start))
	return len(inserted), nil
}
