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


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/floatchat"
	"github.com/poiesic/floatchat/chat"
	"github.com/poiesic/floatchat/config"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/search"
	"github.com/poiesic/floatchat/storage"
	"github.com/poiesic/floatchat/storage/flat"
	"github.com/urfave/cli/v2"
)

var errQueryRequired = errors.New("a query is required")

// commands holds the state shared by every subcommand of one app.
type commands struct {
	serviceOpts []floatchat.ServiceOption
	cfg         *config.Config
}

func (cmd *commands) before(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := setupLogger(cfg.LogLevel); err != nil {
		return err
	}
	cmd.cfg = cfg
	return nil
}

// withService opens the service, runs fn and writes the metrics file when
// one is configured.
func (cmd *commands) withService(c *cli.Context, fn func(ctx context.Context, svc *floatchat.Service) error) error {
	ctx := c.Context
	svc, err := floatchat.NewService(ctx, cmd.cfg, cmd.serviceOpts...)
	if err != nil {
		return err
	}
	defer svc.Close()

	err = fn(ctx, svc)
	if path := cmd.cfg.MetricsFile; path != "" {
		if werr := svc.Metrics().WriteTextfile(path); werr != nil {
			err = errors.Join(err, fmt.Errorf("write metrics: %w", werr))
		}
	}
	return err
}

func (cmd *commands) ingest(c *cli.Context) error {
	in := &cmd.cfg.Ingest
	if c.IsSet("source") {
		in.SourceDir = c.String("source")
	}
	if c.IsSet("archive") {
		in.ArchiveDir = c.String("archive")
	}
	if c.IsSet("mode") {
		in.Mode = c.String("mode")
	}
	if c.IsSet("batch-size") {
		in.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("pool-size") {
		in.PoolSize = c.Int("pool-size")
	}

	return cmd.withService(c, func(ctx context.Context, svc *floatchat.Service) error {
		pipeline, err := svc.NewIngestionPipeline()
		if err != nil {
			return err
		}
		defer pipeline.Release()

		report, err := pipeline.Run(ctx, in.SourceDir)
		if report != nil {
			printReport(c.App.Writer, report)
		}
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d file(s) failed to ingest", report.Failed)
		}
		return nil
	})
}

func (cmd *commands) rebuild(c *cli.Context) error {
	idx := &cmd.cfg.Index
	if c.IsSet("dir") {
		idx.Dir = c.String("dir")
	}
	if c.IsSet("batch-size") {
		idx.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("normalize") {
		idx.Normalize = c.Bool("normalize")
	}

	return cmd.withService(c, func(ctx context.Context, svc *floatchat.Service) error {
		rebuilder, err := svc.NewRebuilder(c.App.ErrWriter)
		if err != nil {
			return err
		}
		result, err := rebuilder.Run(ctx)
		if err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}
		if result.Floats == 0 {
			fmt.Fprintln(c.App.Writer, "Float index unchanged")
			return nil
		}
		svc.Metrics().RecordRebuild(result.Floats, time.Now())
		fmt.Fprintf(c.App.Writer, "Indexed %d floats (dimension %d) as generation %s in %s\n",
			result.Floats, result.Dimension, result.Generation, result.Elapsed.Round(time.Millisecond))
		return nil
	})
}

func (cmd *commands) search(c *cli.Context) error {
	query := queryArg(c)
	if query == "" {
		return errQueryRequired
	}
	topK := cmd.cfg.Search.TopK
	if c.IsSet("top-k") {
		topK = c.Int("top-k")
	}

	return cmd.withService(c, func(ctx context.Context, svc *floatchat.Service) error {
		retriever, err := svc.NewRetriever()
		if err != nil {
			return err
		}
		var monitor search.SearchMonitor
		if c.Bool("verbose") {
			monitor = &printMonitor{w: c.App.ErrWriter}
		}
		result, err := retriever.Search(ctx, query, topK, monitor)
		if err != nil {
			return err
		}
		if !result.Filter.IsEmpty() {
			fmt.Fprintf(c.App.Writer, "Filter: %s (%d candidates)\n", filterString(result.Filter), result.Candidates)
		}
		if len(result.Matches) == 0 {
			fmt.Fprintln(c.App.Writer, "No matching profiles")
			return nil
		}
		for i, m := range result.Matches {
			fmt.Fprintf(c.App.Writer, "%2d. %s distance=%.4f\n", i+1, profileLine(m.Profile), m.Distance)
		}
		return nil
	})
}

func (cmd *commands) ask(c *cli.Context) error {
	question := queryArg(c)
	if question == "" {
		return errQueryRequired
	}
	var opts []chat.Option
	if c.IsSet("top-k") {
		opts = append(opts, chat.WithTopK(c.Int("top-k")))
	}
	model := c.String("model")
	if model == "" {
		model = cmd.cfg.AI.AnswerModel
	}

	return cmd.withService(c, func(ctx context.Context, svc *floatchat.Service) error {
		chatSvc, err := svc.NewChat(opts...)
		if err != nil {
			return err
		}
		start := time.Now()
		answer, err := chatSvc.AnswerWithModel(ctx, question, model)
		svc.Metrics().RecordAnswer(model, time.Since(start), err)
		if err != nil {
			return err
		}

		fmt.Fprintln(c.App.Writer, answer.Text)
		if c.Bool("show-context") {
			fmt.Fprintln(c.App.Writer)
			if !answer.Filter.IsEmpty() {
				fmt.Fprintf(c.App.Writer, "Filter: %s\n", filterString(answer.Filter))
			}
			for i, m := range answer.Matches {
				fmt.Fprintf(c.App.Writer, "%2d. %s\n", i+1, profileLine(m.Profile))
			}
		}
		return nil
	})
}

func (cmd *commands) filters(c *cli.Context) error {
	query := queryArg(c)
	if query == "" {
		return errQueryRequired
	}

	return cmd.withService(c, func(ctx context.Context, svc *floatchat.Service) error {
		filter, err := svc.Provider().FilterExtractor().ExtractFilters(ctx, query)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(filter.JSON())
	})
}

func (cmd *commands) floats(c *cli.Context) error {
	query := queryArg(c)
	if query == "" {
		return errQueryRequired
	}

	return cmd.withService(c, func(ctx context.Context, svc *floatchat.Service) error {
		index, err := svc.OpenFloatIndex()
		if errors.Is(err, flat.ErrNoIndex) {
			return fmt.Errorf("%w; run the rebuild command first", err)
		}
		if err != nil {
			return err
		}
		hits, err := search.FindFloats(ctx, svc.Provider().Embedder(), index, query, c.Int("top-k"))
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Fprintln(c.App.Writer, "No matching floats")
			return nil
		}
		for i, h := range hits {
			fmt.Fprintf(c.App.Writer, "%2d. %s distance=%.4f\n", i+1, h.FloatID, h.Distance)
		}
		return nil
	})
}

func (cmd *commands) profile(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one profile id is required")
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid profile id %q", c.Args().First())
	}

	return cmd.withService(c, func(ctx context.Context, svc *floatchat.Service) error {
		p, err := svc.Profiles().GetProfile(ctx, core.ID(id))
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("profile %d not found", id)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, profileLine(p))
		for _, k := range p.Measurements.Keys() {
			fmt.Fprintf(c.App.Writer, "  %s = %s\n", k, p.Measurements[k])
		}

		rows, err := svc.Profiles().GetMeasurements(ctx, p.ID)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			fmt.Fprintf(c.App.Writer, "%d depth levels:\n", len(rows))
		}
		for _, row := range rows {
			parts := make([]string, 0, len(row.Data))
			for _, k := range row.Data.Keys() {
				parts = append(parts, k+"="+row.Data[k].String())
			}
			fmt.Fprintf(c.App.Writer, "  %8.1f m  %s\n", row.Depth, strings.Join(parts, " "))
		}
		return nil
	})
}

func (cmd *commands) list(c *cli.Context) error {
	filter, err := filterFromFlags(c)
	if err != nil {
		return err
	}
	if c.Int("limit") < 1 {
		return fmt.Errorf("limit must be positive, got %d", c.Int("limit"))
	}

	return cmd.withService(c, func(ctx context.Context, svc *floatchat.Service) error {
		profiles, err := svc.Profiles().SearchProfiles(ctx, filter, c.Int("offset"), c.Int("limit"))
		if err != nil {
			return err
		}
		for _, p := range profiles {
			fmt.Fprintln(c.App.Writer, profileLine(p))
		}
		return nil
	})
}

func (cmd *commands) files(c *cli.Context) error {
	status := core.FileStatus(c.String("status"))
	switch status {
	case "", core.FileStatusInProgress, core.FileStatusSuccess, core.FileStatusFailed:
	default:
		return fmt.Errorf("unknown file status %q", status)
	}

	return cmd.withService(c, func(ctx context.Context, svc *floatchat.Service) error {
		records, err := svc.Tracking().ListFiles(ctx, status)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Fprintf(c.App.Writer, "%-11s %s %s %s\n",
				r.Status, r.ProcessedAt.UTC().Format(time.RFC3339), shortHash(r.Hash), r.Filename)
		}
		return nil
	})
}

func (cmd *commands) writeConfig(c *cli.Context) error {
	out := *cmd.cfg
	out.AI.APIKey = ""
	path := c.String("output")
	if err := config.Save(path, &out); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote %s\n", path)
	return nil
}

func queryArg(c *cli.Context) string {
	return strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
}

// filterFromFlags builds the filter of the list command.
func filterFromFlags(c *cli.Context) (core.Filter, error) {
	var f core.Filter
	if c.IsSet("float") {
		f.FloatID = core.Ref(c.String("float"))
	}
	if c.IsSet("start") {
		t, err := time.Parse(core.DateLayout, c.String("start"))
		if err != nil {
			return f, fmt.Errorf("invalid start date: %w", err)
		}
		f.Start = &t
	}
	if c.IsSet("end") {
		t, err := time.Parse(core.DateLayout, c.String("end"))
		if err != nil {
			return f, fmt.Errorf("invalid end date: %w", err)
		}
		f.End = core.Ref(core.EndOfDay(t))
	}
	if c.IsSet("min-lat") {
		f.MinLat = core.Ref(c.Float64("min-lat"))
	}
	if c.IsSet("max-lat") {
		f.MaxLat = core.Ref(c.Float64("max-lat"))
	}
	if c.IsSet("min-lon") {
		f.MinLon = core.Ref(c.Float64("min-lon"))
	}
	if c.IsSet("max-lon") {
		f.MaxLon = core.Ref(c.Float64("max-lon"))
	}
	return f, nil
}
