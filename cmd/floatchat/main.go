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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/floatchat"
	"github.com/poiesic/floatchat/config"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree. opts are passed to every service the
// commands open.
func newApp(opts ...floatchat.ServiceOption) *cli.App {
	cmd := &commands{serviceOpts: opts}
	return &cli.App{
		Name:  "floatchat",
		Usage: "Ask natural-language questions about ARGO float observations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides the config file",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{config.EnvPrefix + "CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Load environment variables from these files (default .env)",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics to this file when a command finishes",
			},
		},
		Before: cmd.before,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest new NetCDF files from the source directory",
				Action:    cmd.ingest,
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "source",
						Aliases: []string{"s"},
						Usage:   "Directory scanned for NetCDF files",
					},
					&cli.StringFlag{
						Name:  "archive",
						Usage: "Directory successfully processed files are moved to",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Ingestion mode (points, profiles)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of rows committed per transaction",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent embedding requests",
					},
				},
			},
			{
				Name:   "rebuild",
				Usage:  "Rebuild the float-level summary index",
				Action: cmd.rebuild,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory holding index generations",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of summaries embedded per request",
					},
					&cli.BoolFlag{
						Name:  "normalize",
						Usage: "Store unit-length vectors",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Retrieve the profiles most relevant to a query",
				ArgsUsage: "<query>",
				Action:    cmd.search,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of profiles to return",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Print each retrieval stage",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from retrieved profiles",
				ArgsUsage: "<question>",
				Action:    cmd.ask,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "model",
						Aliases: []string{"m"},
						Usage:   "Answer model (defaults to the configured one)",
					},
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of profiles placed in the prompt",
					},
					&cli.BoolFlag{
						Name:  "show-context",
						Usage: "Print the retrieved profiles after the answer",
					},
				},
			},
			{
				Name:      "filters",
				Usage:     "Print the structured filter extracted from a query",
				ArgsUsage: "<query>",
				Action:    cmd.filters,
			},
			{
				Name:      "floats",
				Usage:     "Find floats whose summaries match a query",
				ArgsUsage: "<query>",
				Action:    cmd.floats,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of floats to return",
						Value:   5,
					},
				},
			},
			{
				Name:      "profile",
				Usage:     "Show a stored profile and its measurement rows",
				ArgsUsage: "<id>",
				Action:    cmd.profile,
			},
			{
				Name:   "list",
				Usage:  "List stored profiles matching a structured filter",
				Action: cmd.list,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "float", Usage: "Float WMO identifier"},
					&cli.StringFlag{Name: "start", Usage: "First day, YYYY-MM-DD"},
					&cli.StringFlag{Name: "end", Usage: "Last day, YYYY-MM-DD"},
					&cli.Float64Flag{Name: "min-lat", Usage: "Minimum latitude"},
					&cli.Float64Flag{Name: "max-lat", Usage: "Maximum latitude"},
					&cli.Float64Flag{Name: "min-lon", Usage: "Minimum longitude"},
					&cli.Float64Flag{Name: "max-lon", Usage: "Maximum longitude"},
					&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum rows to print", Value: 20},
				},
			},
			{
				Name:   "files",
				Usage:  "List tracked source files",
				Action: cmd.files,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Only list files with this status (in_progress, success, failed)",
					},
				},
			},
			{
				Name:   "config",
				Usage:  "Write the effective configuration as YAML",
				Action: cmd.writeConfig,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination file",
						Value:   "floatchat.yaml",
					},
				},
			},
		},
	}
}

// loadConfig layers the config file, the environment and global flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.StringSlice("env-file")...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("metrics-file") {
		cfg.MetricsFile = c.String("metrics-file")
	}
	return cfg, nil
}

func setupLogger(levelStr string) error {
	levelStr = strings.ToLower(levelStr)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
