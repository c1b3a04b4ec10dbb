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


// Package config loads floatchat process configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML
// file, a .env file, and FLOATCHAT_* environment variables. Command-line
// flags are applied by the caller afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/floatchat/ai"
	"github.com/poiesic/floatchat/ingestion"
	"github.com/poiesic/floatchat/storage/sqlstore"
)

// Vector index backends.
const (
	VectorBackendBadger   = "badger"
	VectorBackendPGVector = "pgvector"
)

// DefaultCollection is the vector collection holding profile embeddings.
const DefaultCollection = "ocean_profiles"

// DatabaseConfig locates the relational store.
type DatabaseConfig struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
}

// VectorConfig selects and locates the profile vector index.
type VectorConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"` // badger directory
	Collection string `yaml:"collection"`
}

// AIConfig configures the model services.
type AIConfig struct {
	EmbeddingHost  string        `yaml:"embedding_host"`
	GenerationHost string        `yaml:"generation_host"`
	APIKey         string        `yaml:"api_key"`
	EmbeddingModel string        `yaml:"embedding_model"`
	FilterModel    string        `yaml:"filter_model"`
	AnswerModel    string        `yaml:"answer_model"`
	Timeout        time.Duration `yaml:"timeout"`
}

// IngestConfig configures the ingestion pipeline.
type IngestConfig struct {
	SourceDir          string   `yaml:"source_dir"`
	ArchiveDir         string   `yaml:"archive_dir"` // default <source_dir>/archive
	Mode               string   `yaml:"mode"`
	BatchSize          int      `yaml:"batch_size"`
	EmbeddingChunkSize int      `yaml:"embedding_chunk_size"`
	PoolSize           int      `yaml:"pool_size"`
	RequiredVariables  []string `yaml:"required_variables"`
}

// IndexConfig configures the float-level index rebuild.
type IndexConfig struct {
	Dir       string `yaml:"dir"`
	BatchSize int    `yaml:"batch_size"`
	Normalize bool   `yaml:"normalize"`
}

// SearchConfig configures retrieval.
type SearchConfig struct {
	TopK         int `yaml:"top_k"`
	CandidateCap int `yaml:"candidate_cap"`
}

// Config is the root configuration.
type Config struct {
	Database    DatabaseConfig `yaml:"database"`
	Vector      VectorConfig   `yaml:"vector"`
	AI          AIConfig       `yaml:"ai"`
	Ingest      IngestConfig   `yaml:"ingest"`
	Index       IndexConfig    `yaml:"index"`
	Search      SearchConfig   `yaml:"search"`
	LogLevel    string         `yaml:"log_level"`
	MetricsFile string         `yaml:"metrics_file"`
}

// Default returns the built-in configuration: SQLite and BadgerDB under
// ./data and a local OpenAI-compatible model server.
func Default() *Config {
	aiCfg := ai.DefaultConfig()
	return &Config{
		Database: DatabaseConfig{
			Dialect: string(sqlstore.DialectSQLite),
			DSN:     filepath.Join("data", "floatchat.db"),
		},
		Vector: VectorConfig{
			Backend:    VectorBackendBadger,
			Path:       filepath.Join("data", "vectors"),
			Collection: DefaultCollection,
		},
		AI: AIConfig{
			EmbeddingHost:  aiCfg.EmbeddingHost,
			GenerationHost: aiCfg.GenerationHost,
			APIKey:         aiCfg.APIKey,
			EmbeddingModel: aiCfg.EmbeddingModel,
			FilterModel:    aiCfg.FilterModel,
			AnswerModel:    aiCfg.AnswerModel,
			Timeout:        aiCfg.Timeout,
		},
		Ingest: IngestConfig{
			SourceDir:          filepath.Join("data", "incoming"),
			Mode:               ingestion.ModePoints.String(),
			BatchSize:          ingestion.DefaultBatchSize,
			EmbeddingChunkSize: ingestion.DefaultEmbeddingChunkSize,
			RequiredVariables:  append([]string(nil), ingestion.DefaultRequiredVariables...),
		},
		Index: IndexConfig{
			Dir:       filepath.Join("data", "float_index"),
			BatchSize: 64,
		},
		Search: SearchConfig{
			TopK:         5,
			CandidateCap: 1000,
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables already set. With no files,
// ./.env is used. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Save writes cfg to path as YAML, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// AIConfig returns the model service configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGenerationHost(c.AI.GenerationHost),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithFilterModel(c.AI.FilterModel),
		ai.WithAnswerModel(c.AI.AnswerModel),
		ai.WithTimeout(c.AI.Timeout),
	)
}

// ArchiveDir returns the archive directory, defaulting under the source
// directory.
func (c *Config) ArchiveDir() string {
	if c.Ingest.ArchiveDir != "" {
		return c.Ingest.ArchiveDir
	}
	return filepath.Join(c.Ingest.SourceDir, ingestion.DefaultArchiveDirName)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := sqlstore.ParseDialect(c.Database.Dialect); err != nil {
		return err
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	switch c.Vector.Backend {
	case VectorBackendBadger:
		if c.Vector.Path == "" {
			return errors.New("vector path is required for the badger backend")
		}
	case VectorBackendPGVector:
		if d, _ := sqlstore.ParseDialect(c.Database.Dialect); d != sqlstore.DialectPostgres {
			return errors.New("the pgvector backend requires the postgres database dialect")
		}
	default:
		return fmt.Errorf("unknown vector backend %q", c.Vector.Backend)
	}
	if c.Vector.Collection == "" {
		return errors.New("vector collection is required")
	}
	if _, err := ingestion.ParseMode(c.Ingest.Mode); err != nil {
		return err
	}
	if c.Ingest.BatchSize < 1 {
		return ingestion.ErrInvalidBatchSize
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("search top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.CandidateCap < 1 {
		return fmt.Errorf("search candidate_cap must be positive, got %d", c.Search.CandidateCap)
	}
	return c.AIConfig().Validate()
}
