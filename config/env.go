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


package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/floatchat/storage/sqlstore"
)

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "FLOATCHAT_"

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg from the process environment.
func (c *Config) ApplyEnv() error {
	return c.ApplyLookup(os.LookupEnv)
}

// ApplyLookup overrides cfg from variables named FLOATCHAT_<KEY>. The
// unprefixed POSTGRES_URI and OPENROUTER_API_KEY are honoured when their
// FLOATCHAT_ forms are unset.
func (c *Config) ApplyLookup(lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := lookup("POSTGRES_URI"); ok && v != "" {
		c.Database.Dialect = string(sqlstore.DialectPostgres)
		c.Database.DSN = v
	}
	if v, ok := lookup("OPENROUTER_API_KEY"); ok && v != "" {
		c.AI.APIKey = v
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"DB_DIALECT", &c.Database.Dialect},
		{"DB_DSN", &c.Database.DSN},
		{"VECTOR_BACKEND", &c.Vector.Backend},
		{"VECTOR_PATH", &c.Vector.Path},
		{"VECTOR_COLLECTION", &c.Vector.Collection},
		{"EMBEDDING_HOST", &c.AI.EmbeddingHost},
		{"GENERATION_HOST", &c.AI.GenerationHost},
		{"API_KEY", &c.AI.APIKey},
		{"EMBEDDING_MODEL", &c.AI.EmbeddingModel},
		{"FILTER_MODEL", &c.AI.FilterModel},
		{"ANSWER_MODEL", &c.AI.AnswerModel},
		{"SOURCE_DIR", &c.Ingest.SourceDir},
		{"ARCHIVE_DIR", &c.Ingest.ArchiveDir},
		{"INGEST_MODE", &c.Ingest.Mode},
		{"INDEX_DIR", &c.Index.Dir},
		{"LOG_LEVEL", &c.LogLevel},
		{"METRICS_FILE", &c.MetricsFile},
	}
	for _, s := range strs {
		if v, ok := get(s.key); ok {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"BATCH_SIZE", &c.Ingest.BatchSize},
		{"EMBEDDING_CHUNK_SIZE", &c.Ingest.EmbeddingChunkSize},
		{"POOL_SIZE", &c.Ingest.PoolSize},
		{"INDEX_BATCH_SIZE", &c.Index.BatchSize},
		{"TOP_K", &c.Search.TopK},
		{"CANDIDATE_CAP", &c.Search.CandidateCap},
	}
	for _, n := range ints {
		if v, ok := get(n.key); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, n.key, err)
			}
			*n.dst = i
		}
	}

	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.AI.Timeout = d
	}
	if v, ok := get("INDEX_NORMALIZE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sINDEX_NORMALIZE: %w", EnvPrefix, err)
		}
		c.Index.Normalize = b
	}
	if v, ok := get("REQUIRED_VARIABLES"); ok {
		var names []string
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		c.Ingest.RequiredVariables = names
	}
	return nil
}
