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
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/floatchat/ai"
)

// embeddingFanout splits a batch of texts into chunks and embeds the chunks
// concurrently on a worker pool. Output order matches input order.
type embeddingFanout struct {
	embedder  ai.Embedder
	pool      *ants.Pool
	chunkSize int
	logger    *slog.Logger
}

func newEmbeddingFanout(embedder ai.Embedder, pool *ants.Pool, chunkSize int, logger *slog.Logger) (*embeddingFanout, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if pool == nil {
		return nil, fmt.Errorf("worker pool required")
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingFanout{
		embedder:  embedder,
		pool:      pool,
		chunkSize: chunkSize,
		logger:    logger.With("processor", "embeddings"),
	}, nil
}

// embed returns one vector per text. The first chunk error cancels the rest.
func (ef *embeddingFanout) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ef.logger.Debug("generating embeddings", "texts", len(texts), "chunk_size", ef.chunkSize)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(texts))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for start := 0; start < len(texts); start += ef.chunkSize {
		end := min(start+ef.chunkSize, len(texts))
		wg.Add(1)
		err := ef.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			chunk, err := ef.embedder.EmbedTexts(ctx, texts[start:end])
			if err != nil {
				fail(err)
				return
			}
			if len(chunk) != end-start {
				fail(fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, end-start, len(chunk)))
				return
			}
			copy(vectors[start:end], chunk)
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		ef.logger.Error("error generating embeddings", "err", firstErr)
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return vectors, nil
}
