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


package badger

import (
	"cmp"
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/storage"
)

// addChunkSize bounds entries written per transaction to avoid ErrTxnTooBig.
const addChunkSize = 1000

// Collection implements storage.VectorIndex as an exact L2 scan over one
// key prefix. It is safe for concurrent use.
type Collection struct {
	name    string
	backend *Backend
	logger  *slog.Logger

	mu  sync.RWMutex
	dim int // zero until the first vector is added
}

var _ storage.VectorIndex = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Dimension returns the vector size of the collection, or zero when empty.
func (c *Collection) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dim
}

// Add stores vectors keyed by ids, replacing existing entries.
func (c *Collection) Add(ctx context.Context, ids []core.ID, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return storage.ErrLengthMismatch
	}
	if len(ids) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dim := c.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("%w: id %d has %d values, collection has %d", storage.ErrDimensionMismatch, ids[i], len(v), dim)
		}
	}

	for start := 0; start < len(ids); start += addChunkSize {
		end := min(start+addChunkSize, len(ids))
		err := c.backend.Update(ctx, func(tx *badger.Txn) error {
			if c.dim == 0 {
				meta, _, err := loadMeta(tx, c.name)
				if err != nil {
					return err
				}
				meta.Dimension = dim
				if err := saveMeta(tx, c.name, meta); err != nil {
					return err
				}
			}
			for i := start; i < end; i++ {
				if err := tx.Set(makeVectorKey(c.name, ids[i]), storage.MarshalVector(vectors[i])); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("add vectors to %s: %w", c.name, err)
		}
		c.dim = dim
	}

	c.logger.Debug("added vectors", "count", len(ids))
	return nil
}

// Query returns up to k entries nearest to vector by Euclidean distance.
func (c *Collection) Query(ctx context.Context, vector []float32, k int, restrict []core.ID) ([]core.Hit, error) {
	if k <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if restrict != nil && len(restrict) == 0 {
		return []core.Hit{}, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.dim == 0 {
		return []core.Hit{}, nil
	}
	if len(vector) != c.dim {
		return nil, fmt.Errorf("%w: query has %d values, collection has %d", storage.ErrDimensionMismatch, len(vector), c.dim)
	}

	best := &hitHeap{}
	consider := func(id core.ID, val []byte) error {
		stored, _, err := storage.UnmarshalVector(val)
		if err != nil {
			return err
		}
		hit := core.Hit{ID: id, Distance: core.Distance(vector, stored)}
		if best.Len() < k {
			heap.Push(best, hit)
		} else if hit.Distance < (*best)[0].Distance {
			(*best)[0] = hit
			heap.Fix(best, 0)
		}
		return nil
	}

	err := c.backend.WithTx(func(tx *badger.Txn) error {
		if restrict != nil {
			return c.scanRestricted(ctx, tx, restrict, consider)
		}
		return c.scanAll(ctx, tx, consider)
	}, false)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}

	hits := []core.Hit(*best)
	slices.SortFunc(hits, func(a, b core.Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return cmp.Compare(a.ID, b.ID)
		}
	})
	return hits, nil
}

// scanRestricted visits only the listed ids; ids absent from the collection are skipped.
func (c *Collection) scanRestricted(ctx context.Context, tx *badger.Txn, ids []core.ID, visit func(core.ID, []byte) error) error {
	seen := make(map[core.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := ctx.Err(); err != nil {
			return err
		}
		item, err := tx.Get(makeVectorKey(c.name, id))
		if err == badger.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error { return visit(id, val) }); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collection) scanAll(ctx context.Context, tx *badger.Txn, visit func(core.ID, []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeCollectionPrefix(c.name)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := iter.Item()
		id := idFromVectorKey(item.Key())
		if err := item.Value(func(val []byte) error { return visit(id, val) }); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of vectors in the collection.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	var n int64
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(c.name)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			n++
		}
		return nil
	}, false)
	return n, err
}

// hitHeap is a max-heap on distance holding the current k best hits.
type hitHeap []core.Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return h[i].Distance > h[j].Distance }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(core.Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
