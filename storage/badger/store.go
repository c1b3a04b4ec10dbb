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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/floatchat/storage"
)

// VectorStore implements storage.VectorStore on BadgerDB.
type VectorStore struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger

	mu          sync.Mutex
	collections map[string]*Collection
}

var _ storage.VectorStore = (*VectorStore)(nil)

// Option configures a VectorStore.
type Option func(*VectorStore) error

// WithLogger sets the logger for the store.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *VectorStore) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "badger-vectors")
		return nil
	}
}

// NewVectorStore opens a vector store persisted under path.
func NewVectorStore(path string, opts ...Option) (*VectorStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	s, err := NewVectorStoreWithBackend(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.ownsBackend = true
	return s, nil
}

// NewVectorStoreWithBackend creates a vector store on an already opened backend.
// The caller keeps ownership of the backend.
func NewVectorStoreWithBackend(backend *Backend, opts ...Option) (*VectorStore, error) {
	s := &VectorStore{
		backend:     backend,
		logger:      slog.Default().With("component", "badger-vectors"),
		collections: make(map[string]*Collection),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Collection returns the named collection, creating it on first use.
func (s *VectorStore) Collection(ctx context.Context, name string) (storage.VectorIndex, error) {
	return s.collection(ctx, name)
}

func (s *VectorStore) collection(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, errors.New("collection name is required")
	}
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	var meta collectionMeta
	err := s.backend.Update(ctx, func(tx *badger.Txn) error {
		existing, found, err := loadMeta(tx, name)
		if err != nil {
			return err
		}
		if found {
			meta = existing
			return nil
		}
		meta = collectionMeta{CreatedAt: time.Now().UTC()}
		return saveMeta(tx, name, meta)
	})
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}

	c := &Collection{
		name:    name,
		backend: s.backend,
		dim:     meta.Dimension,
		logger:  s.logger.With("collection", name),
	}
	s.collections[name] = c
	s.logger.Debug("opened collection", "collection", name, "dimension", meta.Dimension)
	return c, nil
}

// Close closes the backend if the store opened it.
func (s *VectorStore) Close() error {
	if !s.ownsBackend {
		return nil
	}
	return s.backend.Close()
}
