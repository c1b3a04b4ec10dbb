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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/floatchat/storage"
)

// collectionMeta describes a vector collection.
type collectionMeta struct {
	Dimension int
	CreatedAt time.Time
}

func marshalMeta(m collectionMeta) []byte {
	dim, created := int64(m.Dimension), m.CreatedAt.UnixMicro()
	buf := make([]byte, varint.Int64.Size(dim)+varint.Int64.Size(created))
	n := varint.Int64.Marshal(dim, buf)
	varint.Int64.Marshal(created, buf[n:])
	return buf
}

func unmarshalMeta(data []byte) (collectionMeta, error) {
	dim, n, err := varint.Int64.Unmarshal(data)
	if err != nil {
		return collectionMeta{}, storage.ErrSerializationFailed
	}
	created, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return collectionMeta{}, storage.ErrSerializationFailed
	}
	return collectionMeta{Dimension: int(dim), CreatedAt: time.UnixMicro(created).UTC()}, nil
}

// saveMeta persists the metadata for a collection.
func saveMeta(tx *badger.Txn, name string, m collectionMeta) error {
	return tx.Set(makeMetaKey(name), marshalMeta(m))
}

// loadMeta retrieves the metadata for a collection.
// Returns false if the collection has never been created.
func loadMeta(tx *badger.Txn, name string) (collectionMeta, bool, error) {
	item, err := tx.Get(makeMetaKey(name))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return collectionMeta{}, false, nil
		}
		return collectionMeta{}, false, err
	}

	var meta collectionMeta
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		meta, unmarshalErr = unmarshalMeta(val)
		return unmarshalErr
	})
	return meta, err == nil, err
}
