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
	"encoding/binary"

	"github.com/poiesic/floatchat/core"
)

const (
	vectorRecordPrefix = "vecrec:"
	collectionMetaKey  = "vecmeta:"
)

// makeCollectionPrefix returns the key prefix shared by every vector of a collection.
// Format: prefix:name:
func makeCollectionPrefix(name string) []byte {
	buf := make([]byte, 0, len(vectorRecordPrefix)+len(name)+1)
	buf = append(buf, vectorRecordPrefix...)
	buf = append(buf, name...)
	return append(buf, ':')
}

// makeVectorKey generates the key for one vector.
// Format: prefix:name:id, with the id in BigEndian order so keys sort by id.
func makeVectorKey(name string, id core.ID) []byte {
	prefix := makeCollectionPrefix(name)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// idFromVectorKey extracts the id from a key made by makeVectorKey.
func idFromVectorKey(key []byte) core.ID {
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}

// makeMetaKey generates the key holding a collection's metadata.
func makeMetaKey(name string) []byte {
	return []byte(collectionMetaKey + name)
}
