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


package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/floatchat/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Int64.Size(int64(id)))
	varint.Int64.Marshal(int64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Int64.Unmarshal(data)
	return core.ID(id), err
}

// VectorSize returns the encoded size of vec.
func VectorSize(vec []float32) int {
	size := varint.Uint64.Size(uint64(len(vec)))
	for _, v := range vec {
		size += raw.Float32.Size(v)
	}
	return size
}

// MarshalVectorTo encodes vec as a length prefix followed by fixed-width
// floats into buf, which must hold VectorSize(vec) bytes.
func MarshalVectorTo(vec []float32, buf []byte) int {
	n := varint.Uint64.Marshal(uint64(len(vec)), buf)
	for _, v := range vec {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	return n
}

// MarshalVector serializes a vector to bytes.
func MarshalVector(vec []float32) []byte {
	buf := make([]byte, VectorSize(vec))
	MarshalVectorTo(vec, buf)
	return buf
}

// UnmarshalVector decodes a vector written by MarshalVectorTo and reports
// the number of bytes consumed.
func UnmarshalVector(data []byte) ([]float32, int, error) {
	length, n, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: vector length: %v", ErrSerializationFailed, err)
	}
	// Each float occupies four bytes; reject lengths the buffer cannot hold.
	if length > uint64(len(data)-n)/4 {
		return nil, 0, fmt.Errorf("%w: vector of %d floats", ErrTruncatedData, length)
	}
	vec := make([]float32, length)
	for i := range vec {
		v, m, err := raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: vector element %d: %v", ErrSerializationFailed, i, err)
		}
		vec[i] = v
		n += m
	}
	return vec, n, nil
}
