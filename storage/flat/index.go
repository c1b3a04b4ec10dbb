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


package flat

import (
	"cmp"
	"container/heap"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/floatchat/storage"
)

const (
	indexMagic   = "floatchat-flat"
	indexVersion = 1
)

var (
	// ErrBadIndex indicates an index file that cannot be decoded.
	ErrBadIndex = errors.New("malformed flat index")

	// ErrDimensionMismatch indicates a vector of the wrong size.
	ErrDimensionMismatch = storage.ErrDimensionMismatch
)

// Result is one search match: the position of the vector in the index.
type Result struct {
	Position int
	Distance float32
}

// Index is an in-memory exhaustive L2 index.
// It is safe for concurrent reads once built.
type Index struct {
	dim        int
	normalized bool
	vectors    [][]float32
}

// NewIndex creates an empty index for vectors of size dim. When normalized
// is true, added and query vectors are scaled to unit length.
func NewIndex(dim int, normalized bool) *Index {
	return &Index{dim: dim, normalized: normalized}
}

// Dimension returns the vector size.
func (x *Index) Dimension() int { return x.dim }

// Len returns the number of vectors.
func (x *Index) Len() int { return len(x.vectors) }

// Normalized reports whether vectors are stored at unit length.
func (x *Index) Normalized() bool { return x.normalized }

// Add appends vec and returns its position.
func (x *Index) Add(vec []float32) (int, error) {
	if len(vec) != x.dim {
		return 0, fmt.Errorf("%w: got %d values, index has %d", ErrDimensionMismatch, len(vec), x.dim)
	}
	v := slices.Clone(vec)
	if x.normalized {
		normalize(v)
	}
	x.vectors = append(x.vectors, v)
	return len(x.vectors) - 1, nil
}

// Search returns up to k positions nearest to vec, closest first.
func (x *Index) Search(vec []float32, k int) ([]Result, error) {
	if len(vec) != x.dim {
		return nil, fmt.Errorf("%w: got %d values, index has %d", ErrDimensionMismatch, len(vec), x.dim)
	}
	if k <= 0 {
		return []Result{}, nil
	}
	q := vec
	if x.normalized {
		q = slices.Clone(vec)
		normalize(q)
	}

	best := &resultHeap{}
	for pos, v := range x.vectors {
		r := Result{Position: pos, Distance: l2(q, v)}
		if best.Len() < k {
			heap.Push(best, r)
		} else if r.Distance < (*best)[0].Distance {
			(*best)[0] = r
			heap.Fix(best, 0)
		}
	}

	results := []Result(*best)
	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	return results, nil
}

// MarshalBinary encodes the index.
func (x *Index) MarshalBinary() ([]byte, error) {
	size := ord.String.Size(indexMagic) +
		varint.Uint64.Size(indexVersion) +
		ord.Bool.Size(x.normalized) +
		varint.Int64.Size(int64(x.dim)) +
		varint.Int64.Size(int64(len(x.vectors)))
	for _, v := range x.vectors {
		size += storage.VectorSize(v)
	}

	buf := make([]byte, size)
	n := ord.String.Marshal(indexMagic, buf)
	n += varint.Uint64.Marshal(indexVersion, buf[n:])
	n += ord.Bool.Marshal(x.normalized, buf[n:])
	n += varint.Int64.Marshal(int64(x.dim), buf[n:])
	n += varint.Int64.Marshal(int64(len(x.vectors)), buf[n:])
	for _, v := range x.vectors {
		n += storage.MarshalVectorTo(v, buf[n:])
	}
	return buf[:n], nil
}

// UnmarshalBinary decodes an index written by MarshalBinary.
func (x *Index) UnmarshalBinary(data []byte) error {
	magic, n, err := ord.String.Unmarshal(data)
	if err != nil || magic != indexMagic {
		return fmt.Errorf("%w: bad magic", ErrBadIndex)
	}
	off := n

	version, n, err := varint.Uint64.Unmarshal(data[off:])
	if err != nil {
		return fmt.Errorf("%w: version: %v", ErrBadIndex, err)
	}
	if version != indexVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadIndex, version)
	}
	off += n

	normalized, n, err := ord.Bool.Unmarshal(data[off:])
	if err != nil {
		return fmt.Errorf("%w: normalized flag: %v", ErrBadIndex, err)
	}
	off += n

	dim, n, err := varint.Int64.Unmarshal(data[off:])
	if err != nil || dim < 0 {
		return fmt.Errorf("%w: dimension", ErrBadIndex)
	}
	off += n

	count, n, err := varint.Int64.Unmarshal(data[off:])
	if err != nil || count < 0 {
		return fmt.Errorf("%w: count", ErrBadIndex)
	}
	off += n

	vectors := make([][]float32, 0, min(count, 1<<20))
	for i := int64(0); i < count; i++ {
		v, m, err := storage.UnmarshalVector(data[off:])
		if err != nil {
			return fmt.Errorf("%w: vector %d: %v", ErrBadIndex, i, err)
		}
		if int64(len(v)) != dim {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrBadIndex, i, len(v), dim)
		}
		vectors = append(vectors, v)
		off += m
	}

	x.dim, x.normalized, x.vectors = int(dim), normalized, vectors
	return nil
}

func l2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

func normalize(v []float32) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

// resultHeap is a max-heap on distance holding the current k best results.
type resultHeap []Result

func (h resultHeap) Len() int           { return len(h) }
func (h resultHeap) Less(i, j int) bool { return h[i].Distance > h[j].Distance }
func (h resultHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x any)        { *h = append(*h, x.(Result)) }
func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
