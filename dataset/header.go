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


package dataset

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	tagDimension = 0x0A
	tagVariable  = 0x0B
	tagAttribute = 0x0C
)

// headerCheck walks a classic header without retaining it. Every count is
// bounded by the bytes left in the file before anything is skipped, so a
// corrupt or hostile header is rejected before the decoder sizes a buffer
// from it.
type headerCheck struct {
	r       *bufio.Reader
	off     int64
	size    int64
	version int
	buf     [8]byte
}

// checkClassicHeader validates the header of a classic file of size bytes.
// r must be positioned just after the four magic bytes.
func checkClassicHeader(r io.Reader, size int64, version int) error {
	h := &headerCheck{r: bufio.NewReader(r), off: 4, size: size, version: version}
	return h.run()
}

func (h *headerCheck) fail(what string) error {
	return fmt.Errorf("%w: truncated or invalid %s at offset %d", ErrMalformed, what, h.off)
}

func (h *headerCheck) remaining() int64 { return h.size - h.off }

// width is the size of a count field.
func (h *headerCheck) width() int64 {
	if h.version == 5 {
		return 8
	}
	return 4
}

func (h *headerCheck) read(n int) ([]byte, bool) {
	if int64(n) > h.remaining() {
		return nil, false
	}
	if _, err := io.ReadFull(h.r, h.buf[:n]); err != nil {
		return nil, false
	}
	h.off += int64(n)
	return h.buf[:n], true
}

func (h *headerCheck) uint32() (uint32, bool) {
	b, ok := h.read(4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}

func (h *headerCheck) int64() (int64, bool) {
	b, ok := h.read(8)
	if !ok {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b)), true
}

// count reads a non-negative element count.
func (h *headerCheck) count() (int64, bool) {
	if h.version == 5 {
		n, ok := h.int64()
		return n, ok && n >= 0
	}
	n, ok := h.uint32()
	return int64(n), ok && int32(n) >= 0
}

// skip discards n bytes plus padding to the next 4-byte boundary.
func (h *headerCheck) skip(n int64) bool {
	n += (4 - n%4) % 4
	if n < 0 || n > h.remaining() {
		return false
	}
	if _, err := h.r.Discard(int(n)); err != nil {
		return false
	}
	h.off += n
	return true
}

func (h *headerCheck) name() bool {
	n, ok := h.count()
	return ok && h.skip(n)
}

// list reads a list header whose entries each take at least minEntry bytes.
func (h *headerCheck) list(tag uint32, minEntry int64) (int64, bool) {
	t, ok := h.uint32()
	if !ok {
		return 0, false
	}
	n, ok := h.count()
	if !ok {
		return 0, false
	}
	if t == 0 {
		return 0, n == 0
	}
	if t != tag || n > h.remaining()/minEntry {
		return 0, false
	}
	return n, true
}

func (h *headerCheck) run() error {
	if h.version == 5 {
		if _, ok := h.int64(); !ok {
			return h.fail("record count")
		}
	} else if _, ok := h.uint32(); !ok {
		return h.fail("record count")
	}

	w := h.width()
	ndims, ok := h.list(tagDimension, 2*w)
	if !ok {
		return h.fail("dimension list")
	}
	recDim := int64(-1)
	for i := range ndims {
		if !h.name() {
			return h.fail("dimension name")
		}
		length, ok := h.count()
		if !ok {
			return h.fail("dimension length")
		}
		if length == 0 {
			if recDim >= 0 {
				return fmt.Errorf("%w: more than one record dimension", ErrMalformed)
			}
			recDim = i
		}
	}

	if err := h.attributes(); err != nil {
		return err
	}

	// name, rank, absent attribute list, type, vsize and begin
	minVar := 3*w + 4 + 4 + w + 4
	nvars, ok := h.list(tagVariable, minVar)
	if !ok {
		return h.fail("variable list")
	}
	for range nvars {
		if err := h.variable(ndims, recDim); err != nil {
			return err
		}
	}
	return nil
}

func (h *headerCheck) attributes() error {
	w := h.width()
	n, ok := h.list(tagAttribute, 2*w+4)
	if !ok {
		return h.fail("attribute list")
	}
	for range n {
		if !h.name() {
			return h.fail("attribute name")
		}
		t, ok := h.uint32()
		if !ok {
			return h.fail("attribute type")
		}
		typ := Type(t)
		if typ.Size() == 0 || (h.version != 5 && typ > Double) {
			return fmt.Errorf("%w: attribute has unknown type %d", ErrMalformed, t)
		}
		count, ok := h.count()
		if !ok || count > h.remaining()/int64(typ.Size()) {
			return h.fail("attribute length")
		}
		if !h.skip(count * int64(typ.Size())) {
			return h.fail("attribute values")
		}
	}
	return nil
}

func (h *headerCheck) variable(ndims, recDim int64) error {
	if !h.name() {
		return h.fail("variable name")
	}
	rank, ok := h.count()
	if !ok || rank > h.remaining()/h.width() {
		return h.fail("variable rank")
	}
	record := false
	for j := range rank {
		id, ok := h.count()
		if !ok || id >= ndims {
			return fmt.Errorf("%w: variable references unknown dimension", ErrMalformed)
		}
		if id == recDim {
			if j != 0 {
				return fmt.Errorf("%w: record dimension out of first position", ErrMalformed)
			}
			record = true
		}
	}
	if err := h.attributes(); err != nil {
		return err
	}

	t, ok := h.uint32()
	if !ok {
		return h.fail("variable type")
	}
	if typ := Type(t); typ.Size() == 0 || (h.version != 5 && typ > Double) {
		return fmt.Errorf("%w: variable has unknown type %d", ErrMalformed, t)
	}

	var vsize, begin int64
	if h.version == 5 {
		vsize, ok = h.int64()
	} else {
		var n uint32
		n, ok = h.uint32()
		vsize = int64(n)
	}
	if !ok {
		return h.fail("variable size")
	}
	if h.version == 1 {
		var n uint32
		n, ok = h.uint32()
		begin = int64(int32(n))
	} else {
		begin, ok = h.int64()
	}
	if !ok || begin < 0 || begin > h.size {
		return h.fail("variable offset")
	}
	// vsize is rounded up to a 4-byte boundary; the final pad may be absent.
	if !record && vsize >= 0 && vsize <= h.size && begin+vsize > h.size+3 {
		return fmt.Errorf("%w: variable data lies outside the file", ErrMalformed)
	}
	return nil
}
