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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	currentFile = "CURRENT"
	indexFile   = "index.bin"
	mappingFile = "mapping.json"
	genPrefix   = "gen-"
	filePerm    = 0o644
	dirPerm     = 0o755
)

// ErrNoIndex is returned by OpenCurrent when no generation has been saved.
var ErrNoIndex = errors.New("no float index has been built")

// Save writes idx and its position-to-float mapping as a new generation under
// dir, then points CURRENT at it. The previously current generation is
// removed once the swap succeeds. It returns the new generation name.
func Save(dir string, idx *Index, mapping map[int]string) (string, error) {
	if len(mapping) != idx.Len() {
		return "", fmt.Errorf("mapping has %d entries for %d vectors", len(mapping), idx.Len())
	}
	for pos := range idx.Len() {
		if _, ok := mapping[pos]; !ok {
			return "", fmt.Errorf("mapping has no entry for position %d", pos)
		}
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("create index directory: %w", err)
	}
	previous, err := readCurrent(dir)
	if err != nil && !errors.Is(err, ErrNoIndex) {
		return "", err
	}

	gen := genPrefix + uuid.NewString()
	genDir := filepath.Join(dir, gen)
	if err := os.Mkdir(genDir, dirPerm); err != nil {
		return "", fmt.Errorf("create generation directory: %w", err)
	}

	data, err := idx.MarshalBinary()
	if err != nil {
		os.RemoveAll(genDir)
		return "", err
	}
	if err := writeFileSync(filepath.Join(genDir, indexFile), data); err != nil {
		os.RemoveAll(genDir)
		return "", err
	}

	encoded := make(map[string]string, len(mapping))
	for pos, floatID := range mapping {
		encoded[strconv.Itoa(pos)] = floatID
	}
	mdata, err := json.Marshal(encoded)
	if err != nil {
		os.RemoveAll(genDir)
		return "", fmt.Errorf("encode mapping: %w", err)
	}
	if err := writeFileSync(filepath.Join(genDir, mappingFile), mdata); err != nil {
		os.RemoveAll(genDir)
		return "", err
	}

	tmp := filepath.Join(dir, currentFile+".tmp")
	if err := writeFileSync(tmp, []byte(gen+"\n")); err != nil {
		os.RemoveAll(genDir)
		return "", err
	}
	if err := os.Rename(tmp, filepath.Join(dir, currentFile)); err != nil {
		os.Remove(tmp)
		os.RemoveAll(genDir)
		return "", fmt.Errorf("swap current generation: %w", err)
	}

	if previous != "" && previous != gen {
		// The swap already succeeded; a stale directory is only wasted space.
		_ = os.RemoveAll(filepath.Join(dir, previous))
	}
	return gen, nil
}

// FloatHit is a float-level search match.
type FloatHit struct {
	FloatID  string
	Distance float32
}

// FloatIndex is a loaded generation that answers queries with float ids.
type FloatIndex struct {
	Generation string
	index      *Index
	mapping    map[int]string
}

// OpenCurrent loads the generation named by dir/CURRENT.
func OpenCurrent(dir string) (*FloatIndex, error) {
	gen, err := readCurrent(dir)
	if err != nil {
		return nil, err
	}
	genDir := filepath.Join(dir, gen)

	data, err := os.ReadFile(filepath.Join(genDir, indexFile))
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	idx := &Index{}
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, err
	}

	mdata, err := os.ReadFile(filepath.Join(genDir, mappingFile))
	if err != nil {
		return nil, fmt.Errorf("read mapping: %w", err)
	}
	var encoded map[string]string
	if err := json.Unmarshal(mdata, &encoded); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	mapping := make(map[int]string, len(encoded))
	for k, floatID := range encoded {
		pos, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decode mapping: bad position %q", k)
		}
		mapping[pos] = floatID
	}

	return &FloatIndex{Generation: gen, index: idx, mapping: mapping}, nil
}

// Len returns the number of indexed floats.
func (f *FloatIndex) Len() int { return f.index.Len() }

// Dimension returns the vector size of the index.
func (f *FloatIndex) Dimension() int { return f.index.Dimension() }

// Search returns up to k floats nearest to vec. Positions without a mapping
// entry are skipped.
func (f *FloatIndex) Search(vec []float32, k int) ([]FloatHit, error) {
	results, err := f.index.Search(vec, k)
	if err != nil {
		return nil, err
	}
	hits := make([]FloatHit, 0, len(results))
	for _, r := range results {
		floatID, ok := f.mapping[r.Position]
		if !ok {
			continue
		}
		hits = append(hits, FloatHit{FloatID: floatID, Distance: r.Distance})
	}
	return hits, nil
}

func readCurrent(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, currentFile))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoIndex
	}
	if err != nil {
		return "", fmt.Errorf("read current generation: %w", err)
	}
	gen := strings.TrimSpace(string(data))
	if !strings.HasPrefix(gen, genPrefix) || strings.ContainsAny(gen, `/\`) {
		return "", fmt.Errorf("%w: current generation %q", ErrBadIndex, gen)
	}
	return gen, nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
