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
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
)

// Opener opens source files as datasets.
type Opener interface {
	Open(path string) (*Dataset, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (*Dataset, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (*Dataset, error) { return f(path) }

// FileOpener opens NetCDF files from disk.
var FileOpener Opener = OpenerFunc(Open)

// Extensions lists the recognised source file extensions, lower case.
var Extensions = []string{".nc", ".nc4", ".cdf", ".netcdf"}

// IsSourceFile reports whether name has a recognised extension,
// ignoring case.
func IsSourceFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

var (
	cdfMagic  = []byte("CDF")
	hdf5Magic = []byte("\x89HDF\r\n\x1a\n")
)

// Open reads the NetCDF file at path. Classic files (CDF-1, CDF-2 and
// CDF-5) have their header bounds checked first; NetCDF-4 files are
// handed to the decoder directly.
func Open(path string) (*Dataset, error) {
	version, err := sniff(path)
	if err != nil {
		return nil, err
	}
	return read(path, version)
}

// sniff identifies the format of path from its magic bytes.
func sniff(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	var magic [8]byte
	n, err := io.ReadFull(f, magic[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, err
	}

	switch {
	case bytes.Equal(magic[:n], hdf5Magic):
		return 4, nil
	case n < 4 || !bytes.Equal(magic[:3], cdfMagic):
		return 0, fmt.Errorf("%w: not a NetCDF file", ErrUnsupportedFormat)
	}

	version := int(magic[3])
	if version != 1 && version != 2 && version != 5 {
		return 0, fmt.Errorf("%w: classic format version %d", ErrUnsupportedFormat, version)
	}
	if _, err := f.Seek(4, io.SeekStart); err != nil {
		return 0, err
	}
	if err := checkClassicHeader(f, info.Size(), version); err != nil {
		return 0, err
	}
	return version, nil
}

// read decodes path with the NetCDF library. Decoder failures, including
// panics on inconsistent data sections, surface as ErrMalformed.
func read(path string, version int) (ds *Dataset, err error) {
	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer g.Close()
	return fromGroup(g, version)
}
