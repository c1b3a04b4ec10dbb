package dataset_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/floatchat/dataset"
	"github.com/poiesic/floatchat/dataset/cdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// write stores f in a temporary directory and returns its path.
func write(t *testing.T, f *cdftest.File) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.nc")
	require.NoError(t, f.WriteFile(path))
	return path
}

func open(t *testing.T, f *cdftest.File) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Open(write(t, f))
	require.NoError(t, err)
	return ds
}

// openBytes writes raw file content and opens it.
func openBytes(t *testing.T, data []byte) error {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.nc")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	_, err := dataset.Open(path)
	return err
}

func TestOpenGrid(t *testing.T) {
	ds := open(t, cdftest.Grid())

	assert.Contains(t, []int{1, 2, 5}, ds.Version)
	assert.Equal(t, "TEST_FLOAT_123", ds.FloatID())
	dim, ok := ds.Dim("depth")
	require.True(t, ok)
	assert.Equal(t, 2, dim.Len)

	psal := ds.Var("PSAL")
	require.NotNil(t, psal)
	assert.Equal(t, dataset.Float, psal.Type)
	assert.Equal(t, []string{"time", "depth", "latitude", "longitude"}, psal.Dims)
	assert.Equal(t, []int{1, 2, 2, 2}, psal.Shape)
	require.Len(t, psal.Values(), 8)
	assert.True(t, math.IsNaN(psal.Values()[0]), "fill value is masked")
	assert.InDelta(t, 35.1, psal.Values()[1], 1e-5)

	units, ok := ds.Var("time").Attrs.Text("units")
	require.True(t, ok)
	assert.Equal(t, "days since 1950-01-01 00:00:00 UTC", units)
	assert.Equal(t, []float64{-120, -121}, ds.Var("longitude").Values())
	assert.Nil(t, ds.Var("missing"))
}

func TestOpenIntegerTypes(t *testing.T) {
	f := cdftest.New().
		Dim("n", 3).
		Var("i16", dataset.Short, []string{"n"}, []float64{1, 2, -300}).
		Var("i32", dataset.Int, []string{"n"}, []float64{-1, 0, 1 << 20}).
		Var("i8", dataset.Byte, []string{"n"}, []float64{-5, 0, 7})
	ds := open(t, f)

	assert.Equal(t, dataset.Short, ds.Var("i16").Type)
	assert.Equal(t, []float64{1, 2, -300}, ds.Var("i16").Values())
	assert.Equal(t, []float64{-1, 0, 1 << 20}, ds.Var("i32").Values())
	assert.Equal(t, []float64{-5, 0, 7}, ds.Var("i8").Values())
}

func TestOpenScalarVariable(t *testing.T) {
	f := cdftest.New().
		Dim("depth", 2).
		Var("lat", dataset.Double, nil, []float64{12.5}).
		Var("depth", dataset.Double, []string{"depth"}, []float64{1, 2})
	ds := open(t, f)

	lat := ds.Var("lat")
	require.NotNil(t, lat)
	assert.Empty(t, lat.Dims)
	assert.Equal(t, 1, lat.Len())
	assert.Equal(t, []float64{12.5}, lat.Values())
}

func TestOpenUnpacksScaledValues(t *testing.T) {
	f := cdftest.New().
		Dim("n", 3).
		Var("temp", dataset.Short, []string{"n"}, []float64{100, -32767, 250},
			cdftest.A("scale_factor", 0.01),
			cdftest.A("add_offset", 20.0),
			cdftest.A("missing_value", int16(-32767)))
	ds := open(t, f)

	values := ds.Var("temp").Values()
	assert.InDelta(t, 21.0, values[0], 1e-9)
	assert.True(t, math.IsNaN(values[1]))
	assert.InDelta(t, 22.5, values[2], 1e-9)
}

func TestOpenCharVariable(t *testing.T) {
	ds := open(t, cdftest.Argo("5906468"))
	assert.Equal(t, []string{"5906468", "5906468"}, ds.Var("PLATFORM_NUMBER").Strings())
	assert.Nil(t, ds.Var("PLATFORM_NUMBER").Values())
	assert.Equal(t, "5906468", ds.FloatID())

	dim, ok := ds.Dim("N_LEVELS")
	require.True(t, ok)
	assert.Equal(t, 3, dim.Len)
}

func TestFloatIDPreference(t *testing.T) {
	ds := open(t, cdftest.Argo("5906468").Attr("wmo_id", "1901234"))
	assert.Equal(t, "1901234", ds.FloatID(), "global attributes win over the char variable")

	ds = open(t, cdftest.New().Attr("PLATFORM_NUMBER", 2902746))
	assert.Equal(t, "2902746", ds.FloatID())

	ds = open(t, cdftest.New().Dim("n", 1).Var("x", dataset.Double, []string{"n"}, []float64{1}))
	assert.Equal(t, "", ds.FloatID())
}

func TestOpenRejects(t *testing.T) {
	valid, err := os.ReadFile(write(t, cdftest.Grid()))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not netcdf", []byte("hello world"), dataset.ErrUnsupportedFormat},
		{"unknown version", []byte("CDF\x03\x00\x00\x00\x00"), dataset.ErrUnsupportedFormat},
		{"empty", nil, dataset.ErrUnsupportedFormat},
		{"truncated header", valid[:40], dataset.ErrMalformed},
		{"truncated data", valid[:len(valid)-8], dataset.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := openBytes(t, tt.data)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestOpenRejectsOversizedHeaderCounts(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			// no dimensions, then a global attribute list claiming 2^31-1 entries
			"attribute count",
			[]byte{'C', 'D', 'F', 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x0C, 0x7F, 0xFF, 0xFF, 0xFF},
		},
		{
			"dimension count",
			[]byte{'C', 'D', 'F', 1, 0, 0, 0, 0, 0, 0, 0, 0x0A, 0x7F, 0xFF, 0xFF, 0xFF},
		},
		{
			"variable count",
			[]byte{'C', 'D', 'F', 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
				0, 0, 0, 0x0B, 0x7F, 0xFF, 0xFF, 0xFF},
		},
		{
			// one global attribute "a" of 2^31-1 doubles
			"attribute length",
			[]byte{'C', 'D', 'F', 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
				0, 0, 0, 0x0C, 0, 0, 0, 1,
				0, 0, 0, 1, 'a', 0, 0, 0,
				0, 0, 0, 6, 0x7F, 0xFF, 0xFF, 0xFF},
		},
		{
			"name length",
			[]byte{'C', 'D', 'F', 1, 0, 0, 0, 0, 0, 0, 0, 0x0A, 0, 0, 0, 1,
				0x7F, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0},
		},
		{
			"cdf5 count",
			[]byte{'C', 'D', 'F', 5, 0, 0, 0, 0, 0, 0, 0, 0,
				0, 0, 0, 0x0A, 0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := openBytes(t, tt.data)
			assert.ErrorIs(t, err, dataset.ErrMalformed)
		})
	}
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.nc")
	require.NoError(t, cdftest.Grid().WriteFile(path))

	ds, err := dataset.FileOpener.Open(path)
	require.NoError(t, err)
	assert.Len(t, ds.Vars, 6)

	_, err = dataset.Open(filepath.Join(t.TempDir(), "absent.nc"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestIsSourceFile(t *testing.T) {
	assert.True(t, dataset.IsSourceFile("a.nc"))
	assert.True(t, dataset.IsSourceFile("b.NC4"))
	assert.True(t, dataset.IsSourceFile("c.cdf"))
	assert.True(t, dataset.IsSourceFile("d.netcdf"))
	assert.False(t, dataset.IsSourceFile("e.csv"))
	assert.False(t, dataset.IsSourceFile("nc"))
}
