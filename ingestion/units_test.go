package ingestion

import (
	"log/slog"
	"path/filepath"
	"slices"
	"testing"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/dataset"
	"github.com/poiesic/floatchat/dataset/cdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatten(t *testing.T, f *cdftest.File) *dataset.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.nc")
	require.NoError(t, f.WriteFile(path))
	ds, err := dataset.Open(path)
	require.NoError(t, err)
	table, err := dataset.Flatten("test.nc", ds)
	require.NoError(t, err)
	return table
}

// latitudeGrid has one time, one depth and longitude, and two latitudes.
// The first TEMP value is a fill value.
func latitudeGrid() *cdftest.File {
	return cdftest.New().
		Dim("time", 1).
		Dim("depth", 1).
		Dim("latitude", 2).
		Dim("longitude", 1).
		Var("time", dataset.Double, []string{"time"}, []float64{27394},
			cdftest.A("units", "days since 1950-01-01")).
		Var("depth", dataset.Double, []string{"depth"}, []float64{5}).
		Var("latitude", dataset.Double, []string{"latitude"}, []float64{10, 11}).
		Var("longitude", dataset.Double, []string{"longitude"}, []float64{70}).
		Var("TEMP", dataset.Float, []string{"time", "depth", "latitude", "longitude"},
			[]float64{cdftest.FillValue, 12.5}, cdftest.A("_FillValue", float32(cdftest.FillValue)))
}

func TestProfilesKeepPositionsWithoutData(t *testing.T) {
	pp := &profilesProcessor{logger: slog.Default()}
	units := slices.Collect(pp.units(flatten(t, latitudeGrid())))
	require.Len(t, units, 2, "one profile per time and position")

	empty := units[0]
	assert.Equal(t, 10.0, empty.profile.Latitude)
	assert.Equal(t, 1, empty.rows)
	assert.Empty(t, empty.levels, "a level without values is not stored")
	levels, _ := empty.profile.Measurements[core.KeyLevels].Float()
	assert.Equal(t, 0.0, levels)

	full := units[1]
	assert.Equal(t, 11.0, full.profile.Latitude)
	require.Len(t, full.levels, 1)
	temp, ok := full.levels[0].Data["TEMP"].Float()
	require.True(t, ok)
	assert.InDelta(t, 12.5, temp, 1e-6)
	assert.Equal(t, []string{"TEMP"}, full.variables)
}

func TestProfilesGroupContiguousRows(t *testing.T) {
	pp := &profilesProcessor{logger: slog.Default()}
	units := slices.Collect(pp.units(flatten(t, cdftest.Grid())))
	require.Len(t, units, 4)
	for _, u := range units {
		assert.Equal(t, 2, u.rows)
		assert.Len(t, u.levels, 2)
		lo, _ := u.profile.Measurements[core.KeyDepthMin].Float()
		hi, _ := u.profile.Measurements[core.KeyDepthMax].Float()
		assert.Equal(t, 10.0, lo)
		assert.Equal(t, 20.0, hi)
	}
	assert.Equal(t, []string{"TEMP"}, units[0].levels[0].Data.Keys(),
		"the fill-valued PSAL is left out of the first level")
}

func TestProfilesStopEarly(t *testing.T) {
	pp := &profilesProcessor{logger: slog.Default()}
	n := 0
	for range pp.units(flatten(t, cdftest.Grid())) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestPointsApplyRequiredVariables(t *testing.T) {
	pp := &pointsProcessor{required: []string{"PSAL", "TEMP", "DOXY"}}
	units := slices.Collect(pp.units(flatten(t, cdftest.Grid())))
	assert.Len(t, units, 7, "DOXY is absent from the file and not required")
	for _, u := range units {
		assert.Equal(t, 1, u.rows)
		_, ok := u.profile.Measurements[core.KeyDepth].Float()
		assert.True(t, ok)
	}
}
