package dataset_test

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/dataset"
	"github.com/poiesic/floatchat/dataset/cdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenGrid(t *testing.T) {
	ds := open(t, cdftest.Grid())

	table, err := dataset.Flatten("grid.nc", ds)
	require.NoError(t, err)
	assert.Equal(t, "TEST_FLOAT_123", table.FloatID)
	assert.Equal(t, []string{"PSAL", "TEMP"}, table.Variables)
	assert.Empty(t, table.Skipped)
	assert.Equal(t, 8, table.Len)
	rows := slices.Collect(table.Rows())
	require.Len(t, rows, 8)

	first := rows[0]
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), first.Time)
	assert.Equal(t, 10.0, first.Depth)
	assert.Equal(t, 45.0, first.Latitude)
	assert.Equal(t, -120.0, first.Longitude)
	assert.True(t, first.Values["PSAL"].IsNull())
	assert.True(t, first.HasCoordinates())

	// Depth varies fastest, so each position's levels are adjacent.
	assert.Equal(t, 20.0, rows[1].Depth)
	assert.Equal(t, -120.0, rows[1].Longitude)
	assert.Equal(t, -121.0, rows[2].Longitude)
	assert.Equal(t, 46.0, rows[4].Latitude)
	last := rows[7]
	assert.Equal(t, 20.0, last.Depth)
	assert.Equal(t, 46.0, last.Latitude)
	assert.Equal(t, -121.0, last.Longitude)
	temp, ok := last.Values["TEMP"].Float()
	require.True(t, ok)
	assert.InDelta(t, 17.5, temp, 1e-5)

	nonNull := 0
	for _, r := range rows {
		if !r.Values["PSAL"].IsNull() && !r.Values["TEMP"].IsNull() {
			nonNull++
		}
	}
	assert.Equal(t, 7, nonNull)
}

func TestFlattenArgoProfiles(t *testing.T) {
	ds := open(t, cdftest.Argo("5906468"))

	table, err := dataset.Flatten("argo.nc", ds)
	require.NoError(t, err)
	assert.Equal(t, "5906468", table.FloatID)
	assert.Equal(t, []string{"TEMP", "PSAL"}, table.Variables)
	assert.Equal(t, []string{"HISTORY_START_PRES"}, table.Skipped)
	rows := slices.Collect(table.Rows())
	require.Len(t, rows, 6)

	r := rows[4]
	assert.Equal(t, time.Date(2025, 1, 11, 12, 0, 0, 0, time.UTC), r.Time)
	assert.Equal(t, -10.5, r.Latitude)
	assert.Equal(t, 75.5, r.Longitude)
	assert.InDelta(t, 50, r.Depth, 1e-6)
	assert.True(t, r.Values["PSAL"].IsNull())

	assert.True(t, math.IsNaN(rows[5].Depth))
	assert.False(t, rows[5].HasCoordinates())
}

func TestFlattenMissingCoordinates(t *testing.T) {
	f := cdftest.New().
		Dim("time", 1).
		Dim("latitude", 1).
		Var("time", dataset.Double, []string{"time"}, []float64{0}, cdftest.A("units", "days since 2000-01-01")).
		Var("latitude", dataset.Double, []string{"latitude"}, []float64{1}).
		Var("TEMP", dataset.Float, []string{"time", "latitude"}, []float64{3})
	ds := open(t, f)

	_, err := dataset.Flatten("nodepth.nc", ds)
	var structural *core.StructuralFileError
	require.True(t, errors.As(err, &structural))
	assert.Equal(t, "nodepth.nc", structural.File)
	assert.Equal(t, []string{"longitude", "depth"}, structural.Missing)
}

func TestFlattenBadTimeUnits(t *testing.T) {
	f := cdftest.New().
		Dim("n", 1).
		Var("time", dataset.Double, []string{"n"}, []float64{0}).
		Var("lat", dataset.Double, []string{"n"}, []float64{0}).
		Var("lon", dataset.Double, []string{"n"}, []float64{0}).
		Var("depth", dataset.Double, []string{"n"}, []float64{0})
	ds := open(t, f)

	_, err := dataset.Flatten("x.nc", ds)
	assert.True(t, errors.Is(err, dataset.ErrTimeUnits))
}

func TestFlattenScalarCoordinates(t *testing.T) {
	f := cdftest.New().
		Dim("depth", 2).
		Var("time", dataset.Double, nil, []float64{60}, cdftest.A("units", "seconds since 2024-06-01T00:00:00Z")).
		Var("lat", dataset.Double, nil, []float64{12.5}).
		Var("lon", dataset.Double, nil, []float64{-30}).
		Var("depth", dataset.Double, []string{"depth"}, []float64{1, 2}).
		Var("DOXY", dataset.Float, []string{"depth"}, []float64{200, 210})
	ds := open(t, f)

	table, err := dataset.Flatten("single.nc", ds)
	require.NoError(t, err)
	rows := slices.Collect(table.Rows())
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, time.Date(2024, 6, 1, 0, 1, 0, 0, time.UTC), r.Time)
		assert.Equal(t, 12.5, r.Latitude)
	}
	v, _ := rows[1].Values["DOXY"].Float()
	assert.Equal(t, 210.0, v)
}

func TestFlattenRowsAreLazy(t *testing.T) {
	table, err := dataset.Flatten("grid.nc", open(t, cdftest.Grid()))
	require.NoError(t, err)

	seen := 0
	for range table.Rows() {
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)

	// Each call starts over.
	assert.Len(t, slices.Collect(table.Rows()), table.Len)
	assert.Len(t, slices.Collect(table.Rows()), table.Len)
}

func TestFlattenEmptyDataset(t *testing.T) {
	table, err := dataset.Flatten("empty.nc", &dataset.Dataset{})
	var structural *core.StructuralFileError
	require.True(t, errors.As(err, &structural))
	assert.Equal(t, []string{"time", "latitude", "longitude", "depth"}, structural.Missing)
	assert.Nil(t, table)
}
