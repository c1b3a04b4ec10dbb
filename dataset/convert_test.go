package dataset

import (
	"math"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attrMap(t *testing.T, keys []string, values map[string]any) api.AttributeMap {
	t.Helper()
	m, err := util.NewOrderedMap(keys, values)
	require.NoError(t, err)
	return m
}

func TestNewVariableNested(t *testing.T) {
	v, err := newVariable("TEMP", &api.Variable{
		Values:     [][]float32{{1, 2, 3}, {4, 5, 99999}},
		Dimensions: []string{"N_PROF", "N_LEVELS"},
		Attributes: attrMap(t, []string{"_FillValue"}, map[string]any{"_FillValue": float32(99999)}),
	})
	require.NoError(t, err)
	assert.Equal(t, Float, v.Type)
	assert.Equal(t, []int{2, 3}, v.Shape)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, v.Values()[:5])
	assert.True(t, math.IsNaN(v.Values()[5]))
}

func TestNewVariableScalar(t *testing.T) {
	v, err := newVariable("lat", &api.Variable{Values: float64(12.5)})
	require.NoError(t, err)
	assert.Empty(t, v.Shape)
	assert.Equal(t, []float64{12.5}, v.Values())

	v, err = newVariable("lat", &api.Variable{Values: []float64{12.5}})
	require.NoError(t, err)
	assert.Empty(t, v.Shape, "a wrapped scalar has no shape")
}

func TestNewVariableUnsigned(t *testing.T) {
	v, err := newVariable("flags", &api.Variable{Values: []uint16{1, 65535}, Dimensions: []string{"n"}})
	require.NoError(t, err)
	assert.Equal(t, UShort, v.Type)
	assert.Equal(t, []float64{1, 65535}, v.Values())
}

func TestNewVariableText(t *testing.T) {
	v, err := newVariable("PLATFORM_NUMBER", &api.Variable{
		Values:     []string{"5906468 ", "59064\x00\x00\x00"},
		Dimensions: []string{"N_PROF", "STRING8"},
	})
	require.NoError(t, err)
	assert.Equal(t, Char, v.Type)
	assert.Equal(t, []int{2, 8}, v.Shape)
	assert.Equal(t, []string{"5906468", "59064"}, v.Strings())

	v, err = newVariable("DATA_TYPE", &api.Variable{Values: "Argo profile", Dimensions: []string{"STRING16"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Argo profile"}, v.Strings())
}

func TestNewVariableRejects(t *testing.T) {
	_, err := newVariable("ragged", &api.Variable{
		Values:     [][]float64{{1, 2}, {3}},
		Dimensions: []string{"a", "b"},
	})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = newVariable("rank", &api.Variable{Values: []float64{1, 2}, Dimensions: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = newVariable("compound", &api.Variable{Values: []struct{ A int }{{1}}, Dimensions: []string{"a"}})
	assert.ErrorIs(t, err, errUnsupportedType)
}

func TestAttributes(t *testing.T) {
	attrs := attributes(attrMap(t,
		[]string{"units", "valid_range", "scale_factor", "flags"},
		map[string]any{
			"units":        "degree_Celsius\x00",
			"valid_range":  []float32{-2, 40},
			"scale_factor": float64(0.01),
			"flags":        []string{"a", "b"},
		}))

	require.Len(t, attrs, 4)
	assert.Equal(t, "units", attrs[0].Name, "key order is kept")
	units, _ := attrs.Text("units")
	assert.Equal(t, "degree_Celsius", units)
	assert.Equal(t, []float64{-2, 40}, attrs[1].Values)
	scale, ok := attrs.Number("scale_factor")
	require.True(t, ok)
	assert.Equal(t, 0.01, scale)
	flags, _ := attrs.Text("flags")
	assert.Equal(t, "ab", flags)

	assert.Nil(t, attributes(nil))
}
