package storage

import (
	"errors"
	"testing"

	"github.com/poiesic/floatchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDRoundTrip(t *testing.T) {
	for _, id := range []core.ID{0, 1, 127, 128, 1 << 40} {
		got, err := UnmarshalID(MarshalID(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestVectorCodec(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		vec := []float32{0.25, -1.5, 3.0e-7, 42}
		data := MarshalVector(vec)
		assert.Len(t, data, VectorSize(vec))

		got, n, err := UnmarshalVector(data)
		require.NoError(t, err)
		assert.Equal(t, len(data), n)
		assert.Equal(t, vec, got)
	})

	t.Run("empty vector", func(t *testing.T) {
		got, _, err := UnmarshalVector(MarshalVector(nil))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("truncated data", func(t *testing.T) {
		data := MarshalVector([]float32{1, 2, 3})
		_, _, err := UnmarshalVector(data[:len(data)-2])
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTruncatedData))
	})

	t.Run("consecutive vectors", func(t *testing.T) {
		a, b := []float32{1, 2}, []float32{3}
		buf := make([]byte, VectorSize(a)+VectorSize(b))
		n := MarshalVectorTo(a, buf)
		MarshalVectorTo(b, buf[n:])

		gotA, m, err := UnmarshalVector(buf)
		require.NoError(t, err)
		gotB, _, err := UnmarshalVector(buf[m:])
		require.NoError(t, err)
		assert.Equal(t, a, gotA)
		assert.Equal(t, b, gotB)
	})
}
