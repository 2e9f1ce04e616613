package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadExtent(t *testing.T) {
	_, err := New[float64](2, 0)
	assert.ErrorIs(t, err, ErrShape)
}

func TestAtSetAndBounds(t *testing.T) {
	d := MustNew[float64](2, 3)
	require.NoError(t, d.Set(4.5, 1, 2))

	v, err := d.At(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)

	_, err = d.At(2, 0)
	assert.ErrorIs(t, err, ErrShape)
	_, err = d.At(0)
	assert.ErrorIs(t, err, ErrShape)
}

func TestByteSizeAndNames(t *testing.T) {
	r := MustNew[float64](5, 5)
	c := MustNew[complex128](5, 5)

	assert.Equal(t, int64(200), r.ByteSize())
	assert.Equal(t, int64(400), c.ByteSize())
	assert.Equal(t, "tensor of real", r.TypeName())
	assert.Equal(t, "tensor of complex", (*Dense[complex128])(nil).TypeName())
	bytes, err := Footprint[complex128](5, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(400), bytes)
}

func TestOversizedShapeFails(t *testing.T) {
	for _, shape := range [][]int{
		{1 << 32, 1 << 32},
		{3037000500, 3037000500},
		{1 << 20, 1 << 20, 1 << 20},
		{1 << 46},
	} {
		_, err := New[float64](shape...)
		assert.ErrorIs(t, err, ErrShape, "%v", shape)
		_, err = Footprint[complex128](shape...)
		assert.ErrorIs(t, err, ErrShape, "%v", shape)
		_, err = NewDry[float64](shape...)
		assert.ErrorIs(t, err, ErrShape, "%v", shape)
	}

	bytes, err := Footprint[float64](1<<22, 1<<23)
	require.NoError(t, err)
	assert.Equal(t, MaxBytes, bytes)
}

func TestReleasedTensorRefusesUse(t *testing.T) {
	d := MustNew[float64](2)
	require.NoError(t, d.Release())

	assert.True(t, d.Released())
	_, err := d.Read()
	assert.ErrorIs(t, err, ErrReleased)
	_, err = d.FrobeniusNorm()
	assert.ErrorIs(t, err, ErrReleased)
}

func TestFrobeniusNorm(t *testing.T) {
	d := MustNew[float64](2, 2)
	require.NoError(t, d.Write([]float64{1, 2, 2, 4}))
	n, err := d.FrobeniusNorm()
	require.NoError(t, err)
	assert.InDelta(t, 5.0, n, 1e-12)

	c := MustNew[complex128](2)
	require.NoError(t, c.Write([]complex128{3 + 4i, 0}))
	n, err = c.FrobeniusNorm()
	require.NoError(t, err)
	assert.InDelta(t, 5.0, n, 1e-12)
}

func TestFillIsDeterministic(t *testing.T) {
	a := MustNew[float64](3, 3)
	b := MustNew[float64](3, 3)
	require.NoError(t, a.Fill(NewRand(7)))
	require.NoError(t, b.Fill(NewRand(7)))

	da, _ := a.Read()
	db, _ := b.Read()
	assert.Equal(t, da, db)
	n, _ := a.FrobeniusNorm()
	assert.False(t, math.IsNaN(n))
	assert.Greater(t, n, 0.0)
}

func TestWriteLengthMismatch(t *testing.T) {
	d := MustNew[float64](2)
	assert.ErrorIs(t, d.Write([]float64{1, 2, 3}), ErrShape)
}
