package vector3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearIndexXMajor(t *testing.T) {
	dim := NewU32(4, 4, 4)
	assert.Equal(t, uint64(0), LinearIndex(NewU32(0, 0, 0), dim))
	assert.Equal(t, uint64(1), LinearIndex(NewU32(1, 0, 0), dim))
	assert.Equal(t, uint64(4), LinearIndex(NewU32(0, 1, 0), dim))
	assert.Equal(t, uint64(16), LinearIndex(NewU32(0, 0, 1), dim))
	assert.Equal(t, uint64(21), LinearIndex(NewU32(1, 1, 1), dim))
}

func TestAnyDivZeroDivisor(t *testing.T) {
	a := NewU32(4, 4, 4)
	assert.True(t, a.AnyDiv(NewU32(0, 2, 2)))
}

func TestAnyDiv(t *testing.T) {
	assert.False(t, NewU32(4, 6, 8).AnyDiv(NewU32(2, 2, 2)))
	assert.True(t, NewU32(4, 5, 8).AnyDiv(NewU32(2, 2, 2)))
}

func TestCeil(t *testing.T) {
	dims := NewU32(8, 8, 8)
	blockDims := NewU32(3, 3, 3)
	got := dims.Div(blockDims).Ceil()
	assert.Equal(t, NewU32(3, 3, 3), got)
}

func TestMultiplyElements(t *testing.T) {
	assert.Equal(t, uint32(24), NewU32(2, 3, 4).MultiplyElements())
}
