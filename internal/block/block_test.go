package block

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grimpy101/bvp-tools/internal/format"
	"github.com/grimpy101/bvp-tools/internal/vector3"
)

func sequentialBytes(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestCopyOutMicroblockCopyLaw(t *testing.T) {
	f, err := format.NewMono(1, 1, format.Uint)
	assert.NoError(t, err)

	dims := vector3.NewU32(4, 4, 4)
	root := New(0, dims, nil, sequentialBytes(64))

	sub, err := CopyOut(root, vector3.NewU32(2, 2, 2), vector3.NewU32(4, 4, 4), f)
	assert.NoError(t, err)
	assert.Equal(t, vector3.NewU32(2, 2, 2), sub.Dimensions)
	assert.Len(t, sub.Data, 8)

	for z := uint32(0); z < 2; z++ {
		for y := uint32(0); y < 2; y++ {
			for x := uint32(0); x < 2; x++ {
				p := vector3.NewU32(x, y, z)
				rootPos := p.Add(vector3.NewU32(2, 2, 2))
				rootIdx := vector3.LinearIndex(rootPos, dims)
				subIdx := vector3.LinearIndex(p, vector3.NewU32(2, 2, 2))
				assert.Equal(t, root.Data[rootIdx], sub.Data[subIdx])
			}
		}
	}
}

func TestCopyOutRangeRefusal(t *testing.T) {
	f, err := format.NewMono(1, 2, format.Uint)
	assert.NoError(t, err)
	// microblock_size = count*size = 2, but microblock dims are always
	// (1,1,1) for Mono, so every start and extent is aligned and
	// InvalidPosition/InvalidSize cannot trigger; this exercises the other
	// two range refusals, start>end and end out of bounds.
	root := New(0, vector3.NewU32(4, 4, 4), nil, sequentialBytes(64*2))

	_, err = CopyOut(root, vector3.NewU32(1, 1, 1), vector3.NewU32(0, 0, 0), f)
	assert.Error(t, err)

	_, err = CopyOut(root, vector3.NewU32(0, 0, 0), vector3.NewU32(5, 4, 4), f)
	assert.Error(t, err)
}

func TestCopyOutNoData(t *testing.T) {
	f, err := format.NewMono(1, 1, format.Uint)
	assert.NoError(t, err)
	root := New(0, vector3.NewU32(4, 4, 4), nil, nil)

	_, err = CopyOut(root, vector3.NewU32(0, 0, 0), vector3.NewU32(2, 2, 2), f)
	assert.Error(t, err)
}

func TestScatterGatherLaw(t *testing.T) {
	f, err := format.NewMono(1, 1, format.Uint)
	assert.NoError(t, err)

	dims := vector3.NewU32(4, 4, 4)
	original := New(0, dims, nil, sequentialBytes(64))

	sub, err := CopyOut(original, vector3.NewU32(0, 0, 0), dims, f)
	assert.NoError(t, err)

	fresh := New(0, dims, nil, make([]byte, 64))
	noop := func(CompressionKind, []byte, int) ([]byte, error) { return nil, nil }
	err = CopyIn(fresh, vector3.NewU32(0, 0, 0), sub, f, noop)
	assert.NoError(t, err)
	assert.Equal(t, original.Data, fresh.Data)
}

func TestStructuralEq(t *testing.T) {
	b := New(0, vector3.NewU32(2, 2, 2), nil, []byte{1, 2, 3, 4})
	assert.True(t, b.StructuralEq([]byte{1, 2, 3, 4}))
	assert.False(t, b.StructuralEq([]byte{1, 2, 3, 5}))
}

func TestArenaAssignsSequentialIndices(t *testing.T) {
	a := NewArena()
	b0 := New(0, vector3.NewU32(1, 1, 1), nil, []byte{0})
	b1 := New(0, vector3.NewU32(1, 1, 1), nil, []byte{1})

	idx0 := a.Add(b0)
	idx1 := a.Add(b1)

	assert.Equal(t, Index(0), idx0)
	assert.Equal(t, Index(1), idx1)
	assert.Same(t, b0, a.Get(idx0))
}
