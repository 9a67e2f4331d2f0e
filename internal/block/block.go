// Package block implements the dense 3D byte-buffer engine (spec section
// 4.C): the Block type, its arena of placements, and the copy_in/copy_out
// operations that are the computational core of the whole system.
package block

import (
	"bytes"

	"github.com/grimpy101/bvp-tools/internal/bvperrors"
	"github.com/grimpy101/bvp-tools/internal/format"
	"github.com/grimpy101/bvp-tools/internal/vector3"
)

// CompressionKind is the on-wire compression token for a leaf block's
// stored bytes (spec section 6, "Compression tokens").
type CompressionKind string

// Known compression kinds.
const (
	CompressionNone CompressionKind = "raw"
	CompressionLZ4S CompressionKind = "lz4s"
)

// Index is an arena index. Blocks never reference each other by pointer;
// every cross-reference is an index into a BVPFile's block arena (spec
// section 9, "Arena + indices, not pointers").
type Index uint64

// FormatIndex indexes into a BVPFile's format arena.
type FormatIndex uint64

// Placement is a (position, child block) pair inside a parent block
// (spec section 3, "Placement").
type Placement struct {
	Position vector3.U32
	Block    Index
}

// Block is either a leaf (Data or DataURL set) or internal (Placements
// non-empty). See spec section 3.
type Block struct {
	Index       Index
	Dimensions  vector3.U32
	Placements  []Placement
	Format      *FormatIndex
	Data        []byte
	DataURL     string
	HasDataURL  bool
	Encoding    CompressionKind
	HasEncoding bool
}

// New constructs a Block. format may be nil to leave it undetermined
// (spec section 3, "format may be absent on an internal block").
func New(index Index, dimensions vector3.U32, format *FormatIndex, data []byte) *Block {
	return &Block{
		Index:      index,
		Dimensions: dimensions,
		Format:     format,
		Data:       data,
	}
}

// IsLeaf reports whether the block owns data directly (in memory or via a
// file-set reference) rather than decomposing into placements.
func (b *Block) IsLeaf() bool {
	return b.Data != nil || b.HasDataURL
}

// StructuralEq compares a block's (raw, already-decompressed) data
// against a given byte slice, used by the dedup path after a hash
// collision is suspected (spec section 4.C, "structural_eq").
func (b *Block) StructuralEq(other []byte) bool {
	if b.Data == nil {
		return false
	}
	return bytes.Equal(b.Data, other)
}

func sameFormat(a, b *FormatIndex) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CopyOut extracts the sub-rectangle [start, end) of src under format,
// returning a fresh leaf block holding a microblock-aligned
// gather of src's bytes (spec section 4.C, "copy_out").
func CopyOut(src *Block, start, end vector3.U32, f format.Format) (*Block, error) {
	if src.Data == nil {
		return nil, bvperrors.NewBlockError(bvperrors.BlockNoData, uint64(src.Index))
	}
	if end.AnyLT(start) {
		return nil, bvperrors.NewBlockError(bvperrors.BlockStartGreaterThanEnd, uint64(src.Index)).WithRange(start, end)
	}
	if end.AnyGT(src.Dimensions) {
		return nil, bvperrors.NewBlockError(bvperrors.BlockEndOutOfBounds, uint64(src.Index)).WithRange(start, end)
	}

	extent := end.Sub(start)
	md := f.MicroblockDimensions

	if start.AnyDiv(md) {
		return nil, bvperrors.NewBlockError(bvperrors.BlockInvalidPosition, uint64(src.Index)).WithRange(start, md)
	}
	if extent.AnyDiv(md) {
		return nil, bvperrors.NewBlockError(bvperrors.BlockInvalidSize, uint64(src.Index)).WithRange(extent, md)
	}

	ms := f.MicroblockSize
	microStart := start.Div(md).ToU32()
	microInRange := extent.Div(md).ToU32()
	microInBlock := src.Dimensions.Div(md).ToU32()

	destLen := f.CountSpace(extent)
	dest := make([]byte, destLen)

	for x := uint32(0); x < microInRange.X; x++ {
		for y := uint32(0); y < microInRange.Y; y++ {
			for z := uint32(0); z < microInRange.Z; z++ {
				local := vector3.NewU32(x, y, z)
				global := local.Add(microStart)
				srcMicro := vector3.LinearIndex(global, microInBlock)
				destMicro := vector3.LinearIndex(local, microInRange)

				srcOff := srcMicro * uint64(ms)
				destOff := destMicro * uint64(ms)
				copy(dest[destOff:destOff+uint64(ms)], src.Data[srcOff:srcOff+uint64(ms)])
			}
		}
	}

	result := New(0, extent, src.Format, dest)
	return result, nil
}

// CopyIn scatters srcBlock's bytes (decompressing per srcBlock.Encoding
// first, via decompress) into dest at offset, leaving bytes outside the
// target rectangle untouched (spec section 4.C, "copy_in").
func CopyIn(dest *Block, offset vector3.U32, srcBlock *Block, f format.Format, decompress func(CompressionKind, []byte, int) ([]byte, error)) error {
	if dest.Data == nil {
		return bvperrors.NewBlockError(bvperrors.BlockNoData, uint64(dest.Index))
	}
	if srcBlock.Data == nil {
		return bvperrors.NewBlockError(bvperrors.BlockNoData, uint64(srcBlock.Index))
	}
	if !sameFormat(dest.Format, srcBlock.Format) {
		return bvperrors.NewBlockError(bvperrors.BlockFormatMismatch, uint64(dest.Index)).WithOther(uint64(srcBlock.Index))
	}

	start := offset
	end := offset.Add(srcBlock.Dimensions)
	if end.AnyGT(dest.Dimensions) {
		return bvperrors.NewBlockError(bvperrors.BlockEndOutOfBounds, uint64(dest.Index)).WithRange(start, end)
	}

	md := f.MicroblockDimensions
	extent := end.Sub(start)

	if start.AnyDiv(md) {
		return bvperrors.NewBlockError(bvperrors.BlockInvalidPosition, uint64(dest.Index)).WithRange(start, md)
	}
	if extent.AnyDiv(md) {
		return bvperrors.NewBlockError(bvperrors.BlockInvalidSize, uint64(dest.Index)).WithRange(extent, md)
	}

	ms := f.MicroblockSize
	microStart := start.Div(md).ToU32()
	microInRange := extent.Div(md).ToU32()
	microInDest := dest.Dimensions.Div(md).ToU32()

	srcBytes := srcBlock.Data
	if srcBlock.HasEncoding && srcBlock.Encoding != CompressionNone {
		originalLen := int(f.CountSpace(srcBlock.Dimensions))
		decoded, err := decompress(srcBlock.Encoding, srcBlock.Data, originalLen)
		if err != nil {
			return bvperrors.NewBlockError(bvperrors.BlockInvalidCompression, uint64(srcBlock.Index)).WithCause(err)
		}
		srcBytes = decoded
	}

	for x := uint32(0); x < microInRange.X; x++ {
		for y := uint32(0); y < microInRange.Y; y++ {
			for z := uint32(0); z < microInRange.Z; z++ {
				local := vector3.NewU32(x, y, z)
				global := local.Add(microStart)
				srcMicro := vector3.LinearIndex(local, microInRange)
				destMicro := vector3.LinearIndex(global, microInDest)

				srcOff := srcMicro * uint64(ms)
				destOff := destMicro * uint64(ms)
				copy(dest.Data[destOff:destOff+uint64(ms)], srcBytes[srcOff:srcOff+uint64(ms)])
			}
		}
	}

	return nil
}

// Arena is an append-only, index-addressed collection of blocks. All
// cross-block references go through Index rather than pointers, so the
// whole tree stays acyclic and trivially serializable (spec section 3,
// "Ownership").
type Arena struct {
	blocks []*Block
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Add appends a block, assigning it the next arena index, and returns
// that index.
func (a *Arena) Add(b *Block) Index {
	idx := Index(len(a.blocks))
	b.Index = idx
	a.blocks = append(a.blocks, b)
	return idx
}

// Get returns the block at idx.
func (a *Arena) Get(idx Index) *Block {
	return a.blocks[int(idx)]
}

// Len returns the number of blocks in the arena.
func (a *Arena) Len() int {
	return len(a.blocks)
}

// All returns the underlying block slice, in arena order. Callers must
// not retain it past further mutation of the arena.
func (a *Arena) All() []*Block {
	return a.blocks
}
