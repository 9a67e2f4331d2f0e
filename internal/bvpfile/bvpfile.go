// Package bvpfile implements the in-memory BVPFile aggregate (spec
// section 3, "BVPFile") and the two directions of manifest assembly: the
// raw→BVP manifest serialization (to_manifest) and the BVP→raw
// reassembly walk (from_manifest plus the placement-tree DFS).
package bvpfile

import (
	"fmt"

	"github.com/grimpy101/bvp-tools/internal/block"
	"github.com/grimpy101/bvp-tools/internal/bvperrors"
	"github.com/grimpy101/bvp-tools/internal/format"
	"github.com/grimpy101/bvp-tools/internal/lz4s"
	"github.com/grimpy101/bvp-tools/internal/manifest"
	"github.com/grimpy101/bvp-tools/internal/vector3"
)

// BVPFile is the aggregate of an entire BVP asset: metadata, the block
// and format arenas, and the modality list. It keeps no separate file-set
// or hash-to-block map: FromManifest copies each referenced file's bytes
// into the Data of the block that names it (data_url).
type BVPFile struct {
	Asset      manifest.Asset
	Modalities []manifest.Modality
	Blocks     *block.Arena
	Formats    []format.Format
}

// New creates an empty BVPFile with a fresh block arena.
func New(asset manifest.Asset) *BVPFile {
	return &BVPFile{Asset: asset, Blocks: block.NewArena()}
}

// AddFormat appends f to the format arena and returns its index, marking
// any extension it triggers on the asset.
func (bv *BVPFile) AddFormat(f format.Format) block.FormatIndex {
	if f.UsesMonoExtension() {
		bv.Asset.UseExtension("EXT_format_mono")
	}
	idx := block.FormatIndex(len(bv.Formats))
	bv.Formats = append(bv.Formats, f)
	return idx
}

// ToManifest serializes the aggregate into manifest JSON bytes (spec
// section 4.G, "to_manifest").
func (bv *BVPFile) ToManifest() ([]byte, error) {
	root := manifest.Root{
		Asset:      bv.Asset,
		Formats:    bv.Formats,
		Modalities: bv.Modalities,
		Blocks:     bv.Blocks.All(),
	}
	return manifest.Marshal(root)
}

// FromManifest parses manifest JSON and attaches raw block payloads found
// in fileData (spec section 4.G, "from_manifest"). fileData is keyed by
// the exact string a block's "data" field names.
func FromManifest(data []byte, fileData map[string][]byte) (*BVPFile, error) {
	root, err := manifest.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	bv := &BVPFile{Asset: root.Asset, Modalities: root.Modalities, Formats: root.Formats, Blocks: block.NewArena()}

	for i, b := range root.Blocks {
		if b.HasDataURL {
			raw, ok := fileData[b.DataURL]
			if !ok {
				return nil, bvperrors.NewBVPFileError(bvperrors.BVPFileBrokenManifest,
					fmt.Sprintf("block %d references missing file %q", i, b.DataURL), nil)
			}
			b.Data = raw
		}
		bv.Blocks.Add(b)
	}

	return bv, nil
}

// decompress applies a block's declared compression to produce its raw,
// format-sized payload. size is the expected decompressed length.
func decompress(kind block.CompressionKind, data []byte, size int) ([]byte, error) {
	switch kind {
	case block.CompressionNone, "":
		return data, nil
	case block.CompressionLZ4S:
		return lz4s.Decompress(data, size), nil
	default:
		return nil, bvperrors.NewCompressionError(string(kind))
	}
}

// findFormat depth-first searches the placement tree rooted at root for
// the first block carrying a format, per spec section 4.G's inherited
// ambiguity rule (first hit wins). It returns both the resolved format
// and the FormatIndex it was found under, so a synthesized root leaf can
// carry the same index its descendants compare against in copy_in.
func findFormat(bv *BVPFile, root block.Index) (*format.Format, block.FormatIndex, error) {
	b := bv.Blocks.Get(root)
	if b.Format != nil {
		f := bv.Formats[int(*b.Format)]
		return &f, *b.Format, nil
	}
	for _, p := range b.Placements {
		if f, fi, err := findFormat(bv, p.Block); err == nil && f != nil {
			return f, fi, nil
		}
	}
	return nil, 0, bvperrors.NewBVPFileError(bvperrors.BVPFileBrokenManifest,
		fmt.Sprintf("no format reachable from block %d", root), nil)
}

// ReassembleRaw performs the BVP→raw recomposition for one modality
// (spec section 4.G "raw reassembly" / section 2 "BVP→raw" data flow):
// it locates the operative format, allocates a root buffer, and walks
// the placement tree scattering every leaf's decompressed bytes in.
func ReassembleRaw(bv *BVPFile, m manifest.Modality) ([]byte, error) {
	f, fi, err := findFormat(bv, m.Block)
	if err != nil {
		return nil, err
	}

	root := bv.Blocks.Get(m.Block)
	rootData := make([]byte, f.CountSpace(root.Dimensions))
	rootLeaf := block.New(root.Index, root.Dimensions, &fi, rootData)

	if err := scatter(bv, rootLeaf, root, vector3.NewU32(0, 0, 0), *f); err != nil {
		return nil, err
	}

	return rootData, nil
}

// scatter recursively applies copy_in for every leaf beneath node,
// translating each placement's position into the root buffer's
// coordinate space as offset accumulates down the tree.
func scatter(bv *BVPFile, rootLeaf *block.Block, node *block.Block, offset vector3.U32, f format.Format) error {
	if node.IsLeaf() {
		if offset == (vector3.U32{}) && node.Dimensions == rootLeaf.Dimensions {
			// The root block itself is a leaf: nothing to scatter.
			copy(rootLeaf.Data, node.Data)
			return nil
		}
		return block.CopyIn(rootLeaf, offset, node, f, decompress)
	}

	for _, p := range node.Placements {
		child := bv.Blocks.Get(p.Block)
		childOffset := offset.Add(p.Position)
		if child.IsLeaf() {
			if err := block.CopyIn(rootLeaf, childOffset, child, f, decompress); err != nil {
				return err
			}
			continue
		}
		if err := scatter(bv, rootLeaf, child, childOffset, f); err != nil {
			return err
		}
	}
	return nil
}
