package bvpfile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grimpy101/bvp-tools/internal/block"
	"github.com/grimpy101/bvp-tools/internal/format"
	"github.com/grimpy101/bvp-tools/internal/manifest"
	"github.com/grimpy101/bvp-tools/internal/vector3"
)

func buildSplitVolume(t *testing.T) (*BVPFile, []byte) {
	t.Helper()
	f, err := format.NewMono(1, 1, format.Uint)
	assert.NoError(t, err)

	raw := make([]byte, 8) // 2x2x2 volume, one byte per voxel
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	original := block.New(0, vector3.NewU32(2, 2, 2), nil, raw)

	bv := New(manifest.NewAsset())
	fi := bv.AddFormat(f)

	leftHalf, err := block.CopyOut(original, vector3.NewU32(0, 0, 0), vector3.NewU32(1, 2, 2), f)
	assert.NoError(t, err)
	rightHalf, err := block.CopyOut(original, vector3.NewU32(1, 0, 0), vector3.NewU32(2, 2, 2), f)
	assert.NoError(t, err)
	leftHalf.Format = &fi
	rightHalf.Format = &fi

	leftIdx := bv.Blocks.Add(leftHalf)
	rightIdx := bv.Blocks.Add(rightHalf)

	root := block.New(0, vector3.NewU32(2, 2, 2), nil, nil)
	root.Placements = []block.Placement{
		{Position: vector3.NewU32(0, 0, 0), Block: leftIdx},
		{Position: vector3.NewU32(1, 0, 0), Block: rightIdx},
	}
	rootIdx := bv.Blocks.Add(root)

	bv.Modalities = []manifest.Modality{
		{Name: "density", VolumeSize: vector3.F32{X: 1, Y: 1, Z: 1}, Block: rootIdx},
	}

	return bv, raw
}

func TestToManifestFromManifestRoundTrip(t *testing.T) {
	bv, raw := buildSplitVolume(t)

	// The manifest names leaf payloads by file rather than embedding them,
	// so the leaves get data URLs and their bytes travel in the file-set.
	fileData := map[string][]byte{}
	for i, b := range bv.Blocks.All() {
		if b.Data == nil {
			continue
		}
		b.DataURL = fmt.Sprintf("blocks/block_%d.raw", i)
		b.HasDataURL = true
		fileData[b.DataURL] = b.Data
	}

	data, err := bv.ToManifest()
	assert.NoError(t, err)

	back, err := FromManifest(data, fileData)
	assert.NoError(t, err)
	assert.Equal(t, bv.Asset, back.Asset)
	assert.Equal(t, bv.Formats, back.Formats)
	assert.Equal(t, bv.Blocks.Len(), back.Blocks.Len())

	reassembled, err := ReassembleRaw(back, back.Modalities[0])
	assert.NoError(t, err)
	assert.Equal(t, raw, reassembled)
}

func TestReassembleRawDirectly(t *testing.T) {
	bv, raw := buildSplitVolume(t)

	reassembled, err := ReassembleRaw(bv, bv.Modalities[0])
	assert.NoError(t, err)
	assert.Equal(t, raw, reassembled)
}

func TestAddFormatMarksMonoExtension(t *testing.T) {
	f, err := format.NewMono(1, 3, format.Uint)
	assert.NoError(t, err)

	bv := New(manifest.NewAsset())
	bv.AddFormat(f)

	assert.Contains(t, bv.Asset.ExtensionsUsed, "EXT_format_mono")
}

func TestFromManifestMissingFileData(t *testing.T) {
	f, err := format.NewMono(1, 1, format.Uint)
	assert.NoError(t, err)

	bv := New(manifest.NewAsset())
	fi := bv.AddFormat(f)
	leaf := block.New(0, vector3.NewU32(1, 1, 1), &fi, nil)
	leaf.DataURL = "blocks/missing.bin"
	leaf.HasDataURL = true
	bv.Blocks.Add(leaf)

	data, err := bv.ToManifest()
	assert.NoError(t, err)

	_, err = FromManifest(data, map[string][]byte{})
	assert.Error(t, err)
}
