package manifest

import (
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"

	"github.com/grimpy101/bvp-tools/internal/block"
	"github.com/grimpy101/bvp-tools/internal/format"
	"github.com/grimpy101/bvp-tools/internal/vector3"
)

func TestUseExtensionDedups(t *testing.T) {
	a := NewAsset()
	a.UseExtension("EXT_format_mono")
	a.UseExtension("EXT_format_mono")
	assert.Equal(t, []string{"EXT_format_mono"}, a.ExtensionsUsed)
	assert.Equal(t, []string{"EXT_format_mono"}, a.ExtensionsRequired)
}

func TestAssetFromJSONRequiresVersion(t *testing.T) {
	_, err := AssetFromJSON(map[string]interface{}{"name": "test"})
	assert.Error(t, err)
}

func TestModalityRoundTrip(t *testing.T) {
	m := Modality{
		Name:         "density",
		VolumeSize:   vector3.F32{X: 1, Y: 2, Z: 3},
		HasVoxelSize: true,
		VoxelSize:    vector3.F32{X: 0.5, Y: 0.5, Z: 0.5},
		Block:        block.Index(3),
	}
	raw := m.ToJSON()

	back, err := ModalityFromJSON(0, raw)
	assert.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestModalityWithoutVoxelSize(t *testing.T) {
	m := Modality{VolumeSize: vector3.F32{X: 1, Y: 1, Z: 1}, Block: block.Index(0)}
	raw := m.ToJSON()
	_, hasVoxel := raw["voxelSize"]
	assert.False(t, hasVoxel)

	back, err := ModalityFromJSON(0, raw)
	assert.NoError(t, err)
	assert.False(t, back.HasVoxelSize)
}

func TestBlockRoundTrip(t *testing.T) {
	fi := block.FormatIndex(0)
	b := block.New(block.Index(1), vector3.NewU32(2, 2, 2), nil, nil)
	b.Format = &fi
	b.Placements = []block.Placement{
		{Position: vector3.NewU32(0, 0, 0), Block: block.Index(2)},
		{Position: vector3.NewU32(1, 0, 0), Block: block.Index(3)},
	}

	raw, err := BlockToJSON(b)
	assert.NoError(t, err)

	back, err := BlockFromJSON(1, raw)
	assert.NoError(t, err)
	assert.Equal(t, b.Dimensions, back.Dimensions)
	assert.Equal(t, b.Placements, back.Placements)
	assert.Equal(t, *b.Format, *back.Format)
}

func TestRootMarshalUnmarshalRoundTrip(t *testing.T) {
	f, err := format.NewMono(1, 1, format.Uint)
	assert.NoError(t, err)

	leaf := block.New(block.Index(1), vector3.NewU32(2, 2, 2), nil, nil)
	fi := block.FormatIndex(0)
	leaf.Format = &fi
	leaf.DataURL = "blocks/abc.bin"
	leaf.HasDataURL = true

	root := block.New(block.Index(0), vector3.NewU32(4, 4, 4), nil, nil)
	root.Placements = []block.Placement{
		{Position: vector3.NewU32(0, 0, 0), Block: block.Index(1)},
	}

	asset := NewAsset()
	asset.Name = "test-volume"

	r := Root{
		Asset:      asset,
		Formats:    []format.Format{f},
		Modalities: []Modality{{Name: "density", VolumeSize: vector3.F32{X: 1, Y: 1, Z: 1}, Block: block.Index(0)}},
		Blocks:     []*block.Block{root, leaf},
	}

	data, err := Marshal(r)
	assert.NoError(t, err)

	back, err := Unmarshal(data)
	assert.NoError(t, err)

	if !assert.ObjectsAreEqual(r.Asset, back.Asset) {
		t.Fatalf("asset mismatch:\nwant: %s\ngot:  %s", spew.Sdump(r.Asset), spew.Sdump(back.Asset))
	}
	assert.Equal(t, r.Asset, back.Asset)
	assert.Equal(t, r.Formats, back.Formats)
	assert.Len(t, back.Blocks, 2)
	if !assert.ObjectsAreEqual(root.Placements, back.Blocks[0].Placements) {
		t.Fatalf("root placements mismatch:\nwant: %s\ngot:  %s", spew.Sdump(root.Placements), spew.Sdump(back.Blocks[0].Placements))
	}
	assert.Equal(t, root.Placements, back.Blocks[0].Placements)
	assert.Equal(t, leaf.DataURL, back.Blocks[1].DataURL)
}

func TestMarshalTopLevelKeyOrder(t *testing.T) {
	r := Root{Asset: NewAsset()}

	data, err := Marshal(r)
	assert.NoError(t, err)

	order := []string{"asset", "formats", "modalities", "blocks"}
	lastIdx := -1
	for _, key := range order {
		idx := strings.Index(string(data), `"`+key+`"`)
		assert.Greater(t, idx, lastIdx, "key %q out of order in %s", key, data)
		lastIdx = idx
	}
}
