// Package manifest implements the BVP manifest JSON schema (spec section
// 4.F/6): the wire representation of Asset, Format, Modality, Block and
// Placement, and the (de)serialization glue between that representation
// and the internal/block and internal/format in-memory types.
package manifest

import (
	"encoding/json"

	"github.com/grimpy101/bvp-tools/internal/block"
	"github.com/grimpy101/bvp-tools/internal/bvperrors"
	"github.com/grimpy101/bvp-tools/internal/format"
	"github.com/grimpy101/bvp-tools/internal/vector3"
)

// Asset carries the manifest's top-level metadata (spec section 3,
// "Asset").
type Asset struct {
	Version             string   `json:"version"`
	Name                string   `json:"name,omitempty"`
	Generator           string   `json:"generator,omitempty"`
	Author              string   `json:"author,omitempty"`
	Description         string   `json:"description,omitempty"`
	Copyright           string   `json:"copyright,omitempty"`
	AcquisitionTime     string   `json:"acquisitionTime,omitempty"`
	CreationTime        string   `json:"creationTime,omitempty"`
	ExtensionsUsed      []string `json:"extensionsUsed,omitempty"`
	ExtensionsRequired  []string `json:"extensionsRequired,omitempty"`
}

// CurrentVersion is the only asset.version value this implementation
// produces.
const CurrentVersion = "1.0"

// NewAsset builds an Asset with the required version field set.
func NewAsset() Asset {
	return Asset{Version: CurrentVersion}
}

// UseExtension records name in both ExtensionsUsed and
// ExtensionsRequired, deduplicating against what is already present
// (spec section 4.G, "Extensions appearing on any format propagate").
func (a *Asset) UseExtension(name string) {
	if !containsString(a.ExtensionsUsed, name) {
		a.ExtensionsUsed = append(a.ExtensionsUsed, name)
	}
	if !containsString(a.ExtensionsRequired, name) {
		a.ExtensionsRequired = append(a.ExtensionsRequired, name)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// AssetFromJSON decodes a manifest "asset" object.
func AssetFromJSON(raw map[string]interface{}) (Asset, error) {
	var a Asset
	b, err := json.Marshal(raw)
	if err != nil {
		return Asset{}, bvperrors.NewAssetError(err)
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return Asset{}, bvperrors.NewAssetError(err)
	}
	if a.Version == "" {
		return Asset{}, bvperrors.NewAssetError(bvperrors.NewJSONError(bvperrors.JSONNotAString, raw["version"]))
	}
	return a, nil
}

// Modality is a named view over a block tree (spec section 3,
// "Modality").
type Modality struct {
	Name         string
	Description  string
	SemanticType string
	VolumeSize   vector3.F32
	VoxelSize    vector3.F32
	HasVoxelSize bool
	Block        block.Index
}

type modalityJSON struct {
	Name         string     `json:"name,omitempty"`
	Description  string     `json:"description,omitempty"`
	SemanticType string     `json:"semanticType,omitempty"`
	VolumeSize   [3]float64 `json:"volumeSize"`
	VoxelSize    *[3]float64 `json:"voxelSize,omitempty"`
	Block        uint64     `json:"block"`
}

// ToJSON renders a Modality into its manifest representation.
func (m Modality) ToJSON() map[string]interface{} {
	out := map[string]interface{}{
		"volumeSize": m.VolumeSize.ToJSON(),
		"block":      uint64(m.Block),
	}
	if m.Name != "" {
		out["name"] = m.Name
	}
	if m.Description != "" {
		out["description"] = m.Description
	}
	if m.SemanticType != "" {
		out["semanticType"] = m.SemanticType
	}
	if m.HasVoxelSize {
		out["voxelSize"] = m.VoxelSize.ToJSON()
	}
	return out
}

// ModalityFromJSON decodes one "modalities[]" entry.
func ModalityFromJSON(index uint64, raw map[string]interface{}) (Modality, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return Modality{}, bvperrors.NewModalityError(index, err)
	}
	var mj modalityJSON
	if err := json.Unmarshal(b, &mj); err != nil {
		return Modality{}, bvperrors.NewModalityError(index, err)
	}
	volumeSize, err := vector3.FromSliceF32(mj.VolumeSize[:])
	if err != nil {
		return Modality{}, bvperrors.NewModalityError(index, err)
	}

	m := Modality{
		Name:         mj.Name,
		Description:  mj.Description,
		SemanticType: mj.SemanticType,
		VolumeSize:   volumeSize,
		Block:        block.Index(mj.Block),
	}
	if mj.VoxelSize != nil {
		voxelSize, err := vector3.FromSliceF32(mj.VoxelSize[:])
		if err != nil {
			return Modality{}, bvperrors.NewModalityError(index, err)
		}
		m.VoxelSize = voxelSize
		m.HasVoxelSize = true
	}
	return m, nil
}

type placementJSON struct {
	Position [3]float64 `json:"position"`
	Block    uint64     `json:"block"`
}

type blockJSON struct {
	Dimensions [3]float64              `json:"dimensions"`
	Placements []placementJSON         `json:"placements,omitempty"`
	Format     *uint64                 `json:"format,omitempty"`
	Data       string                  `json:"data,omitempty"`
	Encoding   string                  `json:"encoding,omitempty"`
}

// BlockToJSON renders a block into its manifest representation.
func BlockToJSON(b *block.Block) (map[string]interface{}, error) {
	out := map[string]interface{}{
		"dimensions": b.Dimensions.ToJSON(),
	}
	if len(b.Placements) > 0 {
		placements := make([]map[string]interface{}, len(b.Placements))
		for i, p := range b.Placements {
			placements[i] = map[string]interface{}{
				"position": p.Position.ToJSON(),
				"block":    uint64(p.Block),
			}
		}
		out["placements"] = placements
	}
	if b.Format != nil {
		out["format"] = uint64(*b.Format)
	}
	if b.HasDataURL {
		out["data"] = b.DataURL
	}
	if b.HasEncoding {
		out["encoding"] = string(b.Encoding)
	}
	return out, nil
}

// BlockFromJSON decodes one "blocks[]" entry. index is the block's own
// arena position, used for error context.
func BlockFromJSON(index uint64, raw map[string]interface{}) (*block.Block, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, bvperrors.NewBlockError(bvperrors.BlockInvalidJSON, index).WithCause(err)
	}
	var bj blockJSON
	if err := json.Unmarshal(b, &bj); err != nil {
		return nil, bvperrors.NewBlockError(bvperrors.BlockInvalidJSON, index).WithCause(err)
	}

	dims, err := vector3.FromSlice(bj.Dimensions[:])
	if err != nil {
		return nil, bvperrors.NewBlockError(bvperrors.BlockInvalidJSON, index).WithCause(err)
	}

	result := block.New(block.Index(index), dims, nil, nil)

	if bj.Format != nil {
		fi := block.FormatIndex(*bj.Format)
		result.Format = &fi
	}
	if bj.Data != "" {
		result.DataURL = bj.Data
		result.HasDataURL = true
	}
	if bj.Encoding != "" {
		result.Encoding = block.CompressionKind(bj.Encoding)
		result.HasEncoding = true
	}

	for _, pj := range bj.Placements {
		pos, err := vector3.FromSlice(pj.Position[:])
		if err != nil {
			return nil, bvperrors.NewBlockError(bvperrors.BlockInvalidPlacement, index).WithCause(
				bvperrors.NewPlacementError(index, err))
		}
		result.Placements = append(result.Placements, block.Placement{
			Position: pos,
			Block:    block.Index(pj.Block),
		})
	}

	return result, nil
}

// Root is the full manifest document (spec section 4.F): asset metadata
// plus the three positionally-indexed arenas.
type Root struct {
	Asset      Asset
	Formats    []format.Format
	Modalities []Modality
	Blocks     []*block.Block
}

type rootJSON struct {
	Asset      map[string]interface{}   `json:"asset"`
	Formats    []map[string]interface{} `json:"formats"`
	Modalities []map[string]interface{} `json:"modalities"`
	Blocks     []map[string]interface{} `json:"blocks"`
}

// rootOut mirrors Root field-for-field but as a struct rather than a
// map, so encoding/json emits keys in declaration order (asset, formats,
// modalities, blocks) instead of a map's alphabetical order.
type rootOut struct {
	Asset      Asset                    `json:"asset"`
	Formats    []map[string]interface{} `json:"formats"`
	Modalities []map[string]interface{} `json:"modalities"`
	Blocks     []map[string]interface{} `json:"blocks"`
}

// Marshal serializes r with the stable field order spec section 4.G
// mandates: asset first, then formats, modalities, blocks.
func Marshal(r Root) ([]byte, error) {
	formats := make([]map[string]interface{}, len(r.Formats))
	for i, f := range r.Formats {
		fj, err := f.ToJSON()
		if err != nil {
			return nil, bvperrors.NewBVPFileError(bvperrors.BVPFileFormat, "", err)
		}
		formats[i] = fj
	}

	modalities := make([]map[string]interface{}, len(r.Modalities))
	for i, m := range r.Modalities {
		modalities[i] = m.ToJSON()
	}

	blocks := make([]map[string]interface{}, len(r.Blocks))
	for i, b := range r.Blocks {
		bj, err := BlockToJSON(b)
		if err != nil {
			return nil, bvperrors.NewBVPFileError(bvperrors.BVPFileBlock, "", err)
		}
		blocks[i] = bj
	}

	out := rootOut{
		Asset:      r.Asset,
		Formats:    formats,
		Modalities: modalities,
		Blocks:     blocks,
	}
	return json.Marshal(out)
}

// Unmarshal parses raw manifest JSON into a Root. Unknown object keys are
// ignored, per spec section 4.F.
func Unmarshal(data []byte) (Root, error) {
	var rj rootJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return Root{}, bvperrors.NewBVPFileError(bvperrors.BVPFileInvalidJSON, "", err)
	}

	asset, err := AssetFromJSON(rj.Asset)
	if err != nil {
		return Root{}, bvperrors.NewBVPFileError(bvperrors.BVPFileAsset, "", err)
	}

	formats := make([]format.Format, len(rj.Formats))
	for i, raw := range rj.Formats {
		f, err := format.FromJSON(raw)
		if err != nil {
			return Root{}, bvperrors.NewBVPFileError(bvperrors.BVPFileFormat, "", err)
		}
		formats[i] = f
	}

	modalities := make([]Modality, len(rj.Modalities))
	for i, raw := range rj.Modalities {
		m, err := ModalityFromJSON(uint64(i), raw)
		if err != nil {
			return Root{}, bvperrors.NewBVPFileError(bvperrors.BVPFileModality, "", err)
		}
		modalities[i] = m
	}

	blocks := make([]*block.Block, len(rj.Blocks))
	for i, raw := range rj.Blocks {
		b, err := BlockFromJSON(uint64(i), raw)
		if err != nil {
			return Root{}, bvperrors.NewBVPFileError(bvperrors.BVPFileBlock, "", err)
		}
		blocks[i] = b
	}

	return Root{Asset: asset, Formats: formats, Modalities: modalities, Blocks: blocks}, nil
}
