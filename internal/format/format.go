// Package format implements the immutable block-format descriptor
// (spec section 4.B): primitive kind, component count, element size, and
// the derived microblock geometry every block-engine operation aligns to.
package format

import (
	"encoding/json"
	"fmt"

	"github.com/grimpy101/bvp-tools/internal/bvperrors"
	"github.com/grimpy101/bvp-tools/internal/vector3"
)

// PrimitiveType is the scalar kind of a Mono format's components.
type PrimitiveType string

// Primitive type tokens, as they appear on the wire.
const (
	Int   PrimitiveType = "i"
	Uint  PrimitiveType = "u"
	Float PrimitiveType = "f"
)

// ParsePrimitiveType validates a wire token.
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch PrimitiveType(s) {
	case Int, Uint, Float:
		return PrimitiveType(s), nil
	default:
		return "", bvperrors.NewFormatError(bvperrors.FormatMonoInvalidComponentType, s, nil)
	}
}

// naturalWidths lists the component byte widths that do not trigger the
// EXT_format_mono extension flag (spec section 4.B).
var naturalWidths = map[PrimitiveType]map[uint32]bool{
	Int:   {1: true, 2: true, 4: true},
	Uint:  {1: true, 2: true, 4: true},
	Float: {4: true, 8: true},
}

// Family identifies which closed variant a Format belongs to. Mono is
// the only family this version of the format understands; the tag exists
// so a future family can be added without breaking the wire schema.
type Family string

// Known format families.
const (
	FamilyMono Family = "mono"
)

// Mono describes a format whose voxels are a flat run of `Count`
// components of `PrimitiveType`, each `Size` bytes wide.
type Mono struct {
	Count uint32
	Type  PrimitiveType
	Size  uint32
}

// Format is the immutable block-format descriptor (spec section 4.B).
// Constructed only through NewMono or FromJSON so that MicroblockDimensions
// and MicroblockSize are always consistent with the family.
type Format struct {
	MicroblockDimensions vector3.U32
	MicroblockSize       uint32
	Family               Family
	Mono                 Mono
}

// NewMono builds a Mono-family Format, deriving the (1,1,1) microblock
// dimensions and microblock_size = count*size mandated by spec 4.B.
func NewMono(count, size uint32, primType PrimitiveType) (Format, error) {
	if count == 0 {
		return Format{}, bvperrors.NewFormatError(bvperrors.FormatMonoInvalidComponentType, "count must be >= 1", nil)
	}
	if size == 0 {
		return Format{}, bvperrors.NewFormatError(bvperrors.FormatMonoInvalidComponentType, "size must be >= 1", nil)
	}
	return Format{
		MicroblockDimensions: vector3.NewU32(1, 1, 1),
		MicroblockSize:       count * size,
		Family:               FamilyMono,
		Mono:                 Mono{Count: count, Type: primType, Size: size},
	}, nil
}

// UsesMonoExtension reports whether this Mono format's component size
// falls outside the natural primitive widths, marking EXT_format_mono as
// used (spec section 4.B, supplemented per original_source's
// lib/extensions.rs).
func (f Format) UsesMonoExtension() bool {
	if f.Family != FamilyMono || f.Mono.Count == 0 {
		return false
	}
	componentSize := f.Mono.Size / f.Mono.Count
	widths, ok := naturalWidths[f.Mono.Type]
	if !ok {
		return true
	}
	return !widths[componentSize]
}

// CountMicroblocks returns the byte size of the given number of
// microblocks under this format.
func (f Format) CountMicroblocks(amount uint32) uint32 {
	return f.MicroblockSize * amount
}

// CountSpace returns the byte size of a block with the given dimensions
// under this format (spec section 4.B "Derived").
func (f Format) CountSpace(dimensions vector3.U32) uint32 {
	perAxis := dimensions.Div(f.MicroblockDimensions).ToU32()
	return f.CountMicroblocks(perAxis.MultiplyElements())
}

// Validate checks the structural invariants spec 4.B requires of every
// Format: microblock dimensions components all >= 1 and a positive
// microblock size.
func (f Format) Validate() error {
	md := f.MicroblockDimensions
	if md.X < 1 || md.Y < 1 || md.Z < 1 {
		return bvperrors.NewFormatError(bvperrors.FormatMonoInvalidComponentType,
			fmt.Sprintf("microblock dimensions must be >= 1 in every axis, got %s", md), nil)
	}
	if f.MicroblockSize == 0 {
		return bvperrors.NewFormatError(bvperrors.FormatMonoInvalidComponentType, "microblock size must be > 0", nil)
	}
	return nil
}

// jsonFormat mirrors the manifest "formats[]" element schema (spec
// section 6). Only the "mono" family is currently recognized.
type jsonFormat struct {
	Family string `json:"family"`
	Count  uint32 `json:"count"`
	Type   string `json:"type"`
	Size   uint32 `json:"size"`
}

// ToJSON renders the Format into its manifest representation.
func (f Format) ToJSON() (map[string]interface{}, error) {
	switch f.Family {
	case FamilyMono:
		return map[string]interface{}{
			"family": string(FamilyMono),
			"count":  f.Mono.Count,
			"type":   string(f.Mono.Type),
			"size":   f.Mono.Size,
		}, nil
	default:
		return nil, bvperrors.NewFormatError(bvperrors.FormatUnsupportedFamily, string(f.Family), nil)
	}
}

// FromJSON decodes a manifest "formats[]" element.
func FromJSON(raw map[string]interface{}) (Format, error) {
	familyRaw, ok := raw["family"]
	if !ok {
		return Format{}, bvperrors.NewFormatError(bvperrors.FormatInvalidJSON, "",
			bvperrors.NewJSONError(bvperrors.JSONNotAnObject, raw))
	}
	familyStr, ok := familyRaw.(string)
	if !ok {
		return Format{}, bvperrors.NewFormatError(bvperrors.FormatInvalidJSON, "",
			bvperrors.NewJSONError(bvperrors.JSONNotAString, familyRaw))
	}

	switch Family(familyStr) {
	case FamilyMono:
		return monoFromJSON(raw)
	default:
		return Format{}, bvperrors.NewFormatError(bvperrors.FormatUnsupportedFamily, familyStr, nil)
	}
}

func monoFromJSON(raw map[string]interface{}) (Format, error) {
	count, err := jsonUint32(raw, "count")
	if err != nil {
		return Format{}, bvperrors.NewFormatError(bvperrors.FormatInvalidJSON, "", err)
	}
	size, err := jsonUint32(raw, "size")
	if err != nil {
		return Format{}, bvperrors.NewFormatError(bvperrors.FormatInvalidJSON, "", err)
	}
	typeRaw, ok := raw["type"].(string)
	if !ok {
		return Format{}, bvperrors.NewFormatError(bvperrors.FormatInvalidJSON, "",
			bvperrors.NewJSONError(bvperrors.JSONNotAString, raw["type"]))
	}
	primType, err := ParsePrimitiveType(typeRaw)
	if err != nil {
		return Format{}, err
	}
	return NewMono(count, size, primType)
}

func jsonUint32(raw map[string]interface{}, key string) (uint32, error) {
	v, ok := raw[key]
	if !ok {
		return 0, bvperrors.NewJSONError(bvperrors.JSONNotANumber, nil)
	}
	n, ok := v.(float64)
	if !ok {
		return 0, bvperrors.NewJSONError(bvperrors.JSONNotANumber, v)
	}
	return uint32(n), nil
}

// MarshalJSON implements json.Marshaler for convenience when a Format is
// embedded directly in a structure serialized by encoding/json.
func (f Format) MarshalJSON() ([]byte, error) {
	m, err := f.ToJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
