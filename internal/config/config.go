// Package config loads and validates raw2bvp's input configuration (spec
// section 6, "Config JSON"). JSON is the documented format; YAML is
// accepted as a supplemented convenience, following the config layer
// pattern of the teacher's own CLI.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/grimpy101/bvp-tools/internal/archive"
	"github.com/grimpy101/bvp-tools/internal/block"
	"github.com/grimpy101/bvp-tools/internal/format"
	"github.com/grimpy101/bvp-tools/internal/vector3"
)

// Parameters is the fully validated, defaulted configuration a raw2bvp
// run acts on (spec section 6, "Config JSON").
type Parameters struct {
	InputFile       string
	OutputFile      string
	Dimensions      vector3.U32
	BlockDimensions vector3.U32
	Format          format.Format
	Archive         archive.Kind
	Compression     block.CompressionKind
	Name            string
	Description     string
	SemanticType    string
	VolumeScale     vector3.F32
	VoxelScale      vector3.F32
	HasVoxelScale   bool
	Author          string
	Copyright       string
	AcquisitionTime string
}

type rawFormat struct {
	Family string `json:"family" yaml:"family"`
	Count  uint32 `json:"count" yaml:"count"`
	Type   string `json:"type" yaml:"type"`
	Size   uint32 `json:"size" yaml:"size"`
}

type rawConfig struct {
	InputFile       string      `json:"inputFile" yaml:"inputFile"`
	OutputFile      string      `json:"outputFile" yaml:"outputFile"`
	Dimensions      [3]uint32   `json:"dimensions" yaml:"dimensions"`
	BlockDimensions [3]uint32   `json:"blockDimensions" yaml:"blockDimensions"`
	Format          rawFormat   `json:"format" yaml:"format"`
	Archive         string      `json:"archive" yaml:"archive"`
	Compression     string      `json:"compression" yaml:"compression"`
	Name            string      `json:"name" yaml:"name"`
	Description     string      `json:"description" yaml:"description"`
	SemanticType    string      `json:"semanticType" yaml:"semanticType"`
	VolumeScale     *[3]float32 `json:"volumeScale" yaml:"volumeScale"`
	VoxelScale      *[3]float32 `json:"voxelScale" yaml:"voxelScale"`
	Author          string      `json:"author" yaml:"author"`
	Copyright       string      `json:"copyright" yaml:"copyright"`
	AcquisitionTime string      `json:"acquisitionTime" yaml:"acquisitionTime"`
}

// Load reads and validates a raw2bvp config file, dispatching on file
// extension between JSON (the documented format) and YAML.
func Load(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	var raw rawConfig
	if strings.EqualFold(filepath.Ext(path), ".yaml") || strings.EqualFold(filepath.Ext(path), ".yml") {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "parsing YAML config")
		}
	} else {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "parsing JSON config")
		}
	}

	return build(raw)
}

func build(raw rawConfig) (*Parameters, error) {
	if raw.InputFile == "" {
		return nil, errors.New("config: inputFile is required")
	}
	if raw.OutputFile == "" {
		return nil, errors.New("config: outputFile is required")
	}

	dims := vector3.NewU32(raw.Dimensions[0], raw.Dimensions[1], raw.Dimensions[2])
	blockDims := vector3.NewU32(raw.BlockDimensions[0], raw.BlockDimensions[1], raw.BlockDimensions[2])
	if dims.MultiplyElements() == 0 {
		return nil, errors.New("config: dimensions must be non-zero in every axis")
	}
	if blockDims.MultiplyElements() == 0 {
		return nil, errors.New("config: blockDimensions must be non-zero in every axis")
	}

	primType, err := format.ParsePrimitiveType(raw.Format.Type)
	if err != nil {
		return nil, errors.Wrap(err, "config: format.type")
	}
	f, err := format.NewMono(raw.Format.Count, raw.Format.Size, primType)
	if err != nil {
		return nil, errors.Wrap(err, "config: format")
	}

	archiveKind, err := archive.ParseKind(raw.Archive)
	if err != nil {
		return nil, errors.Wrap(err, "config: archive")
	}

	compression := block.CompressionNone
	switch strings.ToUpper(raw.Compression) {
	case "LZ4S":
		compression = block.CompressionLZ4S
	case "NONE", "":
		compression = block.CompressionNone
	default:
		return nil, errors.Errorf("config: unsupported compression %q", raw.Compression)
	}

	name := raw.Name
	if name == "" {
		base := filepath.Base(raw.InputFile)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	volumeScale := vector3.F32{X: 1, Y: 1, Z: 1}
	if raw.VolumeScale != nil {
		volumeScale = vector3.F32{X: raw.VolumeScale[0], Y: raw.VolumeScale[1], Z: raw.VolumeScale[2]}
	}

	params := &Parameters{
		InputFile:       raw.InputFile,
		OutputFile:      raw.OutputFile,
		Dimensions:      dims,
		BlockDimensions: blockDims,
		Format:          f,
		Archive:         archiveKind,
		Compression:     compression,
		Name:            name,
		Description:     raw.Description,
		SemanticType:    raw.SemanticType,
		VolumeScale:     volumeScale,
		Author:          raw.Author,
		Copyright:       raw.Copyright,
		AcquisitionTime: raw.AcquisitionTime,
	}
	if raw.VoxelScale != nil {
		params.VoxelScale = vector3.F32{X: raw.VoxelScale[0], Y: raw.VoxelScale[1], Z: raw.VoxelScale[2]}
		params.HasVoxelScale = true
	}

	return params, nil
}
