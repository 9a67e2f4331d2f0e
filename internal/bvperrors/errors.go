// Package bvperrors implements the typed error taxonomy used across the
// BVP toolchain. Each exported type is a closed sum of error kinds
// (spec section 7); all types implement error and Unwrap so that
// errors.Is/errors.As and github.com/pkg/errors continue to work across
// the chain.
package bvperrors

import (
	"fmt"

	"github.com/grimpy101/bvp-tools/internal/vector3"
	"github.com/pkg/errors"
)

// JSONKind enumerates the structural manifest error kinds.
type JSONKind string

// JSON error kinds.
const (
	JSONNotANumber   JSONKind = "not_a_number"
	JSONNotAnArray   JSONKind = "not_an_array"
	JSONNotAString   JSONKind = "not_a_string"
	JSONNotAVector3  JSONKind = "not_a_vector3"
	JSONNotAnObject  JSONKind = "not_an_object"
)

// JSONError reports a structural mismatch while decoding a manifest value.
type JSONError struct {
	Kind  JSONKind
	Value interface{}
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("JSON value %#v is %s", e.Value, describeJSONKind(e.Kind))
}

func describeJSONKind(k JSONKind) string {
	switch k {
	case JSONNotANumber:
		return "not a number"
	case JSONNotAnArray:
		return "not an array"
	case JSONNotAString:
		return "not a string"
	case JSONNotAVector3:
		return "not a 3D vector"
	case JSONNotAnObject:
		return "not an object"
	default:
		return "invalid"
	}
}

// NewJSONError constructs a JSONError of the given kind.
func NewJSONError(kind JSONKind, value interface{}) *JSONError {
	return &JSONError{Kind: kind, Value: value}
}

// FormatKind enumerates format descriptor error kinds.
type FormatKind string

// Format error kinds.
const (
	FormatMonoInvalidComponentType FormatKind = "mono_invalid_component_type"
	FormatUnsupportedFamily        FormatKind = "unsupported_format_family"
	FormatInvalidJSON              FormatKind = "invalid_json"
)

// FormatError reports a problem constructing or validating a Format.
type FormatError struct {
	Kind    FormatKind
	Detail  string
	Cause   error
}

func (e *FormatError) Error() string {
	switch e.Kind {
	case FormatMonoInvalidComponentType:
		return fmt.Sprintf("invalid mono format component type (%s)", e.Detail)
	case FormatUnsupportedFamily:
		return fmt.Sprintf("unsupported format family: %s", e.Detail)
	case FormatInvalidJSON:
		return fmt.Sprintf("invalid JSON for format: %v", e.Cause)
	default:
		return "format error"
	}
}

// Unwrap exposes the wrapped cause, if any.
func (e *FormatError) Unwrap() error { return e.Cause }

// NewFormatError constructs a FormatError.
func NewFormatError(kind FormatKind, detail string, cause error) *FormatError {
	return &FormatError{Kind: kind, Detail: detail, Cause: cause}
}

// BlockKind enumerates block-engine error kinds.
type BlockKind string

// Block error kinds.
const (
	BlockNoData              BlockKind = "no_data"
	BlockFormatMismatch      BlockKind = "format_mismatch"
	BlockStartGreaterThanEnd BlockKind = "start_greater_than_end"
	BlockStartOutOfBounds    BlockKind = "start_out_of_bounds"
	BlockEndOutOfBounds      BlockKind = "end_out_of_bounds"
	BlockInvalidPosition     BlockKind = "invalid_position"
	BlockInvalidSize         BlockKind = "invalid_size"
	BlockInvalidCompression  BlockKind = "invalid_compression"
	BlockInvalidJSON         BlockKind = "invalid_json"
	BlockInvalidPlacement    BlockKind = "invalid_placement"
)

// BlockError reports a failure in a block-engine operation, always
// carrying the offending block's arena index as spec section 7 requires.
type BlockError struct {
	Kind       BlockKind
	BlockIndex uint64
	OtherIndex uint64
	Start, End vector3.U32
	Cause      error
}

func (e *BlockError) Error() string {
	switch e.Kind {
	case BlockNoData:
		return fmt.Sprintf("block %d does not have data", e.BlockIndex)
	case BlockFormatMismatch:
		return fmt.Sprintf("formats of block %d and block %d do not match", e.BlockIndex, e.OtherIndex)
	case BlockStartGreaterThanEnd:
		return fmt.Sprintf("block %d: start (%s) is greater than end (%s)", e.BlockIndex, e.Start, e.End)
	case BlockStartOutOfBounds:
		return fmt.Sprintf("block %d: start (%s) is out of bounds", e.BlockIndex, e.Start)
	case BlockEndOutOfBounds:
		return fmt.Sprintf("block %d: end (%s) is out of bounds", e.BlockIndex, e.End)
	case BlockInvalidPosition:
		return fmt.Sprintf("block %d is not on microblock boundary (%s not divisible by %s)", e.BlockIndex, e.Start, e.End)
	case BlockInvalidSize:
		return fmt.Sprintf("block %d cannot contain whole microblocks (%s not divisible by %s)", e.BlockIndex, e.Start, e.End)
	case BlockInvalidCompression:
		return fmt.Sprintf("invalid compression scheme in block %d: %v", e.BlockIndex, e.Cause)
	case BlockInvalidJSON:
		return fmt.Sprintf("invalid JSON at block %d: %v", e.BlockIndex, e.Cause)
	case BlockInvalidPlacement:
		return fmt.Sprintf("invalid placement at block %d: %v", e.BlockIndex, e.Cause)
	default:
		return fmt.Sprintf("block %d: error", e.BlockIndex)
	}
}

// Unwrap exposes the wrapped cause, if any.
func (e *BlockError) Unwrap() error { return e.Cause }

// NewBlockError constructs a BlockError.
func NewBlockError(kind BlockKind, blockIndex uint64) *BlockError {
	return &BlockError{Kind: kind, BlockIndex: blockIndex}
}

// WithOther sets the second block index (FormatMismatch).
func (e *BlockError) WithOther(i uint64) *BlockError { e.OtherIndex = i; return e }

// WithRange sets start/end for positional errors.
func (e *BlockError) WithRange(start, end vector3.U32) *BlockError {
	e.Start, e.End = start, end
	return e
}

// WithCause attaches a wrapped cause.
func (e *BlockError) WithCause(cause error) *BlockError { e.Cause = cause; return e }

// PlacementError reports a failure decoding a Placement.
type PlacementError struct {
	BlockIndex uint64
	Cause      error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("invalid JSON at placement (block %d): %v", e.BlockIndex, e.Cause)
}

// Unwrap exposes the wrapped cause.
func (e *PlacementError) Unwrap() error { return e.Cause }

// NewPlacementError constructs a PlacementError.
func NewPlacementError(blockIndex uint64, cause error) *PlacementError {
	return &PlacementError{BlockIndex: blockIndex, Cause: cause}
}

// ModalityError reports a failure decoding a Modality.
type ModalityError struct {
	Index uint64
	Cause error
}

func (e *ModalityError) Error() string {
	return fmt.Sprintf("invalid JSON at modality %d: %v", e.Index, e.Cause)
}

// Unwrap exposes the wrapped cause.
func (e *ModalityError) Unwrap() error { return e.Cause }

// NewModalityError constructs a ModalityError.
func NewModalityError(index uint64, cause error) *ModalityError {
	return &ModalityError{Index: index, Cause: cause}
}

// AssetError reports a failure decoding Asset metadata.
type AssetError struct {
	Cause error
}

func (e *AssetError) Error() string { return fmt.Sprintf("invalid JSON at asset: %v", e.Cause) }

// Unwrap exposes the wrapped cause.
func (e *AssetError) Unwrap() error { return e.Cause }

// NewAssetError constructs an AssetError.
func NewAssetError(cause error) *AssetError { return &AssetError{Cause: cause} }

// CompressionError reports an unsupported or malformed compression token.
type CompressionError struct {
	Name string
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("unsupported compression (%s)", e.Name)
}

// NewCompressionError constructs a CompressionError.
func NewCompressionError(name string) *CompressionError { return &CompressionError{Name: name} }

// SafKind enumerates SAF container error kinds.
type SafKind string

// SAF error kinds.
const (
	SafNotValidIdentifier SafKind = "not_valid_identifier"
	SafBrokenFile         SafKind = "broken_file"
	SafManifestCorrupt    SafKind = "manifest_corrupt"
	SafInvalidJSON        SafKind = "invalid_json"
)

// SafError reports a failure reading or writing a SAF archive.
type SafError struct {
	Kind   SafKind
	Detail string
	Cause  error
}

func (e *SafError) Error() string {
	switch e.Kind {
	case SafNotValidIdentifier:
		return "SAF identifier is not valid"
	case SafBrokenFile:
		return "not a valid SAF file"
	case SafManifestCorrupt:
		return fmt.Sprintf("SAF manifest is corrupt: %s", e.Detail)
	case SafInvalidJSON:
		return fmt.Sprintf("invalid JSON: %v", e.Cause)
	default:
		return "SAF error"
	}
}

// Unwrap exposes the wrapped cause, if any.
func (e *SafError) Unwrap() error { return e.Cause }

// NewSafError constructs a SafError.
func NewSafError(kind SafKind, detail string, cause error) *SafError {
	return &SafError{Kind: kind, Detail: detail, Cause: cause}
}

// ArchiveKind enumerates archive dispatcher error kinds.
type ArchiveKind string

// Archive error kinds.
const (
	ArchiveSaf           ArchiveKind = "saf"
	ArchiveZip           ArchiveKind = "zip"
	ArchiveNotImplemented ArchiveKind = "not_implemented"
	ArchiveDoesNotExist  ArchiveKind = "does_not_exist"
	ArchiveCannotRead    ArchiveKind = "cannot_read"
	ArchiveNotValidFile  ArchiveKind = "not_valid_file"
	ArchiveCannotWrite   ArchiveKind = "cannot_write"
)

// ArchiveError reports a failure in the archive dispatcher.
type ArchiveError struct {
	Kind   ArchiveKind
	Detail string
	Cause  error
}

func (e *ArchiveError) Error() string {
	switch e.Kind {
	case ArchiveSaf:
		return fmt.Sprintf("SAF error: %v", e.Cause)
	case ArchiveZip:
		return fmt.Sprintf("ZIP error: %v", e.Cause)
	case ArchiveNotImplemented:
		return fmt.Sprintf("the provided archive format is not supported (%s)", e.Detail)
	case ArchiveDoesNotExist:
		return fmt.Sprintf("archive file or folder does not exist (%s)", e.Detail)
	case ArchiveCannotRead:
		return fmt.Sprintf("cannot read file: %s", e.Detail)
	case ArchiveNotValidFile:
		return fmt.Sprintf("not a valid file: %s", e.Detail)
	case ArchiveCannotWrite:
		return fmt.Sprintf("cannot write file: %s", e.Detail)
	default:
		return "archive error"
	}
}

// Unwrap exposes the wrapped cause, if any.
func (e *ArchiveError) Unwrap() error { return e.Cause }

// NewArchiveError constructs an ArchiveError.
func NewArchiveError(kind ArchiveKind, detail string, cause error) *ArchiveError {
	return &ArchiveError{Kind: kind, Detail: detail, Cause: cause}
}

// BVPFileKind enumerates top-level manifest assembly error kinds.
type BVPFileKind string

// BVPFile error kinds.
const (
	BVPFileAsset          BVPFileKind = "asset_error"
	BVPFileBlock          BVPFileKind = "block_error"
	BVPFileModality       BVPFileKind = "modality_error"
	BVPFileFormat         BVPFileKind = "format_error"
	BVPFileBrokenManifest BVPFileKind = "broken_manifest"
	BVPFileInvalidJSON    BVPFileKind = "invalid_json"
)

// BVPFileError reports a failure assembling or parsing a BVPFile manifest.
type BVPFileError struct {
	Kind   BVPFileKind
	Detail string
	Cause  error
}

func (e *BVPFileError) Error() string {
	switch e.Kind {
	case BVPFileAsset:
		return fmt.Sprintf("error in asset: %v", e.Cause)
	case BVPFileBlock:
		return fmt.Sprintf("block error: %v", e.Cause)
	case BVPFileModality:
		return fmt.Sprintf("modality error: %v", e.Cause)
	case BVPFileFormat:
		return fmt.Sprintf("format error: %v", e.Cause)
	case BVPFileBrokenManifest:
		return fmt.Sprintf("invalid manifest: %s", e.Detail)
	case BVPFileInvalidJSON:
		return fmt.Sprintf("invalid JSON in BVP manifest: %v", e.Cause)
	default:
		return "bvp file error"
	}
}

// Unwrap exposes the wrapped cause, if any.
func (e *BVPFileError) Unwrap() error { return e.Cause }

// NewBVPFileError constructs a BVPFileError.
func NewBVPFileError(kind BVPFileKind, detail string, cause error) *BVPFileError {
	return &BVPFileError{Kind: kind, Detail: detail, Cause: cause}
}

// Wrap attaches additional call-site context to err using
// github.com/pkg/errors, preserving the chain for errors.Is/As and
// recording a stack trace that the %+v verb prints.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, context)
}
