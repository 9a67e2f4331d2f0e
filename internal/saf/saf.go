// Package saf implements the Simple Archive Format container (spec
// section 4.E): a 12-byte magic, a length-prefixed JSON manifest, and the
// concatenated payload bytes of every listed file, in manifest order.
package saf

import (
	"encoding/binary"
	"encoding/json"

	"github.com/grimpy101/bvp-tools/internal/bvperrors"
)

const identifierLength = 12

var identifier = [identifierLength]byte{0xab, 0x53, 0x41, 0x46, 0x20, 0x31, 0x30, 0xbb, 0x0d, 0x0a, 0x1a, 0x0a}

// File is a single named payload inside a SAF archive.
type File struct {
	Name string
	Mime string
	Data []byte
}

type manifestEntry struct {
	Path string `json:"path"`
	Mime string `json:"mime,omitempty"`
	Size uint32 `json:"size"`
}

// CheckIdentifier verifies that data begins with the SAF magic.
func CheckIdentifier(data []byte) error {
	if len(data) < identifierLength {
		return bvperrors.NewSafError(bvperrors.SafBrokenFile, "", nil)
	}
	for i := 0; i < identifierLength; i++ {
		if data[i] != identifier[i] {
			return bvperrors.NewSafError(bvperrors.SafNotValidIdentifier, "", nil)
		}
	}
	return nil
}

// Write assembles files into a SAF archive.
func Write(files []File) ([]byte, error) {
	entries := make([]manifestEntry, len(files))
	for i, f := range files {
		entries[i] = manifestEntry{Path: f.Name, Mime: f.Mime, Size: uint32(len(f.Data))}
	}

	manifestBytes, err := json.Marshal(entries)
	if err != nil {
		return nil, bvperrors.NewSafError(bvperrors.SafManifestCorrupt, err.Error(), err)
	}

	totalPayload := 0
	for _, f := range files {
		totalPayload += len(f.Data)
	}

	out := make([]byte, 0, identifierLength+4+len(manifestBytes)+totalPayload)
	out = append(out, identifier[:]...)

	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(len(manifestBytes)))
	out = append(out, sizeBuf[:]...)

	out = append(out, manifestBytes...)
	for _, f := range files {
		out = append(out, f.Data...)
	}

	return out, nil
}

// Read extracts the files packed into a SAF archive, in manifest order.
func Read(data []byte) ([]File, error) {
	if err := CheckIdentifier(data); err != nil {
		return nil, err
	}

	offset := identifierLength
	if len(data) < offset+4 {
		return nil, bvperrors.NewSafError(bvperrors.SafBrokenFile, "", nil)
	}
	manifestSize := int(binary.LittleEndian.Uint32(data[offset : offset+4]))
	offset += 4

	if len(data) < offset+manifestSize {
		return nil, bvperrors.NewSafError(bvperrors.SafBrokenFile, "", nil)
	}
	var entries []manifestEntry
	if err := json.Unmarshal(data[offset:offset+manifestSize], &entries); err != nil {
		return nil, bvperrors.NewSafError(bvperrors.SafManifestCorrupt, err.Error(), err)
	}
	offset += manifestSize

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if len(data) < offset+int(e.Size) {
			return nil, bvperrors.NewSafError(bvperrors.SafBrokenFile, "", nil)
		}
		payload := data[offset : offset+int(e.Size)]
		files = append(files, File{Name: e.Path, Mime: e.Mime, Data: payload})
		offset += int(e.Size)
	}

	return files, nil
}
