// Package archive implements the uniform front-end over the three
// container kinds a BVP asset can live in (spec section 4.I): a loose
// directory ("None"), the project's own SAF format, and a standard ZIP.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/grimpy101/bvp-tools/internal/bvperrors"
	"github.com/grimpy101/bvp-tools/internal/saf"
	"github.com/orcaman/writerseeker"
)

// Kind is the closed set of container formats (spec section 4.I).
type Kind string

// Known archive kinds.
const (
	None Kind = "None"
	SAF  Kind = "SAF"
	ZIP  Kind = "ZIP"
)

// ParseKind validates a config/CLI archive-kind token.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case None, SAF, ZIP, "":
		if s == "" {
			return None, nil
		}
		return Kind(s), nil
	default:
		return "", bvperrors.NewArchiveError(bvperrors.ArchiveNotImplemented, s, nil)
	}
}

// File is a named in-memory archive member, mirroring spec section 3's
// File record.
type File struct {
	Name string
	Mime string
	Data []byte
}

// WriteFiles serializes files under kind and returns the resulting
// archive bytes. For None, path is the destination directory and the
// return value is nil (files are written directly).
func WriteFiles(kind Kind, files []File, path string) ([]byte, error) {
	switch kind {
	case None:
		return nil, writeDirectory(files, path)
	case SAF:
		return writeSAF(files)
	case ZIP:
		return writeZIP(files)
	default:
		return nil, bvperrors.NewArchiveError(bvperrors.ArchiveNotImplemented, string(kind), nil)
	}
}

// ReadArchive extracts every member from the archive at path, which may
// be a loose directory (None), or a SAF or ZIP file, dispatched by kind.
func ReadArchive(kind Kind, path string) ([]File, error) {
	switch kind {
	case None:
		return readDirectory(path)
	case SAF:
		return readSAFFile(path)
	case ZIP:
		return readZIPFile(path)
	default:
		return nil, bvperrors.NewArchiveError(bvperrors.ArchiveNotImplemented, string(kind), nil)
	}
}

func writeDirectory(files []File, dir string) error {
	for _, f := range files {
		full := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return bvperrors.NewArchiveError(bvperrors.ArchiveCannotWrite, full, err)
		}
		if err := os.WriteFile(full, f.Data, 0o644); err != nil {
			return bvperrors.NewArchiveError(bvperrors.ArchiveCannotWrite, full, err)
		}
	}
	return nil
}

func readDirectory(dir string) ([]File, error) {
	manifestPath := filepath.Join(dir, "manifest.json")
	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, bvperrors.NewArchiveError(bvperrors.ArchiveDoesNotExist, manifestPath, err)
	}

	files := []File{{Name: "manifest.json", Mime: "application/json", Data: manifestData}}

	blocksDir := filepath.Join(dir, "blocks")
	entries, err := os.ReadDir(blocksDir)
	if err != nil {
		// A manifest with no referenced block files (e.g. an all-internal
		// or empty tree) is valid; a missing blocks/ dir is not an error
		// by itself.
		return files, nil
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(blocksDir, e.Name())
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, bvperrors.NewArchiveError(bvperrors.ArchiveCannotRead, p, err)
		}
		files = append(files, File{Name: "blocks/" + e.Name(), Data: data})
	}
	return files, nil
}

func writeSAF(files []File) ([]byte, error) {
	safFiles := make([]saf.File, len(files))
	for i, f := range files {
		safFiles[i] = saf.File{Name: f.Name, Mime: f.Mime, Data: f.Data}
	}
	data, err := saf.Write(safFiles)
	if err != nil {
		return nil, bvperrors.NewArchiveError(bvperrors.ArchiveSaf, "", err)
	}
	return data, nil
}

func readSAFFile(path string) ([]File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bvperrors.NewArchiveError(bvperrors.ArchiveDoesNotExist, path, err)
	}
	safFiles, err := saf.Read(data)
	if err != nil {
		return nil, bvperrors.NewArchiveError(bvperrors.ArchiveSaf, "", err)
	}
	files := make([]File, len(safFiles))
	for i, f := range safFiles {
		files[i] = File{Name: f.Name, Mime: f.Mime, Data: f.Data}
	}
	return files, nil
}

// writeZIP streams files into an in-memory, seekable buffer (writerseeker
// avoids staging the whole archive a second time just to hand back a
// []byte) and stores every entry uncompressed, per spec section 6
// ("ZIP archive", stored method — LZ4S already did the compression).
func writeZIP(files []File) ([]byte, error) {
	ws := writerseeker.WriterSeeker{}
	zw := zip.NewWriter(&ws)

	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Store})
		if err != nil {
			return nil, bvperrors.NewArchiveError(bvperrors.ArchiveZip, f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, bvperrors.NewArchiveError(bvperrors.ArchiveZip, f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, bvperrors.NewArchiveError(bvperrors.ArchiveZip, "", err)
	}

	reader := ws.BytesReader()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, bvperrors.NewArchiveError(bvperrors.ArchiveZip, "", err)
	}
	return data, nil
}

func readZIPFile(path string) ([]File, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, bvperrors.NewArchiveError(bvperrors.ArchiveDoesNotExist, path, err)
	}
	defer r.Close()

	files := make([]File, 0, len(r.File))
	for _, zf := range r.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, bvperrors.NewArchiveError(bvperrors.ArchiveCannotRead, zf.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, bvperrors.NewArchiveError(bvperrors.ArchiveCannotRead, zf.Name, err)
		}
		files = append(files, File{Name: zf.Name, Data: data})
	}
	return files, nil
}
