package archive

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleFiles() []File {
	return []File{
		{Name: "manifest.json", Mime: "application/json", Data: []byte(`{"asset":{}}`)},
		{Name: "blocks/block_1.raw", Data: []byte{1, 2, 3, 4}},
		{Name: "blocks/block_2.raw", Data: []byte{5, 6, 7}},
	}
}

func byName(files []File) []File {
	sorted := append([]File(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return sorted
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	assert.NoError(t, err)
	assert.Equal(t, None, k)

	k, err = ParseKind("SAF")
	assert.NoError(t, err)
	assert.Equal(t, SAF, k)

	_, err = ParseKind("bogus")
	assert.Error(t, err)
}

func TestNoneRoundTrip(t *testing.T) {
	dir := t.TempDir()
	files := sampleFiles()

	data, err := WriteFiles(None, files, dir)
	assert.NoError(t, err)
	assert.Nil(t, data)

	back, err := ReadArchive(None, dir)
	assert.NoError(t, err)
	assert.ElementsMatch(t, byName(files), byName(back))
}

func TestSAFRoundTrip(t *testing.T) {
	dir := t.TempDir()
	files := sampleFiles()

	data, err := WriteFiles(SAF, files, dir)
	assert.NoError(t, err)

	path := filepath.Join(dir, "out.saf")
	assert.NoError(t, os.WriteFile(path, data, 0o644))

	back, err := ReadArchive(SAF, path)
	assert.NoError(t, err)
	assert.Equal(t, files, back)
}

func TestZIPRoundTrip(t *testing.T) {
	dir := t.TempDir()
	files := sampleFiles()

	data, err := WriteFiles(ZIP, files, dir)
	assert.NoError(t, err)

	path := filepath.Join(dir, "out.zip")
	assert.NoError(t, os.WriteFile(path, data, 0o644))

	back, err := ReadArchive(ZIP, path)
	assert.NoError(t, err)

	gotNames := map[string][]byte{}
	for _, f := range back {
		gotNames[f.Name] = f.Data
	}
	for _, f := range files {
		assert.Equal(t, f.Data, gotNames[f.Name])
	}
}

func TestReadArchiveUnknownKind(t *testing.T) {
	_, err := ReadArchive(Kind("bogus"), "/dev/null")
	assert.Error(t, err)
}
