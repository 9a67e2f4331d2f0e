package saf

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadRoundTrip(t *testing.T) {
	files := []File{
		{Name: "a/x.raw", Mime: "application/octet-stream", Data: []byte{1, 2, 3}},
		{Name: "a/y.raw", Mime: "application/octet-stream", Data: []byte{9, 9, 9, 9, 9}},
	}

	data, err := Write(files)
	assert.NoError(t, err)

	back, err := Read(data)
	assert.NoError(t, err)
	assert.Equal(t, files, back)
}

func TestWriteLayout(t *testing.T) {
	files := []File{
		{Name: "a/x.raw", Data: []byte{1, 2, 3}},
		{Name: "a/y.raw", Data: []byte{9, 9, 9, 9, 9}},
	}

	data, err := Write(files)
	assert.NoError(t, err)

	assert.Equal(t, identifier[:], data[:len(identifier)])

	manifestLen := binary.LittleEndian.Uint32(data[len(identifier) : len(identifier)+4])

	type entry struct {
		Path string `json:"path"`
		Mime string `json:"mime,omitempty"`
		Size uint64 `json:"size"`
	}
	manifestStart := len(identifier) + 4
	manifestBytes := data[manifestStart : manifestStart+int(manifestLen)]

	var manifest []entry
	assert.NoError(t, json.Unmarshal(manifestBytes, &manifest))
	assert.Equal(t, int(manifestLen), len(manifestBytes))

	payload := data[manifestStart+int(manifestLen):]
	assert.Equal(t, []byte{1, 2, 3, 9, 9, 9, 9, 9}, payload)
}

func TestReadRejectsBadIdentifier(t *testing.T) {
	data := make([]byte, 20)
	_, err := Read(data)
	assert.Error(t, err)
}

func TestCheckIdentifier(t *testing.T) {
	assert.NoError(t, CheckIdentifier(identifier[:]))
	bad := append([]byte{}, identifier[:]...)
	bad[0] = 0x00
	assert.Error(t, CheckIdentifier(bad))
}
