package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grimpy101/bvp-tools/internal/block"
	"github.com/grimpy101/bvp-tools/internal/format"
	"github.com/grimpy101/bvp-tools/internal/vector3"
)

func mustFormat(t *testing.T) format.Format {
	t.Helper()
	f, err := format.NewMono(1, 1, format.Uint)
	assert.NoError(t, err)
	return f
}

func sequentialBytes(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

// S1: distinct content everywhere dedups to nothing.
func TestConvertSequentialDistinctContent(t *testing.T) {
	f := mustFormat(t)
	dims := vector3.NewU32(4, 4, 4)
	blockDims := vector3.NewU32(2, 2, 2)
	root := block.New(0, dims, nil, sequentialBytes(64))

	result, err := ConvertSequential(root, f, dims, blockDims, block.CompressionNone, nil)
	assert.NoError(t, err)

	assert.Len(t, result.Blocks, 8)
	assert.Len(t, result.RootPlacements, 8)
	assert.Len(t, result.Files, 8)
}

// S2: uniform content across every packet dedups to a single block.
func TestConvertSequentialAllZeroDedups(t *testing.T) {
	f := mustFormat(t)
	dims := vector3.NewU32(4, 4, 4)
	blockDims := vector3.NewU32(2, 2, 2)
	root := block.New(0, dims, nil, make([]byte, 64))

	result, err := ConvertSequential(root, f, dims, blockDims, block.CompressionNone, nil)
	assert.NoError(t, err)

	assert.Len(t, result.Blocks, 1)
	assert.Len(t, result.Files, 1)
	assert.Len(t, result.RootPlacements, 8)
	for _, p := range result.RootPlacements {
		assert.Equal(t, block.Index(1), p.Block)
	}
}

// S6: the parallel pipeline reaches the same aggregate invariants as the
// sequential one for uniform content, regardless of worker interleaving.
func TestConvertParallelAllZeroDedups(t *testing.T) {
	f := mustFormat(t)
	dims := vector3.NewU32(8, 8, 8)
	blockDims := vector3.NewU32(4, 4, 4)
	root := block.New(0, dims, nil, make([]byte, 512))

	result, err := ConvertParallel(context.Background(), root, f, dims, blockDims, block.CompressionNone, nil)
	assert.NoError(t, err)

	assert.Len(t, result.Blocks, 1)
	assert.Len(t, result.Files, 1)
	assert.Len(t, result.RootPlacements, 8)
	for _, p := range result.RootPlacements {
		assert.Equal(t, block.Index(1), p.Block)
	}
}

// Property 6, "dedup stability": sequential and parallel pipelines over
// the same input agree on the set of unique block contents, even if
// arrival order and ids differ.
func TestSequentialAndParallelAgreeOnUniqueContent(t *testing.T) {
	f := mustFormat(t)
	dims := vector3.NewU32(8, 8, 8)
	blockDims := vector3.NewU32(2, 2, 2)

	raw := make([]byte, 512)
	for i := range raw {
		raw[i] = byte(i % 5) // a handful of repeating patterns to force dedup
	}

	seqRoot := block.New(0, dims, nil, append([]byte(nil), raw...))
	parRoot := block.New(0, dims, nil, append([]byte(nil), raw...))

	seqResult, err := ConvertSequential(seqRoot, f, dims, blockDims, block.CompressionNone, nil)
	assert.NoError(t, err)
	parResult, err := ConvertParallel(context.Background(), parRoot, f, dims, blockDims, block.CompressionNone, nil)
	assert.NoError(t, err)

	seqContents := map[string]bool{}
	for _, b := range seqResult.Blocks {
		seqContents[string(b.Data)] = true
	}
	parContents := map[string]bool{}
	for _, b := range parResult.Blocks {
		parContents[string(b.Data)] = true
	}

	assert.Equal(t, seqContents, parContents)
	assert.Len(t, seqResult.RootPlacements, len(parResult.RootPlacements))
}

func TestConvertSequentialWithCompression(t *testing.T) {
	f := mustFormat(t)
	dims := vector3.NewU32(4, 4, 4)
	blockDims := vector3.NewU32(2, 2, 2)
	root := block.New(0, dims, nil, make([]byte, 64))

	result, err := ConvertSequential(root, f, dims, blockDims, block.CompressionLZ4S, nil)
	assert.NoError(t, err)
	assert.Len(t, result.Files, 1)
	assert.Equal(t, block.CompressionLZ4S, result.Blocks[0].Encoding)
}

type countingReporter struct{ n int }

func (c *countingReporter) Increment() { c.n++ }

func TestReporterReceivesOneTickPerPacket(t *testing.T) {
	f := mustFormat(t)
	dims := vector3.NewU32(4, 4, 4)
	blockDims := vector3.NewU32(2, 2, 2)
	root := block.New(0, dims, nil, sequentialBytes(64))

	r := &countingReporter{}
	_, err := ConvertSequential(root, f, dims, blockDims, block.CompressionNone, r)
	assert.NoError(t, err)
	assert.Equal(t, 8, r.n)
}
