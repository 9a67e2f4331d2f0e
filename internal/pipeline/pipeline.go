// Package pipeline implements the raw→BVP conversion (spec section 4.H):
// a three-stage streaming pipeline for the parallel path, and a
// single-threaded walk for the sequential path original_source also
// ships. Both share the same dedup/compress core so the stable-dedup
// invariant (spec section 8, "Dedup stability") holds either way.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/grimpy101/bvp-tools/internal/block"
	"github.com/grimpy101/bvp-tools/internal/bvperrors"
	"github.com/grimpy101/bvp-tools/internal/format"
	"github.com/grimpy101/bvp-tools/internal/lz4s"
	"github.com/grimpy101/bvp-tools/internal/saf"
	"github.com/grimpy101/bvp-tools/internal/vector3"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"
)

// Reporter receives progress ticks as packets complete. nil is a valid
// no-op reporter.
type Reporter interface {
	Increment()
}

type noopReporter struct{}

func (noopReporter) Increment() {}

// packet is one stage-1 work item: a microblock-aligned sub-rectangle of
// the root volume to cut, dedup and compress (spec section 4.H, stage 1).
type packet struct {
	start, end vector3.U32
}

// Result is everything the pipeline produces beyond the root block that
// was already present: the newly discovered deduplicated blocks, the
// placements that attach them to the root, and their compressed payloads
// ready to be written into an archive.
type Result struct {
	Blocks         []*block.Block
	RootPlacements []block.Placement
	Files          []saf.File
}

// dedupState is the single critical section spec section 9 insists on:
// the hash map, the new-block vector and the parent placements vector are
// guarded together so a hash hit and an id reservation can never race.
type dedupState struct {
	mu         sync.Mutex
	blockMap   map[uint64]int // content hash -> 1-based id into blocks
	blocks     []*block.Block // 0-based; blocks[id-1] is the block with that id
	placements []block.Placement
}

func newDedupState() *dedupState {
	return &dedupState{blockMap: make(map[uint64]int)}
}

// compress applies kind to buf.
func compress(kind block.CompressionKind, buf []byte) []byte {
	switch kind {
	case block.CompressionLZ4S:
		return lz4s.Compress(buf)
	default:
		return buf
	}
}

// processPacket implements stage 2's body for a single packet: cut,
// hash, dedup-or-reserve, and (outside the lock) compress.
func processPacket(state *dedupState, root *block.Block, f format.Format, p packet, kind block.CompressionKind) (*saf.File, error) {
	cut, err := block.CopyOut(root, p.start, p.end, f)
	if err != nil {
		return nil, err
	}
	if cut.Data == nil {
		return nil, bvperrors.NewBlockError(bvperrors.BlockNoData, uint64(root.Index))
	}

	hash := xxh3.Hash(cut.Data)

	state.mu.Lock()
	if existingID, ok := state.blockMap[hash]; ok {
		existing := state.blocks[existingID-1]
		if existing.StructuralEq(cut.Data) {
			state.placements = append(state.placements, block.Placement{Position: p.start, Block: block.Index(existingID)})
			state.mu.Unlock()
			return nil, nil
		}
	}

	id := len(state.blocks) + 1
	newBlock := block.New(block.Index(id), cut.Dimensions, cut.Format, append([]byte(nil), cut.Data...))
	newBlock.Encoding = kind
	newBlock.HasEncoding = true
	newBlock.DataURL = fmt.Sprintf("blocks/block_%d.raw", id)
	newBlock.HasDataURL = true
	state.blocks = append(state.blocks, newBlock)
	state.blockMap[hash] = id
	state.mu.Unlock()

	state.mu.Lock()
	state.placements = append(state.placements, block.Placement{Position: p.start, Block: block.Index(id)})
	state.mu.Unlock()

	compressed := compress(kind, cut.Data)
	return &saf.File{Name: newBlock.DataURL, Data: compressed}, nil
}

func blockCount(dims, blockDims vector3.U32) vector3.U32 {
	return dims.Div(blockDims).Ceil()
}

func enumeratePackets(dims, blockDims vector3.U32) []packet {
	counts := blockCount(dims, blockDims)
	packets := make([]packet, 0, counts.MultiplyElements())
	for x := uint32(0); x < counts.X; x++ {
		for y := uint32(0); y < counts.Y; y++ {
			for z := uint32(0); z < counts.Z; z++ {
				start := blockDims.Mul(vector3.NewU32(x, y, z))
				end := start.Add(blockDims).Min(dims)
				packets = append(packets, packet{start: start, end: end})
			}
		}
	}
	return packets
}

// ConvertSequential runs the same cut/dedup/compress core as the
// parallel pipeline but on a single goroutine, in spatial enumeration
// order. Supplemented from original_source's non-parallel raw_to_bvp
// path: it exists for small inputs and for deterministic-order tests.
func ConvertSequential(root *block.Block, f format.Format, dims, blockDims vector3.U32, kind block.CompressionKind, reporter Reporter) (*Result, error) {
	if reporter == nil {
		reporter = noopReporter{}
	}
	state := newDedupState()
	var files []saf.File
	for _, p := range enumeratePackets(dims, blockDims) {
		file, err := processPacket(state, root, f, p, kind)
		if err != nil {
			return nil, err
		}
		reporter.Increment()
		if file != nil {
			files = append(files, *file)
		}
	}
	return &Result{Blocks: state.blocks, RootPlacements: state.placements, Files: files}, nil
}

// ConvertParallel runs the full three-stage pipeline (spec section 4.H):
// a single stage-1 producer enumerating packets, runtime.NumCPU() stage-2
// workers cutting/deduping/compressing, and a single stage-3 consumer
// collecting compressed files in arrival order.
func ConvertParallel(ctx context.Context, root *block.Block, f format.Format, dims, blockDims vector3.U32, kind block.CompressionKind, reporter Reporter) (*Result, error) {
	if reporter == nil {
		reporter = noopReporter{}
	}

	state := newDedupState()
	packetCh := make(chan packet)
	fileCh := make(chan saf.File)

	g, gctx := errgroup.WithContext(ctx)

	// Stage 1: single producer.
	g.Go(func() error {
		defer close(packetCh)
		for _, p := range enumeratePackets(dims, blockDims) {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case packetCh <- p:
			}
		}
		return nil
	})

	// Stage 2: N workers sharing packetCh, feeding fileCh.
	workerCount := runtime.NumCPU()
	var stage2Wg sync.WaitGroup
	stage2Wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			defer stage2Wg.Done()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case p, ok := <-packetCh:
					if !ok {
						return nil
					}
					file, err := processPacket(state, root, f, p, kind)
					if err != nil {
						return err
					}
					reporter.Increment()
					if file != nil {
						select {
						case <-gctx.Done():
							return gctx.Err()
						case fileCh <- *file:
						}
					}
				}
			}
		})
	}

	// Closes fileCh once every stage-2 worker has exited, regardless of
	// success or cancellation, so stage 3 always terminates.
	go func() {
		stage2Wg.Wait()
		close(fileCh)
	}()

	// Stage 3: single consumer, collects files in arrival order.
	var files []saf.File
	g.Go(func() error {
		for file := range fileCh {
			files = append(files, file)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Blocks: state.blocks, RootPlacements: state.placements, Files: files}
	return result, nil
}
