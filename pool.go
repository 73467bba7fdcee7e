// pool.go: variable-size allocation service over a growable block list
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package slabq

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// PoolConfig configures a Pool. Zero values other than the required
// InitialBlocks / ChunksPerBlock fall back to sensible defaults, mirroring
// the teacher's LoggerConfig / NewWithConfig pattern.
type PoolConfig struct {
	// InitialBlocks is the number of blocks the pool starts with. Must be >= 1.
	InitialBlocks int

	// ChunksPerBlock is the chunk capacity of every block the pool
	// allocates, including blocks appended on growth. Must be >= 1.
	ChunksPerBlock int

	// ChunkSize is the byte size of one chunk. Defaults to DefaultChunkSize.
	ChunkSize int

	// OnAllocationFailure, if non-nil, is invoked whenever Acquire cannot
	// satisfy a request even after growing the pool. Mirrors the
	// teacher's Logger.reportError hook.
	OnAllocationFailure func(op string, err error)
}

// Pool is a single-threaded (per instance) allocation service over a
// blockList. All Pool methods must be called from one producer goroutine,
// or externally serialized around a shared Pool; only Block.acquires (via
// Handle.Release) is safe to touch from other goroutines. See the Queue
// for the multi-producer hand-off; Pool itself is not a multi-producer
// structure.
type Pool struct {
	chunkSize   uint32
	blockChunks uint32
	list        blockList

	onAllocationFailure func(op string, err error)

	clock        *timecache.TimeCache
	lastActivity atomic.Int64 // unix nanos; written by touch, read by Stats
}

// NewPool creates a Pool with initialBlocks blocks of chunksPerBlock
// chunks each, using DefaultChunkSize chunks.
func NewPool(initialBlocks, chunksPerBlock int) (*Pool, error) {
	return NewPoolWithConfig(PoolConfig{
		InitialBlocks:  initialBlocks,
		ChunksPerBlock: chunksPerBlock,
	})
}

// NewPoolWithConfig creates a Pool from an explicit PoolConfig.
func NewPoolWithConfig(cfg PoolConfig) (*Pool, error) {
	if cfg.InitialBlocks < 1 {
		return nil, errInvalidBlockCount
	}
	if cfg.ChunksPerBlock < 1 {
		return nil, errInvalidChunksPerBlock
	}
	chunkSize := cfg.ChunkSize
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < 0 {
		return nil, errInvalidChunkSize
	}

	p := &Pool{
		chunkSize:           uint32(chunkSize),
		blockChunks:         uint32(cfg.ChunksPerBlock),
		onAllocationFailure: cfg.OnAllocationFailure,
		clock:               timecache.NewWithResolution(time.Millisecond),
	}
	p.list = *newBlockList(cfg.InitialBlocks, p.blockChunks, p.chunkSize)
	return p, nil
}

func ceilChunks(size int, chunkSize uint32) uint32 {
	if size <= 0 {
		return 1
	}
	return uint32((size + int(chunkSize) - 1) / int(chunkSize))
}

// TryAcquire attempts to carve a handle sized for size payload bytes out
// of the current block, advancing the round-robin cursor once on failure
// before giving up. It never grows the pool. ok is false when both the
// current and next block are exhausted.
func (p *Pool) TryAcquire(size int) (*Handle, bool) {
	if size < 0 {
		return nil, false
	}
	chunks := ceilChunks(size, p.chunkSize)

	blk := p.list.current()
	payload, base, ok := blk.tryAcquire(chunks)
	if !ok && p.list.len() > 1 {
		p.list.advance()
		blk = p.list.current()
		payload, base, ok = blk.tryAcquire(chunks)
	}
	if !ok {
		return nil, false
	}

	p.touch()
	return &Handle{
		origin:      OriginPool,
		block:       blk,
		blockOffset: base,
		payload:     payload[:size:size],
	}, true
}

// Acquire behaves like TryAcquire, but on exhaustion appends a fresh block
// of the pool's configured capacity and retries once. It fails only if a
// single request cannot fit even in a brand new, empty block.
func (p *Pool) Acquire(size int) (*Handle, error) {
	if size < 0 {
		return nil, errNegativeSize
	}
	if h, ok := p.TryAcquire(size); ok {
		return h, nil
	}

	p.list.append(newBlock(p.blockChunks, p.chunkSize))
	if h, ok := p.TryAcquire(size); ok {
		return h, nil
	}

	err := fmt.Errorf("%w: requested %d bytes, %d chunks/block at %dB chunks",
		errPoolExhausted, size, p.blockChunks, p.chunkSize)
	p.reportError("acquire", err)
	return nil, err
}

// HeapAllocate returns a handle backed directly by a freshly made []byte,
// bypassing the block list entirely. Offered so oversized payloads, or
// callers that specifically want heap storage, are still supported under
// the same Handle ABI.
func (p *Pool) HeapAllocate(size int) (*Handle, error) {
	if size < 0 {
		return nil, errNegativeSize
	}
	p.touch()
	return &Handle{
		origin:  OriginHeap,
		payload: make([]byte, size),
	}, nil
}

// Close releases the pool's timecache resource and reports whether any
// block still has outstanding (unreleased) allocations. Destroying a pool
// with live handles out from under it is a documented program bug (spec:
// UnrecoverablePreconditionViolation); Close reports it rather than
// silently freeing memory a Handle still references.
func (p *Pool) Close() error {
	p.clock.Stop()

	for _, b := range p.list.blocks {
		if b.outstanding() != 0 {
			return errPoolBusy
		}
	}
	return nil
}

func (p *Pool) reportError(op string, err error) {
	if p.onAllocationFailure != nil {
		p.onAllocationFailure(op, err)
	}
}

func (p *Pool) touch() {
	p.lastActivity.Store(p.clock.CachedTime().UnixNano())
}

// PoolStats is a best-effort snapshot of pool utilization for telemetry.
type PoolStats struct {
	BlockCount     int
	SealedBlocks   int
	ChunkSize      uint32
	ChunksPerBlock uint32
	LastActivity   time.Time
}

// Stats returns a snapshot of the pool's current block utilization. Safe
// to call from any goroutine; BlockCount/SealedBlocks are only meaningful
// as an approximation if called concurrently with the owning producer.
func (p *Pool) Stats() PoolStats {
	sealed := 0
	for _, b := range p.list.blocks {
		if b.sealed {
			sealed++
		}
	}
	return PoolStats{
		BlockCount:     p.list.len(),
		SealedBlocks:   sealed,
		ChunkSize:      p.chunkSize,
		ChunksPerBlock: p.blockChunks,
		LastActivity:   time.Unix(0, p.lastActivity.Load()),
	}
}
