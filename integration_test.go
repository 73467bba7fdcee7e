// integration_test.go: end-to-end scenarios from the design's testable properties
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package slabq

import (
	"bytes"
	"sync"
	"testing"
)

// Scenario 1: single producer writes three payloads into a small pool and
// pushes them in order; the consumer pops them back in the same order.
func TestScenarioSingleProducerOrderedDrain(t *testing.T) {
	p, err := NewPool(1, 4) // 4 chunks of 64B
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	q := NewQueue()

	payloads := [][]byte{[]byte("A-payload-32bytes-aaaaaaaaaaaaaa"), []byte("B-payload-32bytes-bbbbbbbbbbbbbb"), []byte("C-payload-32bytes-cccccccccccccc")}
	for _, data := range payloads {
		h, err := p.Acquire(len(data))
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		copy(h.Raw(), data)
		if !q.Push(h) {
			t.Fatal("expected push to succeed")
		}
	}

	for _, want := range payloads {
		h := q.Pop()
		if h == nil {
			t.Fatal("expected a handle, got nil")
		}
		if !bytes.Equal(h.Raw(), want) {
			t.Fatalf("expected payload %q, got %q", want, h.Raw())
		}
		h.Release()
	}

	if q.Size() != 0 {
		t.Fatalf("expected size 0 after drain, got %d", q.Size())
	}
}

// Scenario 2: a block fills exactly, an acquire fails while it's sealed
// and undrained, and succeeds again from chunk 0 of the same block once
// every handle carved from it has been released.
func TestScenarioBlockFillsDrainsAndReuses(t *testing.T) {
	p, err := NewPool(1, 4) // 1 block, 4 chunks of 64B
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	q := NewQueue()

	for i := 0; i < 4; i++ {
		h, err := p.Acquire(64)
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		q.Push(h)
	}
	if p.list.len() != 1 {
		t.Fatalf("expected no growth while filling exactly one block, got %d blocks", p.list.len())
	}

	h1 := q.Pop()
	h2 := q.Pop()
	if h1 == nil || h2 == nil {
		t.Fatal("expected two handles")
	}
	h1.Release()
	h2.Release()

	// Two handles (h3, h4) are still live in the queue: the block is
	// sealed and undrained, so a non-growing acquire must fail.
	if _, ok := p.TryAcquire(64); ok {
		t.Fatal("expected TryAcquire to fail against a sealed, undrained block")
	}

	h3 := q.Pop()
	h4 := q.Pop()
	if h3 == nil || h4 == nil {
		t.Fatal("expected the remaining two handles")
	}
	h3.Release()
	h4.Release()

	reused, ok := p.TryAcquire(64)
	if !ok {
		t.Fatal("expected TryAcquire to succeed once the block has fully drained")
	}
	if p.list.len() != 1 {
		t.Fatalf("expected the drained block to be reused rather than growing the pool, got %d blocks", p.list.len())
	}
	if reused.BlockOffset() != 0 {
		t.Fatalf("expected the reused block to hand out chunk 0, got offset %d", reused.BlockOffset())
	}
}

// Scenario 4: popping an empty queue returns nil.
func TestScenarioEmptyQueuePop(t *testing.T) {
	q := NewQueue()
	if got := q.Pop(); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

// Scenario 5: push(nil) returns false and leaves the queue unchanged.
func TestScenarioPushNilLeavesQueueUnchanged(t *testing.T) {
	p, err := NewPool(1, 4)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	q := NewQueue()

	h, err := p.Acquire(64)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	q.Push(h)

	if q.Push(nil) {
		t.Fatal("expected Push(nil) to return false")
	}
	if q.Size() != 1 {
		t.Fatalf("expected size to remain 1, got %d", q.Size())
	}

	got := q.Pop()
	if got != h {
		t.Fatal("expected the original handle to still be the one popped")
	}
	got.Release()
}

// Scenario 6: TryAcquire against an exhausted pool (no growth) returns
// false; previously returned handles remain valid.
func TestScenarioTryAcquireExhaustedLeavesPriorHandlesValid(t *testing.T) {
	p, err := NewPool(1, 2)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}

	h1, ok := p.TryAcquire(64)
	if !ok {
		t.Fatal("expected first TryAcquire to succeed")
	}
	h2, ok := p.TryAcquire(64)
	if !ok {
		t.Fatal("expected second TryAcquire to succeed")
	}

	if _, ok := p.TryAcquire(64); ok {
		t.Fatal("expected TryAcquire against an exhausted pool to fail")
	}

	copy(h1.Raw(), []byte("still-valid-1"))
	copy(h2.Raw(), []byte("still-valid-2"))
	if !bytes.HasPrefix(h1.Raw(), []byte("still-valid-1")) {
		t.Fatal("h1 became invalid after a failed TryAcquire")
	}
	if !bytes.HasPrefix(h2.Raw(), []byte("still-valid-2")) {
		t.Fatal("h2 became invalid after a failed TryAcquire")
	}

	h1.Release()
	h2.Release()
}

// Scenario 3 (scaled down from the spec's 10,000-per-producer stress
// test for fast unit-test runs): several producers each pushing a batch,
// one consumer draining, with no leak afterward.
func TestScenarioManyProducersOneConsumerNoLeak(t *testing.T) {
	const producers = 4
	const perProducer = 500

	q := NewQueue()
	pools := make([]*Pool, producers)
	for i := range pools {
		pool, err := NewPoolWithConfig(PoolConfig{InitialBlocks: 2, ChunksPerBlock: 32})
		if err != nil {
			t.Fatalf("NewPoolWithConfig: %v", err)
		}
		pools[i] = pool
	}

	var wg sync.WaitGroup
	wg.Add(producers)
	for pid := 0; pid < producers; pid++ {
		pid := pid
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				h, err := AcquireFor[int64](pools[pid])
				if err != nil {
					t.Errorf("producer %d: %v", pid, err)
					return
				}
				Emplace(h, int64(pid)*int64(perProducer)+int64(i))
				q.Push(h)
			}
		}()
	}
	wg.Wait()

	total := producers * perProducer
	count := 0
	for count < total {
		h := q.Pop()
		if h == nil {
			continue
		}
		_ = *PayloadAs[int64](h)
		h.Release()
		count++
	}

	for _, pool := range pools {
		for _, b := range pool.list.blocks {
			if got := b.outstanding(); got != 0 {
				t.Fatalf("expected block to have fully drained, got outstanding=%d", got)
			}
		}
	}
}
