// queue.go: wait-free MPSC intrusive queue with a dummy sentinel
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package slabq

import (
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// Queue is an intrusive, Michael-Scott-style singly-linked MPSC FIFO
// whose nodes are Handles. Push is CAS-bounded wait-free and safe from any
// number of producer goroutines; Pop is wait-free but restricted to
// exactly one consumer goroutine at a time (see the slabq_debug build tag
// for an optional reentrancy guard).
//
// A permanent heap-backed sentinel Handle roots the chain so Push never
// has to special-case the empty queue.
type Queue struct {
	head atomic.Pointer[Handle]
	tail atomic.Pointer[Handle]

	size atomic.Int64

	clock        *timecache.TimeCache
	lastActivity atomic.Int64

	popGuard debugGuard
}

// NewQueue creates an empty Queue rooted at a fresh sentinel node.
func NewQueue() *Queue {
	sentinel := &Handle{state: stateUtilized, origin: OriginHeap}

	q := &Queue{clock: timecache.NewWithResolution(time.Millisecond)}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Push publishes h to the queue. It returns false only when h is nil; the
// queue is otherwise left unchanged. Any number of goroutines may call
// Push concurrently.
func (q *Queue) Push(h *Handle) bool {
	if h == nil {
		return false
	}

	h.next.Store(nil)
	h.state = stateRecorded

	for {
		t := q.tail.Load()
		n := t.next.Load()

		if n == nil {
			if t.next.CompareAndSwap(nil, h) {
				q.tail.CompareAndSwap(t, h)
				q.size.Add(1)
				q.touch()
				return true
			}
			continue
		}

		// tail lag: another producer linked a node but hasn't advanced
		// tail yet. Help it along and retry.
		q.tail.CompareAndSwap(t, n)
	}
}

// Pop removes and returns the oldest published Handle, or nil if the
// queue has no recorded nodes. It also returns nil when it finds tail
// lagging behind a just-linked node: it advances tail and reports empty,
// and the next call returns that node. Pop must be called from a single consumer
// goroutine; see the slabq_debug build tag to enable a reentrancy guard
// that catches a second concurrent caller.
func (q *Queue) Pop() *Handle {
	q.popGuard.enter()
	defer q.popGuard.exit()

	for {
		h := q.head.Load()
		t := q.tail.Load()
		tn := t.next.Load()

		if h == t {
			if h.state == stateRecorded {
				h.state = stateUtilized
				q.size.Add(-1)
				q.touch()
				return h
			}
			if tn != nil {
				// tail lag repair: help a producer whose next-CAS
				// succeeded but whose tail-CAS hasn't landed yet.
				q.tail.CompareAndSwap(t, tn)
			}
			return nil
		}

		hn := h.next.Load()
		q.head.Store(hn)

		if h.state == stateUtilized {
			// stale sentinel / already-drained node; keep stepping.
			continue
		}

		h.state = stateUtilized
		q.size.Add(-1)
		q.touch()
		return h
	}
}

// Size returns a best-effort snapshot of the number of recorded-but-unpopped
// handles. Safe to call from any goroutine.
func (q *Queue) Size() int {
	return int(q.size.Load())
}

func (q *Queue) touch() {
	q.lastActivity.Store(q.clock.CachedTime().UnixNano())
}

// QueueStats is a best-effort snapshot of queue activity for telemetry.
type QueueStats struct {
	Size         int
	LastActivity time.Time
}

// Stats returns a snapshot of the queue's current size and last push/pop
// activity timestamp.
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Size:         q.Size(),
		LastActivity: time.Unix(0, q.lastActivity.Load()),
	}
}

// Close releases the queue's timecache resource. It does not drain or
// invalidate the queue; callers that own a Queue for the lifetime of a
// process need not call it.
func (q *Queue) Close() {
	q.clock.Stop()
}
