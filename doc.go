// Package slabq provides a multi-producer/single-consumer handoff queue
// backed by a pooled, chunk-based slab allocator.
//
// The queue carries variable-sized, opaquely-typed payloads whose lifetime
// is tied to a Handle that returns its backing memory to its origin (a
// Pool block or the Go heap) when released. Nodes of the queue are the
// payload handles themselves (an intrusive Michael-Scott-style linked
// list), so publishing a message costs exactly one pooled allocation, not
// two.
//
// # Quick Start
//
// A single producer, single consumer pair sharing a Pool and a Queue:
//
//	pool, err := slabq.NewPool(1, 64) // 1 block, 64 chunks/block, 64B chunks
//	if err != nil {
//		log.Fatal(err)
//	}
//	q := slabq.NewQueue()
//
//	h, err := slabq.AcquireFor[int64](pool)
//	if err != nil {
//		log.Fatal(err)
//	}
//	slabq.Emplace(h, int64(42))
//	q.Push(h)
//
//	if popped := q.Pop(); popped != nil {
//		v := *slabq.PayloadAs[int64](popped)
//		fmt.Println(v)
//		popped.Release()
//	}
//
// # Producers and the Consumer
//
// Any number of producer goroutines may call Pool.Acquire / Pool.TryAcquire
// and Queue.Push concurrently, provided each producer either owns its own
// Pool or external callers serialize access to a shared Pool — see the
// Pool documentation. Exactly one goroutine may call Queue.Pop.
//
// # Memory Reuse
//
// A Pool grows by appending fixed-capacity Blocks. A Block becomes eligible
// for reuse from its base offset only once every Handle carved from it has
// been released — see Block for the sealing/reset discipline that makes
// this safe without tracking individual allocations.
package slabq
