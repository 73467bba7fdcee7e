// main.go: N producers / 1 consumer demonstration of the slabq queue
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/agilira/slabq"
)

const (
	producers    = 4
	perProducer  = 100_000
	chunksPerBlk = 256
)

type message struct {
	producerID int32
	sequence   int32
}

func main() {
	q := slabq.NewQueue()
	defer q.Close()

	var wg sync.WaitGroup
	wg.Add(producers)
	for pid := 0; pid < producers; pid++ {
		pid := pid
		go func() {
			defer wg.Done()
			pool, err := slabq.NewPool(2, chunksPerBlk)
			if err != nil {
				fmt.Printf("producer %d: NewPool: %v\n", pid, err)
				return
			}
			for seq := 0; seq < perProducer; seq++ {
				h, err := slabq.AcquireFor[message](pool)
				if err != nil {
					fmt.Printf("producer %d: acquire: %v\n", pid, err)
					return
				}
				slabq.Emplace(h, message{producerID: int32(pid), sequence: int32(seq)})
				q.Push(h)
			}
		}()
	}

	var consumed atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		target := int64(producers * perProducer)
		for consumed.Load() < target {
			h := q.Pop()
			if h == nil {
				continue
			}
			_ = slabq.PayloadAs[message](h)
			h.Release()
			consumed.Add(1)
		}
	}()

	wg.Wait()
	<-done

	stats := q.Stats()
	fmt.Printf("consumed %d messages, final queue size %d, last activity %s\n",
		consumed.Load(), stats.Size, stats.LastActivity)
}
