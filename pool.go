// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import (
	"bytes"
	"sync"
)

// orderedPool runs opaque tasks concurrently across a fixed number of
// worker slots but gates each task's ordered side effects to its
// submission order, so the resulting archive is byte-identical regardless
// of worker count. Each slot owns a scratch buffer, handed to its task for
// the lifetime of that task and reused by whichever task next occupies the
// slot; callers never share one buffer across concurrently running tasks.
// numSlots == 0 or 1 runs every task synchronously on the submitter,
// skipping the gate entirely but still handing out a single reused buffer.
type orderedPool struct {
	numSlots int
	free     chan *bytes.Buffer // one scratch buffer per free slot
	syncBuf  *bytes.Buffer      // the lone slot's buffer in synchronous mode

	mu         sync.Mutex
	cond       *sync.Cond
	nextTicket uint64 // next ticket to hand out
	commitNext uint64 // next ticket allowed to pass the gate
	active     int    // number of tasks currently acquired

	wg sync.WaitGroup
}

// newOrderedPool returns a pool with numSlots worker slots, each owning a
// scratch buffer pre-grown to scratchBytes. numSlots <= 1 selects
// single-threaded mode.
func newOrderedPool(numSlots int, scratchBytes int) *orderedPool {
	p := &orderedPool{numSlots: numSlots}
	p.cond = sync.NewCond(&p.mu)

	if numSlots > 1 {
		p.free = make(chan *bytes.Buffer, numSlots)

		for i := 0; i < numSlots; i++ {
			buf := &bytes.Buffer{}
			buf.Grow(scratchBytes)
			p.free <- buf
		}
	} else {
		buf := &bytes.Buffer{}
		buf.Grow(scratchBytes)
		p.syncBuf = buf
	}

	return p
}

// synchronous reports whether the pool runs tasks inline on the submitter.
func (p *orderedPool) synchronous() bool {
	return p.numSlots <= 1
}

// ticket is the handle a task uses to gate its ordered section. It also
// carries the scratch buffer owned by the slot the task was assigned.
type ticket struct {
	n   uint64
	buf *bytes.Buffer
}

// acquire blocks until a slot is free (a no-op in synchronous mode) and
// returns a fresh, monotonically increasing submission ticket bound to
// that slot's scratch buffer.
func (p *orderedPool) acquire() ticket {
	var buf *bytes.Buffer
	if p.synchronous() {
		buf = p.syncBuf
	} else {
		buf = <-p.free
	}

	p.mu.Lock()
	t := ticket{n: p.nextTicket, buf: buf}
	p.nextTicket++
	p.active++
	p.mu.Unlock()

	return t
}

// submit runs task's body, handing it t's slot-owned scratch buffer. In
// synchronous mode it runs inline and the gate is a no-op; otherwise it
// runs in a new goroutine tracked by drain.
func (p *orderedPool) submit(t ticket, task func(gate func(), scratch *bytes.Buffer)) {
	gate := func() { p.gate(t) }

	if p.synchronous() {
		task(gate, t.buf)
		p.complete(t)

		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		task(gate, t.buf)
		p.complete(t)
	}()
}

// gate blocks until t is the next ticket allowed to run its ordered
// section.
func (p *orderedPool) gate(t ticket) {
	if p.synchronous() {
		return
	}

	p.mu.Lock()
	for p.commitNext != t.n {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// complete advances the commit ticket, frees t's slot, and wakes waiters.
func (p *orderedPool) complete(t ticket) {
	p.mu.Lock()
	if p.commitNext == t.n {
		p.commitNext++
	}
	p.active--
	p.mu.Unlock()

	if !p.synchronous() {
		p.cond.Broadcast()
		p.free <- t.buf
	}
}

// drain blocks until every acquired slot has completed.
func (p *orderedPool) drain() {
	if !p.synchronous() {
		p.wg.Wait()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for p.active != 0 {
		p.cond.Wait()
	}
}
