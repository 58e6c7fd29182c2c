/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import "sync"

// pipeline is the per-connection FIFO of in-flight cycles, enforcing
// the HTTP/1.1 response-ordering invariant (spec ยง5): requests may be
// parsed, and their application tasks may run, in any order relative
// to each other, but responses are written to the wire strictly in
// request-arrival order. Only the writer goroutine ever pops it, but
// push and closeIntake are called from different goroutines (the
// reader path pushes a newly-parsed pipelined request while the
// writer goroutine may concurrently decide an earlier cycle forces
// connection closure), so the channel itself is never closed directly
// from either: a separate done signal makes that race safe.
type pipeline struct {
	ch   chan *cycle
	done chan struct{}
	once sync.Once
}

func newPipeline(capacity int) *pipeline {
	return &pipeline{ch: make(chan *cycle, capacity), done: make(chan struct{})}
}

// push enqueues a newly-parsed cycle, returning false if closeIntake
// has already fired (the connection is tearing down and this cycle
// has nowhere to go). It never sends on ch after closeIntake, so
// closeIntake never needs to close ch itself, which would otherwise
// race a concurrent push into a panic.
func (p *pipeline) push(c *cycle) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.ch <- c:
		return true
	case <-p.done:
		return false
	}
}

// closeIntake signals that no further cycles will be pushed (the
// connection saw EOF or a close-triggering request); the writer drains
// whatever remains and then stops.
func (p *pipeline) closeIntake() {
	p.once.Do(func() { close(p.done) })
}

// next blocks for the next cycle to write, returning ok=false once
// closeIntake has been called and every already-pushed cycle has been
// drained. It always prefers an available cycle over observing done,
// so a push that raced ahead of closeIntake is never dropped.
func (p *pipeline) next() (*cycle, bool) {
	select {
	case cy := <-p.ch:
		return cy, true
	default:
	}
	select {
	case cy := <-p.ch:
		return cy, true
	case <-p.done:
		select {
		case cy := <-p.ch:
			return cy, true
		default:
			return nil, false
		}
	}
}
