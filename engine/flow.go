/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// flowController implements the two independent backpressure axes of
// spec ยง5: a byte-based high/low watermark over unconsumed body bytes
// (read-side pause/resume), and a task-concurrency limit bounding how
// many application tasks may run at once on a single connection
// (write/goroutine-count side), grounded on the teacher's one-request-
// at-a-time loop in conn.go generalized to pipelined concurrency.
type flowController struct {
	highWater int64
	lowWater  int64
	pending   atomic.Int64
	paused    atomic.Bool

	tasks *semaphore.Weighted
}

func newFlowController(highWater, lowWater int64, maxConcurrentTasks int64) *flowController {
	return &flowController{
		highWater: highWater,
		lowWater:  lowWater,
		tasks:     semaphore.NewWeighted(maxConcurrentTasks),
	}
}

// accountDelivered records bytes handed to an application task's
// Receive queue but not yet consumed from it, and reports whether the
// caller should pause reading from the transport.
func (f *flowController) accountDelivered(n int) (shouldPause bool) {
	total := f.pending.Add(int64(n))
	if total >= f.highWater && f.paused.CompareAndSwap(false, true) {
		return true
	}
	return false
}

// accountConsumed records bytes the application has drained via
// Receive, and reports whether reading should resume.
func (f *flowController) accountConsumed(n int) (shouldResume bool) {
	total := f.pending.Add(-int64(n))
	if total < 0 {
		f.pending.Store(0)
		total = 0
	}
	if total <= f.lowWater && f.paused.CompareAndSwap(true, false) {
		return true
	}
	return false
}

// acquireTask blocks until a task slot is free or ctx is done. A
// connection with more pipelined requests than MaxConcurrentTasks
// still starts a goroutine per cycle, but the excess ones wait here
// before constructing their handlers; parsing and response ordering
// are unaffected.
func (f *flowController) acquireTask(ctx context.Context) error {
	return f.tasks.Acquire(ctx, 1)
}

func (f *flowController) releaseTask() {
	f.tasks.Release(1)
}
