/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineFIFOOrder(t *testing.T) {
	p := newPipeline(4)
	c1 := &cycle{}
	c2 := &cycle{}
	c3 := &cycle{}
	p.push(c1)
	p.push(c2)
	p.push(c3)
	p.closeIntake()

	got, ok := p.next()
	require.True(t, ok)
	assert.Same(t, c1, got)

	got, ok = p.next()
	require.True(t, ok)
	assert.Same(t, c2, got)

	got, ok = p.next()
	require.True(t, ok)
	assert.Same(t, c3, got)

	_, ok = p.next()
	assert.False(t, ok, "next must report false once intake is closed and the queue drained")
}

// TestPipelinePushAfterCloseIntakeDoesNotPanic guards against the race
// between a reader goroutine pushing a newly-parsed pipelined cycle
// and a writer goroutine concurrently calling closeIntake after an
// earlier cycle forces connection closure: push must report false
// rather than send on a closed channel.
func TestPipelinePushAfterCloseIntakeDoesNotPanic(t *testing.T) {
	p := newPipeline(1)
	p.closeIntake()

	assert.NotPanics(t, func() {
		ok := p.push(&cycle{})
		assert.False(t, ok)
	})

	_, ok := p.next()
	assert.False(t, ok)
}

// TestPipelinePushRacesCloseIntake exercises the concurrent case
// directly under the race detector: many goroutines push while
// closeIntake fires concurrently, and every push must either land in
// the pipeline (and be drained) or be rejected, never panic.
func TestPipelinePushRacesCloseIntake(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := newPipeline(4)
		done := make(chan struct{})
		go func() {
			defer close(done)
			p.closeIntake()
		}()

		var accepted int
		for j := 0; j < 8; j++ {
			if p.push(&cycle{}) {
				accepted++
			}
		}
		<-done

		drained := 0
		for {
			if _, ok := p.next(); !ok {
				break
			}
			drained++
		}
		assert.Equal(t, accepted, drained)
	}
}
