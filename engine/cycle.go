/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// outboundControl kinds ride the same channel as application-originated
// OutboundMessages but are never constructed by application code; the
// writer goroutine recognizes and handles them before anything else.
const (
	outboundSynth500 OutboundKind = iota + 100
	outboundAbort
)

var (
	errProtocolMisuse = errors.New("engine: send called out of order")
	errDisconnected   = errors.New("engine: peer disconnected")
)

// cycle is one request/response exchange on a connection: the unit the
// pipeline FIFO orders and the unit an application task runs against.
// It owns no transport state; only the writer goroutine ever touches
// the wire on its behalf (spec ยง5's single-writer rule).
type cycle struct {
	id    uuid.UUID
	scope Scope

	reqVersion string
	keepAlive  bool // from request Connection/version, before response override

	bodyCh chan InboundMessage
	outCh  chan OutboundMessage

	// onFault, if set, is invoked the one time this cycle fails (spec
	// ยง7's taxonomy); the connection wires it to structured logging.
	onFault func(*Fault)

	started      atomic.Bool
	finalSent    atomic.Bool
	disconn      atomic.Bool
	failOnce     sync.Once
	outCloseOnce sync.Once
	bodyClosed   atomic.Bool
}

func newCycle(scope Scope, reqVersion string, keepAlive bool, bodyQueueCap, outQueueCap int, onFault func(*Fault)) *cycle {
	return &cycle{
		id:         uuid.New(),
		scope:      scope,
		reqVersion: reqVersion,
		keepAlive:  keepAlive,
		bodyCh:     make(chan InboundMessage, bodyQueueCap),
		outCh:      make(chan OutboundMessage, outQueueCap),
		onFault:    onFault,
	}
}

// deliverBody is called by the connection's single caller goroutine
// (the one feeding the parser) to hand a decoded body chunk to
// whichever application task is currently receiving. It blocks while
// the body queue is full; read-side backpressure itself comes from the
// flow controller's byte accounting in Conn.DataReceived, not from the
// queue's fill level.
func (c *cycle) deliverBody(chunk []byte, more bool) {
	if c.bodyClosed.Load() {
		return
	}
	cp := append([]byte(nil), chunk...)
	c.bodyCh <- InboundMessage{Body: cp, MoreBody: more}
	if !more {
		c.closeBody()
	}
}

func (c *cycle) closeBody() {
	if c.bodyClosed.CompareAndSwap(false, true) {
		close(c.bodyCh)
	}
}

// abortInbound marks the cycle disconnected so Receive stops blocking
// and a future Send is rejected, without touching the outbound queue
// (the writer may still be draining an in-flight response).
func (c *cycle) abortInbound() {
	c.disconn.Store(true)
	c.closeBody()
}

// Receive implements the application-facing Receive contract.
func (c *cycle) Receive(ctx context.Context) (InboundMessage, error) {
	if c.disconn.Load() {
		return InboundMessage{Disconnect: true}, nil
	}
	select {
	case msg, ok := <-c.bodyCh:
		if !ok {
			return InboundMessage{Disconnect: true}, nil
		}
		return msg, nil
	case <-ctx.Done():
		return InboundMessage{Disconnect: true}, ctx.Err()
	}
}

// Send implements the application-facing Send contract, enforcing the
// start-then-body ordering of spec ยง4.3 and funneling any violation
// into the cycle's fault path rather than handing a bare error back
// that the application might ignore.
func (c *cycle) Send(ctx context.Context, msg OutboundMessage) error {
	if c.disconn.Load() {
		return errDisconnected
	}
	if c.finalSent.Load() {
		c.fail(FaultProtocolMisuse, errProtocolMisuse)
		return errProtocolMisuse
	}
	switch msg.Kind {
	case OutboundStart:
		if !c.started.CompareAndSwap(false, true) {
			c.fail(FaultProtocolMisuse, errProtocolMisuse)
			return errProtocolMisuse
		}
	case OutboundBody:
		if !c.started.Load() {
			c.fail(FaultProtocolMisuse, errProtocolMisuse)
			return errProtocolMisuse
		}
		if !msg.MoreBody {
			c.finalSent.Store(true)
		}
	default:
		c.fail(FaultProtocolMisuse, errProtocolMisuse)
		return errProtocolMisuse
	}
	select {
	case c.outCh <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail records the first fault seen on this cycle and pushes the
// writer the one control message it needs to recover: a synthesized
// response if nothing has been sent yet (400 for a parse error, 500
// for every other pre-start fault per spec ยง7's table), or a bare
// abort (close the connection once this cycle reaches the head of the
// pipeline) if a partial response is already underway and can't be
// un-sent. The control message (if any) is always pushed strictly
// before outCh is closed, so a writer draining outCh to completion is
// guaranteed to observe it ahead of the close (see closeOutbound).
func (c *cycle) fail(kind FaultKind, err error) {
	c.failOnce.Do(func() {
		if c.onFault != nil {
			c.onFault(newFault(kind, err))
		}
		if c.started.Load() {
			c.outCh <- OutboundMessage{Kind: outboundAbort}
		} else {
			status := 500
			if kind == FaultParseError {
				status = 400
			}
			c.outCh <- OutboundMessage{Kind: outboundSynth500, Status: status}
		}
		c.abortInbound()
	})
	c.closeOutbound()
}

// closeOutbound closes outCh, the signal the writer waits on to know
// nothing further is coming for this cycle: either the application
// task completed its response normally (called by the connection once
// runHandler returns with the final body already sent), or fail()
// already pushed a control message and is closing behind it. Guarded
// separately from failOnce so both paths can call it safely no matter
// which runs first.
func (c *cycle) closeOutbound() {
	c.outCloseOnce.Do(func() {
		close(c.outCh)
	})
}

// complete is called by the writer once it has fully flushed this
// cycle's response (or given up on it) and is about to move on to the
// next cycle in the pipeline.
func (c *cycle) complete() {
	c.abortInbound()
}
