/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import "context"

// InboundMessage is what Receive yields: either a body chunk or the
// disconnect sentinel (spec ยง4.3, ยง6).
type InboundMessage struct {
	Disconnect bool
	Body       []byte
	MoreBody   bool
}

// OutboundKind distinguishes the two message kinds Send accepts.
type OutboundKind int

const (
	OutboundStart OutboundKind = iota
	OutboundBody
)

// OutboundMessage is what Send accepts: exactly one Start followed by
// one or more Body messages, the last with MoreBody false (spec ยง4.3).
type OutboundMessage struct {
	Kind     OutboundKind
	Status   int
	Headers  Headers
	Body     []byte
	MoreBody bool
}

// Receive is the asynchronous message source handed to the
// application; it blocks until a body message arrives, the cycle's
// response completes, or the connection is lost.
type Receive func(ctx context.Context) (InboundMessage, error)

// Send is the asynchronous message sink the application writes
// responses to. It returns an error if the message violates send
// ordering (spec ยง4.3) or the peer has disconnected.
type Send func(ctx context.Context, msg OutboundMessage) error

// Handler is the per-request asynchronous callable produced by an App
// (the "two-stage" form) or adapted from the "single-stage" form via
// AdaptSingleStage.
type Handler func(ctx context.Context, receive Receive, send Send) error

// App constructs a Handler from a request Scope. Returning a nil
// Handler with a nil error is treated the same as returning an error:
// the runner synthesizes a 500 (spec ยง4.3, "non-callable value").
type App func(scope Scope) (Handler, error)

// SingleStage is the spec's alternative, equal-capability application
// shape: one asynchronous callable receiving (scope, receive, send)
// directly, with no separate construction step.
type SingleStage func(ctx context.Context, scope Scope, receive Receive, send Send) error

// AdaptSingleStage wraps a SingleStage callable as an App. Because the
// single-stage form has no construction phase distinct from handling,
// any error it returns is classified by the runner as "fault before
// start" or "fault after start" purely on whether http.response.start
// had already been sent — construction-time faults never arise
// separately.
func AdaptSingleStage(fn SingleStage) App {
	return func(scope Scope) (Handler, error) {
		return func(ctx context.Context, receive Receive, send Send) error {
			return fn(ctx, scope, receive, send)
		}, nil
	}
}
