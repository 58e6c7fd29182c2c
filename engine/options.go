/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"time"

	"go.uber.org/zap"
)

// Default tunables. Zero-valued Options fields fall back to these, the
// same convention the teacher's Server.maxHeaderBytes uses for
// MaxHeaderBytes; DefaultIdleTimeout is the exception, as withDefaults
// does not apply it.
const (
	DefaultHighWaterMark      = 64 * 1024
	DefaultLowWaterMark       = 16 * 1024
	DefaultMaxHeaderBytes     = 1 << 20
	DefaultMaxRequestLine     = 8 * 1024
	DefaultBodyQueueCapacity     = 16
	DefaultOutboundQueueCapacity = 8
	DefaultPipelineDepth         = 64
	DefaultMaxConcurrentTasks    = 1 << 16
	DefaultIdleTimeout           = 120 * time.Second
)

// Options configures a Conn's resource limits and collaborators.
type Options struct {
	// HighWaterMark is the total buffered-but-undrained request body
	// bytes across a connection's cycles above which reads are paused.
	HighWaterMark int64
	// LowWaterMark is the level buffered bytes must fall back to
	// before reads resume.
	LowWaterMark int64
	// MaxRequestLineBytes bounds the request line; exceeding it is a
	// ParseError.
	MaxRequestLineBytes int
	// MaxHeaderBytes bounds the total size of the header block.
	MaxHeaderBytes int
	// BodyQueueCapacity is the number of buffered body messages per
	// Cycle before the producer (parser) blocks.
	BodyQueueCapacity int
	// OutboundQueueCapacity is the number of buffered response messages
	// a Cycle not yet at the pipeline head may accumulate before its
	// application task's Send blocks (spec ยง9, "pipelined output
	// buffering").
	OutboundQueueCapacity int
	// PipelineDepth bounds how many parsed-but-unwritten Cycles may sit
	// in the pipeline before the parser's caller would need to stop
	// feeding it further pipelined requests.
	PipelineDepth int
	// MaxConcurrentTasks bounds how many application tasks may run
	// concurrently on one connection (a second, task-count-based axis
	// of backpressure distinct from HighWaterMark's byte accounting).
	MaxConcurrentTasks int64
	// IdleTimeout is a permitted design parameter per spec ยง5. It is
	// stored as given; withDefaults leaves it unchanged and Conn does
	// not read it, so no idle timeout is enforced.
	IdleTimeout time.Duration
	// Logger receives structured lifecycle and fault events. Nil uses
	// a no-op logger.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.HighWaterMark <= 0 {
		o.HighWaterMark = DefaultHighWaterMark
	}
	if o.LowWaterMark <= 0 {
		o.LowWaterMark = DefaultLowWaterMark
	}
	if o.MaxRequestLineBytes <= 0 {
		o.MaxRequestLineBytes = DefaultMaxRequestLine
	}
	if o.MaxHeaderBytes <= 0 {
		o.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if o.BodyQueueCapacity <= 0 {
		o.BodyQueueCapacity = DefaultBodyQueueCapacity
	}
	if o.OutboundQueueCapacity <= 0 {
		o.OutboundQueueCapacity = DefaultOutboundQueueCapacity
	}
	if o.PipelineDepth <= 0 {
		o.PipelineDepth = DefaultPipelineDepth
	}
	if o.MaxConcurrentTasks <= 0 {
		o.MaxConcurrentTasks = DefaultMaxConcurrentTasks
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
