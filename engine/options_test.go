/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestOptionsWithDefaultsFillsZeroValues(t *testing.T) {
	got := Options{}.withDefaults()
	assert.Equal(t, int64(DefaultHighWaterMark), got.HighWaterMark)
	assert.Equal(t, int64(DefaultLowWaterMark), got.LowWaterMark)
	assert.Equal(t, DefaultMaxRequestLine, got.MaxRequestLineBytes)
	assert.Equal(t, DefaultMaxHeaderBytes, got.MaxHeaderBytes)
	assert.Equal(t, DefaultBodyQueueCapacity, got.BodyQueueCapacity)
	assert.Equal(t, DefaultOutboundQueueCapacity, got.OutboundQueueCapacity)
	assert.Equal(t, DefaultPipelineDepth, got.PipelineDepth)
	assert.Equal(t, int64(DefaultMaxConcurrentTasks), got.MaxConcurrentTasks)
	assert.NotNil(t, got.Logger)
}

func TestOptionsWithDefaultsPreservesExplicitValues(t *testing.T) {
	logger := zap.NewExample()
	in := Options{
		HighWaterMark:         1,
		LowWaterMark:          1,
		MaxRequestLineBytes:   1,
		MaxHeaderBytes:        1,
		BodyQueueCapacity:     1,
		OutboundQueueCapacity: 1,
		PipelineDepth:         1,
		MaxConcurrentTasks:    1,
		IdleTimeout:           5 * time.Second,
		Logger:                logger,
	}
	got := in.withDefaults()
	assert.Equal(t, in, got)
	assert.Same(t, logger, got.Logger)
}
