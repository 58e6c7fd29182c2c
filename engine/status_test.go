/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReasonPhrase(t *testing.T) {
	assert.Equal(t, "OK", reasonPhrase(200))
	assert.Equal(t, "Not Found", reasonPhrase(404))
	assert.Equal(t, "Internal Server Error", reasonPhrase(500))
	assert.Equal(t, "Status", reasonPhrase(799))
}

func TestBodyAllowedForStatus(t *testing.T) {
	assert.False(t, bodyAllowedForStatus(100))
	assert.False(t, bodyAllowedForStatus(204))
	assert.False(t, bodyAllowedForStatus(304))
	assert.True(t, bodyAllowedForStatus(200))
	assert.True(t, bodyAllowedForStatus(404))
}
