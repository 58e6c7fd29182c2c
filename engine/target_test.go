/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTarget(t *testing.T) {
	rawPath, query, decoded := splitTarget("/a/b%20c?x=1&y=2")
	assert.Equal(t, "/a/b%20c", string(rawPath))
	assert.Equal(t, "x=1&y=2", string(query))
	assert.Equal(t, "/a/b c", decoded)
}

func TestSplitTargetNoQuery(t *testing.T) {
	rawPath, query, decoded := splitTarget("/plain")
	assert.Equal(t, "/plain", string(rawPath))
	assert.Empty(t, query)
	assert.Equal(t, "/plain", decoded)
}

func TestPercentDecodeLeavesMalformedEscapesAlone(t *testing.T) {
	assert.Equal(t, "100%", percentDecode("100%"))
	assert.Equal(t, "100%2", percentDecode("100%2"))
	assert.Equal(t, "100%zz", percentDecode("100%zz"))
}

func TestPercentDecodeValidEscapes(t *testing.T) {
	assert.Equal(t, "a b", percentDecode("a%20b"))
	assert.Equal(t, "/h\xc3\xa9llo", percentDecode("/h%C3%A9llo"))
}
