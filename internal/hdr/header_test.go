/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalHeaderKey(t *testing.T) {
	cases := map[string]string{
		"content-type":    "Content-Type",
		"CONTENT-LENGTH":  "Content-Length",
		"x-request-id":    "X-Request-Id",
		"already-Correct": "Already-Correct",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalHeaderKey(in), "input %q", in)
	}
}

func TestCanonicalHeaderKeyLeavesInvalidInputAlone(t *testing.T) {
	assert.Equal(t, "has space", CanonicalHeaderKey("has space"))
}

func TestValidHeaderFieldName(t *testing.T) {
	assert.True(t, ValidHeaderFieldName("X-Custom-Header"))
	assert.True(t, ValidHeaderFieldName("Content-Type"))
	assert.False(t, ValidHeaderFieldName(""))
	assert.False(t, ValidHeaderFieldName("bad name"))
	assert.False(t, ValidHeaderFieldName("bad:name"))
}

func TestValidHeaderFieldValue(t *testing.T) {
	assert.True(t, ValidHeaderFieldValue("text/plain; charset=utf-8"))
	assert.True(t, ValidHeaderFieldValue("has\ttab"))
	assert.False(t, ValidHeaderFieldValue("has\x00null"))
}

func TestValidHostHeader(t *testing.T) {
	assert.True(t, ValidHostHeader("example.org"))
	assert.True(t, ValidHostHeader("example.org:8080"))
	assert.True(t, ValidHostHeader("[::1]:8080"))
	assert.True(t, ValidHostHeader(""))
	assert.False(t, ValidHostHeader("bad host"))
	assert.False(t, ValidHostHeader("bad/host"))
}

func TestTrimString(t *testing.T) {
	assert.Equal(t, "value", TrimString("  value  "))
	assert.Equal(t, "value", TrimString("\tvalue\r\n"))
	assert.Equal(t, "", TrimString("   "))
}

func TestSanitizeFieldValue(t *testing.T) {
	assert.Equal(t, "a b c", SanitizeFieldValue("a\r\nb c"))
	assert.Equal(t, "evil  Set-Cookie: x=y", SanitizeFieldValue("evil\r\nSet-Cookie: x=y"))
}
