/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadersGetValuesCount(t *testing.T) {
	h := Headers{
		{Name: "Accept", Value: "text/html"},
		{Name: "X-Forwarded-For", Value: "1.1.1.1"},
		{Name: "x-forwarded-for", Value: "2.2.2.2"},
	}
	v, ok := h.Get("accept")
	assert.True(t, ok)
	assert.Equal(t, "text/html", v)

	_, ok = h.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"1.1.1.1", "2.2.2.2"}, h.Values("X-Forwarded-For"))
	assert.Equal(t, 2, h.Count("x-forwarded-for"))
	assert.Equal(t, 1, h.Count("accept"))
}

func TestHeadersLowercasedPreservesOrderAndDuplicates(t *testing.T) {
	h := Headers{
		{Name: "Accept", Value: "text/html"},
		{Name: "X-Custom", Value: "a"},
		{Name: "X-Custom", Value: "b"},
	}
	lc := h.Lowercased()
	assert.Equal(t, Headers{
		{Name: "accept", Value: "text/html"},
		{Name: "x-custom", Value: "a"},
		{Name: "x-custom", Value: "b"},
	}, lc)
	// original untouched
	assert.Equal(t, "Accept", h[0].Name)
}
