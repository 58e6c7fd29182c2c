/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import "strings"

// Field is a single header as it arrived on the wire: name in its
// original casing, value untouched. Order of Fields matches arrival
// order; duplicate names are kept as separate entries rather than
// merged, matching HTTP semantics.
type Field struct {
	Name  string
	Value string
}

// Headers is an ordered sequence of header fields.
type Headers []Field

// Get returns the first value for name, matched case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns every value for name, matched case-insensitively, in
// arrival order.
func (h Headers) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Count returns the number of fields whose name matches, case-insensitively.
func (h Headers) Count(name string) int {
	n := 0
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			n++
		}
	}
	return n
}

// Lowercased returns a copy of h with every field name lowercased,
// preserving order and duplicates. This is the form carried in Scope,
// per the ASGI-shaped scope contract of spec ยง3/ยง4.3.
func (h Headers) Lowercased() Headers {
	out := make(Headers, len(h))
	for i, f := range h {
		out[i] = Field{Name: strings.ToLower(f.Name), Value: f.Value}
	}
	return out
}

// Addr is a peer or local network address.
type Addr struct {
	Host string
	Port int
}

// Scope is the immutable per-request descriptor handed to the
// application, matching spec ยง4.3's recognized keys.
type Scope struct {
	Type        string // always "http"
	HTTPVersion string // "1.0" or "1.1"
	Method      string
	Scheme      string // "http" or "https"
	Path        string // percent-decoded
	RawPath     []byte // as received, undecoded
	QueryString []byte // raw bytes after '?', undecoded
	Headers     Headers
	Client      Addr
	Server      Addr
}
