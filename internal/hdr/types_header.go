/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package hdr

const (
	toLower = 'a' - 'A'

	Accept           = "Accept"
	CacheControl     = "Cache-Control"
	Connection       = "Connection"
	ContentLength    = "Content-Length"
	ContentType      = "Content-Type"
	Date             = "Date"
	Expect           = "Expect"
	Host             = "Host"
	ServerHeader     = "Server"
	TransferEncoding = "Transfer-Encoding"
	Trailer          = "Trailer"
	UpgradeHeader    = "Upgrade"
	UserAgent        = "User-Agent"

	TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
)

var (
	// commonHeader interns common header strings so canonicalization
	// for the hot set doesn't allocate.
	commonHeader = make(map[string]string)

	// isTokenTable is a copy of net/http/lex.go's isTokenTable.
	// See https://httpwg.github.io/specs/rfc7230.html#rule.token.separators
	isTokenTable = [127]bool{
		'0': true, '1': true, '2': true, '3': true, '4': true, '5': true, '6': true, '7': true,
		'8': true, '9': true,

		'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true, 'g': true, 'h': true,
		'i': true, 'j': true, 'k': true, 'l': true, 'm': true, 'n': true, 'o': true, 'p': true,
		'q': true, 'r': true, 's': true, 't': true, 'u': true, 'v': true, 'w': true, 'x': true,
		'y': true, 'z': true,

		'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true, 'G': true, 'H': true,
		'I': true, 'J': true, 'K': true, 'L': true, 'M': true, 'N': true, 'O': true, 'P': true,
		'Q': true, 'R': true, 'S': true, 'T': true, 'U': true, 'V': true, 'W': true, 'X': true,
		'Y': true, 'Z': true,

		'!':  true,
		'#':  true,
		'$':  true,
		'%':  true,
		'&':  true,
		'\'': true,
		'*':  true,
		'+':  true,
		'-':  true,
		'.':  true,
		'^':  true,
		'_':  true,
		'`':  true,
		'|':  true,
		'~':  true,
	}

	// validHostByte is the RFC 7230 ยง5.4 authority-form alphabet: unreserved,
	// sub-delims, ":" and "[" "]" for bracketed IPv6 literals.
	validHostByte = [256]bool{
		'0': true, '1': true, '2': true, '3': true, '4': true, '5': true, '6': true, '7': true,
		'8': true, '9': true,

		'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true, 'g': true, 'h': true,
		'i': true, 'j': true, 'k': true, 'l': true, 'm': true, 'n': true, 'o': true, 'p': true,
		'q': true, 'r': true, 's': true, 't': true, 'u': true, 'v': true, 'w': true, 'x': true,
		'y': true, 'z': true,

		'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true, 'G': true, 'H': true,
		'I': true, 'J': true, 'K': true, 'L': true, 'M': true, 'N': true, 'O': true, 'P': true,
		'Q': true, 'R': true, 'S': true, 'T': true, 'U': true, 'V': true, 'W': true, 'X': true,
		'Y': true, 'Z': true,

		'!': true, '$': true, '%': true, '&': true, '(': true, ')': true,
		'*': true, '+': true, ',': true, '-': true, '.': true, ':': true,
		';': true, '=': true, '[': true, '\'': true, ']': true, '_': true, '~': true,
	}
)

func init() {
	for _, v := range []string{
		Accept, CacheControl, Connection, ContentLength, ContentType, Date,
		Expect, Host, ServerHeader, TransferEncoding, Trailer, UpgradeHeader, UserAgent,
	} {
		commonHeader[v] = v
	}
}
