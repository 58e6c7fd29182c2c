/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"bytes"
	"errors"
	"strconv"
	"strings"

	"github.com/badu/h1engine/internal/hdr"
)

// EventKind enumerates what an incremental parse step can yield, per
// spec ยง4.1.
type EventKind int

const (
	EventRequestHead EventKind = iota
	EventBodyChunk
	EventEndOfMessage
	EventParseError
)

// Event is one unit the Parser adapter emits. A single Feed call may
// yield zero, one, or many Events, including several full requests
// when the peer pipelines.
type Event struct {
	Kind    EventKind
	Method  string
	Target  string
	Version string // "1.0" or "1.1"
	Headers Headers
	Chunk   []byte
	Err     error
}

// Parser is the incremental HTTP/1.x parser contract spec ยง9 asks to
// be swappable ("Parser injection"). httpParser implements it. Conn
// does not accept a Parser: NewConn constructs an httpParser itself and
// Conn holds it by its concrete type, so using another backend means
// changing Conn.
type Parser interface {
	// Feed supplies newly-arrived bytes and returns the Events they
	// produced. After an EventParseError, Feed returns (nil, nil) on
	// every subsequent call: the parser is terminal.
	Feed(data []byte) ([]Event, error)
}

var (
	errMalformedRequestLine = errors.New("malformed request line")
	errUnsupportedVersion   = errors.New("unsupported HTTP version")
	errMalformedHeaderLine  = errors.New("malformed header field")
	errInvalidHeaderName    = errors.New("invalid header field name")
	errInvalidHeaderValue   = errors.New("invalid header field value")
	errRequestLineTooLong   = errors.New("request line too long")
	errHeadersTooLong       = errors.New("header block too long")
	errAmbiguousFraming     = errors.New("conflicting content-length headers")
	errMalformedChunkSize   = errors.New("malformed chunk size")
	errMalformedChunkCRLF   = errors.New("malformed chunk terminator")
)

type parserState int

const (
	psRequestLine parserState = iota
	psHeaders
	psBodyFixed
	psBodyChunkedSize
	psBodyChunkedData
	psBodyChunkedCRLF
	psBodyChunkedTrailer
	psError
)

// httpParser is the bundled default Parser implementation, grounded on
// the teacher's conn.go:readRequest request-line/header-block scan
// (generalized here to a push-style Feed over an accumulation buffer)
// and its utils_chunks.go/transfer_body_reader.go chunked-decode cycle.
type httpParser struct {
	state   parserState
	buf     []byte
	headers Headers

	headerBytes int
	maxReqLine  int
	maxHeaders  int

	method, target, version string

	remaining      int64 // psBodyFixed
	chunkRemaining uint64 // psBodyChunkedData
}

func newHTTPParser(maxRequestLine, maxHeaderBytes int) *httpParser {
	return &httpParser{maxReqLine: maxRequestLine, maxHeaders: maxHeaderBytes}
}

func (p *httpParser) Feed(data []byte) ([]Event, error) {
	if p.state == psError {
		return nil, nil
	}
	if len(data) > 0 {
		p.buf = append(p.buf, data...)
	}
	var events []Event
	for {
		switch p.state {
		case psRequestLine:
			idx := bytes.Index(p.buf, crlf)
			if idx < 0 {
				if len(p.buf) > p.maxReqLine {
					return p.fail(events, errRequestLineTooLong), nil
				}
				return events, nil
			}
			line := string(p.buf[:idx])
			p.buf = p.buf[idx+2:]
			method, target, version, ok := parseRequestLine(line)
			if !ok {
				return p.fail(events, errMalformedRequestLine), nil
			}
			p.method, p.target, p.version = method, target, version
			p.headers = p.headers[:0]
			p.headerBytes = 0
			p.state = psHeaders

		case psHeaders:
			idx := bytes.Index(p.buf, crlf)
			if idx < 0 {
				if len(p.buf) > p.maxHeaders {
					return p.fail(events, errHeadersTooLong), nil
				}
				return events, nil
			}
			line := p.buf[:idx]
			consumed := idx + 2
			if len(line) == 0 {
				p.buf = p.buf[consumed:]
				headers := make(Headers, len(p.headers))
				copy(headers, p.headers)
				events = append(events, Event{
					Kind: EventRequestHead, Method: p.method, Target: p.target,
					Version: p.version, Headers: headers,
				})
				cl, hasCL, chunked, err := requestFraming(headers)
				if err != nil {
					return p.fail(events, err), nil
				}
				switch {
				case chunked:
					p.state = psBodyChunkedSize
				case hasCL && cl > 0:
					p.remaining = cl
					p.state = psBodyFixed
				default:
					events = append(events, Event{Kind: EventEndOfMessage})
					p.state = psRequestLine
				}
				continue
			}
			p.headerBytes += consumed
			if p.headerBytes > p.maxHeaders {
				return p.fail(events, errHeadersTooLong), nil
			}
			name, value, ok := parseHeaderLine(line)
			if !ok {
				return p.fail(events, errMalformedHeaderLine), nil
			}
			if !hdr.ValidHeaderFieldName(name) {
				return p.fail(events, errInvalidHeaderName), nil
			}
			if !hdr.ValidHeaderFieldValue(value) {
				return p.fail(events, errInvalidHeaderValue), nil
			}
			p.headers = append(p.headers, Field{Name: name, Value: value})
			p.buf = p.buf[consumed:]

		case psBodyFixed:
			if len(p.buf) == 0 {
				return events, nil
			}
			n := int64(len(p.buf))
			if n > p.remaining {
				n = p.remaining
			}
			chunk := p.buf[:n]
			p.buf = p.buf[n:]
			p.remaining -= n
			if n > 0 {
				events = append(events, Event{Kind: EventBodyChunk, Chunk: chunk})
			}
			if p.remaining == 0 {
				events = append(events, Event{Kind: EventEndOfMessage})
				p.state = psRequestLine
			} else {
				return events, nil
			}

		case psBodyChunkedSize:
			idx := bytes.Index(p.buf, crlf)
			if idx < 0 {
				return events, nil
			}
			sizeLine := p.buf[:idx]
			p.buf = p.buf[idx+2:]
			if semi := bytes.IndexByte(sizeLine, ';'); semi >= 0 {
				sizeLine = sizeLine[:semi]
			}
			size, err := strconv.ParseUint(strings.TrimSpace(string(sizeLine)), 16, 64)
			if err != nil {
				return p.fail(events, errMalformedChunkSize), nil
			}
			if size == 0 {
				p.state = psBodyChunkedTrailer
			} else {
				p.chunkRemaining = size
				p.state = psBodyChunkedData
			}

		case psBodyChunkedData:
			if len(p.buf) == 0 {
				return events, nil
			}
			n := uint64(len(p.buf))
			if n > p.chunkRemaining {
				n = p.chunkRemaining
			}
			chunk := p.buf[:n]
			p.buf = p.buf[n:]
			p.chunkRemaining -= n
			if n > 0 {
				events = append(events, Event{Kind: EventBodyChunk, Chunk: chunk})
			}
			if p.chunkRemaining == 0 {
				p.state = psBodyChunkedCRLF
			} else {
				return events, nil
			}

		case psBodyChunkedCRLF:
			if len(p.buf) < 2 {
				return events, nil
			}
			if p.buf[0] != '\r' || p.buf[1] != '\n' {
				return p.fail(events, errMalformedChunkCRLF), nil
			}
			p.buf = p.buf[2:]
			p.state = psBodyChunkedSize

		case psBodyChunkedTrailer:
			idx := bytes.Index(p.buf, crlf)
			if idx < 0 {
				return events, nil
			}
			line := p.buf[:idx]
			p.buf = p.buf[idx+2:]
			if len(line) == 0 {
				events = append(events, Event{Kind: EventEndOfMessage})
				p.state = psRequestLine
			}
			// A non-empty line is a trailer field; this engine has no
			// use for trailers on inbound requests, so it's discarded.
		}
	}
}

func (p *httpParser) fail(events []Event, err error) []Event {
	p.state = psError
	p.buf = nil
	return append(events, Event{Kind: EventParseError, Err: err})
}

var crlf = []byte("\r\n")

func parseRequestLine(line string) (method, target, version string, ok bool) {
	sp1 := strings.IndexByte(line, ' ')
	if sp1 < 0 {
		return "", "", "", false
	}
	rest := line[sp1+1:]
	sp2 := strings.IndexByte(rest, ' ')
	if sp2 < 0 {
		return "", "", "", false
	}
	method = line[:sp1]
	target = rest[:sp2]
	proto := rest[sp2+1:]
	switch proto {
	case "HTTP/1.1":
		version = "1.1"
	case "HTTP/1.0":
		version = "1.0"
	default:
		return "", "", "", false
	}
	if method == "" || target == "" {
		return "", "", "", false
	}
	return method, target, version, true
}

func parseHeaderLine(line []byte) (name, value string, ok bool) {
	i := bytes.IndexByte(line, ':')
	if i <= 0 {
		return "", "", false
	}
	name = string(line[:i])
	value = hdr.TrimString(string(line[i+1:]))
	return name, value, true
}

// requestFraming determines the declared body length of a request. A
// request carrying both Transfer-Encoding: chunked and Content-Length is
// not rejected: both are reported and the caller gives chunked
// precedence. Differing or unparsable Content-Length values are an error.
func requestFraming(headers Headers) (contentLength int64, hasCL bool, chunked bool, err error) {
	if te, ok := headers.Get(hdr.TransferEncoding); ok && strings.EqualFold(strings.TrimSpace(te), "chunked") {
		chunked = true
	}
	clValues := headers.Values(hdr.ContentLength)
	if len(clValues) == 0 {
		return 0, false, chunked, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(clValues[0]), 10, 64)
	if err != nil || n < 0 {
		return 0, false, chunked, errAmbiguousFraming
	}
	for _, v := range clValues[1:] {
		if strings.TrimSpace(v) != clValues[0] {
			return 0, false, chunked, errAmbiguousFraming
		}
	}
	return n, true, chunked, nil
}
