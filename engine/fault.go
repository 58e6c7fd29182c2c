/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import "fmt"

// FaultKind enumerates the error taxonomy of spec ยง7. The core never
// surfaces a Go error to its caller for these; each becomes a
// synthesized response, a connection close, or both.
type FaultKind int

const (
	FaultParseError FaultKind = iota
	FaultAppConstruction
	FaultAppBeforeStart
	FaultAppAfterStart
	FaultProtocolMisuse
	FaultFraming
	FaultTransportWrite
)

func (k FaultKind) String() string {
	switch k {
	case FaultParseError:
		return "parse_error"
	case FaultAppConstruction:
		return "app_construction"
	case FaultAppBeforeStart:
		return "app_before_start"
	case FaultAppAfterStart:
		return "app_after_start"
	case FaultProtocolMisuse:
		return "protocol_misuse"
	case FaultFraming:
		return "framing_violation"
	case FaultTransportWrite:
		return "transport_write"
	default:
		return "unknown"
	}
}

// Fault records a protocol- or application-level failure and the
// recovery it triggers (synthesize a response, close the connection,
// or both).
type Fault struct {
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

func newFault(kind FaultKind, err error) *Fault {
	return &Fault{Kind: kind, Err: err}
}
