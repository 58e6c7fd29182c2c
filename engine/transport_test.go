/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetTransportWriteAndClose(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	nt := NewNetTransport(server)
	defer nt.Close()

	done := make(chan struct{})
	var n int
	var err error
	go func() {
		n, err = nt.Write([]byte("hello"))
		close(done)
	}()

	buf := make([]byte, 5)
	_, rerr := client.Read(buf)
	require.NoError(t, rerr)
	<-done
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
}

func TestNetTransportIsTLSFalseForPlainConn(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	nt := NewNetTransport(server)
	defer nt.Close()
	assert.False(t, nt.IsTLS())
}

func TestNetTransportPauseResumeGatesReadLoop(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	nt := NewNetTransport(server)
	defer nt.Close()

	nt.Pause()

	unblocked := make(chan struct{})
	go func() {
		nt.waitIfPaused()
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("waitIfPaused returned before Resume was called")
	case <-time.After(30 * time.Millisecond):
	}

	nt.Resume()

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("waitIfPaused did not unblock after Resume")
	}
}

func TestNetTransportWaitIfPausedNoOpWhenNotPaused(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	nt := NewNetTransport(server)
	defer nt.Close()

	done := make(chan struct{})
	go func() {
		nt.waitIfPaused()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waitIfPaused blocked with no Pause in effect")
	}
}
