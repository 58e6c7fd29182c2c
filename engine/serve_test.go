/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeRoundTripOverNetPipe(t *testing.T) {
	server, client := net.Pipe()

	app := AdaptSingleStage(func(ctx context.Context, scope Scope, recv Receive, send Send) error {
		assert.Equal(t, "/ping", scope.Path)
		if err := send(ctx, OutboundMessage{Kind: OutboundStart, Status: 200, Headers: Headers{
			{Name: "Content-Length", Value: "2"},
		}}); err != nil {
			return err
		}
		return send(ctx, OutboundMessage{Kind: OutboundBody, Body: []byte("ok")})
	})

	done := make(chan error, 1)
	go func() {
		done <- Serve(server, app, Options{})
	}()

	_, werr := client.Write([]byte("GET /ping HTTP/1.1\r\nHost: example.org\r\nConnection: close\r\n\r\n"))
	require.NoError(t, werr)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(client)
	status, rerr := reader.ReadString('\n')
	require.NoError(t, rerr)
	assert.Contains(t, status, "200")

	rest, rerr := io.ReadAll(reader)
	require.NoError(t, rerr)
	assert.Contains(t, string(rest), "ok")

	client.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after client closed")
	}
}

func TestAddrFromNetParsesHostPort(t *testing.T) {
	a := addrFromNet(&net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 8080})
	assert.Equal(t, "10.0.0.1", a.Host)
	assert.Equal(t, 8080, a.Port)
}

func TestAddrFromNetNilIsZeroValue(t *testing.T) {
	a := addrFromNet(nil)
	assert.Equal(t, Addr{}, a)
}
