/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package engine implements the per-connection HTTP/1.x protocol state
// machine that sits between a transport (net.Conn or similar) and an
// asynchronous application handler. It parses requests incrementally,
// pipelines them, streams bodies to the application over channels, and
// serializes responses back onto the wire with correct framing and
// keep-alive behavior. Listener setup, TLS, routing, and the
// application's business logic are the caller's responsibility.
package engine
