/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/badu/h1engine/internal/hdr"
)

var (
	errNilHandler         = errors.New("engine: application returned a nil handler")
	errIncompleteResponse = errors.New("engine: application returned without completing the response")
)

// Conn is one connection's worth of protocol state: the incremental
// parser feeding a pipeline of cycles, one goroutine per in-flight
// application task, and a single writer goroutine that is the only
// thing ever allowed to call Transport.Write (spec ยง5). Its public
// surface mirrors the spec's push-based lifecycle callbacks rather
// than a pulling read loop, since that callback contract is the
// engine's real interface boundary, grounded on the teacher's
// conn.go serve loop reworked from "pull from bufio.Reader" to
// "react to externally delivered bytes".
type Conn struct {
	transport Transport
	app       App
	opts      Options
	logger    *zap.Logger

	parser   *httpParser
	pipeline *pipeline
	flow     *flowController

	clientAddr, serverAddr Addr

	current *cycle // cycle currently accumulating body bytes, if any

	ctx    context.Context
	cancel context.CancelFunc

	// group supervises the writer goroutine and every per-cycle
	// application task on this connection, the way the teacher's
	// caller supervises a fixed worker set, grounded on the errgroup
	// pattern the pack's docker-compose client uses for concurrent
	// service bring-up. Tasks never return errors that should cancel
	// their siblings, so a plain Group (no WithContext) is used
	// deliberately: one cycle's application fault must not tear down
	// other pipelined cycles on the same connection.
	group        errgroup.Group
	intakeOnce   sync.Once
	intakeClosed atomic.Bool
	closed       atomic.Bool
}

// NewConn constructs a Conn ready to drive transport through the
// application app. ConnectionMade must be called before any data is
// delivered.
func NewConn(transport Transport, app App, opts Options) *Conn {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		transport: transport,
		app:       app,
		opts:      opts,
		logger:    opts.Logger,
		parser:    newHTTPParser(opts.MaxRequestLineBytes, opts.MaxHeaderBytes),
		pipeline:  newPipeline(opts.PipelineDepth),
		flow:      newFlowController(opts.HighWaterMark, opts.LowWaterMark, opts.MaxConcurrentTasks),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ConnectionMade records the peer/local addresses and starts the
// writer goroutine. It must be called exactly once, before the first
// DataReceived.
func (c *Conn) ConnectionMade(client, server Addr) {
	c.clientAddr, c.serverAddr = client, server
	c.group.Go(c.runWriter)
}

// DataReceived feeds newly-arrived bytes into the parser and reacts
// to whatever Events fall out: advancing the pipeline, delivering body
// bytes to the application task currently receiving, and applying
// flow-control accounting. It is never called concurrently with
// itself by a well-behaved caller (spec ยง5's single-caller rule).
func (c *Conn) DataReceived(data []byte) error {
	if c.closed.Load() || c.intakeClosed.Load() {
		return nil
	}
	events, _ := c.parser.Feed(data)
	for _, evt := range events {
		if c.intakeClosed.Load() {
			// A prior event this same batch already decided the
			// connection is closing (semantic head rejection or parse
			// error); anything the parser produces after that point
			// describes bytes on a connection nothing will read again.
			break
		}
		switch evt.Kind {
		case EventRequestHead:
			c.onRequestHead(evt)
		case EventBodyChunk:
			if c.current == nil {
				continue
			}
			c.current.deliverBody(evt.Chunk, true)
			if c.flow.accountDelivered(len(evt.Chunk)) {
				c.transport.Pause()
			}
		case EventEndOfMessage:
			if c.current == nil {
				continue
			}
			c.current.deliverBody(nil, false)
			c.current = nil
		case EventParseError:
			c.onParseError(evt.Err)
			return evt.Err
		}
	}
	return nil
}

// EOFReceived signals the peer half-closed its write side: any cycle
// still waiting on a body sees a disconnect, and no further cycles
// will be pushed onto the pipeline.
func (c *Conn) EOFReceived() {
	if c.current != nil {
		c.current.abortInbound()
		c.current = nil
	}
	c.closeIntake()
}

// ConnectionLost tears the connection down: in-flight application
// tasks are released from Receive/Send (their ctx is canceled), the
// pipeline stops accepting new cycles, and the writer is left to
// drain what it can before exiting.
func (c *Conn) ConnectionLost(err error) {
	c.closed.Store(true)
	if c.current != nil {
		c.current.abortInbound()
		c.current = nil
	}
	c.closeIntake()
	c.cancel()
	if werr := c.group.Wait(); werr != nil && c.logger != nil {
		c.logger.Debug("connection teardown", zap.Error(werr))
	}
}

func (c *Conn) closeIntake() {
	c.intakeOnce.Do(func() {
		c.intakeClosed.Store(true)
		c.pipeline.closeIntake()
	})
}

func (c *Conn) onFault(f *Fault) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("cycle fault", zap.String("kind", f.Kind.String()), zap.Error(f.Unwrap()))
}

func (c *Conn) newCycle(scope Scope, reqVersion string, keepAlive bool) *cycle {
	return newCycle(scope, reqVersion, keepAlive, c.opts.BodyQueueCapacity, c.opts.OutboundQueueCapacity, c.onFault)
}

func (c *Conn) onRequestHead(evt Event) {
	scope, ok, reason := c.buildScope(evt)
	if !ok {
		cy := c.newCycle(Scope{HTTPVersion: evt.Version}, evt.Version, false)
		if !c.pipeline.push(cy) {
			// The writer already closed intake (an earlier cycle on
			// this same connection decided to close); this cycle has
			// no slot in the pipeline to be written from, so there is
			// nothing left to do with it.
			return
		}
		c.closeIntake()
		cy.fail(FaultParseError, errors.New(reason))
		return
	}
	keepAlive := requestWantsKeepAlive(evt.Version, evt.Headers)
	cy := c.newCycle(scope, evt.Version, keepAlive)
	if !c.pipeline.push(cy) {
		return
	}
	c.current = cy
	c.group.Go(func() error {
		c.runCycle(c.ctx, cy)
		return nil
	})
}

func (c *Conn) onParseError(err error) {
	if c.current != nil {
		c.current.fail(FaultParseError, err)
		c.current = nil
		c.closeIntake()
		return
	}
	cy := c.newCycle(Scope{HTTPVersion: "1.1"}, "1.1", false)
	pushed := c.pipeline.push(cy)
	c.closeIntake()
	if pushed {
		cy.fail(FaultParseError, err)
	}
}

// buildScope performs the semantic validation the teacher's conn.go
// readRequest layers on top of its low-level scanner (Host presence
// and uniqueness), then produces the ASGI-shaped Scope, lowercasing
// headers for the application view while the engine's own internal
// Headers retain on-the-wire casing (spec ยง3/ยง4.1).
func (c *Conn) buildScope(evt Event) (scope Scope, ok bool, reason string) {
	hostValues := evt.Headers.Values(hdr.Host)
	switch {
	case len(hostValues) > 1:
		return Scope{}, false, "duplicate Host header"
	case evt.Version == "1.1" && len(hostValues) == 0:
		return Scope{}, false, "missing Host header"
	case len(hostValues) == 1 && !hdr.ValidHostHeader(hostValues[0]):
		return Scope{}, false, "invalid Host header"
	}
	rawPath, query, decodedPath := splitTarget(evt.Target)
	scheme := "http"
	if c.transport.IsTLS() {
		scheme = "https"
	}
	scope = Scope{
		Type:        "http",
		HTTPVersion: evt.Version,
		Method:      evt.Method,
		Scheme:      scheme,
		Path:        decodedPath,
		RawPath:     rawPath,
		QueryString: query,
		Headers:     evt.Headers.Lowercased(),
		Client:      c.clientAddr,
		Server:      c.serverAddr,
	}
	return scope, true, ""
}

func requestWantsKeepAlive(version string, headers Headers) bool {
	v, ok := headers.Get(hdr.Connection)
	if ok {
		if hasToken(v, "close") {
			return false
		}
		if hasToken(v, "keep-alive") {
			return true
		}
	}
	return version == "1.1"
}

func hasToken(v, token string) bool {
	for _, part := range strings.Split(v, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

func (c *Conn) wrapReceive(cy *cycle) Receive {
	return func(ctx context.Context) (InboundMessage, error) {
		msg, err := cy.Receive(ctx)
		if n := len(msg.Body); n > 0 {
			if c.flow.accountConsumed(n) {
				c.transport.Resume()
			}
		}
		return msg, err
	}
}

// runCycle is the per-request application task: construct the
// handler, run it with panic recovery, and classify whatever went
// wrong (construction failure, handler error, handler panic, or
// simply returning without completing the response) into the fault
// taxonomy of spec ยง7.
func (c *Conn) runCycle(ctx context.Context, cy *cycle) {
	if err := c.flow.acquireTask(ctx); err != nil {
		cy.fail(FaultAppConstruction, err)
		return
	}
	defer c.flow.releaseTask()

	handler, cerr := c.app(cy.scope)
	if cerr != nil {
		cy.fail(FaultAppConstruction, cerr)
		return
	}
	if handler == nil {
		cy.fail(FaultAppConstruction, errNilHandler)
		return
	}

	herr := c.runHandler(ctx, cy, handler)
	if herr != nil {
		if cy.started.Load() {
			cy.fail(FaultAppAfterStart, herr)
		} else {
			cy.fail(FaultAppBeforeStart, herr)
		}
		return
	}
	if !cy.finalSent.Load() {
		if cy.started.Load() {
			cy.fail(FaultAppAfterStart, errIncompleteResponse)
		} else {
			cy.fail(FaultAppBeforeStart, errIncompleteResponse)
		}
		return
	}
	// Handler returned having legitimately completed its response and
	// nothing funneled this cycle through fail(): signal the writer
	// that outCh holds everything it is ever going to hold, so it can
	// stop waiting and decide keep-alive (writeStart's drain loop).
	cy.closeOutbound()
}

func (c *Conn) runHandler(ctx context.Context, cy *cycle, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			if c.logger != nil {
				c.logger.Error("application panic", zap.Any("recover", r), zap.String("cycle", cy.id.String()))
			}
		}
	}()
	return handler(ctx, c.wrapReceive(cy), cy.Send)
}

// runWriter is the sole goroutine permitted to write to the
// transport. It pops cycles off the pipeline strictly in arrival
// order and serializes each one's response before moving to the
// next, enforcing HTTP/1.1 pipelining order (spec ยง5).
func (c *Conn) runWriter() error {
	for {
		cy, ok := c.pipeline.next()
		if !ok {
			return c.transport.Close()
		}
		keepAlive := c.writeCycle(cy)
		cy.complete()
		if !keepAlive {
			c.closeIntake()
			return c.transport.Close()
		}
	}
}

func (c *Conn) writeCycle(cy *cycle) bool {
	msg, ok := <-cy.outCh
	if !ok {
		return false
	}
	switch msg.Kind {
	case outboundSynth500:
		status := msg.Status
		if status == 0 {
			status = 500
		}
		c.writeSynthesized(cy, status)
		// Every synthesized fault response closes the connection per
		// spec ยง7's table, regardless of what the request asked for.
		return false
	case outboundAbort:
		return false
	case OutboundStart:
		return c.writeStart(cy, msg)
	default:
		c.writeSynthesized(cy, 500)
		return false
	}
}

func (c *Conn) writeStart(cy *cycle, start OutboundMessage) bool {
	status := start.Status
	if status == 0 {
		status = 200
	}
	headers := start.Headers

	cl, hasCL := 0, false
	if v, ok := headers.Get(hdr.ContentLength); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n >= 0 {
			cl, hasCL = int(n), true
		}
	}
	explicitClose := false
	if v, ok := headers.Get(hdr.Connection); ok && hasToken(v, "close") {
		explicitClose = true
	}
	keepAlive := cy.keepAlive && !explicitClose
	useChunked := !hasCL && cy.reqVersion == "1.1" && bodyAllowedForStatus(status)
	if !hasCL && !useChunked {
		// No framing was declared and chunked isn't applicable either
		// (HTTP/1.0, or a status that forbids a body per
		// bodyAllowedForStatus, e.g. 204/304/1xx): the body, if any,
		// can only be delimited by closing the connection. This also
		// forces a close for a bodyless HTTP/1.1 response that omits
		// Content-Length entirely even though nothing actually needs
		// close-delimiting; an application that wants keep-alive on
		// such a response should send an explicit "Content-Length: 0".
		keepAlive = false // connection-close-delimited body
	}

	var buf bytes.Buffer
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(status))
	buf.WriteByte(' ')
	buf.WriteString(reasonPhrase(status))
	buf.WriteString("\r\n")
	for _, f := range headers {
		switch {
		case strings.EqualFold(f.Name, hdr.ContentLength),
			strings.EqualFold(f.Name, hdr.TransferEncoding),
			strings.EqualFold(f.Name, hdr.Connection):
			continue // re-emitted below under engine control
		}
		buf.WriteString(hdr.CanonicalHeaderKey(f.Name))
		buf.WriteString(": ")
		buf.WriteString(hdr.SanitizeFieldValue(f.Value))
		buf.WriteString("\r\n")
	}
	if hasCL {
		fmt.Fprintf(&buf, "%s: %d\r\n", hdr.ContentLength, cl)
	} else if useChunked {
		fmt.Fprintf(&buf, "%s: chunked\r\n", hdr.TransferEncoding)
	}
	if keepAlive {
		fmt.Fprintf(&buf, "%s: keep-alive\r\n", hdr.Connection)
	} else {
		fmt.Fprintf(&buf, "%s: close\r\n", hdr.Connection)
	}
	if _, ok := headers.Get(hdr.Date); !ok {
		fmt.Fprintf(&buf, "%s: %s\r\n", hdr.Date, time.Now().UTC().Format(hdr.TimeFormat))
	}
	if _, ok := headers.Get(hdr.ServerHeader); !ok {
		fmt.Fprintf(&buf, "%s: h1engine\r\n", hdr.ServerHeader)
	}
	buf.WriteString("\r\n")
	if _, err := c.transport.Write(buf.Bytes()); err != nil {
		return false
	}

	sent := 0
	finalWritten := false
	for {
		msg, ok := <-cy.outCh
		if !ok {
			// cycle.closeOutbound fired with nothing else queued behind
			// it: the application completed cleanly and outCh is now
			// proof no post-completion misuse ever followed the final
			// body message (cycle.fail always pushes outboundAbort
			// before it closes outCh, so that would have been drained
			// first below, not raced against this close).
			return finalWritten && keepAlive
		}
		switch msg.Kind {
		case outboundAbort:
			return false
		case OutboundBody:
			if finalWritten {
				// A conforming application never sends anything past
				// its final body message; cycle.Send funnels any such
				// attempt into outboundAbort instead, so this is purely
				// defensive.
				return false
			}
			if len(msg.Body) > 0 {
				if err := c.writeBodyChunk(useChunked, msg.Body); err != nil {
					return false
				}
				sent += len(msg.Body)
			}
			if !msg.MoreBody {
				if useChunked {
					c.transport.Write([]byte("0\r\n\r\n"))
				}
				if hasCL && sent != cl {
					if c.logger != nil {
						c.logger.Warn("content-length mismatch, closing connection",
							zap.Int("declared", cl), zap.Int("sent", sent))
					}
					return false
				}
				// Don't decide keep-alive yet: wait for outCh to
				// actually close (normal completion) or yield an
				// outboundAbort (a post-completion protocol misuse,
				// spec ยง7) before returning, so a fault the application
				// commits after its final body message can never be
				// silently lost to channel-read ordering.
				finalWritten = true
			}
		default:
			return false
		}
	}
}

func (c *Conn) writeBodyChunk(chunked bool, body []byte) error {
	if !chunked {
		_, err := c.transport.Write(body)
		return err
	}
	if _, err := fmt.Fprintf(c.transport, "%x\r\n", len(body)); err != nil {
		return err
	}
	if _, err := c.transport.Write(body); err != nil {
		return err
	}
	_, err := c.transport.Write([]byte("\r\n"))
	return err
}

func (c *Conn) writeSynthesized(cy *cycle, status int) {
	body := []byte(reasonPhrase(status))
	var buf bytes.Buffer
	buf.WriteString("HTTP/1.1 ")
	buf.WriteString(strconv.Itoa(status))
	buf.WriteByte(' ')
	buf.WriteString(reasonPhrase(status))
	buf.WriteString("\r\n")
	fmt.Fprintf(&buf, "%s: %d\r\n", hdr.ContentLength, len(body))
	fmt.Fprintf(&buf, "%s: text/plain; charset=utf-8\r\n", hdr.ContentType)
	// A synthesized fault response always closes the connection (spec
	// ยง7), so cy.keepAlive (the request's own preference) never applies
	// here.
	fmt.Fprintf(&buf, "%s: close\r\n", hdr.Connection)
	fmt.Fprintf(&buf, "%s: %s\r\n", hdr.Date, time.Now().UTC().Format(hdr.TimeFormat))
	fmt.Fprintf(&buf, "%s: h1engine\r\n", hdr.ServerHeader)
	buf.WriteString("\r\n")
	buf.Write(body)
	c.transport.Write(buf.Bytes())
}

// Serve is a convenience helper that drives Conn from a real net.Conn:
// it wires ConnectionMade/DataReceived/EOFReceived/ConnectionLost to a
// plain read loop, honoring the transport's Pause/Resume signal
// between reads. Most embedders will want this; anything needing a
// different I/O model (e.g. an externally multiplexed event loop) can
// call the four lifecycle methods directly instead.
func Serve(nc net.Conn, app App, opts Options) error {
	transport := NewNetTransport(nc)
	conn := NewConn(transport, app, opts)

	local, remote := nc.LocalAddr(), nc.RemoteAddr()
	conn.ConnectionMade(addrFromNet(remote), addrFromNet(local))

	buf := make([]byte, 32*1024)
	var loopErr error
	for {
		transport.waitIfPaused()
		n, err := nc.Read(buf)
		if n > 0 {
			if derr := conn.DataReceived(buf[:n]); derr != nil {
				loopErr = derr
				break
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				conn.EOFReceived()
			} else {
				loopErr = err
			}
			break
		}
	}
	conn.ConnectionLost(loopErr)
	return loopErr
}

func addrFromNet(a net.Addr) Addr {
	if a == nil {
		return Addr{}
	}
	host, portStr, err := net.SplitHostPort(a.String())
	if err != nil {
		return Addr{Host: a.String()}
	}
	port, _ := strconv.Atoi(portStr)
	return Addr{Host: host, Port: port}
}
