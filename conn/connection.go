/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package conn implements Connection, the single-threaded socket wrapper
// that sits between the resp wire codec and the command bindings. A
// Connection is not shared between simultaneous callers; pool.Pool exists
// precisely so callers that need concurrency acquire one Connection each.
package conn

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/rs/xid"

	"gitlab.com/xerra/common/go-redisclient/metrics"
	"gitlab.com/xerra/common/go-redisclient/rediserr"
	"gitlab.com/xerra/common/go-redisclient/resp"
	"gitlab.com/xerra/common/go-redisclient/sink"
	"gitlab.com/xerra/common/go-redisclient/transport"
)

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithIndex selects a non-default database index. The Connection issues a
// SELECT immediately after every (re)connect to keep the server side in
// sync with it.
func WithIndex(index int64) Option {
	return func(c *Connection) { c.index = index }
}

// WithSink attaches a notification sink; the default is sink.Nop.
func WithSink(s sink.Sink) Option {
	return func(c *Connection) { c.sink = s }
}

// WithStats attaches a metrics.Stats this Connection updates as it works.
// Without it, counters are simply not recorded.
func WithStats(s *metrics.Stats) Option {
	return func(c *Connection) { c.stats = s }
}

// Connection is a lazily-dialed, auto-reconnecting socket to a single
// logical server (wherever the Connector currently resolves that to). It
// holds exactly one reply's worth of parser state at a time and is meant to
// be used from one goroutine at a time.
type Connection struct {
	connector transport.Connector
	index     int64
	sink      sink.Sink
	stats     *metrics.Stats
	id        xid.ID

	socket          net.Conn
	lastServerError string
}

// New returns a Connection that dials through connector on first use.
func New(connector transport.Connector, opts ...Option) *Connection {
	c := &Connection{
		connector: connector,
		sink:      sink.Nop,
		id:        xid.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID is the correlation id stamped at construction, carried through log
// lines and metric labels across reconnects.
func (c *Connection) ID() xid.ID { return c.id }

// ensureOpen dials a fresh socket if none is open, then (re)selects the
// configured database index. A SELECT failure is surfaced to the caller and
// the socket is left closed, so the next call redials from scratch rather
// than silently running commands against the wrong database.
func (c *Connection) ensureOpen(ctx context.Context) error {
	if c.socket != nil {
		return nil
	}

	socket, err := c.connector.Connect(ctx)
	if err != nil {
		return err
	}

	if c.index != 0 {
		if err := selectIndex(socket, c.index); err != nil {
			socket.Close()
			return err
		}
	}

	c.socket = socket
	if c.stats != nil {
		c.stats.AddReconnect()
	}
	c.sink.Trace("conn[%s]: connected", c.id)
	return nil
}

func selectIndex(socket net.Conn, index int64) error {
	req := resp.NewRequest("SELECT", strconv.FormatInt(index, 10))
	for _, b := range req.BufferSequence() {
		if _, err := socket.Write(b); err != nil {
			return err
		}
	}

	h := resp.NewResponseHandler()
	for {
		n, err := socket.Read(h.Buffer())
		if err != nil {
			return err
		}
		if h.DataReceived(n) {
			top, _ := h.Top()
			if h.ProtocolError() {
				return rediserr.New(rediserr.ProtocolError, top.String())
			}
			if top.Kind() == resp.Error {
				return rediserr.New(rediserr.ServerError, top.String())
			}
			return nil
		}
	}
}

// Transmit writes one request and waits for its reply. If the write fails
// before any reconnect has been attempted for it, the Connection redials
// once and retries; a second failure is returned to the caller.
func (c *Connection) Transmit(ctx context.Context, req *resp.Request) (resp.Response, error) {
	res := resp.NewResponseHandler()

	for attempt := 0; ; attempt++ {
		if err := c.ensureOpen(ctx); err != nil {
			return resp.Response{}, err
		}

		err := c.writeAll(req.BufferSequence())
		if err != nil {
			c.closeSocket()
			if attempt == 0 {
				continue
			}
			return resp.Response{}, err
		}
		break
	}

	for {
		n, err := c.socket.Read(res.Buffer())
		if err != nil {
			c.closeSocket()
			return resp.Response{}, err
		}
		if c.stats != nil {
			c.stats.AddBytesIn(n)
		}
		if res.DataReceived(n) {
			top, _ := res.Top()
			if c.stats != nil {
				c.stats.AddBufferGrowth(res.BufferGrowths())
			}
			if res.ProtocolError() {
				c.closeSocket()
				if c.stats != nil {
					c.stats.AddProtocolError()
				}
				return resp.Response{}, rediserr.New(rediserr.ProtocolError, top.String())
			}
			return top, nil
		}
	}
}

// TransmitPipeline writes every request in pipeline in a single write,
// then drains exactly pipeline.RequestCount() replies, the way the
// original Connection::transmit(const Pipeline&, ec) does: each socket read
// is followed by committing as many already-buffered replies as are ready
// before reading again.
func (c *Connection) TransmitPipeline(ctx context.Context, pipeline *resp.Pipeline) ([]resp.Response, error) {
	if err := c.ensureOpen(ctx); err != nil {
		return nil, err
	}

	if err := c.writeAll(pipeline.BufferSequence()); err != nil {
		c.closeSocket()
		return nil, err
	}

	expected := pipeline.RequestCount()
	replies := make([]resp.Response, 0, expected)
	res := resp.NewResponseHandler()

	for len(replies) < expected {
		for {
			n, err := c.socket.Read(res.Buffer())
			if err != nil {
				c.closeSocket()
				return replies, rediserr.New(rediserr.IncompleteResponse, fmt.Sprintf("pipeline expected %d replies, got %d: %v", expected, len(replies), err))
			}
			if c.stats != nil {
				c.stats.AddBytesIn(n)
			}
			if res.DataReceived(n) {
				break
			}
		}

		for {
			top, _ := res.Top()
			if res.ProtocolError() {
				c.closeSocket()
				if c.stats != nil {
					c.stats.AddProtocolError()
				}
				return replies, rediserr.New(rediserr.ProtocolError, top.String())
			}
			replies = append(replies, top)
			if len(replies) == expected || !res.Commit(true) {
				break
			}
		}
	}

	if c.stats != nil {
		c.stats.AddBufferGrowth(res.BufferGrowths())
	}
	return replies, nil
}

// Result is what AsyncTransmit delivers: Go's equivalent of the original
// client's async_command completion handler.
type Result struct {
	Response resp.Response
	Err      error
}

// AsyncTransmit runs Transmit on its own goroutine and reports the outcome
// on the returned channel, which is always sent to exactly once and never
// closed without a send.
func (c *Connection) AsyncTransmit(ctx context.Context, req *resp.Request) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		res, err := c.Transmit(ctx, req)
		ch <- Result{Response: res, Err: err}
	}()
	return ch
}

// writeAll joins the spans of seq into one contiguous buffer and hands it to
// the socket in a single Write call.
func (c *Connection) writeAll(seq [][]byte) error {
	size := 0
	for _, b := range seq {
		size += len(b)
	}
	buf := make([]byte, 0, size)
	for _, b := range seq {
		buf = append(buf, b...)
	}
	n, err := c.socket.Write(buf)
	if err != nil {
		return err
	}
	if c.stats != nil {
		c.stats.AddBytesOut(n)
	}
	return nil
}

func (c *Connection) closeSocket() {
	if c.socket != nil {
		c.socket.Close()
		c.socket = nil
	}
}

// Close shuts down the underlying socket, if one is open. The Connection
// remains usable afterwards; the next Transmit reconnects.
func (c *Connection) Close() error {
	if c.socket == nil {
		return nil
	}
	err := c.socket.Close()
	c.socket = nil
	return err
}

// RemoteEndpoint reports the address of the currently connected socket, if
// any.
func (c *Connection) RemoteEndpoint() (host string, port int, ok bool) {
	if c.socket == nil {
		return "", 0, false
	}
	addr, ok := c.socket.RemoteAddr().(*net.TCPAddr)
	if !ok {
		return "", 0, false
	}
	return addr.IP.String(), addr.Port, true
}

// LastServerError is the text of the most recent server-side Error reply a
// command binding promoted via SetLastServerError.
func (c *Connection) LastServerError() string {
	return c.lastServerError
}

// SetLastServerError records the server's error text, called by command
// bindings in the commands package when a reply's top-level kind is Error.
func (c *Connection) SetLastServerError(message string) {
	c.lastServerError = message
}
