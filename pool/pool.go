/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package pool lends out Connections one at a time. A Connection carries
// per-socket parser state and talks to exactly one server conversation, so
// it can't be shared the way a stateless HTTP client can; callers that need
// concurrency acquire one Connection each and give it back when done.
package pool

import (
	"context"

	"github.com/jackc/puddle/v2"

	"gitlab.com/xerra/common/go-redisclient/conn"
	"gitlab.com/xerra/common/go-redisclient/transport"
)

// Pool hands out *conn.Connection values backed by a single transport
// Connector, capped at a maximum size.
type Pool struct {
	inner *puddle.Pool[*conn.Connection]
}

// New builds a Pool of at most maxSize Connections, all dialing through
// connector with the given options.
func New(connector transport.Connector, maxSize int32, opts ...conn.Option) (*Pool, error) {
	constructor := func(ctx context.Context) (*conn.Connection, error) {
		return conn.New(connector, opts...), nil
	}
	destructor := func(c *conn.Connection) {
		c.Close()
	}

	inner, err := puddle.NewPool(&puddle.Config[*conn.Connection]{
		Constructor: constructor,
		Destructor:  destructor,
		MaxSize:     maxSize,
	})
	if err != nil {
		return nil, err
	}
	return &Pool{inner: inner}, nil
}

// Leased is a Connection on loan from the Pool. Release puts it back;
// Destroy discards it instead, for a Connection the caller knows is bad.
type Leased struct {
	resource *puddle.Resource[*conn.Connection]
}

// Connection returns the leased *conn.Connection.
func (l *Leased) Connection() *conn.Connection {
	return l.resource.Value()
}

// Release returns the Connection to the Pool for reuse.
func (l *Leased) Release() {
	l.resource.Release()
}

// Destroy closes the Connection and removes it from the Pool instead of
// returning it, for a caller that hit a transport-level error and doesn't
// trust the socket's state anymore.
func (l *Leased) Destroy() {
	l.resource.Destroy()
}

// Acquire blocks until a Connection is available or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Leased, error) {
	res, err := p.inner.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Leased{resource: res}, nil
}

// Close tears down every idle Connection and refuses further Acquire calls.
func (p *Pool) Close() {
	p.inner.Close()
}

// Stat reports the pool's current size, idle count, and in-use count.
func (p *Pool) Stat() *puddle.Stat {
	return p.inner.Stat()
}
