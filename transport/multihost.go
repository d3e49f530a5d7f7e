/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/sony/gobreaker/v2"

	"gitlab.com/xerra/common/go-redisclient/rediserr"
	"gitlab.com/xerra/common/go-redisclient/sink"
)

// MultiHost tries an ordered list of hosts, returning the first one that
// accepts a connection. ShiftHosts moves the host that was tried first to
// the back of the list, so a host that's down for a while stops being the
// first (and slowest) thing every dial attempt has to fail against.
type MultiHost struct {
	mu     sync.RWMutex
	hosts  []Host
	dialer Dialer
	sink   sink.Sink

	breaker *gobreaker.CircuitBreaker[net.Conn]
}

// MultiHostOption configures a MultiHost at construction time.
type MultiHostOption func(*MultiHost)

// WithSink attaches a notification sink; the default is sink.Nop.
func WithSink(s sink.Sink) MultiHostOption {
	return func(m *MultiHost) { m.sink = s }
}

// WithDialer substitutes the Dialer every host is dialed with.
func WithDialer(d Dialer) MultiHostOption {
	return func(m *MultiHost) { m.dialer = d }
}

// NewMultiHost returns a Connector that tries hosts in order, in a copy of
// the slice given (callers may reuse or mutate their own slice afterwards).
func NewMultiHost(hosts []Host, opts ...MultiHostOption) *MultiHost {
	m := &MultiHost{
		hosts: append([]Host(nil), hosts...),
		sink:  sink.Nop,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dialer == nil {
		m.dialer = &net.Dialer{}
	}
	m.breaker = gobreaker.NewCircuitBreaker[net.Conn](gobreaker.Settings{
		Name: "redisclient-multihost",
	})
	return m
}

// Hosts returns a snapshot of the current host order.
func (m *MultiHost) Hosts() []Host {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Host(nil), m.hosts...)
}

// ShiftHosts rotates the host that was tried first this round to the back
// of the list, so the next round tries it last instead of fixating on a
// node that keeps answering but disagreeing with its advertised role.
func (m *MultiHost) ShiftHosts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.hosts) > 1 {
		first := m.hosts[0]
		copy(m.hosts, m.hosts[1:])
		m.hosts[len(m.hosts)-1] = first
	}
}

// Connect tries each host in order, returning the first live connection. If
// every host in the list refuses, or the circuit is open because the whole
// list has been failing, it reports NoUsableServer.
func (m *MultiHost) Connect(ctx context.Context) (net.Conn, error) {
	hosts := m.Hosts()
	if len(hosts) == 0 {
		return nil, rediserr.New(rediserr.NoUsableServer, "no hosts configured")
	}

	var lastErr error
	for _, h := range hosts {
		conn, err := m.breaker.Execute(func() (net.Conn, error) {
			return m.dialer.DialContext(ctx, "tcp", h.Address())
		})
		if err == nil {
			m.sink.Trace("transport: connected to %s", h)
			return conn, nil
		}
		m.sink.Trace("transport: failed to connect to %s: %v", h, err)
		lastErr = err
	}

	return nil, rediserr.New(rediserr.NoUsableServer, fmt.Sprintf("tried %d hosts, last error: %v", len(hosts), lastErr))
}
