/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package transport

import (
	"context"
	"net"
)

// SingleHost dials exactly one host. It's the base case every other
// Connector ultimately bottoms out in.
type SingleHost struct {
	host   Host
	dialer Dialer
}

// NewSingleHost returns a Connector for a fixed host, dialing with net.Dialer
// unless dialer is non-nil (tests substitute a fake there).
func NewSingleHost(host Host, dialer Dialer) *SingleHost {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &SingleHost{host: host, dialer: dialer}
}

// Host reports the address this Connector dials.
func (s *SingleHost) Host() Host { return s.host }

// Connect dials the host, returning whatever error the dialer produces.
func (s *SingleHost) Connect(ctx context.Context) (net.Conn, error) {
	return s.dialer.DialContext(ctx, "tcp", s.host.Address())
}
