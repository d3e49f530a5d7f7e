/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package transport

import (
	"net"
	"time"

	"gitlab.com/xerra/common/go-redisclient/rediserr"
	"gitlab.com/xerra/common/go-redisclient/resp"
)

// perCommandTimeout bounds the sentinel protocol exchanges below (dial is
// bounded by the caller's context; these small command round trips use a
// fixed deadline instead, since they talk to a sentinel we just connected
// to synchronously).
const perCommandTimeout = 5 * time.Second

// doCommand writes one command and waits for its reply, the minimal sync
// exchange transport needs to talk to a sentinel without depending on the
// conn package (which itself depends on transport to dial).
func doCommand(nc net.Conn, args ...string) (resp.Response, error) {
	req := resp.NewRequest(args...)

	if err := nc.SetWriteDeadline(time.Now().Add(perCommandTimeout)); err != nil {
		return resp.Response{}, err
	}
	for _, b := range req.BufferSequence() {
		if _, err := nc.Write(b); err != nil {
			return resp.Response{}, err
		}
	}

	h := resp.NewResponseHandler()
	if err := nc.SetReadDeadline(time.Now().Add(perCommandTimeout)); err != nil {
		return resp.Response{}, err
	}
	for {
		n, err := nc.Read(h.Buffer())
		if err != nil {
			return resp.Response{}, err
		}
		if h.DataReceived(n) {
			top, _ := h.Top()
			if h.ProtocolError() {
				return resp.Response{}, rediserr.New(rediserr.ProtocolError, top.String())
			}
			return top, nil
		}
	}
}
