/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package conn

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/xerra/common/go-redisclient/rediserr"
	"gitlab.com/xerra/common/go-redisclient/resp"
)

// pipeConnector hands out one side of a net.Pipe per Connect call, running
// a scripted server on the other side. It also records the raw bytes it
// read for each request, in order, so tests can pin exactly what was sent
// on the wire (e.g. the SELECT issued on a fresh connection).
type pipeConnector struct {
	t       *testing.T
	replies [][]string
	calls   int

	mu      sync.Mutex
	written [][]byte
}

func (p *pipeConnector) Connect(ctx context.Context) (net.Conn, error) {
	replies := p.replies[p.calls]
	p.calls++

	client, server := net.Pipe()
	go func() {
		defer server.Close()
		h := resp.NewResponseHandler()
		for _, reply := range replies {
			var received []byte
			for {
				buf := h.Buffer()
				n, err := server.Read(buf)
				if err != nil {
					return
				}
				received = append(received, buf[:n]...)
				if h.DataReceived(n) {
					h.Commit(false)
					break
				}
			}
			p.mu.Lock()
			p.written = append(p.written, received)
			p.mu.Unlock()
			if _, err := server.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()
	return client, nil
}

func (p *pipeConnector) writtenRequests() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.written...)
}

func TestConnectionTransmitSimpleCommand(t *testing.T) {
	connector := &pipeConnector{t: t, replies: [][]string{{"+PONG\r\n"}}}
	c := New(connector)

	got, err := c.Transmit(context.Background(), resp.NewRequest("PING"))
	require.NoError(t, err)
	require.Equal(t, resp.SimpleString, got.Kind())
	require.Equal(t, "PONG", got.String())
}

func TestConnectionSelectsDatabaseOnConnect(t *testing.T) {
	connector := &pipeConnector{t: t, replies: [][]string{
		{"+OK\r\n", "+PONG\r\n"}, // SELECT, then PING
	}}
	c := New(connector, WithIndex(3))

	got, err := c.Transmit(context.Background(), resp.NewRequest("PING"))
	require.NoError(t, err)
	require.Equal(t, "PONG", got.String())

	requests := connector.writtenRequests()
	require.Len(t, requests, 2)
	require.Equal(t, "*2\r\n$6\r\nSELECT\r\n$1\r\n3\r\n", string(requests[0]))
	require.Equal(t, "*1\r\n$4\r\nPING\r\n", string(requests[1]))
}

func TestConnectionTransmitPipelineDrainsAllReplies(t *testing.T) {
	connector := &pipeConnector{t: t, replies: [][]string{
		{"+OK\r\n+OK\r\n:1\r\n"},
	}}
	c := New(connector)

	p := resp.NewPipeline()
	p.Add(resp.NewRequest("SET", "a", "1")).
		Add(resp.NewRequest("SET", "b", "2")).
		Add(resp.NewRequest("DEL", "c"))

	got, err := c.TransmitPipeline(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "OK", got[0].String())
	require.Equal(t, "OK", got[1].String())
	require.Equal(t, resp.Integer, got[2].Kind())
}

func TestConnectionAsyncTransmit(t *testing.T) {
	connector := &pipeConnector{t: t, replies: [][]string{{"+PONG\r\n"}}}
	c := New(connector)

	ch := c.AsyncTransmit(context.Background(), resp.NewRequest("PING"))
	result := <-ch
	require.NoError(t, result.Err)
	require.Equal(t, "PONG", result.Response.String())
}

func TestConnectionPromotesMalformedReplyAsProtocolErrorNotServerError(t *testing.T) {
	connector := &pipeConnector{t: t, replies: [][]string{{"?garbage\r\n"}}}
	c := New(connector)

	_, err := c.Transmit(context.Background(), resp.NewRequest("PING"))
	require.Error(t, err)
	require.True(t, rediserr.Is(err, rediserr.ProtocolError))
	require.False(t, rediserr.Is(err, rediserr.ServerError))
}

func TestConnectionPassesGenuineServerErrorReplyThrough(t *testing.T) {
	connector := &pipeConnector{t: t, replies: [][]string{{"-ERR bad command\r\n"}}}
	c := New(connector)

	top, err := c.Transmit(context.Background(), resp.NewRequest("BOGUS"))
	require.NoError(t, err)
	require.Equal(t, resp.Error, top.Kind())
	require.Equal(t, "ERR bad command", top.String())
}
