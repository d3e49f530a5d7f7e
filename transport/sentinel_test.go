/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/xerra/common/go-redisclient/resp"
)

// scriptedServer answers every request it receives, in order, with the next
// entry in replies (already RESP-encoded), ignoring what was actually
// asked -- enough to drive Sentinel.Connect's fixed command sequence.
func scriptedServer(t *testing.T, replies []string) net.Conn {
	t.Helper()
	client, server := net.Pipe()

	go func() {
		defer server.Close()
		h := resp.NewResponseHandler()
		for _, reply := range replies {
			for {
				n, err := server.Read(h.Buffer())
				if err != nil {
					return
				}
				if h.DataReceived(n) {
					h.Commit(false)
					break
				}
			}
			if _, err := server.Write([]byte(reply)); err != nil {
				return
			}
		}
	}()

	return client
}

func TestSentinelConnectDiscoversAndVerifiesMaster(t *testing.T) {
	sentinelConn := scriptedServer(t, []string{
		"*2\r\n$9\r\n127.0.0.1\r\n$4\r\n6379\r\n",                         // get-master-addr-by-name
		"*1\r\n*6\r\n$4\r\nname\r\n$8\r\nsentinel\r\n$2\r\nip\r\n$9\r\n127.0.0.1\r\n$4\r\nport\r\n$5\r\n26379\r\n", // sentinels
	})
	masterConn := scriptedServer(t, []string{
		"*3\r\n$6\r\nmaster\r\n$10\r\n3182033415\r\n$0\r\n\r\n", // ROLE
	})

	// The sentinel dial (inside mh.Connect) and the master dial (inside
	// NewSingleHost(...).Connect) go through the same fake Dialer; route by
	// which connection hasn't been handed out yet.
	conns := []net.Conn{sentinelConn, masterConn}
	dialer := &sequenceDialer{conns: conns}

	sn := NewSentinel([]Host{{Name: "sentinel-1", Port: 26379}}, "mymaster", WithSentinelDialer(dialer))

	got, err := sn.Connect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
}

type sequenceDialer struct {
	conns []net.Conn
	next  int
}

func (d *sequenceDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	c := d.conns[d.next]
	d.next++
	return c, nil
}

func TestSentinelConnectGivesUpWhenNoSentinelsConfigured(t *testing.T) {
	sn := NewSentinel(nil, "mymaster")
	sn.backoff = time.Millisecond
	_, err := sn.Connect(context.Background())
	require.Error(t, err)
}
