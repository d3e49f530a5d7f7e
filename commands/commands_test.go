/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package commands

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/xerra/common/go-redisclient/conn"
	"gitlab.com/xerra/common/go-redisclient/rediserr"
	"gitlab.com/xerra/common/go-redisclient/resp"
)

// scriptedConnector answers each Connect call with a fresh net.Pipe backed
// by a goroutine that replies to requests in order, ignoring their content.
type scriptedConnector struct {
	replies []string
}

func (s *scriptedConnector) Connect(ctx context.Context) (net.Conn, error) {
	client, server := net.Pipe()
	go func() {
		defer server.Close()
		h := resp.NewResponseHandler()
		for _, reply := range s.replies {
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
	return client, nil
}

func newTestConnection(replies ...string) *conn.Connection {
	return conn.New(&scriptedConnector{replies: replies})
}

func TestGetFound(t *testing.T) {
	c := newTestConnection("$5\r\nhello\r\n")
	value, ok, err := Get(context.Background(), c, "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", string(value))
}

func TestGetMissing(t *testing.T) {
	c := newTestConnection("$-1\r\n")
	_, ok, err := Get(context.Background(), c, "key")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetWithNXConditionNotMet(t *testing.T) {
	c := newTestConnection("$-1\r\n")
	ok, err := Set(context.Background(), c, "key", []byte("v"), SetOptions{Condition: SetIfNotExists})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetPlain(t *testing.T) {
	c := newTestConnection("+OK\r\n")
	ok, err := Set(context.Background(), c, "key", []byte("v"), SetOptions{})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIncr(t *testing.T) {
	c := newTestConnection(":42\r\n")
	got, err := Incr(context.Background(), c, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(42), got)
}

func TestPingSuccess(t *testing.T) {
	c := newTestConnection("+PONG\r\n")
	require.NoError(t, Ping(context.Background(), c))
}

func TestPingUnexpectedReply(t *testing.T) {
	c := newTestConnection("+WRONG\r\n")
	err := Ping(context.Background(), c)
	require.Error(t, err)
	require.True(t, rediserr.Is(err, rediserr.ProtocolError))
}

func TestRole(t *testing.T) {
	c := newTestConnection("*3\r\n$6\r\nmaster\r\n:0\r\n*0\r\n")
	role, err := Role(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, "master", role)
}

func TestServerErrorIsPromoted(t *testing.T) {
	c := newTestConnection("-WRONGTYPE value is not an integer\r\n")
	_, err := Incr(context.Background(), c, "key")
	require.Error(t, err)
	require.True(t, rediserr.Is(err, rediserr.ServerError))
	require.Equal(t, "WRONGTYPE value is not an integer", c.LastServerError())
}

func TestHSetAndHGet(t *testing.T) {
	c := newTestConnection(":1\r\n")
	created, err := HSet(context.Background(), c, "h", "f", []byte("v"))
	require.NoError(t, err)
	require.True(t, created)

	c2 := newTestConnection("$1\r\nv\r\n")
	value, ok, err := HGet(context.Background(), c2, "h", "f")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(value))
}

func TestSentinelGetMasterAddrByName(t *testing.T) {
	c := newTestConnection("*2\r\n$9\r\n127.0.0.1\r\n$4\r\n6379\r\n")
	host, port, err := SentinelGetMasterAddrByName(context.Background(), c, "mymaster")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", host)
	require.Equal(t, int64(6379), port)
}

func TestGetAsyncDeliversValue(t *testing.T) {
	c := newTestConnection("$5\r\nhello\r\n")
	result := <-GetAsync(context.Background(), c, "key")
	require.NoError(t, result.Err)
	require.True(t, result.Value.OK)
	require.Equal(t, "hello", string(result.Value.Value))
}

func TestIncrAsyncDeliversValue(t *testing.T) {
	c := newTestConnection(":42\r\n")
	result := <-IncrAsync(context.Background(), c, "counter")
	require.NoError(t, result.Err)
	require.Equal(t, int64(42), result.Value)
}

func TestIncrAsyncVoidDiscardsValue(t *testing.T) {
	c := newTestConnection(":42\r\n")
	err := <-IncrAsyncVoid(context.Background(), c, "counter")
	require.NoError(t, err)
}

func TestPingAsyncVoidSuccess(t *testing.T) {
	c := newTestConnection("+PONG\r\n")
	require.NoError(t, <-PingAsyncVoid(context.Background(), c))
}

func TestSetAsyncPromotesServerError(t *testing.T) {
	c := newTestConnection("-WRONGTYPE value is not an integer\r\n")
	result := <-SetAsync(context.Background(), c, "key", []byte("v"), SetOptions{})
	require.Error(t, result.Err)
	require.True(t, rediserr.Is(result.Err, rediserr.ServerError))
	require.Equal(t, "WRONGTYPE value is not an integer", c.LastServerError())
}

func TestSentinelGetMasterAddrByNameAsync(t *testing.T) {
	c := newTestConnection("*2\r\n$9\r\n127.0.0.1\r\n$4\r\n6379\r\n")
	result := <-SentinelGetMasterAddrByNameAsync(context.Background(), c, "mymaster")
	require.NoError(t, result.Err)
	require.Equal(t, "127.0.0.1", result.Value.Host)
	require.Equal(t, int64(6379), result.Value.Port)
}
