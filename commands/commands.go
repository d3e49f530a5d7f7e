/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package commands binds RESP requests and their expected reply shapes to
// named Go functions -- GET, SET, INCR, and so on -- the way Commands.h and
// HashCommands.h did in the original client, one prepare/parse pair per
// command. Each binding exposes three thin wrappers: a synchronous call,
// which is also the error-promoting one; an asynchronous call that delivers
// the parsed value; and an asynchronous call that delivers only an error,
// for callers that submit a write and don't need its result.
package commands

import (
	"context"
	"strconv"

	"gitlab.com/xerra/common/go-redisclient/conn"
	"gitlab.com/xerra/common/go-redisclient/rediserr"
	"gitlab.com/xerra/common/go-redisclient/resp"
)

// transmit sends req and classifies the reply: a server-side Error reply is
// promoted into a ServerError and recorded on the Connection, so callers
// never have to special-case resp.Error themselves.
func transmit(ctx context.Context, c *conn.Connection, req *resp.Request) (resp.Response, error) {
	top, err := c.Transmit(ctx, req)
	if err != nil {
		return resp.Response{}, err
	}
	if top.Kind() == resp.Error {
		c.SetLastServerError(top.String())
		return resp.Response{}, rediserr.New(rediserr.ServerError, top.String())
	}
	return top, nil
}

// AsyncResult carries the outcome of an "asynchronous with value" universal
// wrapper: either the parsed value, or an error (transport failure, a
// promoted server error, or a reply-shape violation from parse).
type AsyncResult[T any] struct {
	Value T
	Err   error
}

// asyncValue is the "asynchronous with value" universal wrapper from spec
// section 4.6: it submits req via conn.AsyncTransmit without blocking the
// caller, applies the same error-promotion rule transmit does, and runs
// parse -- the same parse helper the synchronous wrapper uses -- once the
// reply or failure is known.
func asyncValue[T any](ctx context.Context, c *conn.Connection, req *resp.Request, parse func(resp.Response) (T, error)) <-chan AsyncResult[T] {
	out := make(chan AsyncResult[T], 1)
	pending := c.AsyncTransmit(ctx, req)
	go func() {
		var zero T
		res := <-pending
		if res.Err != nil {
			out <- AsyncResult[T]{Value: zero, Err: res.Err}
			return
		}
		if res.Response.Kind() == resp.Error {
			c.SetLastServerError(res.Response.String())
			out <- AsyncResult[T]{Value: zero, Err: rediserr.New(rediserr.ServerError, res.Response.String())}
			return
		}
		v, err := parse(res.Response)
		out <- AsyncResult[T]{Value: v, Err: err}
	}()
	return out
}

// asyncVoid is the "asynchronous returning only an error" universal
// wrapper from spec section 4.6: the same classification as asyncValue, but
// for a caller that only needs to know whether the command succeeded, not
// its parsed value.
func asyncVoid(ctx context.Context, c *conn.Connection, req *resp.Request, parse func(resp.Response) error) <-chan error {
	out := make(chan error, 1)
	pending := c.AsyncTransmit(ctx, req)
	go func() {
		res := <-pending
		if res.Err != nil {
			out <- res.Err
			return
		}
		if res.Response.Kind() == resp.Error {
			c.SetLastServerError(res.Response.String())
			out <- rediserr.New(rediserr.ServerError, res.Response.String())
			return
		}
		out <- parse(res.Response)
	}()
	return out
}

// okResult interprets a SimpleString "OK" as true and a Null reply (the
// shape NX/XX SET uses to report "condition not met") as false; anything
// else is a protocol error.
func okResult(top resp.Response) (bool, error) {
	switch top.Kind() {
	case resp.SimpleString:
		if top.String() == "OK" {
			return true, nil
		}
		return false, rediserr.New(rediserr.ProtocolError, "expected OK, got "+top.String())
	case resp.Null:
		return false, nil
	default:
		return false, rediserr.New(rediserr.ProtocolError, "expected SimpleString or Null, got "+top.Kind().String())
	}
}

// okResultVoid discards okResult's bool, for asyncVoid callers.
func okResultVoid(top resp.Response) error {
	_, err := okResult(top)
	return err
}

func intResult(top resp.Response) (int64, error) {
	if top.Kind() != resp.Integer {
		return 0, rediserr.New(rediserr.ProtocolError, "expected Integer, got "+top.Kind().String())
	}
	return top.Int()
}

func intResultVoid(top resp.Response) error {
	_, err := intResult(top)
	return err
}

// GetReply is the parsed result of a GET: the value, and whether the key
// existed at all (a missing key and an existing key holding "" both decode
// to the same BulkString/Null distinction the server makes).
type GetReply struct {
	Value []byte
	OK    bool
}

func parseGet(top resp.Response) (GetReply, error) {
	switch top.Kind() {
	case resp.BulkString:
		return GetReply{Value: top.Data(), OK: true}, nil
	case resp.Null:
		return GetReply{}, nil
	default:
		return GetReply{}, rediserr.New(rediserr.ProtocolError, "GET: unexpected reply "+top.Dump())
	}
}

// Get returns the value of key, and ok=false if the key doesn't exist.
func Get(ctx context.Context, c *conn.Connection, key string) (value []byte, ok bool, err error) {
	top, err := transmit(ctx, c, resp.NewRequest("GET", key))
	if err != nil {
		return nil, false, err
	}
	r, err := parseGet(top)
	return r.Value, r.OK, err
}

// GetAsync is Get's asynchronous-with-value wrapper.
func GetAsync(ctx context.Context, c *conn.Connection, key string) <-chan AsyncResult[GetReply] {
	return asyncValue(ctx, c, resp.NewRequest("GET", key), parseGet)
}

// GetAsyncVoid is Get's asynchronous-error-only wrapper, for a caller that
// only wants to know the round trip succeeded.
func GetAsyncVoid(ctx context.Context, c *conn.Connection, key string) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("GET", key), func(top resp.Response) error {
		_, err := parseGet(top)
		return err
	})
}

// SetCondition mirrors the original SetOptions enum: an unconditional SET,
// or one that only succeeds if the key is currently absent (NX) or present
// (XX).
type SetCondition int

const (
	SetAlways SetCondition = iota
	SetIfNotExists
	SetIfExists
)

// SetOptions folds SET's optional arguments (condition, millisecond TTL)
// into one call, matching Commands.h::setCommand's full argument set
// rather than the bare SET the distilled spec lists.
type SetOptions struct {
	Condition SetCondition
	ExpireMS  int64 // 0 means "no PX argument"
}

func setRequest(key string, value []byte, opts SetOptions) *resp.Request {
	args := []string{"SET", key, string(value)}
	if opts.ExpireMS > 0 {
		args = append(args, "PX", strconv.FormatInt(opts.ExpireMS, 10))
	}
	switch opts.Condition {
	case SetIfNotExists:
		args = append(args, "NX")
	case SetIfExists:
		args = append(args, "XX")
	}
	return resp.NewRequest(args...)
}

// Set stores value at key, reporting ok=false when a condition (NX/XX) was
// given and not met.
func Set(ctx context.Context, c *conn.Connection, key string, value []byte, opts SetOptions) (ok bool, err error) {
	top, err := transmit(ctx, c, setRequest(key, value, opts))
	if err != nil {
		return false, err
	}
	return okResult(top)
}

// SetAsync is Set's asynchronous-with-value wrapper.
func SetAsync(ctx context.Context, c *conn.Connection, key string, value []byte, opts SetOptions) <-chan AsyncResult[bool] {
	return asyncValue(ctx, c, setRequest(key, value, opts), okResult)
}

// SetAsyncVoid is Set's asynchronous-error-only wrapper.
func SetAsyncVoid(ctx context.Context, c *conn.Connection, key string, value []byte, opts SetOptions) <-chan error {
	return asyncVoid(ctx, c, setRequest(key, value, opts), okResultVoid)
}

// Incr increments key by one and returns its new value.
func Incr(ctx context.Context, c *conn.Connection, key string) (int64, error) {
	top, err := transmit(ctx, c, resp.NewRequest("INCR", key))
	if err != nil {
		return 0, err
	}
	return intResult(top)
}

// IncrAsync is Incr's asynchronous-with-value wrapper.
func IncrAsync(ctx context.Context, c *conn.Connection, key string) <-chan AsyncResult[int64] {
	return asyncValue(ctx, c, resp.NewRequest("INCR", key), intResult)
}

// IncrAsyncVoid is Incr's asynchronous-error-only wrapper.
func IncrAsyncVoid(ctx context.Context, c *conn.Connection, key string) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("INCR", key), intResultVoid)
}

// Del deletes key, returning the number of keys actually removed.
func Del(ctx context.Context, c *conn.Connection, key string) (int64, error) {
	top, err := transmit(ctx, c, resp.NewRequest("DEL", key))
	if err != nil {
		return 0, err
	}
	return intResult(top)
}

// DelAsync is Del's asynchronous-with-value wrapper.
func DelAsync(ctx context.Context, c *conn.Connection, key string) <-chan AsyncResult[int64] {
	return asyncValue(ctx, c, resp.NewRequest("DEL", key), intResult)
}

// DelAsyncVoid is Del's asynchronous-error-only wrapper.
func DelAsyncVoid(ctx context.Context, c *conn.Connection, key string) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("DEL", key), intResultVoid)
}

func parsePExpire(top resp.Response) (bool, error) {
	if top.Kind() != resp.Integer {
		return false, rediserr.New(rediserr.ProtocolError, "PEXPIRE: unexpected reply "+top.Dump())
	}
	return top.String() == "1", nil
}

// PExpire sets a millisecond expiry on key, returning whether the key
// existed to have an expiry set on it.
func PExpire(ctx context.Context, c *conn.Connection, key string, ms int64) (bool, error) {
	top, err := transmit(ctx, c, resp.NewRequest("PEXPIRE", key, strconv.FormatInt(ms, 10)))
	if err != nil {
		return false, err
	}
	return parsePExpire(top)
}

// PExpireAsync is PExpire's asynchronous-with-value wrapper.
func PExpireAsync(ctx context.Context, c *conn.Connection, key string, ms int64) <-chan AsyncResult[bool] {
	return asyncValue(ctx, c, resp.NewRequest("PEXPIRE", key, strconv.FormatInt(ms, 10)), parsePExpire)
}

// PExpireAsyncVoid is PExpire's asynchronous-error-only wrapper.
func PExpireAsyncVoid(ctx context.Context, c *conn.Connection, key string, ms int64) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("PEXPIRE", key, strconv.FormatInt(ms, 10)), func(top resp.Response) error {
		_, err := parsePExpire(top)
		return err
	})
}

func parsePing(top resp.Response) error {
	if top.Kind() != resp.SimpleString || top.String() != "PONG" {
		return rediserr.New(rediserr.ProtocolError, "PING: unexpected reply "+top.Dump())
	}
	return nil
}

// Ping round-trips a PING, failing unless the server answers exactly PONG.
func Ping(ctx context.Context, c *conn.Connection) error {
	top, err := transmit(ctx, c, resp.NewRequest("PING"))
	if err != nil {
		return err
	}
	return parsePing(top)
}

// PingAsyncVoid is Ping's asynchronous wrapper. PING carries no value beyond
// success, so -- unlike the other bindings -- there is no PingAsync with a
// distinct value type.
func PingAsyncVoid(ctx context.Context, c *conn.Connection) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("PING"), parsePing)
}

func parseRole(top resp.Response) (string, error) {
	if top.Kind() != resp.Array || len(top.Elements()) == 0 {
		return "", rediserr.New(rediserr.ProtocolError, "ROLE: unexpected reply "+top.Dump())
	}
	first, _ := top.At(0)
	return first.String(), nil
}

// Role reports the server's replication role ("master", "slave", or
// "sentinel"), the first element of ROLE's array reply.
func Role(ctx context.Context, c *conn.Connection) (string, error) {
	top, err := transmit(ctx, c, resp.NewRequest("ROLE"))
	if err != nil {
		return "", err
	}
	return parseRole(top)
}

// RoleAsync is Role's asynchronous-with-value wrapper.
func RoleAsync(ctx context.Context, c *conn.Connection) <-chan AsyncResult[string] {
	return asyncValue(ctx, c, resp.NewRequest("ROLE"), parseRole)
}

// RoleAsyncVoid is Role's asynchronous-error-only wrapper.
func RoleAsyncVoid(ctx context.Context, c *conn.Connection) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("ROLE"), func(top resp.Response) error {
		_, err := parseRole(top)
		return err
	})
}

// Select switches the connection's active database. Connection already
// does this automatically on reconnect when constructed with WithIndex;
// this is for switching mid-session.
func Select(ctx context.Context, c *conn.Connection, index int64) (bool, error) {
	top, err := transmit(ctx, c, resp.NewRequest("SELECT", strconv.FormatInt(index, 10)))
	if err != nil {
		return false, err
	}
	return okResult(top)
}

// SelectAsync is Select's asynchronous-with-value wrapper.
func SelectAsync(ctx context.Context, c *conn.Connection, index int64) <-chan AsyncResult[bool] {
	return asyncValue(ctx, c, resp.NewRequest("SELECT", strconv.FormatInt(index, 10)), okResult)
}

// SelectAsyncVoid is Select's asynchronous-error-only wrapper.
func SelectAsyncVoid(ctx context.Context, c *conn.Connection, index int64) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("SELECT", strconv.FormatInt(index, 10)), okResultVoid)
}

// ClientSetname names the connection for CLIENT LIST / CLIENT INFO.
func ClientSetname(ctx context.Context, c *conn.Connection, name string) (bool, error) {
	top, err := transmit(ctx, c, resp.NewRequest("CLIENT", "SETNAME", name))
	if err != nil {
		return false, err
	}
	return okResult(top)
}

// ClientSetnameAsync is ClientSetname's asynchronous-with-value wrapper.
func ClientSetnameAsync(ctx context.Context, c *conn.Connection, name string) <-chan AsyncResult[bool] {
	return asyncValue(ctx, c, resp.NewRequest("CLIENT", "SETNAME", name), okResult)
}

// ClientSetnameAsyncVoid is ClientSetname's asynchronous-error-only wrapper.
func ClientSetnameAsyncVoid(ctx context.Context, c *conn.Connection, name string) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("CLIENT", "SETNAME", name), okResultVoid)
}

// Multi starts a transaction.
func Multi(ctx context.Context, c *conn.Connection) (bool, error) {
	top, err := transmit(ctx, c, resp.NewRequest("MULTI"))
	if err != nil {
		return false, err
	}
	return okResult(top)
}

// MultiAsync is Multi's asynchronous-with-value wrapper.
func MultiAsync(ctx context.Context, c *conn.Connection) <-chan AsyncResult[bool] {
	return asyncValue(ctx, c, resp.NewRequest("MULTI"), okResult)
}

// MultiAsyncVoid is Multi's asynchronous-error-only wrapper.
func MultiAsyncVoid(ctx context.Context, c *conn.Connection) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("MULTI"), okResultVoid)
}

func parseExec(top resp.Response) ([]resp.Response, error) {
	if top.Kind() == resp.Null {
		return nil, rediserr.New(rediserr.NoData, "EXEC: transaction aborted")
	}
	if top.Kind() != resp.Array {
		return nil, rediserr.New(rediserr.ProtocolError, "EXEC: unexpected reply "+top.Dump())
	}
	return top.Elements(), nil
}

// Exec runs a queued transaction, returning each queued command's reply in
// order.
func Exec(ctx context.Context, c *conn.Connection) ([]resp.Response, error) {
	top, err := transmit(ctx, c, resp.NewRequest("EXEC"))
	if err != nil {
		return nil, err
	}
	return parseExec(top)
}

// ExecAsync is Exec's asynchronous-with-value wrapper.
func ExecAsync(ctx context.Context, c *conn.Connection) <-chan AsyncResult[[]resp.Response] {
	return asyncValue(ctx, c, resp.NewRequest("EXEC"), parseExec)
}

// ExecAsyncVoid is Exec's asynchronous-error-only wrapper.
func ExecAsyncVoid(ctx context.Context, c *conn.Connection) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("EXEC"), func(top resp.Response) error {
		_, err := parseExec(top)
		return err
	})
}

func parseHSet(top resp.Response) (bool, error) {
	n, err := intResult(top)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// HSet sets field in the hash at key, returning whether a new field was
// created (as opposed to an existing one being overwritten).
func HSet(ctx context.Context, c *conn.Connection, key, field string, value []byte) (bool, error) {
	top, err := transmit(ctx, c, resp.NewRequest("HSET", key, field, string(value)))
	if err != nil {
		return false, err
	}
	return parseHSet(top)
}

// HSetAsync is HSet's asynchronous-with-value wrapper.
func HSetAsync(ctx context.Context, c *conn.Connection, key, field string, value []byte) <-chan AsyncResult[bool] {
	return asyncValue(ctx, c, resp.NewRequest("HSET", key, field, string(value)), parseHSet)
}

// HSetAsyncVoid is HSet's asynchronous-error-only wrapper.
func HSetAsyncVoid(ctx context.Context, c *conn.Connection, key, field string, value []byte) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("HSET", key, field, string(value)), func(top resp.Response) error {
		_, err := parseHSet(top)
		return err
	})
}

// HGetReply is the parsed result of an HGET, mirroring GetReply.
type HGetReply struct {
	Value []byte
	OK    bool
}

func parseHGet(top resp.Response) (HGetReply, error) {
	switch top.Kind() {
	case resp.BulkString:
		return HGetReply{Value: top.Data(), OK: true}, nil
	case resp.Null:
		return HGetReply{}, nil
	default:
		return HGetReply{}, rediserr.New(rediserr.ProtocolError, "HGET: unexpected reply "+top.Dump())
	}
}

// HGet fetches field from the hash at key, ok=false if either is absent.
func HGet(ctx context.Context, c *conn.Connection, key, field string) (value []byte, ok bool, err error) {
	top, err := transmit(ctx, c, resp.NewRequest("HGET", key, field))
	if err != nil {
		return nil, false, err
	}
	r, err := parseHGet(top)
	return r.Value, r.OK, err
}

// HGetAsync is HGet's asynchronous-with-value wrapper.
func HGetAsync(ctx context.Context, c *conn.Connection, key, field string) <-chan AsyncResult[HGetReply] {
	return asyncValue(ctx, c, resp.NewRequest("HGET", key, field), parseHGet)
}

// HGetAsyncVoid is HGet's asynchronous-error-only wrapper.
func HGetAsyncVoid(ctx context.Context, c *conn.Connection, key, field string) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("HGET", key, field), func(top resp.Response) error {
		_, err := parseHGet(top)
		return err
	})
}

// HDel removes field from the hash at key, returning how many fields were
// actually removed (0 or 1).
func HDel(ctx context.Context, c *conn.Connection, key, field string) (int64, error) {
	top, err := transmit(ctx, c, resp.NewRequest("HDEL", key, field))
	if err != nil {
		return 0, err
	}
	return intResult(top)
}

// HDelAsync is HDel's asynchronous-with-value wrapper.
func HDelAsync(ctx context.Context, c *conn.Connection, key, field string) <-chan AsyncResult[int64] {
	return asyncValue(ctx, c, resp.NewRequest("HDEL", key, field), intResult)
}

// HDelAsyncVoid is HDel's asynchronous-error-only wrapper.
func HDelAsyncVoid(ctx context.Context, c *conn.Connection, key, field string) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("HDEL", key, field), intResultVoid)
}

// HIncrBy increments field in the hash at key by increment, returning its
// new value.
func HIncrBy(ctx context.Context, c *conn.Connection, key, field string, increment int64) (int64, error) {
	top, err := transmit(ctx, c, resp.NewRequest("HINCRBY", key, field, strconv.FormatInt(increment, 10)))
	if err != nil {
		return 0, err
	}
	return intResult(top)
}

// HIncrByAsync is HIncrBy's asynchronous-with-value wrapper.
func HIncrByAsync(ctx context.Context, c *conn.Connection, key, field string, increment int64) <-chan AsyncResult[int64] {
	return asyncValue(ctx, c, resp.NewRequest("HINCRBY", key, field, strconv.FormatInt(increment, 10)), intResult)
}

// HIncrByAsyncVoid is HIncrBy's asynchronous-error-only wrapper.
func HIncrByAsyncVoid(ctx context.Context, c *conn.Connection, key, field string, increment int64) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("HINCRBY", key, field, strconv.FormatInt(increment, 10)), intResultVoid)
}

func parseHSetNX(top resp.Response) (bool, error) {
	n, err := intResult(top)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// HSetNX sets field in the hash at key only if it doesn't already exist.
func HSetNX(ctx context.Context, c *conn.Connection, key, field string, value []byte) (bool, error) {
	top, err := transmit(ctx, c, resp.NewRequest("HSETNX", key, field, string(value)))
	if err != nil {
		return false, err
	}
	return parseHSetNX(top)
}

// HSetNXAsync is HSetNX's asynchronous-with-value wrapper.
func HSetNXAsync(ctx context.Context, c *conn.Connection, key, field string, value []byte) <-chan AsyncResult[bool] {
	return asyncValue(ctx, c, resp.NewRequest("HSETNX", key, field, string(value)), parseHSetNX)
}

// HSetNXAsyncVoid is HSetNX's asynchronous-error-only wrapper.
func HSetNXAsyncVoid(ctx context.Context, c *conn.Connection, key, field string, value []byte) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("HSETNX", key, field, string(value)), func(top resp.Response) error {
		_, err := parseHSetNX(top)
		return err
	})
}

// MasterAddr is the parsed result of SENTINEL get-master-addr-by-name.
type MasterAddr struct {
	Host string
	Port int64
}

func parseMasterAddr(top resp.Response) (MasterAddr, error) {
	if top.Kind() == resp.Null {
		return MasterAddr{}, rediserr.New(rediserr.NoData, "no master known for this name")
	}
	if top.Kind() != resp.Array || len(top.Elements()) != 2 {
		return MasterAddr{}, rediserr.New(rediserr.ProtocolError, "SENTINEL get-master-addr-by-name: unexpected reply "+top.Dump())
	}
	ip, _ := top.At(0)
	portStr, _ := top.At(1)
	port, err := strconv.ParseInt(portStr.String(), 10, 64)
	if err != nil {
		return MasterAddr{}, rediserr.New(rediserr.ProtocolError, "SENTINEL get-master-addr-by-name: non-numeric port")
	}
	return MasterAddr{Host: ip.String(), Port: port}, nil
}

// SentinelGetMasterAddrByName asks a sentinel for the current master of
// masterName. transport.Sentinel uses the lower-level equivalent of this
// directly; this copy is for callers talking to a sentinel through a plain
// Connection.
func SentinelGetMasterAddrByName(ctx context.Context, c *conn.Connection, masterName string) (host string, port int64, err error) {
	top, err := transmit(ctx, c, resp.NewRequest("SENTINEL", "get-master-addr-by-name", masterName))
	if err != nil {
		return "", 0, err
	}
	addr, err := parseMasterAddr(top)
	if err != nil {
		if rediserr.Is(err, rediserr.NoData) {
			return "", 0, rediserr.New(rediserr.NoData, "no master known for "+masterName)
		}
		return "", 0, err
	}
	return addr.Host, addr.Port, nil
}

// SentinelGetMasterAddrByNameAsync is SentinelGetMasterAddrByName's
// asynchronous-with-value wrapper.
func SentinelGetMasterAddrByNameAsync(ctx context.Context, c *conn.Connection, masterName string) <-chan AsyncResult[MasterAddr] {
	return asyncValue(ctx, c, resp.NewRequest("SENTINEL", "get-master-addr-by-name", masterName), parseMasterAddr)
}

// SentinelGetMasterAddrByNameAsyncVoid is SentinelGetMasterAddrByName's
// asynchronous-error-only wrapper.
func SentinelGetMasterAddrByNameAsyncVoid(ctx context.Context, c *conn.Connection, masterName string) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("SENTINEL", "get-master-addr-by-name", masterName), func(top resp.Response) error {
		_, err := parseMasterAddr(top)
		return err
	})
}

func parseSentinels(top resp.Response) ([]map[string]string, error) {
	if top.Kind() != resp.Array {
		return nil, rediserr.New(rediserr.ProtocolError, "SENTINEL sentinels: unexpected reply "+top.Dump())
	}

	result := make([]map[string]string, 0, len(top.Elements()))
	for _, entry := range top.Elements() {
		if entry.Kind() != resp.Array {
			return nil, rediserr.New(rediserr.ProtocolError, "SENTINEL sentinels: entry not an array")
		}
		fields := entry.Elements()
		m := make(map[string]string, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			m[fields[i].String()] = fields[i+1].String()
		}
		result = append(result, m)
	}
	return result, nil
}

// SentinelSentinels asks a sentinel for the other sentinels it knows about,
// each as a field/value map (name, ip, port, ...).
func SentinelSentinels(ctx context.Context, c *conn.Connection, masterName string) ([]map[string]string, error) {
	top, err := transmit(ctx, c, resp.NewRequest("SENTINEL", "sentinels", masterName))
	if err != nil {
		return nil, err
	}
	return parseSentinels(top)
}

// SentinelSentinelsAsync is SentinelSentinels' asynchronous-with-value
// wrapper.
func SentinelSentinelsAsync(ctx context.Context, c *conn.Connection, masterName string) <-chan AsyncResult[[]map[string]string] {
	return asyncValue(ctx, c, resp.NewRequest("SENTINEL", "sentinels", masterName), parseSentinels)
}

// SentinelSentinelsAsyncVoid is SentinelSentinels' asynchronous-error-only
// wrapper.
func SentinelSentinelsAsyncVoid(ctx context.Context, c *conn.Connection, masterName string) <-chan error {
	return asyncVoid(ctx, c, resp.NewRequest("SENTINEL", "sentinels", masterName), func(top resp.Response) error {
		_, err := parseSentinels(top)
		return err
	})
}
