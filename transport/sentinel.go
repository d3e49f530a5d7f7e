/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"gitlab.com/xerra/common/go-redisclient/metrics"
	"gitlab.com/xerra/common/go-redisclient/rediserr"
	"gitlab.com/xerra/common/go-redisclient/resp"
	"gitlab.com/xerra/common/go-redisclient/sink"
)

// SentinelBudget is the total time Sentinel.Connect allows itself before
// giving up with NoMoreSentinels.
const SentinelBudget = 60 * time.Second

// SentinelBackoff is how long Sentinel.Connect waits between unsuccessful
// rounds of asking the known sentinels for the current master.
const SentinelBackoff = 1 * time.Second

// Sentinel discovers the current master for a named service by quorum over
// a set of Redis Sentinel processes, the way SentinelConnectionManager does
// in the original client: ask a sentinel for the master address, ask it to
// refresh the sentinel list, dial the advertised master, and confirm with
// ROLE before handing the connection back.
type Sentinel struct {
	mu         sync.RWMutex
	hosts      []Host
	masterName string
	dialer     Dialer
	sink       sink.Sink
	stats      *metrics.Stats
	budget     time.Duration
	backoff    time.Duration
}

// SentinelOption configures a Sentinel at construction time.
type SentinelOption func(*Sentinel)

// WithSentinelSink attaches a notification sink; the default is sink.Nop.
func WithSentinelSink(s sink.Sink) SentinelOption {
	return func(sn *Sentinel) { sn.sink = s }
}

// WithSentinelDialer substitutes the Dialer used for both sentinel and
// master connections.
func WithSentinelDialer(d Dialer) SentinelOption {
	return func(sn *Sentinel) { sn.dialer = d }
}

// WithSentinelStats attaches a metrics.Stats this Sentinel records a count
// against every time discovery has to move on to a different sentinel.
func WithSentinelStats(s *metrics.Stats) SentinelOption {
	return func(sn *Sentinel) { sn.stats = s }
}

// NewSentinel returns a Connector that discovers the master for masterName
// by querying the given sentinel hosts.
func NewSentinel(sentinelHosts []Host, masterName string, opts ...SentinelOption) *Sentinel {
	sn := &Sentinel{
		hosts:      append([]Host(nil), sentinelHosts...),
		masterName: masterName,
		sink:       sink.Nop,
		budget:     SentinelBudget,
		backoff:    SentinelBackoff,
	}
	for _, opt := range opts {
		opt(sn)
	}
	if sn.dialer == nil {
		sn.dialer = &net.Dialer{}
	}
	return sn
}

// Hosts returns a snapshot of the currently known sentinel addresses.
func (s *Sentinel) Hosts() []Host {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Host(nil), s.hosts...)
}

func (s *Sentinel) setHosts(hosts []Host) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts = hosts
}

// Connect loops over the known sentinels, asking each for the master
// address and the current sentinel list, then dials and verifies the
// advertised master. It gives up with NoMoreSentinels once the sentinel
// list is exhausted or the overall time budget runs out.
func (s *Sentinel) Connect(ctx context.Context) (net.Conn, error) {
	deadline := time.Now().Add(s.budget)

	for time.Now().Before(deadline) {
		hosts := s.Hosts()
		if len(hosts) == 0 {
			break
		}

		mh := NewMultiHost(hosts, WithDialer(s.dialer), WithSink(s.sink))

		conn, tried, err := s.tryOneSentinel(ctx, mh)
		if err != nil {
			s.sink.Trace("transport: sentinel round failed: %v", err)
			mh.ShiftHosts()
			s.setHosts(mh.Hosts())
			if s.stats != nil {
				s.stats.AddSentinelRotation()
			}
			time.Sleep(s.backoff)
			continue
		}
		_ = tried
		return conn, nil
	}

	return nil, rediserr.New(rediserr.NoMoreSentinels, "exhausted sentinel list or time budget")
}

// tryOneSentinel connects to the next live sentinel in mh, asks it for the
// master address and a refreshed sentinel list, dials the advertised
// master, and confirms it answers ROLE with "master".
func (s *Sentinel) tryOneSentinel(ctx context.Context, mh *MultiHost) (net.Conn, Host, error) {
	sentinelConn, err := mh.Connect(ctx)
	if err != nil {
		return nil, Host{}, err
	}
	defer sentinelConn.Close()

	masterHost, err := s.getMasterAddrByName(sentinelConn)
	if err != nil {
		return nil, Host{}, err
	}

	if refreshed, err := s.getSentinels(sentinelConn); err == nil {
		// The sentinel that answered goes first, followed by whatever it
		// reports knowing about, the way the original rebuilds its host
		// list from the responding sentinel's own view.
		var remote Host
		if tcpAddr, ok := sentinelConn.RemoteAddr().(*net.TCPAddr); ok {
			remote = Host{Name: tcpAddr.IP.String(), Port: tcpAddr.Port}
		}
		next := append([]Host{remote}, refreshed...)
		s.setHosts(next)
	}

	single := NewSingleHost(masterHost, s.dialer)
	masterConn, err := single.Connect(ctx)
	if err != nil {
		return nil, Host{}, err
	}

	role, err := doCommand(masterConn, "ROLE")
	if err != nil {
		masterConn.Close()
		return nil, Host{}, err
	}
	if role.Kind() != resp.Array || len(role.Elements()) == 0 {
		masterConn.Close()
		return nil, Host{}, rediserr.New(rediserr.ProtocolError, "ROLE did not return an array")
	}
	first, _ := role.At(0)
	if first.String() != "master" {
		masterConn.Close()
		return nil, Host{}, rediserr.New(rediserr.NoUsableServer, "advertised host is not currently master")
	}

	return masterConn, masterHost, nil
}

func (s *Sentinel) getMasterAddrByName(sentinelConn net.Conn) (Host, error) {
	reply, err := doCommand(sentinelConn, "SENTINEL", "get-master-addr-by-name", s.masterName)
	if err != nil {
		return Host{}, err
	}
	if reply.Kind() == resp.Null {
		return Host{}, rediserr.New(rediserr.NoData, "sentinel has no master recorded for "+s.masterName)
	}
	if reply.Kind() != resp.Array || len(reply.Elements()) != 2 {
		return Host{}, rediserr.New(rediserr.ProtocolError, "get-master-addr-by-name did not return a 2-element array")
	}
	ip, _ := reply.At(0)
	portStr, _ := reply.At(1)
	port, err := strconv.Atoi(portStr.String())
	if err != nil {
		return Host{}, rediserr.New(rediserr.ProtocolError, "get-master-addr-by-name returned a non-numeric port")
	}
	return Host{Name: ip.String(), Port: port}, nil
}

func (s *Sentinel) getSentinels(sentinelConn net.Conn) ([]Host, error) {
	reply, err := doCommand(sentinelConn, "SENTINEL", "sentinels", s.masterName)
	if err != nil {
		return nil, err
	}
	if reply.Kind() != resp.Array {
		return nil, rediserr.New(rediserr.ProtocolError, "sentinels did not return an array")
	}

	var hosts []Host
	for _, entry := range reply.Elements() {
		if entry.Kind() != resp.Array {
			continue
		}
		fields := fieldMap(entry)
		port, err := strconv.Atoi(fields["port"])
		if err != nil {
			continue
		}
		hosts = append(hosts, Host{Name: fields["ip"], Port: port})
	}
	return hosts, nil
}

// fieldMap turns a flat [name, value, name, value, ...] array reply into a
// map, the shape SENTINEL sentinels uses for each entry.
func fieldMap(entry resp.Response) map[string]string {
	elements := entry.Elements()
	m := make(map[string]string, len(elements)/2)
	for i := 0; i+1 < len(elements); i += 2 {
		m[elements[i].String()] = elements[i+1].String()
	}
	return m
}
