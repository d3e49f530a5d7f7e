/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Package metrics exposes per-connection client counters as a Prometheus
// collector, built the same way the original tcpinfo exporter reports
// per-connection kernel socket stats: a registry of live connections is
// scanned on every Collect call rather than pushed to on every update.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds the live counters for one Connection. The zero value is ready
// to use; callers obtain one from Collector.Add and update it with the Add*
// methods as the connection does work.
type Stats struct {
	reconnects        uint64
	sentinelRotations uint64
	bufferGrowths     uint64
	bytesIn           uint64
	bytesOut          uint64
	protocolErrors    uint64
}

func (s *Stats) AddReconnect()        { atomic.AddUint64(&s.reconnects, 1) }
func (s *Stats) AddSentinelRotation() { atomic.AddUint64(&s.sentinelRotations, 1) }
func (s *Stats) AddBytesIn(n int)     { atomic.AddUint64(&s.bytesIn, uint64(n)) }
func (s *Stats) AddBytesOut(n int)    { atomic.AddUint64(&s.bytesOut, uint64(n)) }
func (s *Stats) AddProtocolError()    { atomic.AddUint64(&s.protocolErrors, 1) }

// AddBufferGrowth records n buffer-growth events at once, since a caller
// only learns the count after a ResponseHandler has finished decoding a
// reply (ResponseHandler.BufferGrowths), not one event at a time.
func (s *Stats) AddBufferGrowth(n int) {
	if n > 0 {
		atomic.AddUint64(&s.bufferGrowths, uint64(n))
	}
}

type entry struct {
	stats  *Stats
	labels []string
}

type info struct {
	description *prometheus.Desc
	supplier    func(s *Stats, labelValues []string) prometheus.Metric
}

// Collector is a prometheus.Collector over every live Connection a caller
// has registered with Add. It never retains a connection itself, only the
// Stats counters the connection was handed at Add time; Remove drops it
// from future scrapes once the connection is closed for good.
type Collector struct {
	mu    sync.Mutex
	conns map[string]entry
	infos []info
}

// NewCollector builds a Collector whose metric names share prefix and whose
// per-connection label set is variableLabels (e.g. "host", "correlation_id").
func NewCollector(prefix string, variableLabels []string, constLabels prometheus.Labels) *Collector {
	return &Collector{
		conns: make(map[string]entry),
		infos: makeDescriptions(prefix, variableLabels, constLabels),
	}
}

// Add registers a connection (identified by an opaque, caller-chosen key
// such as a correlation id) for future Collect calls, returning the Stats
// counters the caller should update as the connection is used.
func (c *Collector) Add(key string, labelValues []string) *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Stats{}
	c.conns[key] = entry{stats: s, labels: labelValues}
	return s
}

// Remove stops reporting the connection registered under key.
func (c *Collector) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, key)
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	for _, i := range c.infos {
		descs <- i.description
	}
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.conns {
		for _, i := range c.infos {
			metrics <- i.supplier(e.stats, e.labels)
		}
	}
}

func makeDescriptions(prefix string, variableLabels []string, constLabels prometheus.Labels) []info {
	counter := func(name, help string, value func(*Stats) uint64) info {
		desc := prometheus.NewDesc(fmt.Sprintf("%s_%s", prefix, name), help, variableLabels, constLabels)
		return info{
			description: desc,
			supplier: func(s *Stats, labelValues []string) prometheus.Metric {
				return prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(value(s)), labelValues...)
			},
		}
	}

	return []info{
		counter("reconnects_total", "Number of times the connection has had to redial the server.", func(s *Stats) uint64 { return atomic.LoadUint64(&s.reconnects) }),
		counter("sentinel_rotations_total", "Number of times sentinel discovery moved on to a different sentinel.", func(s *Stats) uint64 { return atomic.LoadUint64(&s.sentinelRotations) }),
		counter("buffer_growths_total", "Number of times the response parser had to grow its read buffer.", func(s *Stats) uint64 { return atomic.LoadUint64(&s.bufferGrowths) }),
		counter("bytes_in_total", "Bytes read from the server.", func(s *Stats) uint64 { return atomic.LoadUint64(&s.bytesIn) }),
		counter("bytes_out_total", "Bytes written to the server.", func(s *Stats) uint64 { return atomic.LoadUint64(&s.bytesOut) }),
		counter("protocol_errors_total", "Number of replies that failed to parse as valid RESP.", func(s *Stats) uint64 { return atomic.LoadUint64(&s.protocolErrors) }),
	}
}
