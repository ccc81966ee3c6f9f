// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"sync"
	"time"
)

const LatencyBuckets = 41
const LatencyBucketSize = 5 * time.Millisecond

// Histogram counts command latencies in fixed-width buckets. The last
// bucket holds everything slower.
type Histogram struct {
	Buckets [LatencyBuckets]uint64 `json:"b"`
	Count   uint64                 `json:"c"`
	Sum     float64                `json:"s"` // Sum of durations in milliseconds
}

func (h *Histogram) Add(d time.Duration) {
	idx := int(d / LatencyBucketSize)
	if idx >= LatencyBuckets {
		idx = LatencyBuckets - 1
	}
	h.Buckets[idx]++
	h.Count++
	h.Sum += float64(d) / float64(time.Millisecond)
}

func (h *Histogram) Merge(other *Histogram) {
	if other == nil {
		return
	}
	for i := range LatencyBuckets {
		h.Buckets[i] += other.Buckets[i]
	}
	h.Count += other.Count
	h.Sum += other.Sum
}

// ResolutionConfig defines the policy for a single RRD bucket set.
type ResolutionConfig struct {
	Name       string        `json:"name"`
	Resolution time.Duration `json:"resolution"`
	Buckets    int           `json:"buckets"`
}

var DefaultResolutions = []ResolutionConfig{
	{"1m", 1 * time.Minute, 120},
	{"15m", 15 * time.Minute, 96},
	{"1h", 1 * time.Hour, 168},
}

// Point represents a single data point in a time series.
type Point[T any] struct {
	Timestamp int64 `json:"t"`
	Value     T     `json:"v"`
}

// RingBuffer is a fixed-size circular buffer for storing time series data.
type RingBuffer[T any] struct {
	Config ResolutionConfig
	Data   []Point[T]
	Head   int // Points to the *next* write position
}

func NewRingBuffer[T any](cfg ResolutionConfig) *RingBuffer[T] {
	return &RingBuffer[T]{
		Config: cfg,
		Data:   make([]Point[T], cfg.Buckets),
	}
}

func (rb *RingBuffer[T]) align(timestamp int64) int64 {
	resSec := int64(rb.Config.Resolution.Seconds())
	return (timestamp / resSec) * resSec
}

// last returns the newest point if it falls in the same bucket as timestamp.
func (rb *RingBuffer[T]) last(timestamp int64) *Point[T] {
	prev := &rb.Data[(rb.Head-1+len(rb.Data))%len(rb.Data)]
	if prev.Timestamp == rb.align(timestamp) {
		return prev
	}
	return nil
}

// Add appends a point, replacing the newest one if it is in the same bucket.
func (rb *RingBuffer[T]) Add(timestamp int64, value T) {
	if p := rb.last(timestamp); p != nil {
		p.Value = value
		return
	}
	rb.Data[rb.Head] = Point[T]{Timestamp: rb.align(timestamp), Value: value}
	rb.Head = (rb.Head + 1) % len(rb.Data)
}

// GetPoints returns the data points sorted by time.
func (rb *RingBuffer[T]) GetPoints() []Point[T] {
	points := make([]Point[T], 0, len(rb.Data))
	for i := range len(rb.Data) {
		idx := (rb.Head + i) % len(rb.Data)
		if rb.Data[idx].Timestamp > 0 {
			points = append(points, rb.Data[idx])
		}
	}
	return points
}

// CounterSeries sums events per bucket at every resolution.
type CounterSeries struct {
	buffers []*RingBuffer[float64]
}

func NewCounterSeries() *CounterSeries {
	s := &CounterSeries{}
	for _, cfg := range DefaultResolutions {
		s.buffers = append(s.buffers, NewRingBuffer[float64](cfg))
	}
	return s
}

func (s *CounterSeries) Ingest(timestamp int64, value float64) {
	for _, buf := range s.buffers {
		if p := buf.last(timestamp); p != nil {
			p.Value += value
		} else {
			buf.Add(timestamp, value)
		}
	}
}

func (s *CounterSeries) Points() map[string][]Point[float64] {
	out := make(map[string][]Point[float64], len(s.buffers))
	for _, buf := range s.buffers {
		out[buf.Config.Name] = buf.GetPoints()
	}
	return out
}

// Metrics tracks command traffic across all hubs.
type Metrics struct {
	mu        sync.Mutex
	now       func() time.Time
	latencies map[string]*Histogram
	commands  *CounterSeries
	rejected  *CounterSeries
}

func NewMetrics() *Metrics {
	return &Metrics{
		now:       time.Now,
		latencies: make(map[string]*Histogram),
		commands:  NewCounterSeries(),
		rejected:  NewCounterSeries(),
	}
}

// ObserveCommand records one command and how long the hub spent on it.
func (m *Metrics) ObserveCommand(cmd string, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.latencies[cmd]
	if !ok {
		h = &Histogram{}
		m.latencies[cmd] = h
	}
	h.Add(d)
	ts := m.now().Unix()
	m.commands.Ingest(ts, 1)
	if err != nil {
		m.rejected.Ingest(ts, 1)
	}
}

// MetricsReport is the body of GET /api/admin/metrics.
type MetricsReport struct {
	Timestamp int64                       `json:"timestamp"`
	LiveHubs  int                         `json:"liveHubs"`
	Games     int                         `json:"games"`
	Latency   map[string]Histogram        `json:"latency"`
	Total     Histogram                   `json:"total"`
	Commands  map[string][]Point[float64] `json:"commands"`
	Rejected  map[string][]Point[float64] `json:"rejected"`
}

// Report copies the current counters. The caller fills in the gauges.
func (m *Metrics) Report() MetricsReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := MetricsReport{
		Timestamp: m.now().Unix(),
		Latency:   make(map[string]Histogram, len(m.latencies)),
		Commands:  m.commands.Points(),
		Rejected:  m.rejected.Points(),
	}
	for cmd, h := range m.latencies {
		r.Latency[cmd] = *h
		r.Total.Merge(h)
	}
	return r
}
