package poe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds lightweight counters for HTTP activity.
type Metrics struct {
	TotalRequests     atomic.Int64
	TotalRetries      atomic.Int64
	TotalBackoffNanos atomic.Int64

	mu         sync.Mutex
	hostCounts map[string]int64
	status2xx  int64
	status4xx  int64
	status429  int64
	status5xx  int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics { return &Metrics{hostCounts: make(map[string]int64)} }

// IncRequest increments per-host and total request counters.
func (m *Metrics) IncRequest(host, _ string) {
	m.TotalRequests.Add(1)
	m.mu.Lock()
	m.hostCounts[host]++
	m.mu.Unlock()
}

// IncRetry increments the retry counter.
func (m *Metrics) IncRetry() { m.TotalRetries.Add(1) }

// AddBackoff accumulates backoff sleep time.
func (m *Metrics) AddBackoff(d time.Duration) { m.TotalBackoffNanos.Add(d.Nanoseconds()) }

// IncStatus tracks status buckets.
func (m *Metrics) IncStatus(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case code == 429:
		m.status429++
	case code >= 200 && code < 300:
		m.status2xx++
	case code >= 400 && code < 500:
		m.status4xx++
	case code >= 500:
		m.status5xx++
	}
}

// MetricsSnapshot is a read-only copy of metrics state.
type MetricsSnapshot struct {
	TotalRequests int64
	TotalRetries  int64
	Backoff       time.Duration
	HostCounts    map[string]int64
	Status2xx     int64
	Status4xx     int64
	Status429     int64
	Status5xx     int64
}

// Snapshot returns a copy of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	hosts := make(map[string]int64, len(m.hostCounts))
	for k, v := range m.hostCounts {
		hosts[k] = v
	}
	return MetricsSnapshot{
		TotalRequests: m.TotalRequests.Load(),
		TotalRetries:  m.TotalRetries.Load(),
		Backoff:       time.Duration(m.TotalBackoffNanos.Load()),
		HostCounts:    hosts,
		Status2xx:     m.status2xx,
		Status4xx:     m.status4xx,
		Status429:     m.status429,
		Status5xx:     m.status5xx,
	}
}

// String renders a one-line summary for status bars and debug logs.
func (s MetricsSnapshot) String() string {
	return fmt.Sprintf("req %d | retries %d | 429 %d | 5xx %d | backoff %s",
		s.TotalRequests, s.TotalRetries, s.Status429, s.Status5xx, s.Backoff.Round(time.Millisecond))
}
