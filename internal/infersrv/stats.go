package infersrv

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cambricon/easydk-go/internal/constants"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easydk_infersrv_requests_total",
		Help: "Total requests completed by an inference server session.",
	}, []string{"session", "tag"})

	unitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "easydk_infersrv_units_total",
		Help: "Total infer data units completed by an inference server session.",
	}, []string{"session", "tag"})

	latencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "easydk_infersrv_request_latency_seconds",
		Help:    "Request latency from enqueue to completed response.",
		Buckets: prometheus.DefBuckets,
	}, []string{"session", "tag"})
)

// rateSample is one bucketed slice of the rolling request/unit counters.
type rateSample struct {
	at       time.Time
	requests int
	units    int
}

// tagCounters tracks per-tag request count, unit count, latency
// min/max/total and a rolling window of samples for RPS/UPS.
type tagCounters struct {
	mu          sync.Mutex
	requests    uint64
	units       uint64
	latencyMinNs uint64
	latencyMaxNs uint64
	latencyTotNs uint64
	samples     []rateSample
}

func newTagCounters() *tagCounters { return &tagCounters{} }

func (c *tagCounters) record(units int, latency time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	c.units += uint64(units)
	ns := uint64(latency.Nanoseconds())
	if c.latencyMinNs == 0 || ns < c.latencyMinNs {
		c.latencyMinNs = ns
	}
	if ns > c.latencyMaxNs {
		c.latencyMaxNs = ns
	}
	c.latencyTotNs += ns
	c.samples = append(c.samples, rateSample{at: now, requests: 1, units: units})
	c.prune(now)
}

// prune drops samples older than the rolling window. Caller holds mu.
func (c *tagCounters) prune(now time.Time) {
	cutoff := now.Add(-constants.RPSWindow)
	i := 0
	for i < len(c.samples) && c.samples[i].at.Before(cutoff) {
		i++
	}
	c.samples = c.samples[i:]
}

// Snapshot is a point-in-time read of one tag's (or the session
// aggregate's) performance counters.
type Snapshot struct {
	Requests    uint64
	Units       uint64
	LatencyMin  time.Duration
	LatencyMax  time.Duration
	LatencyMean time.Duration
	RPS         float64
	UPS         float64
}

func (c *tagCounters) snapshot(now time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune(now)

	var reqs, units int
	for _, s := range c.samples {
		reqs += s.requests
		units += s.units
	}
	window := constants.RPSWindow.Seconds()

	var mean time.Duration
	if c.requests > 0 {
		mean = time.Duration(c.latencyTotNs / c.requests)
	}
	return Snapshot{
		Requests:    c.requests,
		Units:       c.units,
		LatencyMin:  time.Duration(c.latencyMinNs),
		LatencyMax:  time.Duration(c.latencyMaxNs),
		LatencyMean: mean,
		RPS:         float64(reqs) / window,
		UPS:         float64(units) / window,
	}
}

// sessionStats aggregates counters per tag plus a session-wide total,
// using atomics the same way a block device tracks per-op I/O
// counters, generalized here to inference requests/units.
type sessionStats struct {
	sessionID string
	mu        sync.Mutex
	perTag    map[string]*tagCounters
	aggregate *tagCounters

	dispatched atomic.Int64
	completed  atomic.Int64
	canceled   atomic.Int64
}

func newSessionStats(sessionID string) *sessionStats {
	return &sessionStats{
		sessionID: sessionID,
		perTag:    make(map[string]*tagCounters),
		aggregate: newTagCounters(),
	}
}

func (s *sessionStats) tag(tag string) *tagCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.perTag[tag]
	if !ok {
		c = newTagCounters()
		s.perTag[tag] = c
	}
	return c
}

func (s *sessionStats) recordCompletion(tag string, units int, latency time.Duration, canceled bool) {
	now := time.Now()
	s.tag(tag).record(units, latency, now)
	s.aggregate.record(units, latency, now)

	if canceled {
		s.canceled.Add(1)
	} else {
		s.completed.Add(1)
		requestsTotal.WithLabelValues(s.sessionID, tag).Inc()
		unitsTotal.WithLabelValues(s.sessionID, tag).Add(float64(units))
		latencySeconds.WithLabelValues(s.sessionID, tag).Observe(latency.Seconds())
	}
}

// TagSnapshot returns the current counters for tag.
func (s *sessionStats) TagSnapshot(tag string) Snapshot { return s.tag(tag).snapshot(time.Now()) }

// AggregateSnapshot returns the session-wide counters.
func (s *sessionStats) AggregateSnapshot() Snapshot { return s.aggregate.snapshot(time.Now()) }
