// Package metrics implements the counter/histogram/event registry every
// node instruments against, plus the aggregation helpers that turn a set of
// per-node snapshots into cluster-wide views.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is the exported form of a Collector at one instant: every
// registered counter, histogram and event stream as of the call to
// Snapshot.
type Snapshot struct {
	Timestamp  float64                      `json:"timestamp"`
	Counters   map[string]CounterSnapshot   `json:"counters"`
	Histograms map[string]HistogramSnapshot `json:"histograms"`
	Events     map[string][]Event           `json:"events"`
}

// Collector is the central, process-wide registry of counter families,
// histogram families and event streams. All methods are safe for
// concurrent use.
type Collector struct {
	mu         sync.Mutex
	counters   map[string]*CounterFamily
	histograms map[string]*HistogramFamily
	events     map[string]*EventStream
}

// New returns an empty Collector.
func New() *Collector {
	return &Collector{
		counters:   make(map[string]*CounterFamily),
		histograms: make(map[string]*HistogramFamily),
		events:     make(map[string]*EventStream),
	}
}

// RegisterCounter returns the named counter family, creating it with
// description on first use. description is ignored on subsequent calls.
func (c *Collector) RegisterCounter(name, description string) *CounterFamily {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.counters[name]
	if !ok {
		f = newCounterFamily(name, description)
		c.counters[name] = f
	}
	return f
}

// RegisterHistogram returns the named histogram family, creating it with
// description and buckets on first use. A nil/empty buckets uses
// DefaultLatencyBuckets. Bounds are fixed after the first registration.
func (c *Collector) RegisterHistogram(name, description string, buckets []float64) *HistogramFamily {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.histograms[name]
	if !ok {
		f = newHistogramFamily(name, description, buckets)
		c.histograms[name] = f
	}
	return f
}

func (c *Collector) registerEventStream(name string) *EventStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.events[name]
	if !ok {
		s = newEventStream()
		c.events[name] = s
	}
	return s
}

// Inc registers name as a counter if needed, then increments it. amount
// must be non-negative.
func (c *Collector) Inc(name string, amount float64, labels map[string]string, description string) error {
	return c.RegisterCounter(name, description).Inc(amount, labels)
}

// Observe registers name as a histogram if needed, then records value.
func (c *Collector) Observe(name string, value float64, labels map[string]string, description string, buckets []float64) {
	c.RegisterHistogram(name, description, buckets).Observe(value, labels)
}

// RecordEvent appends payload to the named event stream, tagged with the
// current time.
func (c *Collector) RecordEvent(name string, labels, payload map[string]any) {
	c.registerEventStream(name).Record(nowUnix(), labels, payload)
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Snapshot copies every family's current state, optionally clearing them.
// Families registered after Snapshot begins iterating may or may not be
// included; it is not a barrier against concurrent registration.
func (c *Collector) Snapshot(reset bool) Snapshot {
	c.mu.Lock()
	counterFamilies := make([]*CounterFamily, 0, len(c.counters))
	counterNames := make([]string, 0, len(c.counters))
	for name, f := range c.counters {
		counterNames = append(counterNames, name)
		counterFamilies = append(counterFamilies, f)
	}
	histogramFamilies := make([]*HistogramFamily, 0, len(c.histograms))
	histogramNames := make([]string, 0, len(c.histograms))
	for name, f := range c.histograms {
		histogramNames = append(histogramNames, name)
		histogramFamilies = append(histogramFamilies, f)
	}
	eventStreams := make([]*EventStream, 0, len(c.events))
	eventNames := make([]string, 0, len(c.events))
	for name, s := range c.events {
		eventNames = append(eventNames, name)
		eventStreams = append(eventStreams, s)
	}
	c.mu.Unlock()

	counters := make(map[string]CounterSnapshot, len(counterNames))
	for i, name := range counterNames {
		counters[name] = counterFamilies[i].Snapshot(reset)
	}
	histograms := make(map[string]HistogramSnapshot, len(histogramNames))
	for i, name := range histogramNames {
		histograms[name] = histogramFamilies[i].Snapshot(reset)
	}
	events := make(map[string][]Event, len(eventNames))
	for i, name := range eventNames {
		events[name] = eventStreams[i].Snapshot(reset)
	}

	return Snapshot{
		Timestamp:  nowUnix(),
		Counters:   counters,
		Histograms: histograms,
		Events:     events,
	}
}

// Reset clears every family without returning the discarded values.
func (c *Collector) Reset() {
	c.Snapshot(true)
}

// RecordHTTPRequest is the single entry point journeys call after every
// HTTP round trip: it updates the request/error counters, the duration
// histogram, and appends an http_request event.
func (c *Collector) RecordHTTPRequest(ctx ContextInfo, method, target string, status int, duration float64) {
	labels := HTTPLabels(ctx, method, target, status)
	_ = c.Inc("ironswarm_http_requests_total", 1, labels, "")
	if status >= 400 {
		_ = c.Inc("ironswarm_http_errors_total", 1, labels, "")
	}
	c.Observe("ironswarm_http_request_duration_seconds", duration, labels, "", nil)

	labelsAny := make(map[string]any, len(labels))
	for k, v := range labels {
		labelsAny[k] = v
	}
	c.RecordEvent("http_request", nil, map[string]any{
		"duration": duration,
		"labels":   labelsAny,
	})
}

// RecordJourneySuccess increments journey_executions_total and observes
// journey_duration_seconds for a successful journey run.
func (c *Collector) RecordJourneySuccess(ctx ContextInfo, duration float64) {
	labels := ScenarioLabels(ctx)
	_ = c.Inc("ironswarm_journey_executions_total", 1, labels, "")
	c.Observe("ironswarm_journey_duration_seconds", duration, labels, "", nil)
}

// RecordJourneyFailure increments journey_executions_total and
// journey_failures_total{error}, and observes journey_duration_seconds if
// duration is non-negative (a journey that errored before starting its
// clock passes a negative duration to skip the histogram).
func (c *Collector) RecordJourneyFailure(ctx ContextInfo, duration float64, errType string) {
	if errType == "" {
		errType = "UnknownError"
	}
	labels := ScenarioLabels(ctx)
	_ = c.Inc("ironswarm_journey_executions_total", 1, labels, "")
	failureLabels := cloneLabels(labels)
	failureLabels["error"] = errType
	_ = c.Inc("ironswarm_journey_failures_total", 1, failureLabels, "")
	if duration >= 0 {
		c.Observe("ironswarm_journey_duration_seconds", duration, labels, "", nil)
	}
}
