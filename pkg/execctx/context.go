// Package execctx implements the per-request execution scope every journey
// runs inside: trace/span identity, request metadata, LIFO cleanup hooks
// and a metrics sidecar. Trace/span identity is typed via
// go.opentelemetry.io/otel/trace rather than ad hoc hex strings.
package execctx

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// MetricEntry is one value recorded against this context's local metrics
// sidecar via RecordMetric, kept separate from the process-wide
// pkg/metrics.Collector so a caller can inspect exactly what one request
// observed before (or instead of) it is folded into the shared registry.
type MetricEntry struct {
	Value     float64
	Timestamp time.Time
	Labels    map[string]string
}

// CleanupHook runs during Close, in LIFO order relative to registration.
type CleanupHook func(context.Context) error

// Context is the execution scope for one request: a journey invocation, or
// a child scope nested inside one.
type Context struct {
	traceID      trace.TraceID
	spanID       trace.SpanID
	parentSpanID trace.SpanID

	startTime time.Time
	endTime   time.Time

	mu       sync.Mutex
	metadata map[string]string
	metrics  map[string][]MetricEntry
	hooks    []CleanupHook
	closed   bool
}

// New creates a root context: a fresh trace ID, no parent span. metadata is
// copied, not aliased.
func New(metadata map[string]string) *Context {
	return &Context{
		traceID:   newTraceID(),
		spanID:    newSpanID(),
		startTime: time.Now(),
		metadata:  cloneStringMap(metadata),
		metrics:   make(map[string][]MetricEntry),
	}
}

// CreateChild returns a nested context sharing this context's trace ID,
// with this context's span ID as its parent. overrides is merged over a
// copy of the parent's metadata.
func (c *Context) CreateChild(overrides map[string]string) *Context {
	c.mu.Lock()
	parentMetadata := cloneStringMap(c.metadata)
	parentSpan := c.spanID
	traceID := c.traceID
	c.mu.Unlock()

	for k, v := range overrides {
		parentMetadata[k] = v
	}

	return &Context{
		traceID:      traceID,
		spanID:       newSpanID(),
		parentSpanID: parentSpan,
		startTime:    time.Now(),
		metadata:     parentMetadata,
		metrics:      make(map[string][]MetricEntry),
	}
}

func newTraceID() trace.TraceID {
	var id trace.TraceID
	_, _ = rand.Read(id[:])
	return id
}

func newSpanID() trace.SpanID {
	var id trace.SpanID
	_, _ = rand.Read(id[:])
	return id
}

// TraceID returns the context's trace identifier.
func (c *Context) TraceID() trace.TraceID { return c.traceID }

// SpanID returns the context's own span identifier.
func (c *Context) SpanID() trace.SpanID { return c.spanID }

// ParentSpanID returns the parent span identifier, or the zero SpanID for a
// root context.
func (c *Context) ParentSpanID() trace.SpanID { return c.parentSpanID }

// StartTime reports when the context was created.
func (c *Context) StartTime() time.Time { return c.startTime }

// Elapsed reports time since StartTime, measured against EndTime once the
// context is closed.
func (c *Context) Elapsed() time.Duration {
	c.mu.Lock()
	end := c.endTime
	c.mu.Unlock()
	if end.IsZero() {
		return time.Since(c.startTime)
	}
	return end.Sub(c.startTime)
}

// Metadata returns a defensive copy of the context's metadata.
func (c *Context) Metadata() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneStringMap(c.metadata)
}

// Scenario, JourneyName and NodeIdentity satisfy pkg/metrics.ContextInfo.
func (c *Context) Scenario() string     { return c.metaGet("scenario") }
func (c *Context) JourneyName() string  { return c.metaGet("journey_spec") }
func (c *Context) NodeIdentity() string { return c.metaGet("node") }

func (c *Context) metaGet(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metadata[key]
}

// Logger returns a slog.Logger pre-populated with this context's trace and
// span identity.
func (c *Context) Logger(base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("trace_id", c.traceID.String(), "span_id", c.spanID.String())
}

// RecordMetric appends a local observation under name. It does not touch
// the process-wide metrics.Collector; callers fold interesting entries
// into it explicitly (e.g. via RecordHTTPRequest) when a request completes.
func (c *Context) RecordMetric(name string, value float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics[name] = append(c.metrics[name], MetricEntry{
		Value:     value,
		Timestamp: time.Now(),
		Labels:    cloneStringMap(labels),
	})
}

// MetricEntries returns the locally recorded entries for name.
func (c *Context) MetricEntries(name string) []MetricEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MetricEntry(nil), c.metrics[name]...)
}

// AddCleanupHook registers hook to run during Close. Hooks run in LIFO
// order: the most recently added hook runs first.
func (c *Context) AddCleanupHook(hook CleanupHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// Close runs every registered cleanup hook in LIFO order and marks the
// context closed. A hook's error is logged and does not stop the remaining
// hooks from running; all hook errors are joined into the returned error.
// A second call to Close returns ErrAlreadyClosed without re-running hooks.
func (c *Context) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.closed = true
	c.endTime = time.Now()
	hooks := c.hooks
	c.hooks = nil
	logger := c.Logger(nil)
	c.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			logger.Error("cleanup hook failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
