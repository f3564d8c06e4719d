package scenario

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ryan-h265/ironswarm/pkg/execctx"
	"github.com/ryan-h265/ironswarm/pkg/metrics"
)

// Manager owns one running Scenario: it resolves work intervals on the
// scenario's clock, partitions volume across the cluster, and spawns
// journey executions for this node's share.
type Manager struct {
	node     NodeInfo
	registry Registry
	metrics  *metrics.Collector
	logger   *slog.Logger

	startTime time.Time
	scenario  Scenario

	mu               sync.Mutex
	workResolved     map[int]struct{}
	journeysComplete map[string]int
	totalSpawned     int
	running          bool

	wg sync.WaitGroup
}

// NewManager constructs a Manager for scenario, marked running so a
// scheduler's prune pass can't reap it before its Resolve goroutine gets
// scheduled. Call Resolve (typically in its own goroutine) to start its
// clock.
func NewManager(node NodeInfo, startTime time.Time, sc Scenario, registry Registry, metricsCollector *metrics.Collector, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		node:             node,
		registry:         registry,
		metrics:          metricsCollector,
		logger:           logger,
		startTime:        startTime,
		scenario:         sc,
		workResolved:     make(map[int]struct{}),
		journeysComplete: make(map[string]int),
		running:          true,
	}
}

// Elapsed is time since startTime.
func (m *Manager) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// WorkIndex is the current work interval: floor(elapsed / interval).
func (m *Manager) WorkIndex() int {
	return int(math.Floor(m.Elapsed().Seconds() / float64(m.scenario.Interval)))
}

// TotalSpawned is the running count of journey executions started so far.
func (m *Manager) TotalSpawned() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalSpawned
}

// Running reports whether the scenario still has unresolved work.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Resolve runs the scenario's clock until ctx is canceled or every journey
// signals completion: each tick it sleeps until the next interval boundary,
// then resolves that interval's work.
func (m *Manager) Resolve(ctx context.Context) {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		// In-flight journeys see ctx cancellation; wait for them all to
		// unwind before reporting the manager stopped.
		m.wg.Wait()
	}()

	for {
		elapsed := m.Elapsed().Seconds()
		interval := float64(m.scenario.Interval)
		untilNext := interval - mod(elapsed, interval)

		timer := time.NewTimer(time.Duration(untilNext * float64(time.Second)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if !m.resolveOnce(ctx) {
			return
		}
	}
}

func mod(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	m := a - b*float64(int(a/b))
	if m < 0 {
		m += b
	}
	return m
}

// resolveOnce processes the current work interval once, spawning a
// goroutine per journey with work this tick. Returns false once the
// scenario has no more work and Resolve should stop.
func (m *Manager) resolveOnce(ctx context.Context) bool {
	idx := m.WorkIndex()

	m.mu.Lock()
	if _, seen := m.workResolved[idx]; seen {
		running := m.running
		m.mu.Unlock()
		if !running {
			return false
		}
		time.Sleep(time.Duration(m.scenario.JourneySeparation * float64(time.Second)))
		return true
	}
	m.workResolved[idx] = struct{}{}
	m.mu.Unlock()

	workItems, complete := m.work(idx)
	for _, w := range workItems {
		w := w
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.spawnJourneys(ctx, w.JourneySpec, w.SubintervalVolumes, w.Data)
		}()
	}

	if complete {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return false
	}
	return true
}

// spawnJourneys runs journeySpec's function once per spawn slot across each
// sub-interval, pacing spawns journeySeparation seconds apart. If the
// journey has a datapool and it runs out of items mid-interval, remaining
// spawns for that interval are skipped.
func (m *Manager) spawnJourneys(ctx context.Context, journeySpec string, subIntervalVolumes []int, chunk func(func(any) bool)) {
	fn, ok := m.registry.Resolve(journeySpec)
	if !ok {
		m.logger.Error("no journey registered for spec", "spec", journeySpec)
		return
	}

	var next func() (any, bool)
	if chunk != nil {
		var stop func()
		next, stop = pullFunc(chunk)
		defer stop()
	}

	// Divide in float first: JourneySeparation may be sub-second (e.g.
	// 0.5), which an integer conversion would truncate to zero.
	subIntervals := 0
	if m.scenario.JourneySeparation > 0 {
		subIntervals = int(float64(m.scenario.Interval) / m.scenario.JourneySeparation)
	}

	for i := 0; i < subIntervals; i++ {
		if ctx.Err() != nil {
			return
		}
		if i >= len(subIntervalVolumes) {
			return
		}

		for s := 0; s < subIntervalVolumes[i]; s++ {
			execCtx := execctx.New(map[string]string{
				"scenario":     m.scenario.Name,
				"journey_spec": journeySpec,
				"node":         m.node.Identity(),
			})

			var item any
			hasItem := true
			if next != nil {
				item, hasItem = next()
				if !hasItem {
					m.logger.Warn("datapool exhausted, no more items available")
					return
				}
			}

			m.mu.Lock()
			m.totalSpawned++
			m.mu.Unlock()

			m.wg.Add(1)
			go func(item any) {
				defer m.wg.Done()
				m.runJourneyWithContext(ctx, fn, execCtx, item)
			}(item)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(m.scenario.JourneySeparation * float64(time.Second))):
		}
	}
}

// pullFunc turns an iter.Seq[any] into a pull-style next() function backed
// by a goroutine and an unbuffered channel, so spawnJourneys can interleave
// "take one item" with "sleep between sub-intervals" the way the reference
// implementation's synchronous generator does.
func pullFunc(seq func(func(any) bool)) (next func() (any, bool), stop func()) {
	items := make(chan any)
	done := make(chan struct{})
	go func() {
		defer close(items)
		seq(func(v any) bool {
			select {
			case items <- v:
				return true
			case <-done:
				return false
			}
		})
	}()
	return func() (any, bool) {
			v, ok := <-items
			return v, ok
		}, func() {
			close(done)
		}
}

// runJourneyWithContext runs fn to completion (or cancellation), records
// success/failure metrics, and always closes execCtx.
func (m *Manager) runJourneyWithContext(ctx context.Context, fn JourneyFunc, execCtx *execctx.Context, item any) {
	defer func() {
		if err := execCtx.Close(ctx); err != nil {
			m.logger.Error("error closing journey context", "error", err)
		}
	}()

	start := time.Now()
	err := fn(ctx, execCtx, item)
	duration := time.Since(start).Seconds()

	if err != nil {
		errType := "UnknownError"
		m.logger.Error("journey failed", "spec", execCtx.JourneyName(), "error", err)
		if m.metrics != nil {
			m.metrics.RecordJourneyFailure(execCtx, duration, errType)
		}
		return
	}
	if m.metrics != nil {
		m.metrics.RecordJourneySuccess(execCtx, duration)
	}
}

// CancelTasks cancels every in-flight journey (via the context passed to
// Resolve) and blocks until they have all returned.
func (m *Manager) CancelTasks(cancel context.CancelFunc) {
	cancel()
	m.wg.Wait()
}
