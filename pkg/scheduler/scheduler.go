// Package scheduler starts and prunes scenario.Managers from the set of
// scenarios currently registered in the cluster's shared CRDT state.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ryan-h265/ironswarm/pkg/metrics"
	"github.com/ryan-h265/ironswarm/pkg/scenario"
	"github.com/ryan-h265/ironswarm/pkg/state"
)

// PollInterval is how often the scheduler checks the scenarios CRDT for
// newly registered or now-complete scenarios.
const PollInterval = time.Second

// ScenarioRegistry resolves a scenario spec string to the Scenario it
// names. Specs are opaque here; the registry is populated by the caller
// at startup from whatever scenario definitions it compiled in; how those
// definitions are discovered or loaded is not this package's concern.
type ScenarioRegistry map[string]scenario.Scenario

// Scheduler polls the scenarios CRDT and keeps exactly one running
// scenario.Manager per spec currently registered there.
type Scheduler struct {
	node      scenario.NodeInfo
	store     *state.Store
	scenarios ScenarioRegistry
	journeys  scenario.Registry
	metrics   *metrics.Collector
	logger    *slog.Logger

	pollInterval time.Duration

	mu       sync.Mutex
	managers map[string]*scenario.Manager
	cancels  map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// New constructs a Scheduler. It does nothing until Run is called.
func New(node scenario.NodeInfo, store *state.Store, scenarios ScenarioRegistry, journeys scenario.Registry, metricsCollector *metrics.Collector, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		node:         node,
		store:        store,
		scenarios:    scenarios,
		journeys:     journeys,
		metrics:      metricsCollector,
		logger:       logger,
		pollInterval: PollInterval,
		managers:     make(map[string]*scenario.Manager),
		cancels:      make(map[string]context.CancelFunc),
	}
}

// SetPollInterval overrides how often Run rescans the scenarios CRDT. Call
// before Run.
func (s *Scheduler) SetPollInterval(d time.Duration) {
	if d > 0 {
		s.pollInterval = d
	}
}

// Run polls the scenarios CRDT every poll interval (PollInterval unless
// SetPollInterval changed it) until ctx is canceled, starting a Manager for
// every registered spec that has none and pruning managers whose scenario
// has completed. A pruned spec still in the CRDT gets a new Manager on the
// next poll.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Scheduler) pollOnce(ctx context.Context) {
	for _, entry := range s.store.ScenarioEntries() {
		s.mu.Lock()
		_, running := s.managers[entry.Spec]
		s.mu.Unlock()
		if running {
			continue
		}

		sc, ok := s.scenarios[entry.Spec]
		if !ok {
			s.logger.Error("no scenario registered for spec", "spec", entry.Spec)
			continue
		}

		startTime := time.Unix(0, int64(entry.Entry.InitTime*float64(time.Second))).Add(time.Duration(sc.Delay) * time.Second)
		mgr := scenario.NewManager(s.node, startTime, sc, s.journeys, s.metrics, s.logger)

		mgrCtx, cancel := context.WithCancel(ctx)
		s.mu.Lock()
		s.managers[entry.Spec] = mgr
		s.cancels[entry.Spec] = cancel
		s.mu.Unlock()

		s.wg.Add(1)
		go func(spec string, mgr *scenario.Manager, mgrCtx context.Context) {
			defer s.wg.Done()
			mgr.Resolve(mgrCtx)
		}(entry.Spec, mgr, mgrCtx)

		s.logger.Info("started new scenario", "spec", entry.Spec)
	}

	s.pruneCompleted()
}

func (s *Scheduler) pruneCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for spec, mgr := range s.managers {
		if mgr.Running() {
			continue
		}
		delete(s.managers, spec)
		if cancel, ok := s.cancels[spec]; ok {
			cancel()
			delete(s.cancels, spec)
		}
		s.logger.Info("removed completed scenario", "spec", spec)
	}
}

// ActiveScenarios returns the specs currently running.
func (s *Scheduler) ActiveScenarios() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	specs := make([]string, 0, len(s.managers))
	for spec := range s.managers {
		specs = append(specs, spec)
	}
	return specs
}

// Shutdown cancels every running scenario.Manager and blocks until all of
// their background journeys have returned.
func (s *Scheduler) Shutdown() {
	s.logger.Info("shutting down scheduler")

	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.cancels))
	for _, cancel := range s.cancels {
		cancels = append(cancels, cancel)
	}
	s.managers = make(map[string]*scenario.Manager)
	s.cancels = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler shutdown complete")
}
