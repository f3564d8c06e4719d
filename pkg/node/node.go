// Package node ties the gossip transport, CRDT state, scheduler, and
// metrics pipeline together into one running cluster participant.
package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ryan-h265/ironswarm/pkg/metrics"
	"github.com/ryan-h265/ironswarm/pkg/scenario"
	"github.com/ryan-h265/ironswarm/pkg/scheduler"
	"github.com/ryan-h265/ironswarm/pkg/state"
	"github.com/ryan-h265/ironswarm/pkg/transport"
)

const (
	// GossipInterval is how often the node re-asserts its own presence and
	// gossips state to a random sample of peers.
	GossipInterval = 2 * time.Second
	// MetricsSaveInterval is how often the node snapshots its local metrics
	// into the metrics_snapshots CRDT and to disk.
	MetricsSaveInterval = 30 * time.Second
	// SnapshotTTL bounds how long a metrics snapshot is kept before being
	// pruned from the CRDT and skipped on disk replay.
	SnapshotTTL = 120 * time.Minute
	// GossipFanout is the number of random peers contacted per gossip round.
	GossipFanout = 4
)

// HostMode selects how Bind resolves the listen address.
type HostMode string

const (
	HostPublic HostMode = "public"
	HostLocal  HostMode = "local"
)

// Options configures a new Node.
type Options struct {
	Host           string // HostPublic, HostLocal, or a literal address
	Port           int
	BootstrapNodes []string
	Job            string
	MetricsDir     string
	ScenarioSpecs  scheduler.ScenarioRegistry
	Journeys       scenario.Registry
	Logger         *slog.Logger

	// Tunables; a zero value falls back to the package constants.
	GossipInterval     time.Duration
	GossipFanout       int
	SaveInterval       time.Duration
	SnapshotTTL        time.Duration
	PollTimeout        time.Duration
	MaxBindAttempts    int
	CompressionLevel   int
	SchedulerPollEvery time.Duration
}

// Node is one participant in the gossip cluster: it owns the CRDT state,
// the transport, the metrics collector, and the scenario scheduler.
type Node struct {
	identity string

	transport transport.Transport
	store     *state.Store
	metrics   *metrics.Collector
	scheduler *scheduler.Scheduler
	logger    *slog.Logger

	metricsDir     string
	bootstrapNodes []string

	gossipInterval time.Duration
	gossipFanout   int
	saveInterval   time.Duration
	snapshotTTL    time.Duration

	mu          sync.Mutex
	cachedKeys  map[string]struct{}
	cachedCount int
	cachedIndex int
	cachedOK    bool
	cacheValid  bool
	running     bool
}

// New constructs a Node. Call Bind then Run to start it.
func New(opts Options) (*Node, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	host := opts.Host
	switch HostMode(host) {
	case HostPublic, "":
		host = defaultRouteAddress()
	case HostLocal:
		host = "127.0.0.1"
	}

	port := opts.Port
	if port == 0 {
		port = 42042
	}

	identity := strings.ReplaceAll(uuid.New().String(), "-", "")
	store := state.New()
	nodeLogger := logger.With("node", identity[:8])

	t := transport.NewZMQTransport(context.Background(), host, port, identity, nodeLogger)
	t.SetPollTimeout(opts.PollTimeout)
	t.SetMaxBindAttempts(opts.MaxBindAttempts)
	t.SetCompressionLevel(opts.CompressionLevel)

	metricsCollector := metrics.New()

	n := &Node{
		identity:       identity,
		transport:      t,
		store:          store,
		metrics:        metricsCollector,
		logger:         nodeLogger,
		metricsDir:     opts.MetricsDir,
		bootstrapNodes: opts.BootstrapNodes,
		gossipInterval: durationOr(opts.GossipInterval, GossipInterval),
		gossipFanout:   intOr(opts.GossipFanout, GossipFanout),
		saveInterval:   durationOr(opts.SaveInterval, MetricsSaveInterval),
		snapshotTTL:    durationOr(opts.SnapshotTTL, SnapshotTTL),
		running:        true,
	}

	n.scheduler = scheduler.New(n, store, opts.ScenarioSpecs, opts.Journeys, metricsCollector, nodeLogger)
	n.scheduler.SetPollInterval(opts.SchedulerPollEvery)

	if opts.Job != "" {
		store.RegisterScenario(opts.Job, nowUnix(), 0)
	}

	return n, nil
}

// Identity returns this node's 128-bit hex identity.
func (n *Node) Identity() string { return n.identity }

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func intOr(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

// gossipState is the subset of the store gossiped over the wire, keyed the
// way Transport.Send/Listen expect.
func (n *Node) gossipState() transport.State {
	return transport.State{
		"node_register":     n.store.NodeRegister,
		"scenarios":         n.store.Scenarios,
		"metrics_snapshots": n.store.MetricsSnapshots,
	}
}

// Bind opens the transport, seeds on-disk metrics snapshots, registers
// self, and best-effort bootstraps to any configured peers.
func (n *Node) Bind(strictPort bool) error {
	if err := n.transport.Bind(strictPort); err != nil {
		return fmt.Errorf("node: bind failed: %w", err)
	}

	if n.metricsDir != "" {
		if err := os.MkdirAll(filepath.Join(n.metricsDir, n.identity), 0o755); err != nil {
			n.logger.Error("failed to create metrics dir", "error", err)
		}
		n.loadDiskSnapshots()
	}

	n.store.RegisterNode(n.identity, state.Presence{Host: n.transport.Host(), Port: n.transport.Port()}, 0)

	for _, peer := range n.bootstrapNodes {
		n.logger.Debug("bootstrapping to peer", "peer", peer)
		if err := n.transport.Send(context.Background(), "", peer, "node_register", n.gossipState()); err != nil {
			n.logger.Warn("bootstrap send failed", "peer", peer, "error", err)
		}
	}

	return nil
}

// Run starts the transport listen loop, the gossip loop, the scheduler,
// and the metrics save loop, blocking until ctx is canceled.
func (n *Node) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	// The listen loop is not tracked by the WaitGroup: it blocks in a
	// socket receive that only returns once Shutdown closes the transport,
	// which happens after Run has already returned.
	go func() {
		if err := n.transport.Listen(ctx, n.gossipState()); err != nil {
			select {
			case errCh <- fmt.Errorf("node: listen loop failed: %w", err):
			default:
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.gossipLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.scheduler.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n.metricsSaveLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func (n *Node) gossipLoop(ctx context.Context) {
	ticker := time.NewTicker(n.gossipInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.updateNeighbours(ctx, false)
		}
	}
}

// updateNeighbours re-adds self presence if it is missing (unless shuttingDown), then
// gossips node_register, scenarios, and metrics_snapshots to a random
// sample of peers.
func (n *Node) updateNeighbours(ctx context.Context, shuttingDown bool) {
	if !shuttingDown {
		if _, ok := n.store.LookupPresence(n.identity); !ok {
			n.logger.Debug("self missing from node register, re-adding")
			n.store.RegisterNode(n.identity, state.Presence{Host: n.transport.Host(), Port: n.transport.Port()}, 0)
		}
	}

	peers := n.pickRandomNeighbours(n.gossipFanout)
	for _, peerID := range peers {
		presence, ok := n.store.LookupPresence(peerID)
		if !ok {
			continue
		}
		socket := fmt.Sprintf("tcp://%s:%d", presence.Host, presence.Port)

		for _, key := range []string{"node_register", "scenarios", "metrics_snapshots"} {
			if err := n.transport.Send(ctx, peerID, socket, key, n.gossipState()); err != nil {
				n.logger.Debug("gossip send failed", "peer", peerID, "key", key, "error", err)
			}
		}
	}
}

// pickRandomNeighbours samples up to count peers from node_register, excluding
// self.
func (n *Node) pickRandomNeighbours(count int) []string {
	candidates := make([]string, 0)
	for _, id := range n.store.LivePeers() {
		if id != n.identity {
			candidates = append(candidates, id)
		}
	}
	sort.Strings(candidates)

	if count > len(candidates) {
		count = len(candidates)
	}
	if count == 0 {
		return nil
	}

	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	return candidates[:count]
}

func (n *Node) metricsSaveLoop(ctx context.Context) {
	ticker := time.NewTicker(n.saveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.saveMetricsSnapshot()
			n.store.PruneExpired(n.snapshotTTL, time.Now(), 0)
		}
	}
}

func (n *Node) saveMetricsSnapshot() {
	snap := n.metrics.Snapshot(true)
	ts := nowUnix()

	encoded, err := metrics.EncodeJSON(struct {
		metrics.Snapshot
		NodeIdentity string `json:"node_identity"`
	}{Snapshot: snap, NodeIdentity: n.identity})
	if err != nil {
		n.logger.Error("failed to encode metrics snapshot", "error", err)
		return
	}

	n.store.RecordMetricsSnapshot(n.identity, ts, string(encoded), 0)

	if n.metricsDir == "" {
		return
	}
	path := filepath.Join(n.metricsDir, n.identity, fmt.Sprintf("metrics_%d.json", int64(ts)))
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		n.logger.Error("failed to write metrics snapshot to disk", "path", path, "error", err)
	}
}

// loadDiskSnapshots replays on-disk snapshots for this node that are still
// within SnapshotTTL into the metrics_snapshots CRDT.
func (n *Node) loadDiskSnapshots() {
	dir := filepath.Join(n.metricsDir, n.identity)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	now := time.Now()
	for _, entry := range entries {
		name := entry.Name()
		ts, ok := parseSnapshotTimestamp(name)
		if !ok {
			continue
		}

		rec := state.SnapshotRecord{Timestamp: float64(ts)}
		if rec.IsExpired(n.snapshotTTL, now) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			n.logger.Warn("failed to read metrics snapshot file", "path", name, "error", err)
			continue
		}
		n.store.RecordMetricsSnapshot(n.identity, float64(ts), string(data), 0)
	}
}

func parseSnapshotTimestamp(filename string) (int64, bool) {
	const prefix, suffix = "metrics_", ".json"
	if !strings.HasPrefix(filename, prefix) || !strings.HasSuffix(filename, suffix) {
		return 0, false
	}
	tsStr := strings.TrimSuffix(strings.TrimPrefix(filename, prefix), suffix)
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// invalidateCache recomputes count/index caches if the live peer set
// changed since the last call.
func (n *Node) invalidateCache() {
	n.mu.Lock()
	defer n.mu.Unlock()

	live := n.store.LivePeers()
	current := make(map[string]struct{}, len(live))
	for _, id := range live {
		current[id] = struct{}{}
	}

	if n.cacheValid && sameKeySet(n.cachedKeys, current) {
		return
	}

	n.cachedKeys = current
	n.cachedCount = len(current)

	sorted := make([]string, 0, len(live))
	sorted = append(sorted, live...)
	sort.Strings(sorted)

	idx := sort.SearchStrings(sorted, n.identity)
	if idx < len(sorted) && sorted[idx] == n.identity {
		n.cachedIndex = idx
		n.cachedOK = true
	} else {
		n.cachedIndex = 0
		n.cachedOK = false
	}
	n.cacheValid = true
}

func sameKeySet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// Count returns the number of currently-present node_register entries.
// Satisfies scenario.NodeInfo.
func (n *Node) Count() int {
	n.invalidateCache()
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cachedCount
}

// Index returns this node's position in the lexicographically sorted live
// set, or ok=false if absent. Satisfies scenario.NodeInfo.
func (n *Node) Index() (int, bool) {
	n.invalidateCache()
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cachedIndex, n.cachedOK
}

// ActiveScenarios returns the specs currently running on this node's
// Scheduler, for callers such as a --stats reporting loop.
func (n *Node) ActiveScenarios() []string {
	return n.scheduler.ActiveScenarios()
}

// Shutdown stops accepting new work, halts the scheduler, removes self
// from node_register, gossips departure, and closes the transport.
func (n *Node) Shutdown() error {
	n.logger.Info("shutting down node")

	n.mu.Lock()
	n.running = false
	n.mu.Unlock()

	n.scheduler.Shutdown()

	n.store.UnregisterNode(n.identity, 0)
	n.updateNeighbours(context.Background(), true)

	n.transport.Shutdown()
	if err := n.transport.Close(); err != nil {
		return fmt.Errorf("node: error closing transport: %w", err)
	}

	n.logger.Info("node shutdown complete")
	return nil
}

// marshalState is an escape hatch for debug/inspection callers (e.g. an
// out-of-scope dashboard) that want a point-in-time dump of the CRDT state.
func (n *Node) marshalState() ([]byte, error) {
	dump := map[string]any{
		"node_register": n.store.LivePeers(),
		"scenarios":     n.store.ScenarioEntries(),
	}
	return json.Marshal(dump)
}
