package node

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryan-h265/ironswarm/pkg/state"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	n, err := New(Options{Host: string(HostLocal), Port: 0, MetricsDir: t.TempDir()})
	require.NoError(t, err)
	return n
}

func TestNew_GeneratesHexIdentityWithoutDashes(t *testing.T) {
	n := newTestNode(t)
	assert.Len(t, n.Identity(), 32)
	assert.NotContains(t, n.Identity(), "-")
}

func TestCount_ReflectsLiveNodeRegisterSize(t *testing.T) {
	n := newTestNode(t)
	assert.Equal(t, 0, n.Count())

	n.store.RegisterNode(n.identity, presenceFor(n), 0)
	assert.Equal(t, 1, n.Count())

	n.store.RegisterNode("peer-1", presenceFor(n), 0)
	assert.Equal(t, 2, n.Count())
}

func TestIndex_UnregisteredNodeIsNotOK(t *testing.T) {
	n := newTestNode(t)
	_, ok := n.Index()
	assert.False(t, ok)
}

func TestIndex_ReflectsLexicographicPosition(t *testing.T) {
	n := newTestNode(t)
	n.identity = "bbbb"
	n.store.RegisterNode("aaaa", presenceFor(n), 0)
	n.store.RegisterNode("bbbb", presenceFor(n), 0)
	n.store.RegisterNode("cccc", presenceFor(n), 0)

	idx, ok := n.Index()
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestIndex_CacheInvalidatesWhenRegisterChanges(t *testing.T) {
	n := newTestNode(t)
	n.identity = "bbbb"
	n.store.RegisterNode("bbbb", presenceFor(n), 0)

	idx, ok := n.Index()
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	n.store.RegisterNode("aaaa", presenceFor(n), 0)
	idx, ok = n.Index()
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestPickRandomNeighbours_ExcludesSelfAndCapsAtCount(t *testing.T) {
	n := newTestNode(t)
	n.store.RegisterNode(n.identity, presenceFor(n), 0)
	for _, id := range []string{"p1", "p2", "p3"} {
		n.store.RegisterNode(id, presenceFor(n), 0)
	}

	picked := n.pickRandomNeighbours(2)
	assert.Len(t, picked, 2)
	for _, id := range picked {
		assert.NotEqual(t, n.identity, id)
	}
}

func TestPickRandomNeighbours_FewerPeersThanRequestedReturnsAll(t *testing.T) {
	n := newTestNode(t)
	n.store.RegisterNode("p1", presenceFor(n), 0)

	picked := n.pickRandomNeighbours(5)
	assert.Equal(t, []string{"p1"}, picked)
}

func TestSaveAndLoadMetricsSnapshot_RoundTrips(t *testing.T) {
	n := newTestNode(t)
	require.NoError(t, os.MkdirAll(filepath.Join(n.metricsDir, n.identity), 0o755))

	n.metrics.Inc("ironswarm_http_requests_total", 1, nil, "")
	n.saveMetricsSnapshot()

	records := n.store.MetricsSnapshotRecords()
	require.Len(t, records, 1)
	assert.Equal(t, n.identity, records[0].NodeIdentity)

	entries, err := os.ReadDir(filepath.Join(n.metricsDir, n.identity))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	n2 := newTestNode(t)
	n2.identity = n.identity
	n2.metricsDir = n.metricsDir
	n2.loadDiskSnapshots()
	assert.Len(t, n2.store.MetricsSnapshotRecords(), 1)
}

func TestParseSnapshotTimestamp_RejectsMalformedNames(t *testing.T) {
	_, ok := parseSnapshotTimestamp("not_a_snapshot.json")
	assert.False(t, ok)

	ts, ok := parseSnapshotTimestamp("metrics_12345.json")
	require.True(t, ok)
	assert.Equal(t, int64(12345), ts)
}

func presenceFor(n *Node) state.Presence {
	return state.Presence{Host: "127.0.0.1", Port: 1}
}
