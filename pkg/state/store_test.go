package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookupNode(t *testing.T) {
	s := New()
	s.RegisterNode("node-a", Presence{Host: "10.0.0.1", Port: 42042}, 1)

	p, ok := s.LookupPresence("node-a")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", p.Host)
	assert.Equal(t, 42042, p.Port)
	assert.Equal(t, []string{"node-a"}, s.LivePeers())
}

func TestUnregisterNode_RemovesFromLiveSet(t *testing.T) {
	s := New()
	s.RegisterNode("node-a", Presence{Host: "10.0.0.1", Port: 1}, 1)
	s.UnregisterNode("node-a", 2)

	_, ok := s.LookupPresence("node-a")
	assert.False(t, ok)
	assert.Empty(t, s.LivePeers())
}

func TestLookupPresence_MalformedEntryIsAbsent(t *testing.T) {
	s := New()
	// Directly poke a malformed entry (no host) rather than going through
	// RegisterNode, simulating a misbehaving peer's gossip payload.
	s.NodeRegister.Add("node-b", 1, nil)

	_, ok := s.LookupPresence("node-b")
	assert.False(t, ok)
}

func TestRegisterScenario_ExtrasDuplicateKey(t *testing.T) {
	s := New()
	s.RegisterScenario("scenarios.checkout:run", 100, 1)

	records := s.ScenarioEntries()
	require.Len(t, records, 1)
	assert.Equal(t, "scenarios.checkout:run", records[0].Spec)
	assert.Equal(t, "scenarios.checkout:run", records[0].Entry.Scenario)
	assert.Equal(t, float64(100), records[0].Entry.InitTime)
}

func TestRecordMetricsSnapshot_KeyFormat(t *testing.T) {
	s := New()
	key := s.RecordMetricsSnapshot("node-a", 1000, `{"requests":42}`, 1000)
	assert.Equal(t, "node-a:1000", key)

	records := s.MetricsSnapshotRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "node-a", records[0].NodeIdentity)
	assert.Equal(t, `{"requests":42}`, records[0].Payload)
}

func TestPruneExpired_RemovesOldSnapshots(t *testing.T) {
	s := New()
	now := time.Now()
	oldTS := float64(now.Add(-3*time.Hour).UnixNano()) / float64(time.Second)
	s.RecordMetricsSnapshot("node-a", oldTS, "{}", oldTS)

	freshTS := float64(now.UnixNano()) / float64(time.Second)
	s.RecordMetricsSnapshot("node-b", freshTS, "{}", freshTS)

	pruned := s.PruneExpired(2*time.Hour, now, float64(now.UnixNano())/float64(time.Second))
	assert.Len(t, pruned, 1)

	records := s.MetricsSnapshotRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "node-b", records[0].NodeIdentity)
}

func TestSnapshotRecord_IsExpired(t *testing.T) {
	now := time.Now()
	rec := SnapshotRecord{Timestamp: float64(now.Add(-10 * time.Minute).UnixNano()) / float64(time.Second)}

	assert.True(t, rec.IsExpired(5*time.Minute, now))
	assert.False(t, rec.IsExpired(30*time.Minute, now))
}
