package state

import (
	"fmt"
	"time"

	"github.com/ryan-h265/ironswarm/pkg/crdt"
)

// SnapshotRecord is the metrics_snapshots extras shape. Payload is an
// already-encoded metrics snapshot (pkg/metrics' sonic-JSON export); the
// wire schema only allows scalar metadata values, so the snapshot body
// travels as a string, not a nested map.
type SnapshotRecord struct {
	Key          string
	NodeIdentity string
	Timestamp    float64
	Payload      string
}

// AgeSeconds returns how long ago the snapshot was taken, relative to now.
func (r SnapshotRecord) AgeSeconds(now time.Time) float64 {
	return now.Sub(time.Unix(0, int64(r.Timestamp*float64(time.Second)))).Seconds()
}

// IsExpired reports whether the snapshot is older than ttl.
func (r SnapshotRecord) IsExpired(ttl time.Duration, now time.Time) bool {
	return r.AgeSeconds(now) > ttl.Seconds()
}

// SnapshotKey builds the "<node_identity>:<timestamp>" element key used as
// the metrics_snapshots entry key.
func SnapshotKey(nodeIdentity string, timestamp float64) string {
	return fmt.Sprintf("%s:%d", nodeIdentity, int64(timestamp))
}

// RecordMetricsSnapshot inserts one node's metrics snapshot at ts (0 = now).
func (s *Store) RecordMetricsSnapshot(nodeIdentity string, timestamp float64, payload string, ts float64) string {
	key := SnapshotKey(nodeIdentity, timestamp)
	s.MetricsSnapshots.Add(key, ts, crdt.Metadata{
		"node_identity":    nodeIdentity,
		"timestamp":        timestamp,
		"snapshot_payload": payload,
	})
	return key
}

// MetricsSnapshotRecords returns every currently-present snapshot record, sorted
// by key (which sorts by node_identity then timestamp lexically).
func (s *Store) MetricsSnapshotRecords() []SnapshotRecord {
	entries := s.MetricsSnapshots.Entries()
	out := make([]SnapshotRecord, 0, len(entries))
	for _, e := range entries {
		nodeIdentity, _ := e.Entry.Extras["node_identity"].(string)
		timestamp, _ := toFloat(e.Entry.Extras["timestamp"])
		payload, _ := e.Entry.Extras["snapshot_payload"].(string)
		out = append(out, SnapshotRecord{
			Key:          e.Key,
			NodeIdentity: nodeIdentity,
			Timestamp:    timestamp,
			Payload:      payload,
		})
	}
	return out
}

// PruneExpired removes every snapshot record older than ttl, soft-deleting
// each via Remove so the tombstone itself still gossips (peers that haven't
// seen the removal yet would otherwise keep resurrecting it).
func (s *Store) PruneExpired(ttl time.Duration, now time.Time, ts float64) []string {
	var pruned []string
	for _, rec := range s.MetricsSnapshotRecords() {
		if rec.IsExpired(ttl, now) {
			s.MetricsSnapshots.Remove(rec.Key, ts, nil)
			pruned = append(pruned, rec.Key)
		}
	}
	return pruned
}
