package config

import "time"

// RetentionConfig controls metrics snapshot retention in pkg/metrics and
// pkg/node's save/prune loop.
type RetentionConfig struct {
	// SnapshotTTL is the maximum age of a metrics_snapshots CRDT entry (and
	// of an on-disk metrics_*.json file) before it is considered expired.
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`

	// SaveInterval is how often the node takes a reset snapshot, persists it
	// to disk, and inserts it into the metrics_snapshots CRDT.
	SaveInterval time.Duration `yaml:"save_interval"`

	// PruneInterval is loaded and validated but not read by pkg/node, which
	// removes expired snapshot entries from the in-memory CRDT view right
	// after every SaveInterval save (the add_set/remove_set history itself
	// is never garbage-collected; only the live view is pruned).
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		SnapshotTTL:   120 * time.Minute,
		SaveInterval:  30 * time.Second,
		PruneInterval: 5 * time.Minute,
	}
}
