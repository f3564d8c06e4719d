// Package state holds the fixed set of well-known CRDT keys a Node
// replicates: node_register, scenarios, and metrics_snapshots. Per the
// design notes, raw LWWElementSet metadata stays a flat scalar map (so it
// still round-trips through pkg/wire unchanged), but callers never touch
// that map directly; Store exposes typed accessors (Presence,
// ScenarioEntry, SnapshotRecord) instead of dynamic any-valued metadata.
package state

import "github.com/ryan-h265/ironswarm/pkg/crdt"

// Store is the set of LWW-Element-Sets one Node maintains and gossips.
type Store struct {
	NodeRegister     *crdt.LWWElementSet
	Scenarios        *crdt.LWWElementSet
	MetricsSnapshots *crdt.LWWElementSet
}

// New returns an empty Store with all three sets initialized.
func New() *Store {
	return &Store{
		NodeRegister:     crdt.New(),
		Scenarios:        crdt.New(),
		MetricsSnapshots: crdt.New(),
	}
}
