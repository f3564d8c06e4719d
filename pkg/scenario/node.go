package scenario

// NodeInfo is the view of the owning node a ScenarioManager needs: its
// identity for context metadata, and its position within the live cluster
// for work partitioning. Satisfied by pkg/node.Node without scenario
// importing node (which itself depends on scenario), avoiding a cycle.
type NodeInfo interface {
	Identity() string
	// Count is the number of live peers in the cluster, used as the
	// partition denominator.
	Count() int
	// Index is this node's zero-based position among live peers, sorted
	// by identity, or ok=false if this node has not yet been registered
	// (e.g. during startup, before the first gossip round completes).
	Index() (index int, ok bool)
}
