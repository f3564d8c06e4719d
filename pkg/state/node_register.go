package state

import "github.com/ryan-h265/ironswarm/pkg/crdt"

// Presence is the node_register extras shape: where a live peer can be
// reached.
type Presence struct {
	Host string
	Port int
}

// RegisterNode asserts this node's presence at ts (0 = now). Called once at
// bind, and again by pkg/node's gossip loop whenever a round finds the node
// missing from node_register.
func (s *Store) RegisterNode(identity string, presence Presence, ts float64) {
	s.NodeRegister.Add(identity, ts, crdt.Metadata{
		"host": presence.Host,
		"port": presence.Port,
	})
}

// UnregisterNode soft-deletes a peer from node_register, used for
// voluntary departure on shutdown and for timeout-driven eviction.
func (s *Store) UnregisterNode(identity string, ts float64) {
	s.NodeRegister.Remove(identity, ts, nil)
}

// LookupPresence returns a live peer's host/port, or false if it is absent
// or its extras don't carry the expected fields (a malformed entry from a
// misbehaving peer is treated as absent, not a crash).
func (s *Store) LookupPresence(identity string) (Presence, bool) {
	entry, ok := s.NodeRegister.Lookup(identity)
	if !ok {
		return Presence{}, false
	}
	host, _ := entry.Extras["host"].(string)
	port, ok := toInt(entry.Extras["port"])
	if host == "" || !ok {
		return Presence{}, false
	}
	return Presence{Host: host, Port: port}, true
}

// LivePeers returns the currently-present node_register keys, sorted.
func (s *Store) LivePeers() []string {
	return s.NodeRegister.Keys()
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}
