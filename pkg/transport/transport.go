// Package transport implements the gossip wire transport: a ROUTER socket
// accepting inbound state-exchange requests and a DEALER socket initiating
// outbound ones.
package transport

import (
	"context"

	"github.com/ryan-h265/ironswarm/pkg/crdt"
)

// State is the set of CRDTs a gossip exchange can read and merge into,
// keyed the same way the node's pkg/state.Store exposes them
// ("node_register", "scenarios", "metrics_snapshots").
type State map[string]*crdt.LWWElementSet

// Transport is the gossip wire boundary: bind/listen for inbound exchange
// requests, send an outbound exchange to a peer, and shut down cleanly.
type Transport interface {
	// Bind binds the inbound socket to host:port, retrying on later ports
	// up to maxBindAttempts when strictPort is false.
	Bind(strictPort bool) error
	// Listen runs the inbound accept loop until ctx is canceled or
	// Shutdown is called.
	Listen(ctx context.Context, state State) error
	// Send pushes this node's state for key to the peer identified by
	// nodeID at socket address, merging back whatever the peer replies
	// with. On no response it removes nodeID from state[key].
	Send(ctx context.Context, nodeID, socket, key string, state State) error
	// Shutdown signals Listen to return.
	Shutdown()
	// Close releases the underlying sockets. Safe to call once, after
	// Shutdown/Listen has returned.
	Close() error
	// Host and Port report the address the router is bound to, after a
	// successful Bind (Port may differ from the constructor argument if
	// binding retried on a later port).
	Host() string
	Port() int
}
