package transport

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryan-h265/ironswarm/pkg/crdt"
)

func freePort(t *testing.T) int {
	t.Helper()
	return 28500 + (int(time.Now().UnixNano()) % 1000)
}

func TestZMQTransport_BindIncrementsPortOnConflict(t *testing.T) {
	ctx := context.Background()
	port := freePort(t)

	a := NewZMQTransport(ctx, "127.0.0.1", port, "node-a", nil)
	require.NoError(t, a.Bind(true))
	defer a.Close()

	b := NewZMQTransport(ctx, "127.0.0.1", a.Port(), "node-b", nil)
	b.maxBindAttempts = 5
	require.NoError(t, b.Bind(false))
	defer b.Close()

	assert.NotEqual(t, a.Port(), b.Port())
}

func TestZMQTransport_SendAndListen_MergesPeerState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverPort := freePort(t)
	server := NewZMQTransport(ctx, "127.0.0.1", serverPort, "server", nil)
	require.NoError(t, server.Bind(true))
	defer server.Close()

	serverState := State{"nodes": crdt.New()}
	serverState["nodes"].Add("server-entry", 1, crdt.Metadata{"host": "10.0.0.1"})

	go server.Listen(ctx, serverState)
	defer server.Shutdown()

	client := NewZMQTransport(ctx, "127.0.0.1", serverPort+1000, "client", nil)
	defer client.Close()

	clientState := State{"nodes": crdt.New()}
	clientState["nodes"].Add("client-entry", 1, crdt.Metadata{"host": "10.0.0.2"})

	addr := "tcp://127.0.0.1:" + strconv.Itoa(serverPort)
	err := client.Send(ctx, "server", addr, "nodes", clientState)
	require.NoError(t, err)

	_, ok := clientState["nodes"].Lookup("server-entry")
	assert.True(t, ok)
}

func TestZMQTransport_SendTimeout_EvictsUnresponsivePeer(t *testing.T) {
	ctx := context.Background()

	// Bind a router but never run its Listen loop: the dealer's request is
	// accepted by the TCP layer and then ignored, forcing a poll timeout.
	silentPort := freePort(t)
	silent := NewZMQTransport(ctx, "127.0.0.1", silentPort, "silent", nil)
	require.NoError(t, silent.Bind(true))
	defer silent.Close()

	client := NewZMQTransport(ctx, "127.0.0.1", silentPort+1000, "client", nil)
	client.pollTimeout = 200 * time.Millisecond
	defer client.Close()

	clientState := State{"node_register": crdt.New()}
	clientState["node_register"].Add("silent", 1, crdt.Metadata{"host": "127.0.0.1"})

	addr := "tcp://127.0.0.1:" + strconv.Itoa(silentPort)
	err := client.Send(ctx, "silent", addr, "node_register", clientState)
	require.NoError(t, err)

	_, present := clientState["node_register"].Lookup("silent")
	assert.False(t, present, "unresponsive peer must be evicted from the live set")
}
