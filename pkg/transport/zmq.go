package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-zeromq/zmq4"

	"github.com/ryan-h265/ironswarm/pkg/wire"
)

const (
	// DefaultPollTimeout bounds how long Send waits for a peer's reply
	// before treating it as unreachable.
	DefaultPollTimeout = 2 * time.Second
	// DefaultMaxBindAttempts bounds how many successive ports Bind tries
	// before giving up.
	DefaultMaxBindAttempts = 100
	// CompressionLevel is the zstd level applied to every outbound wire
	// payload.
	CompressionLevel = 3
)

// ZMQTransport is the Transport implementation backed by ZeroMQ
// ROUTER/DEALER sockets (github.com/go-zeromq/zmq4, a pure-Go wire-protocol
// implementation, no libzmq/cgo dependency).
type ZMQTransport struct {
	ctx      context.Context
	host     string
	port     int
	identity string

	pollTimeout      time.Duration
	maxBindAttempts  int
	compressionLevel int

	router zmq4.Socket
	dealer zmq4.Socket

	mu               sync.Mutex
	connectedSockets map[string]struct{}
	running          bool

	logger *slog.Logger
}

// NewZMQTransport constructs a transport bound to nothing yet; call Bind to
// start accepting connections.
func NewZMQTransport(ctx context.Context, host string, port int, identity string, logger *slog.Logger) *ZMQTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZMQTransport{
		ctx:              ctx,
		host:             host,
		port:             port,
		identity:         identity,
		pollTimeout:      DefaultPollTimeout,
		maxBindAttempts:  DefaultMaxBindAttempts,
		compressionLevel: CompressionLevel,
		router:           zmq4.NewRouter(ctx, zmq4.WithID(zmq4.SocketIdentity(identity))),
		dealer:           zmq4.NewDealer(ctx, zmq4.WithID(zmq4.SocketIdentity(identity))),
		connectedSockets: make(map[string]struct{}),
		running:          true,
		logger:           logger,
	}
}

func (t *ZMQTransport) Host() string { return t.host }
func (t *ZMQTransport) Port() int    { return t.port }

// SetPollTimeout overrides the reply-wait window before a peer is treated
// as unreachable. Call before Listen/Send.
func (t *ZMQTransport) SetPollTimeout(d time.Duration) {
	if d > 0 {
		t.pollTimeout = d
	}
}

// SetMaxBindAttempts overrides how many successive ports Bind tries.
func (t *ZMQTransport) SetMaxBindAttempts(n int) {
	if n > 0 {
		t.maxBindAttempts = n
	}
}

// SetCompressionLevel overrides the zstd level applied to outbound
// payloads.
func (t *ZMQTransport) SetCompressionLevel(level int) {
	if level > 0 {
		t.compressionLevel = level
	}
}

// Bind attempts to listen on host:port. When strictPort is false it
// increments the port and retries (with a short backoff) up to
// maxBindAttempts times before giving up, useful for colocated test nodes
// that don't want to coordinate a free port up front.
func (t *ZMQTransport) Bind(strictPort bool) error {
	originalPort := t.port
	attempts := 0

	// The first try plus maxBindAttempts-1 retries: maxBindAttempts ports in all.
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), uint64(t.maxBindAttempts-1))
	operation := func() error {
		addr := fmt.Sprintf("tcp://%s:%d", t.host, t.port)
		if err := t.router.Listen(addr); err != nil {
			if strictPort {
				return backoff.Permanent(fmt.Errorf("failed to bind to %s: %w", addr, err))
			}
			attempts++
			t.port++
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}
		return fmt.Errorf("failed to bind after %d attempts (tried ports %d-%d): %w", attempts, originalPort, t.port-1, err)
	}
	if attempts > 0 {
		t.logger.Info("bound after retrying higher ports", "host", t.host, "port", t.port, "attempts", attempts)
	}
	return nil
}

// Listen runs the inbound accept loop: receive an exchange request, reply
// with our state for the requested key, then merge the peer's state in.
// Returns when ctx is canceled or Shutdown is called.
func (t *ZMQTransport) Listen(ctx context.Context, state State) error {
	for t.isRunning() {
		if err := t.acceptOne(ctx, state); err != nil {
			if !t.isRunning() {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			t.logger.Error("listen loop error", "error", err)
		}
	}
	return nil
}

func (t *ZMQTransport) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *ZMQTransport) acceptOne(ctx context.Context, state State) error {
	msg, err := t.router.Recv()
	if err != nil {
		return err
	}
	if len(msg.Frames) < 3 {
		return fmt.Errorf("transport: malformed gossip frame, want >=3 parts got %d", len(msg.Frames))
	}
	senderID := msg.Frames[0]
	key := string(msg.Frames[len(msg.Frames)-2])
	payload := msg.Frames[len(msg.Frames)-1]

	t.logger.Debug("received gossip request", "sender", string(senderID))

	received, err := wire.Decode(payload)
	if err != nil {
		t.logger.Error("invalid gossip message", "sender", string(senderID), "error", err)
		return t.router.Send(zmq4.NewMsgFrom(senderID, nil, []byte(key), nil))
	}

	set, ok := state[key]
	if !ok {
		t.logger.Error("unknown state key requested", "key", key)
		return t.router.Send(zmq4.NewMsgFrom(senderID, nil, []byte(key), nil))
	}

	encoded, err := wire.Encode(set, t.compressionLevel)
	if err != nil {
		t.logger.Error("failed to serialize state for reply", "key", key, "error", err)
		return t.router.Send(zmq4.NewMsgFrom(senderID, nil, []byte(key), nil))
	}

	if err := t.router.Send(zmq4.NewMsgFrom(senderID, nil, []byte(key), encoded)); err != nil {
		return err
	}

	// Merge after replying, to keep the response latency off the
	// critical path.
	set.Merge(received)
	return nil
}

// Send pushes our state for key to nodeID at socket, merging back whatever
// the peer replies with within pollTimeout. With no reply, nodeID is
// treated as unreachable: it is removed from state[key] and the dealer
// connection is torn down.
func (t *ZMQTransport) Send(ctx context.Context, nodeID, socket, key string, state State) error {
	t.ensureConnected(socket)

	set, ok := state[key]
	if !ok {
		return fmt.Errorf("transport: unknown state key %q", key)
	}

	encoded, err := wire.Encode(set, t.compressionLevel)
	if err != nil {
		t.logger.Error("failed to serialize outbound state", "key", key, "error", err)
		return err
	}

	if err := t.dealer.Send(zmq4.NewMsgFrom(nil, []byte(key), encoded)); err != nil {
		return err
	}

	reply, err := t.recvWithTimeout(ctx)
	if err != nil {
		t.logger.Warn("no response from peer, evicting", "node", nodeID, "socket", socket)
		set.Remove(nodeID, 0, nil)
		t.disconnect(socket)
		return nil
	}

	if len(reply.Frames) < 3 || len(reply.Frames[len(reply.Frames)-1]) == 0 {
		t.logger.Warn("empty response from peer, likely a validation error", "node", nodeID)
		return nil
	}

	received, err := wire.Decode(reply.Frames[len(reply.Frames)-1])
	if err != nil {
		t.logger.Error("invalid response from peer", "node", nodeID, "error", err)
		return nil
	}
	set.Merge(received)
	return nil
}

// recvWithTimeout races a blocking Recv against pollTimeout. zmq4 sockets
// have no built-in poll-then-recv API (unlike libzmq's zmq_poll); a timed
// out Recv is abandoned, not canceled. Send answers every error here by
// closing and replacing the dealer, which ends the abandoned Recv; its
// result lands in the buffered channel and is never read.
func (t *ZMQTransport) recvWithTimeout(ctx context.Context) (zmq4.Msg, error) {
	type result struct {
		msg zmq4.Msg
		err error
	}
	ch := make(chan result, 1)
	go func() {
		msg, err := t.dealer.Recv()
		ch <- result{msg, err}
	}()

	timer := time.NewTimer(t.pollTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.msg, r.err
	case <-timer.C:
		return zmq4.Msg{}, fmt.Errorf("transport: timed out after %s waiting for reply", t.pollTimeout)
	case <-ctx.Done():
		return zmq4.Msg{}, ctx.Err()
	}
}

func (t *ZMQTransport) ensureConnected(socket string) {
	t.mu.Lock()
	_, connected := t.connectedSockets[socket]
	t.mu.Unlock()
	if connected {
		return
	}
	if err := t.dealer.Dial(socket); err != nil {
		t.logger.Error("failed to dial peer", "socket", socket, "error", err)
		return
	}
	t.mu.Lock()
	t.connectedSockets[socket] = struct{}{}
	t.mu.Unlock()
}

// disconnect tears down the dealer and replaces it with a fresh socket.
// zmq4 has no per-endpoint Disconnect, so evicting one dead peer means
// dropping every pooled connection; survivors re-dial on the next Send.
func (t *ZMQTransport) disconnect(socket string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.dealer.Close(); err != nil {
		t.logger.Warn("error closing dealer during eviction", "socket", socket, "error", err)
	}
	t.dealer = zmq4.NewDealer(t.ctx, zmq4.WithID(zmq4.SocketIdentity(t.identity)))
	t.connectedSockets = make(map[string]struct{})
}

// Shutdown signals Listen to return after its current iteration.
func (t *ZMQTransport) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

// Close tears down both sockets, dropping in-flight frames immediately.
// Gossip state is ephemeral and CRDT merge tolerates the loss, so fast
// shutdown wins over delivery of whatever was still queued.
func (t *ZMQTransport) Close() error {
	t.mu.Lock()
	for socket := range t.connectedSockets {
		t.logger.Debug("disconnecting pooled connection", "socket", socket)
	}
	t.connectedSockets = make(map[string]struct{})
	t.mu.Unlock()

	routerErr := t.router.Close()
	dealerErr := t.dealer.Close()
	return errors.Join(routerErr, dealerErr)
}
