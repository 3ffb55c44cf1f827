package protocol

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/marmos91/zkauth/pkg/pairing"
	"github.com/marmos91/zkauth/pkg/protocol/wire"
)

// connSeq numbers connections for log correlation.
var connSeq atomic.Uint64

// frameResult is one received frame or the stream error that ended the
// connection. After an error result the read loop exits.
type frameResult struct {
	frame *wire.Frame
	err   error
}

// Conn is the server-side context of one client connection. It owns the
// socket; the worker goroutine running the handler is the only writer.
// Cross-connection interaction happens exclusively through the inbox,
// which the pairing registry posts to.
type Conn struct {
	id string
	nc net.Conn

	enc *wire.Encoder
	dec *wire.Decoder

	session Session

	// frames carries received frames from the read loop to the worker.
	frames chan frameResult

	// inbox receives pairing completions posted by a primary device's
	// worker. The buffer lets Deliver post without blocking.
	inbox chan pairing.Completion

	// tokens minted on this connection, removed from the registry at
	// teardown if still pending.
	tokens []string

	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

func newConn(nc net.Conn) *Conn {
	return &Conn{
		id:     fmt.Sprintf("c-%d", connSeq.Add(1)),
		nc:     nc,
		enc:    wire.NewEncoder(nc),
		dec:    wire.NewDecoder(nc),
		frames: make(chan frameResult),
		inbox:  make(chan pairing.Completion, 1),
		done:   make(chan struct{}),
	}
}

// ID returns the connection identifier used in logs.
func (c *Conn) ID() string {
	return c.id
}

// RemoteIP returns the peer address without the port.
func (c *Conn) RemoteIP() string {
	addr := c.nc.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// readLoop feeds received frames to the worker. It exits after handing
// over the first stream error, or as soon as the connection closes.
func (c *Conn) readLoop() {
	for {
		frame, err := c.dec.Next()
		if err != nil {
			select {
			case c.frames <- frameResult{err: err}:
			case <-c.done:
			}
			return
		}
		select {
		case c.frames <- frameResult{frame: frame}:
		case <-c.done:
			return
		}
	}
}

// Send writes one typed message. After Close, sends become no-ops
// reporting the connection as terminated.
func (c *Conn) Send(t wire.MessageType, payload any) error {
	if c.closed.Load() {
		return wire.ErrConnectionClosed
	}
	return c.enc.Encode(t, payload)
}

// SendError writes an ERROR frame for the given kind.
func (c *Conn) SendError(code wire.ErrorCode) error {
	if c.closed.Load() {
		return wire.ErrConnectionClosed
	}
	return c.enc.EncodeError(code)
}

// Close shuts the socket down and releases the read loop. Idempotent.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		c.nc.Close()
	})
}

// trackToken remembers a pairing token minted on this connection so its
// registry entry can be cleaned up at teardown.
func (c *Conn) trackToken(token string) {
	c.tokens = append(c.tokens, token)
}
