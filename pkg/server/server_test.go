package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/zkauth/pkg/pairing"
	"github.com/marmos91/zkauth/pkg/protocol"
	"github.com/marmos91/zkauth/pkg/protocol/wire"
	"github.com/marmos91/zkauth/pkg/store"
	"github.com/marmos91/zkauth/pkg/store/memory"
)

const testTimeout = 2 * time.Second

// newTestServer starts a server on a kernel-assigned port. The returned stop
// function initiates shutdown and reports Serve's result.
func newTestServer(t *testing.T, cfg Config) (*Server, store.Store, func() error) {
	t.Helper()

	st := memory.New()
	t.Cleanup(func() { st.Close() })

	handler := protocol.NewHandler(st, pairing.NewRegistry())
	cfg.Port = 0
	s := New(cfg, handler)

	ctx, cancel := context.WithCancel(context.Background())
	var serveErr error
	done := make(chan struct{})
	go func() {
		serveErr = s.Serve(ctx)
		close(done)
	}()

	select {
	case <-s.ListenerReady:
	case <-done:
		t.Fatalf("server failed to start: %v", serveErr)
	case <-time.After(testTimeout):
		t.Fatal("listener not ready")
	}

	stop := func() error {
		cancel()
		select {
		case <-done:
			return serveErr
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
			return nil
		}
	}
	t.Cleanup(func() { stop() })
	return s, st, stop
}

func dialServer(t *testing.T, s *Server) net.Conn {
	t.Helper()
	nc, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { nc.Close() })
	return nc
}

// handshake runs the opening exchange over a live TCP connection.
func handshake(t *testing.T, nc net.Conn) (*wire.Encoder, *wire.Decoder) {
	t.Helper()
	enc := wire.NewEncoder(nc)
	dec := wire.NewDecoder(nc)

	require.NoError(t, enc.Encode(wire.TypeHandshakeReq, nil))
	nc.SetReadDeadline(time.Now().Add(testTimeout))
	frame, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, wire.TypeGroupSelection, frame.Type)
	require.NoError(t, enc.Encode(wire.TypeHandshakeRes, nil))
	return enc, dec
}

func TestServeHandlesClients(t *testing.T) {
	s, st, _ := newTestServer(t, Config{})

	nc := dialServer(t, s)
	enc, dec := handshake(t, nc)

	require.NoError(t, enc.Encode(wire.TypeRegister, wire.RegisterPayload{
		Username: "alice", PublicKey: "0x12", Device: "laptop",
	}))
	nc.SetReadDeadline(time.Now().Add(testTimeout))
	frame, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, wire.TypeRegistered, frame.Type)

	user, err := st.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "laptop", user.Devices[0].DeviceName)
}

func TestConcurrentClients(t *testing.T) {
	s, st, _ := newTestServer(t, Config{})

	const clients = 8
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nc, err := net.Dial("tcp", s.Addr().String())
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			defer nc.Close()

			enc := wire.NewEncoder(nc)
			dec := wire.NewDecoder(nc)
			nc.SetDeadline(time.Now().Add(testTimeout))

			if err := enc.Encode(wire.TypeHandshakeReq, nil); err != nil {
				t.Errorf("handshake req: %v", err)
				return
			}
			if _, err := dec.Next(); err != nil {
				t.Errorf("group selection: %v", err)
				return
			}
			if err := enc.Encode(wire.TypeHandshakeRes, nil); err != nil {
				t.Errorf("handshake res: %v", err)
				return
			}
			err = enc.Encode(wire.TypeRegister, wire.RegisterPayload{
				Username:  fmt.Sprintf("user-%d", i),
				PublicKey: "0x12",
				Device:    "laptop",
			})
			if err != nil {
				t.Errorf("register: %v", err)
				return
			}
			frame, err := dec.Next()
			if err != nil {
				t.Errorf("registered: %v", err)
				return
			}
			if frame.Type != wire.TypeRegistered {
				t.Errorf("expected REGISTERED, got %s", frame.Type)
			}
		}(i)
	}
	wg.Wait()

	users, err := st.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, clients)
}

func TestMaxConnections(t *testing.T) {
	s, _, _ := newTestServer(t, Config{MaxConnections: 1})

	first := dialServer(t, s)
	handshake(t, first)

	// The second connect lands in the backlog but is never accepted while
	// the first holds the only slot.
	second := dialServer(t, s)
	enc := wire.NewEncoder(second)
	dec := wire.NewDecoder(second)
	require.NoError(t, enc.Encode(wire.TypeHandshakeReq, nil))

	second.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, err := dec.Next()
	require.Error(t, err, "second connection should not be served yet")

	// Releasing the first slot lets the pending connection through.
	first.Close()
	second.SetReadDeadline(time.Now().Add(testTimeout))
	frame, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, wire.TypeGroupSelection, frame.Type)
}

func TestGracefulShutdown(t *testing.T) {
	s, _, stop := newTestServer(t, Config{ShutdownTimeout: 3 * time.Second})

	nc := dialServer(t, s)
	_, dec := handshake(t, nc)

	require.NoError(t, stop())

	nc.SetReadDeadline(time.Now().Add(testTimeout))
	_, err := dec.Next()
	require.Error(t, err, "connection should be closed after shutdown")
	assert.Equal(t, int32(0), s.ConnCount())
}

func TestAddrBeforeServe(t *testing.T) {
	s := New(Config{}, protocol.NewHandler(memory.New(), pairing.NewRegistry()))
	assert.Nil(t, s.Addr())
}
