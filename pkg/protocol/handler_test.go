package protocol

import (
	"context"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/zkauth/pkg/pairing"
	"github.com/marmos91/zkauth/pkg/protocol/wire"
	"github.com/marmos91/zkauth/pkg/schnorr"
	"github.com/marmos91/zkauth/pkg/store"
	"github.com/marmos91/zkauth/pkg/store/memory"
)

const testTimeout = 2 * time.Second

func newPipeHandler(t *testing.T, opts ...Option) (*Handler, store.Store) {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { st.Close() })
	return NewHandler(st, pairing.NewRegistry(), opts...), st
}

// testClient drives one served connection from the client side.
type testClient struct {
	t      *testing.T
	conn   net.Conn
	enc    *wire.Encoder
	dec    *wire.Decoder
	cancel context.CancelFunc
	done   chan struct{}
}

// dial connects a fresh client to the handler over an in-memory pipe.
func dial(t *testing.T, h *Handler) *testClient {
	t.Helper()

	clientEnd, serverEnd := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Handle(ctx, serverEnd)
	}()

	c := &testClient{
		t:      t,
		conn:   clientEnd,
		enc:    wire.NewEncoder(clientEnd),
		dec:    wire.NewDecoder(clientEnd),
		cancel: cancel,
		done:   done,
	}
	t.Cleanup(func() {
		clientEnd.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(testTimeout):
			t.Error("handler did not stop at teardown")
		}
	})
	return c
}

// close disconnects the client and waits for its worker to exit.
func (c *testClient) close() {
	c.t.Helper()
	c.conn.Close()
	c.waitDone()
}

func (c *testClient) waitDone() {
	c.t.Helper()
	select {
	case <-c.done:
	case <-time.After(testTimeout):
		c.t.Fatal("handler did not stop")
	}
}

func (c *testClient) send(t wire.MessageType, payload any) {
	c.t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(testTimeout))
	require.NoError(c.t, c.enc.Encode(t, payload))
}

// sendRaw writes bytes straight to the stream, bypassing the encoder.
func (c *testClient) sendRaw(data []byte) {
	c.t.Helper()
	c.conn.SetWriteDeadline(time.Now().Add(testTimeout))
	_, err := c.conn.Write(data)
	require.NoError(c.t, err)
}

func (c *testClient) recv() *wire.Frame {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(testTimeout))
	frame, err := c.dec.Next()
	require.NoError(c.t, err)
	return frame
}

func (c *testClient) recvType(want wire.MessageType) *wire.Frame {
	c.t.Helper()
	frame := c.recv()
	require.Equal(c.t, want, frame.Type, "expected %s, got %s", want, frame.Type)
	return frame
}

func (c *testClient) recvError(want wire.ErrorCode) {
	c.t.Helper()
	frame := c.recvType(wire.TypeError)
	var p wire.ErrorPayload
	require.NoError(c.t, frame.Decode(&p))
	require.Equal(c.t, want, p.ErrorCode, "expected %s, got %s", want, p.ErrorCode)
}

// expectClosed asserts that the server has terminated the connection.
func (c *testClient) expectClosed() {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(testTimeout))
	_, err := c.dec.Next()
	require.Error(c.t, err)
}

// handshake runs the canonical opening exchange.
func (c *testClient) handshake() string {
	c.t.Helper()
	c.send(wire.TypeHandshakeReq, nil)
	frame := c.recvType(wire.TypeGroupSelection)
	var p wire.GroupSelectionPayload
	require.NoError(c.t, frame.Decode(&p))
	c.send(wire.TypeHandshakeRes, nil)
	return p.GroupID
}

// enroll registers a new account whose main device holds the given key.
func (c *testClient) enroll(g *schnorr.Group, username, device string, key *big.Int) {
	c.t.Helper()
	prover, err := schnorr.NewProver(g, key)
	require.NoError(c.t, err)
	c.send(wire.TypeRegister, wire.RegisterPayload{
		Username:  username,
		PublicKey: schnorr.FormatHex(prover.PublicKey()),
		Device:    device,
	})
	c.recvType(wire.TypeRegistered)
}

// authenticate runs a full identification round and returns the final frame,
// either ACCEPTED or REJECTED.
func (c *testClient) authenticate(g *schnorr.Group, username string, key *big.Int) *wire.Frame {
	c.t.Helper()
	prover, err := schnorr.NewProver(g, key)
	require.NoError(c.t, err)
	com, err := prover.Commit()
	require.NoError(c.t, err)

	c.send(wire.TypeAuthRequest, wire.AuthRequestPayload{
		Username: username,
		Temp:     schnorr.FormatHex(com.U),
	})
	frame := c.recvType(wire.TypeChallenge)
	var p wire.ChallengePayload
	require.NoError(c.t, frame.Decode(&p))
	challenge, err := schnorr.ParseHex(p.Challenge)
	require.NoError(c.t, err)

	c.send(wire.TypeAuthResponse, wire.AuthResponsePayload{
		Response: schnorr.FormatHex(prover.Respond(com, challenge)),
	})
	return c.recv()
}

func mustKey(t *testing.T, g *schnorr.Group) *big.Int {
	t.Helper()
	key, err := schnorr.GenerateKey(g)
	require.NoError(t, err)
	return key
}

func TestHandshake(t *testing.T) {
	t.Run("AnnouncesConfiguredGroup", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		require.Equal(t, schnorr.DefaultGroupID, c.handshake())
	})

	t.Run("FramesBeforeHandshakeDropped", func(t *testing.T) {
		h, st := newPipeHandler(t)
		c := dial(t, h)

		c.send(wire.TypeRegister, wire.RegisterPayload{
			Username: "early", PublicKey: "0x12", Device: "laptop",
		})
		c.send(wire.TypeHandshakeReq, nil)

		// The register was dropped silently; the first frame the client
		// ever receives is the group announcement.
		c.recvType(wire.TypeGroupSelection)
		_, err := st.GetUser(context.Background(), "early")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("ConfirmationFrameIsConsumed", func(t *testing.T) {
		h, st := newPipeHandler(t)
		c := dial(t, h)

		c.send(wire.TypeHandshakeReq, nil)
		c.recvType(wire.TypeGroupSelection)

		// Skipping HANDSHAKE_RES costs the client its next frame: the
		// register below only confirms the handshake.
		c.send(wire.TypeRegister, wire.RegisterPayload{
			Username: "eager", PublicKey: "0x12", Device: "laptop",
		})
		c.send(wire.TypeLogout, nil)
		c.recvError(wire.CodeSessionNotFound)

		_, err := st.GetUser(context.Background(), "eager")
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("RepeatedHandshakeKeepsSession", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c := dial(t, h)
		c.handshake()
		c.enroll(h.Group(), "alice", "laptop", key)

		c.send(wire.TypeHandshakeReq, nil)
		c.recvType(wire.TypeGroupSelection)
		c.send(wire.TypeHandshakeRes, nil)

		c.send(wire.TypeDevicesRequest, nil)
		c.recvType(wire.TypeDevicesResponse)
	})
}

func TestRegister(t *testing.T) {
	t.Run("CreatesAccountWithMainDevice", func(t *testing.T) {
		h, st := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c := dial(t, h)
		c.handshake()
		c.enroll(h.Group(), "alice", "laptop", key)

		user, err := st.GetUser(context.Background(), "alice")
		require.NoError(t, err)
		require.Len(t, user.Devices, 1)
		assert.Equal(t, "laptop", user.Devices[0].DeviceName)
		assert.True(t, user.Devices[0].MainDevice)
		assert.True(t, user.Devices[0].Logged)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c1 := dial(t, h)
		c1.handshake()
		c1.enroll(h.Group(), "alice", "laptop", key)

		c2 := dial(t, h)
		c2.handshake()
		c2.send(wire.TypeRegister, wire.RegisterPayload{
			Username: "alice", PublicKey: "0x12", Device: "phone",
		})
		c2.recvError(wire.CodeUsernameAlreadyExists)
	})

	t.Run("MissingFields", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()
		c.send(wire.TypeRegister, map[string]any{"username": "alice"})
		c.recvError(wire.CodeMalformedMessage)
	})

	t.Run("RegisteredSessionCanListDevices", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c := dial(t, h)
		c.handshake()
		c.enroll(h.Group(), "alice", "laptop", key)

		c.send(wire.TypeDevicesRequest, nil)
		frame := c.recvType(wire.TypeDevicesResponse)
		var p wire.DevicesResponsePayload
		require.NoError(t, frame.Decode(&p))
		require.Len(t, p.Devices, 1)
		assert.Equal(t, "laptop", p.Devices[0].DeviceName)
	})
}

func TestAuthentication(t *testing.T) {
	t.Run("AcceptsValidProof", func(t *testing.T) {
		h, st := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c1 := dial(t, h)
		c1.handshake()
		c1.enroll(h.Group(), "alice", "laptop", key)

		c2 := dial(t, h)
		c2.handshake()
		frame := c2.authenticate(h.Group(), "alice", key)
		require.Equal(t, wire.TypeAccepted, frame.Type)

		user, err := st.GetUser(context.Background(), "alice")
		require.NoError(t, err)
		assert.True(t, user.Devices[0].Logged)
	})

	t.Run("RejectsInvalidProof", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		key := mustKey(t, h.Group())
		wrong := mustKey(t, h.Group())
		if wrong.Cmp(key) == 0 {
			t.Skip("drew the same key twice")
		}
		c1 := dial(t, h)
		c1.handshake()
		c1.enroll(h.Group(), "alice", "laptop", key)

		c2 := dial(t, h)
		c2.handshake()
		frame := c2.authenticate(h.Group(), "alice", wrong)
		require.Equal(t, wire.TypeRejected, frame.Type)

		// The challenge is spent either way; a replayed response finds no
		// round in flight.
		c2.send(wire.TypeAuthResponse, wire.AuthResponsePayload{Response: "0x1"})
		c2.recvError(wire.CodeSessionNotFound)
	})

	t.Run("UnknownUsername", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()
		c.send(wire.TypeAuthRequest, wire.AuthRequestPayload{
			Username: "ghost", Temp: "0x10",
		})
		c.recvError(wire.CodeUsernameNotFound)
	})

	t.Run("MalformedCommitment", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c := dial(t, h)
		c.handshake()
		c.enroll(h.Group(), "alice", "laptop", key)

		c.send(wire.TypeAuthRequest, wire.AuthRequestPayload{
			Username: "alice", Temp: "not-hex",
		})
		c.recvError(wire.CodeMalformedMessage)
	})

	t.Run("MalformedResponseKeepsRoundOpen", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c1 := dial(t, h)
		c1.handshake()
		c1.enroll(h.Group(), "alice", "laptop", key)

		c2 := dial(t, h)
		c2.handshake()
		prover, err := schnorr.NewProver(h.Group(), key)
		require.NoError(t, err)
		com, err := prover.Commit()
		require.NoError(t, err)

		c2.send(wire.TypeAuthRequest, wire.AuthRequestPayload{
			Username: "alice", Temp: schnorr.FormatHex(com.U),
		})
		frame := c2.recvType(wire.TypeChallenge)
		var p wire.ChallengePayload
		require.NoError(t, frame.Decode(&p))
		challenge, err := schnorr.ParseHex(p.Challenge)
		require.NoError(t, err)

		c2.send(wire.TypeAuthResponse, wire.AuthResponsePayload{Response: "not-hex"})
		c2.recvError(wire.CodeMalformedMessage)

		// The round survives an undecodable response; a proper one still
		// verifies.
		c2.send(wire.TypeAuthResponse, wire.AuthResponsePayload{
			Response: schnorr.FormatHex(prover.Respond(com, challenge)),
		})
		c2.recvType(wire.TypeAccepted)
	})

	t.Run("ResponseWithoutChallenge", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()
		c.send(wire.TypeAuthResponse, wire.AuthResponsePayload{Response: "0x1"})
		c.recvError(wire.CodeSessionNotFound)
	})

	t.Run("SecondDeviceKeyVerifies", func(t *testing.T) {
		h, st := newPipeHandler(t)
		key1 := mustKey(t, h.Group())
		key2 := mustKey(t, h.Group())
		if key1.Cmp(key2) == 0 {
			t.Skip("drew the same key twice")
		}
		prover1, err := schnorr.NewProver(h.Group(), key1)
		require.NoError(t, err)
		prover2, err := schnorr.NewProver(h.Group(), key2)
		require.NoError(t, err)

		require.NoError(t, st.CreateUser(context.Background(), &store.User{
			Username: "alice",
			Devices: []store.Device{
				{PK: schnorr.FormatHex(prover1.PublicKey()), DeviceName: "laptop", MainDevice: true},
				{PK: schnorr.FormatHex(prover2.PublicKey()), DeviceName: "phone"},
			},
			CreatedAt: time.Now().UTC(),
		}))

		c := dial(t, h)
		c.handshake()
		frame := c.authenticate(h.Group(), "alice", key2)
		require.Equal(t, wire.TypeAccepted, frame.Type)

		user, err := st.GetUser(context.Background(), "alice")
		require.NoError(t, err)
		assert.False(t, user.Devices[0].Logged)
		assert.True(t, user.Devices[1].Logged)
	})

	t.Run("SkipsDeviceWithCorruptKey", func(t *testing.T) {
		h, st := newPipeHandler(t)
		key := mustKey(t, h.Group())
		prover, err := schnorr.NewProver(h.Group(), key)
		require.NoError(t, err)

		require.NoError(t, st.CreateUser(context.Background(), &store.User{
			Username: "alice",
			Devices: []store.Device{
				{PK: "garbage", DeviceName: "laptop", MainDevice: true},
				{PK: schnorr.FormatHex(prover.PublicKey()), DeviceName: "phone"},
			},
			CreatedAt: time.Now().UTC(),
		}))

		c := dial(t, h)
		c.handshake()
		frame := c.authenticate(h.Group(), "alice", key)
		require.Equal(t, wire.TypeAccepted, frame.Type)
	})
}

func TestPairing(t *testing.T) {
	t.Run("EndToEnd", func(t *testing.T) {
		h, st := newPipeHandler(t)
		mainKey := mustKey(t, h.Group())
		phoneKey := mustKey(t, h.Group())
		phoneProver, err := schnorr.NewProver(h.Group(), phoneKey)
		require.NoError(t, err)

		primary := dial(t, h)
		primary.handshake()
		primary.enroll(h.Group(), "alice", "laptop", mainKey)

		secondary := dial(t, h)
		secondary.handshake()
		secondary.send(wire.TypeAssocRequest, wire.AssocRequestPayload{
			Device: "phone", PK: schnorr.FormatHex(phoneProver.PublicKey()),
		})
		frame := secondary.recvType(wire.TypeTokenAssoc)
		var tok wire.TokenPayload
		require.NoError(t, frame.Decode(&tok))
		require.Len(t, tok.Token, pairing.TokenLength)

		primary.send(wire.TypeTokenAssoc, wire.TokenPayload{Token: tok.Token})
		primary.recvType(wire.TypeAccepted)

		frame = secondary.recvType(wire.TypeAccepted)
		var acc wire.AcceptedPayload
		require.NoError(t, frame.Decode(&acc))
		assert.Equal(t, "alice", acc.Username)

		user, err := st.GetUser(context.Background(), "alice")
		require.NoError(t, err)
		require.Len(t, user.Devices, 2)
		assert.Equal(t, "phone", user.Devices[1].DeviceName)
		assert.False(t, user.Devices[1].MainDevice)
		assert.True(t, user.Devices[1].Logged)

		_, err = st.GetToken(context.Background(), tok.Token)
		require.ErrorIs(t, err, store.ErrTokenNotFound)

		// The secondary is now a full session on its connection.
		secondary.send(wire.TypeDevicesRequest, nil)
		frame = secondary.recvType(wire.TypeDevicesResponse)
		var devices wire.DevicesResponsePayload
		require.NoError(t, frame.Decode(&devices))
		assert.Len(t, devices.Devices, 2)
	})

	t.Run("ConfirmWithUnknownToken", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c := dial(t, h)
		c.handshake()
		c.enroll(h.Group(), "alice", "laptop", key)

		c.send(wire.TypeTokenAssoc, wire.TokenPayload{Token: "deadbeef"})
		c.recvError(wire.CodeUnauthorized)
	})

	t.Run("UnknownTokenBeatsMissingSession", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()
		c.send(wire.TypeTokenAssoc, wire.TokenPayload{Token: "deadbeef"})
		c.recvError(wire.CodeUnauthorized)
	})

	t.Run("ConfirmWithoutSession", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		secondary := dial(t, h)
		secondary.handshake()
		secondary.send(wire.TypeAssocRequest, wire.AssocRequestPayload{
			Device: "phone", PK: "0x12",
		})
		frame := secondary.recvType(wire.TypeTokenAssoc)
		var tok wire.TokenPayload
		require.NoError(t, frame.Decode(&tok))

		anon := dial(t, h)
		anon.handshake()
		anon.send(wire.TypeTokenAssoc, wire.TokenPayload{Token: tok.Token})
		anon.recvError(wire.CodeSessionNotFound)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		h, st := newPipeHandler(t, WithTokenTTL(time.Nanosecond))
		key := mustKey(t, h.Group())
		primary := dial(t, h)
		primary.handshake()
		primary.enroll(h.Group(), "alice", "laptop", key)

		secondary := dial(t, h)
		secondary.handshake()
		secondary.send(wire.TypeAssocRequest, wire.AssocRequestPayload{
			Device: "phone", PK: "0x12",
		})
		frame := secondary.recvType(wire.TypeTokenAssoc)
		var tok wire.TokenPayload
		require.NoError(t, frame.Decode(&tok))

		primary.send(wire.TypeTokenAssoc, wire.TokenPayload{Token: tok.Token})
		primary.recvError(wire.CodeTokenInvalidOrExpired)

		// Expired tokens are reaped on first use.
		_, err := st.GetToken(context.Background(), tok.Token)
		require.ErrorIs(t, err, store.ErrTokenNotFound)
	})

	t.Run("ConfirmFromNonMainDevice", func(t *testing.T) {
		h, st := newPipeHandler(t)
		mainKey := mustKey(t, h.Group())
		phoneKey := mustKey(t, h.Group())
		if mainKey.Cmp(phoneKey) == 0 {
			t.Skip("drew the same key twice")
		}
		mainProver, err := schnorr.NewProver(h.Group(), mainKey)
		require.NoError(t, err)
		phoneProver, err := schnorr.NewProver(h.Group(), phoneKey)
		require.NoError(t, err)

		require.NoError(t, st.CreateUser(context.Background(), &store.User{
			Username: "alice",
			Devices: []store.Device{
				{PK: schnorr.FormatHex(mainProver.PublicKey()), DeviceName: "laptop", MainDevice: true},
				{PK: schnorr.FormatHex(phoneProver.PublicKey()), DeviceName: "phone"},
			},
			CreatedAt: time.Now().UTC(),
		}))

		nonMain := dial(t, h)
		nonMain.handshake()
		frame := nonMain.authenticate(h.Group(), "alice", phoneKey)
		require.Equal(t, wire.TypeAccepted, frame.Type)

		secondary := dial(t, h)
		secondary.handshake()
		secondary.send(wire.TypeAssocRequest, wire.AssocRequestPayload{
			Device: "tablet", PK: "0x12",
		})
		frame = secondary.recvType(wire.TypeTokenAssoc)
		var tok wire.TokenPayload
		require.NoError(t, frame.Decode(&tok))

		nonMain.send(wire.TypeTokenAssoc, wire.TokenPayload{Token: tok.Token})
		nonMain.recvError(wire.CodeNoMainDevice)
	})

	t.Run("DuplicateDeviceName", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		key := mustKey(t, h.Group())
		primary := dial(t, h)
		primary.handshake()
		primary.enroll(h.Group(), "alice", "laptop", key)

		secondary := dial(t, h)
		secondary.handshake()
		secondary.send(wire.TypeAssocRequest, wire.AssocRequestPayload{
			Device: "laptop", PK: "0x12",
		})
		frame := secondary.recvType(wire.TypeTokenAssoc)
		var tok wire.TokenPayload
		require.NoError(t, frame.Decode(&tok))

		primary.send(wire.TypeTokenAssoc, wire.TokenPayload{Token: tok.Token})
		primary.recvError(wire.CodeDeviceAlreadyRegistered)
	})

	t.Run("SecondaryGoneLeavesDeviceEnrolled", func(t *testing.T) {
		h, st := newPipeHandler(t)
		key := mustKey(t, h.Group())
		primary := dial(t, h)
		primary.handshake()
		primary.enroll(h.Group(), "alice", "laptop", key)

		secondary := dial(t, h)
		secondary.handshake()
		secondary.send(wire.TypeAssocRequest, wire.AssocRequestPayload{
			Device: "phone", PK: "0x12",
		})
		frame := secondary.recvType(wire.TypeTokenAssoc)
		var tok wire.TokenPayload
		require.NoError(t, frame.Decode(&tok))
		secondary.close()

		primary.send(wire.TypeTokenAssoc, wire.TokenPayload{Token: tok.Token})
		primary.recvError(wire.CodeAssocFailure)

		// Enrollment stuck; only the live handoff to the secondary failed.
		user, err := st.GetUser(context.Background(), "alice")
		require.NoError(t, err)
		require.Len(t, user.Devices, 2)
		assert.Equal(t, "phone", user.Devices[1].DeviceName)
	})
}

func TestLogout(t *testing.T) {
	t.Run("ClearsSessionAndFlag", func(t *testing.T) {
		h, st := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c := dial(t, h)
		c.handshake()
		c.enroll(h.Group(), "alice", "laptop", key)

		c.send(wire.TypeLogout, nil)
		c.recvType(wire.TypeLoggedOut)

		user, err := st.GetUser(context.Background(), "alice")
		require.NoError(t, err)
		assert.False(t, user.Devices[0].Logged)

		// The connection stays open but anonymous.
		c.send(wire.TypeDevicesRequest, nil)
		c.recvError(wire.CodeSessionNotFound)

		frame := c.authenticate(h.Group(), "alice", key)
		require.Equal(t, wire.TypeAccepted, frame.Type)
	})

	t.Run("WithoutSession", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()
		c.send(wire.TypeLogout, nil)
		c.recvError(wire.CodeSessionNotFound)
	})
}

func TestDevicesRequest(t *testing.T) {
	t.Run("RequiresSession", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()
		c.send(wire.TypeDevicesRequest, nil)
		c.recvError(wire.CodeSessionNotFound)
	})

	t.Run("ChallengedIsNotLoggedIn", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		key := mustKey(t, h.Group())
		c1 := dial(t, h)
		c1.handshake()
		c1.enroll(h.Group(), "alice", "laptop", key)

		c2 := dial(t, h)
		c2.handshake()
		c2.send(wire.TypeAuthRequest, wire.AuthRequestPayload{
			Username: "alice", Temp: "0x10",
		})
		c2.recvType(wire.TypeChallenge)

		// A pending challenge binds the user but proves nothing yet.
		c2.send(wire.TypeDevicesRequest, nil)
		c2.recvError(wire.CodeSessionNotFound)
	})
}

func TestStreamErrors(t *testing.T) {
	t.Run("UnknownKindIgnored", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()

		c.send(wire.MessageType(99), nil)
		// No reply for the unknown frame; the next request is answered
		// first.
		c.send(wire.TypeLogout, nil)
		c.recvError(wire.CodeSessionNotFound)
	})

	t.Run("EnvelopeWithoutTypeCode", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()

		c.sendRaw([]byte(`{"hello": "world"}`))
		c.recvError(wire.CodeMalformedMessage)
	})

	t.Run("GarbageTerminatesConnection", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()

		c.sendRaw([]byte("definitely not json"))
		c.waitDone()
		c.expectClosed()
	})

	t.Run("OversizedFrameTerminatesConnection", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()

		// An unterminated object filling the whole read ceiling.
		frame := make([]byte, wire.MaxMessageSize)
		for i := range frame {
			frame[i] = 'x'
		}
		frame[0] = '{'
		c.sendRaw(frame)
		c.waitDone()
		c.expectClosed()
	})

	t.Run("ShutdownDropsConnection", func(t *testing.T) {
		h, _ := newPipeHandler(t)
		c := dial(t, h)
		c.handshake()

		c.cancel()
		c.waitDone()
		c.expectClosed()
	})
}

func TestHandlerDefaults(t *testing.T) {
	st := memory.New()
	defer st.Close()

	h := NewHandler(st, pairing.NewRegistry())
	require.NotNil(t, h.Group())
	assert.Equal(t, schnorr.DefaultGroupID, h.Group().ID)
	assert.Equal(t, DefaultTokenTTL, h.tokenTTL)

	small, err := schnorr.Lookup("mymod")
	require.NoError(t, err)
	h = NewHandler(st, pairing.NewRegistry(), WithGroup(small), WithTokenTTL(time.Minute))
	assert.Equal(t, "mymod", h.Group().ID)
	assert.Equal(t, time.Minute, h.tokenTTL)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ConnOpened()
	m.ConnClosed()
	m.RecordMessage("REGISTER")
	m.RecordError("UNAUTHORIZED")
	m.RecordAuth("accepted", 0.1)
	m.RecordRegistration()
	m.RecordPairing("completed")
	m.SetPendingPairings(3)
}
