// Package client implements the client side of the authentication protocol:
// dialing and handshake, registration, the challenge-response login round,
// and both halves of device pairing.
//
// A Client owns one connection. The protocol is strictly request-response
// per connection, so a Client is not safe for concurrent use; the one
// exception is AwaitPairing, which only reads.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/marmos91/zkauth/pkg/protocol/wire"
	"github.com/marmos91/zkauth/pkg/schnorr"
)

// DefaultTimeout bounds the dial and each request round-trip.
const DefaultTimeout = 10 * time.Second

// ErrRejected is returned by Authenticate when the server rejects the proof.
var ErrRejected = errors.New("authentication rejected")

// ProtocolError is an ERROR frame turned into a Go error.
type ProtocolError struct {
	Code    wire.ErrorCode
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server error %s: %s", e.Code, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-exchange timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client speaks the wire protocol over one connection. Create one with Dial.
type Client struct {
	conn    net.Conn
	enc     *wire.Encoder
	dec     *wire.Decoder
	group   *schnorr.Group
	timeout time.Duration
}

// Dial connects to the server at addr, runs the handshake and returns a
// ready Client. The server chooses the group; Dial fails when it announces
// one this build does not know.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	c := &Client{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	c.conn = conn
	c.enc = wire.NewEncoder(conn)
	c.dec = wire.NewDecoder(conn)

	if err := c.handshake(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// Group returns the group announced by the server during the handshake.
func (c *Client) Group() *schnorr.Group {
	return c.group
}

// Close terminates the connection. The server treats the disconnect as the
// end of the session.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) handshake(ctx context.Context) error {
	defer c.clearDeadline()
	c.setDeadline(ctx)

	if err := c.enc.Encode(wire.TypeHandshakeReq, nil); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	frame, err := c.expect(wire.TypeGroupSelection)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	var p wire.GroupSelectionPayload
	if err := frame.Decode(&p); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	group, err := schnorr.Lookup(p.GroupID)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	c.group = group

	if err := c.enc.Encode(wire.TypeHandshakeRes, nil); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	return nil
}

// Register enrolls a new account named username with this device as its
// main device. On success the connection is authenticated.
func (c *Client) Register(ctx context.Context, username, device string, key *big.Int) error {
	prover, err := schnorr.NewProver(c.group, key)
	if err != nil {
		return err
	}

	defer c.clearDeadline()
	c.setDeadline(ctx)

	err = c.enc.Encode(wire.TypeRegister, wire.RegisterPayload{
		Username:  username,
		PublicKey: schnorr.FormatHex(prover.PublicKey()),
		Device:    device,
	})
	if err != nil {
		return err
	}
	_, err = c.expect(wire.TypeRegistered)
	return err
}

// Authenticate proves knowledge of the account's private key in one
// commit-challenge-respond round. On success the connection is authenticated
// as the enrolled device whose key matched; on a failed proof it returns
// ErrRejected.
func (c *Client) Authenticate(ctx context.Context, username string, key *big.Int) error {
	prover, err := schnorr.NewProver(c.group, key)
	if err != nil {
		return err
	}
	com, err := prover.Commit()
	if err != nil {
		return err
	}

	defer c.clearDeadline()
	c.setDeadline(ctx)

	err = c.enc.Encode(wire.TypeAuthRequest, wire.AuthRequestPayload{
		Username: username,
		Temp:     schnorr.FormatHex(com.U),
	})
	if err != nil {
		return err
	}
	frame, err := c.expect(wire.TypeChallenge)
	if err != nil {
		return err
	}
	var p wire.ChallengePayload
	if err := frame.Decode(&p); err != nil {
		return err
	}
	challenge, err := schnorr.ParseHex(p.Challenge)
	if err != nil {
		return fmt.Errorf("bad challenge from server: %w", err)
	}

	z := prover.Respond(com, challenge)
	err = c.enc.Encode(wire.TypeAuthResponse, wire.AuthResponsePayload{
		Response: schnorr.FormatHex(z),
	})
	if err != nil {
		return err
	}

	frame, err = c.next()
	if err != nil {
		return err
	}
	switch frame.Type {
	case wire.TypeAccepted:
		return nil
	case wire.TypeRejected:
		return ErrRejected
	default:
		return fmt.Errorf("expected %s or %s, got %s",
			wire.TypeAccepted, wire.TypeRejected, frame.Type)
	}
}

// RequestPairing asks the server to enroll this device into an existing,
// not yet disclosed account. It returns the pairing token to present to the
// account's owner; AwaitPairing then blocks for the outcome.
func (c *Client) RequestPairing(ctx context.Context, device string, key *big.Int) (string, error) {
	prover, err := schnorr.NewProver(c.group, key)
	if err != nil {
		return "", err
	}

	defer c.clearDeadline()
	c.setDeadline(ctx)

	err = c.enc.Encode(wire.TypeAssocRequest, wire.AssocRequestPayload{
		Device: device,
		PK:     schnorr.FormatHex(prover.PublicKey()),
	})
	if err != nil {
		return "", err
	}
	frame, err := c.expect(wire.TypeTokenAssoc)
	if err != nil {
		return "", err
	}
	var p wire.TokenPayload
	if err := frame.Decode(&p); err != nil {
		return "", err
	}
	return p.Token, nil
}

// AwaitPairing blocks until the account's main device confirms the pairing,
// returning the username this device now belongs to. Confirmation takes as
// long as the owner takes, so there is no per-exchange timeout here; cancel
// ctx to give up.
func (c *Client) AwaitPairing(ctx context.Context) (string, error) {
	c.clearDeadline()
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	frame, err := c.expect(wire.TypeAccepted)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	var p wire.AcceptedPayload
	if err := frame.Decode(&p); err != nil {
		return "", err
	}
	return p.Username, nil
}

// ConfirmPairing approves a pairing token. The connection must be
// authenticated as the account's main device.
func (c *Client) ConfirmPairing(ctx context.Context, token string) error {
	defer c.clearDeadline()
	c.setDeadline(ctx)

	if err := c.enc.Encode(wire.TypeTokenAssoc, wire.TokenPayload{Token: token}); err != nil {
		return err
	}
	_, err := c.expect(wire.TypeAccepted)
	return err
}

// Logout ends the authenticated session. The connection stays open and can
// authenticate again.
func (c *Client) Logout(ctx context.Context) error {
	defer c.clearDeadline()
	c.setDeadline(ctx)

	if err := c.enc.Encode(wire.TypeLogout, nil); err != nil {
		return err
	}
	_, err := c.expect(wire.TypeLoggedOut)
	return err
}

// Devices lists the authenticated account's enrolled devices.
func (c *Client) Devices(ctx context.Context) ([]wire.DeviceSummary, error) {
	defer c.clearDeadline()
	c.setDeadline(ctx)

	if err := c.enc.Encode(wire.TypeDevicesRequest, nil); err != nil {
		return nil, err
	}
	frame, err := c.expect(wire.TypeDevicesResponse)
	if err != nil {
		return nil, err
	}
	var p wire.DevicesResponsePayload
	if err := frame.Decode(&p); err != nil {
		return nil, err
	}
	return p.Devices, nil
}

// next reads one frame, translating ERROR frames into *ProtocolError.
func (c *Client) next() (*wire.Frame, error) {
	frame, err := c.dec.Next()
	if err != nil {
		return nil, err
	}
	if frame.Type == wire.TypeError {
		var p wire.ErrorPayload
		if err := frame.Decode(&p); err != nil {
			return nil, err
		}
		return nil, &ProtocolError{Code: p.ErrorCode, Message: p.Message}
	}
	return frame, nil
}

func (c *Client) expect(want wire.MessageType) (*wire.Frame, error) {
	frame, err := c.next()
	if err != nil {
		return nil, err
	}
	if frame.Type != want {
		return nil, fmt.Errorf("expected %s, got %s", want, frame.Type)
	}
	return frame, nil
}

// setDeadline bounds the next exchange by the earlier of the configured
// timeout and the context deadline.
func (c *Client) setDeadline(ctx context.Context) {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)
}

func (c *Client) clearDeadline() {
	_ = c.conn.SetDeadline(time.Time{})
}
