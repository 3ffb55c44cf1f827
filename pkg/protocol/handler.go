// Package protocol implements the server side of the authentication
// protocol: the per-connection state machine, the challenge-response
// verification flow, and the device pairing handoff between connections.
package protocol

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/marmos91/zkauth/internal/logger"
	"github.com/marmos91/zkauth/internal/telemetry"
	"github.com/marmos91/zkauth/pkg/pairing"
	"github.com/marmos91/zkauth/pkg/protocol/wire"
	"github.com/marmos91/zkauth/pkg/schnorr"
	"github.com/marmos91/zkauth/pkg/store"
)

// DefaultTokenTTL is how long a minted pairing token stays valid.
const DefaultTokenTTL = 10 * time.Minute

// channelPhase tracks handshake progress on a connection.
type channelPhase int

const (
	// phaseInit: nothing exchanged yet; only HANDSHAKE_REQ is honored.
	phaseInit channelPhase = iota
	// phaseConfirming: GROUP_SELECTION sent; the next frame, whatever its
	// kind, confirms the handshake.
	phaseConfirming
	// phaseReady: normal dispatch.
	phaseReady
)

// Option configures a Handler.
type Option func(*Handler)

// WithGroup sets the Schnorr group announced during the handshake.
func WithGroup(g *schnorr.Group) Option {
	return func(h *Handler) {
		if g != nil {
			h.group = g
		}
	}
}

// WithTokenTTL overrides the pairing token lifetime.
func WithTokenTTL(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.tokenTTL = d
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithTracker attaches a connection lifecycle tracker.
func WithTracker(t Tracker) Option {
	return func(h *Handler) {
		h.tracker = t
	}
}

// Tracker observes connection lifecycle events. Implementations must be safe
// for concurrent use; callbacks run inline on connection workers.
type Tracker interface {
	Opened(id, remoteAddr string)
	Authenticated(id, username, device string)
	LoggedOut(id string)
	Closed(id string)
}

// Handler drives the protocol state machine. A single Handler is shared by
// all connection workers; each call to Handle serves one connection.
type Handler struct {
	store    store.Store
	registry *pairing.Registry
	group    *schnorr.Group
	tokenTTL time.Duration
	metrics  *Metrics
	tracker  Tracker
}

// NewHandler returns a Handler backed by the given store and pairing
// registry. Without options it announces the default group and applies
// DefaultTokenTTL to pairing tokens.
func NewHandler(st store.Store, reg *pairing.Registry, opts ...Option) *Handler {
	h := &Handler{
		store:    st,
		registry: reg,
		group:    schnorr.Default(),
		tokenTTL: DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Group returns the group announced to clients.
func (h *Handler) Group() *schnorr.Group {
	return h.group
}

// Handle serves one client connection until the peer disconnects or ctx is
// cancelled. It owns the connection's whole lifecycle, including pairing
// registry cleanup.
func (h *Handler) Handle(ctx context.Context, nc net.Conn) {
	conn := newConn(nc)
	lc := logger.NewLogContext(conn.ID(), conn.RemoteIP())
	ctx = logger.WithContext(ctx, lc)

	h.metrics.ConnOpened()
	if h.tracker != nil {
		h.tracker.Opened(conn.ID(), conn.RemoteIP())
	}
	logger.InfoCtx(ctx, "client connected")

	defer func() {
		for _, token := range conn.tokens {
			h.registry.Remove(token)
		}
		h.metrics.SetPendingPairings(h.registry.Len())
		conn.Close()
		h.metrics.ConnClosed()
		if h.tracker != nil {
			h.tracker.Closed(conn.ID())
		}
		logger.InfoCtx(ctx, "client disconnected", logger.KeyDurationMs, lc.DurationMs())
	}()

	go conn.readLoop()

	phase := phaseInit
	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "dropping connection on shutdown")
			return

		case comp := <-conn.inbox:
			h.completePairing(ctx, conn, lc, comp)

		case res := <-conn.frames:
			if res.err != nil {
				h.logStreamEnd(ctx, res.err)
				return
			}
			h.metrics.RecordMessage(messageLabel(res.frame.Type))
			phase = h.process(ctx, conn, lc, phase, res.frame)
		}
	}
}

// messageLabel keeps metric label cardinality bounded for unknown codes.
func messageLabel(t wire.MessageType) string {
	if t.Known() {
		return t.Label()
	}
	return "UNKNOWN"
}

func (h *Handler) process(ctx context.Context, conn *Conn, lc *logger.LogContext, phase channelPhase, frame *wire.Frame) channelPhase {
	switch phase {
	case phaseInit:
		if frame.Type != wire.TypeHandshakeReq {
			logger.WarnCtx(ctx, "frame before handshake dropped", logger.MsgType(frame.Type.String()))
			return phase
		}
		return h.announceGroup(ctx, conn, phase)

	case phaseConfirming:
		if frame.Type == wire.TypeHandshakeRes {
			logger.InfoCtx(ctx, "handshake complete", logger.GroupID(h.group.ID))
		} else {
			logger.DebugCtx(ctx, "handshake confirmed by non-canonical frame",
				logger.MsgType(frame.Type.String()))
		}
		return phaseReady

	default:
		if frame.Type == wire.TypeHandshakeReq {
			// A repeated handshake re-announces the group; the next frame
			// is consumed as its confirmation.
			return h.announceGroup(ctx, conn, phase)
		}
		h.dispatch(ctx, conn, lc, frame)
		return phaseReady
	}
}

func (h *Handler) announceGroup(ctx context.Context, conn *Conn, phase channelPhase) channelPhase {
	err := conn.Send(wire.TypeGroupSelection, wire.GroupSelectionPayload{GroupID: h.group.ID})
	if err != nil {
		logger.WarnCtx(ctx, "failed to send group selection", logger.Err(err))
		return phase
	}
	logger.DebugCtx(ctx, "group announced", logger.GroupID(h.group.ID))
	return phaseConfirming
}

func (h *Handler) dispatch(ctx context.Context, conn *Conn, lc *logger.LogContext, frame *wire.Frame) {
	ctx, span := telemetry.StartMessageSpan(ctx, messageLabel(frame.Type),
		telemetry.ClientAddr(conn.RemoteIP()),
		telemetry.SessionID(conn.ID()),
		telemetry.Username(conn.session.Username()))
	defer span.End()

	// Stamp the message span onto the connection's log context so log lines
	// and traces correlate.
	lc.TraceID = telemetry.TraceID(ctx)
	lc.SpanID = telemetry.SpanID(ctx)

	switch frame.Type {
	case wire.TypeRegister:
		h.handleRegister(ctx, conn, lc, frame)
	case wire.TypeAuthRequest:
		h.handleAuthRequest(ctx, conn, frame)
	case wire.TypeAuthResponse:
		h.handleAuthResponse(ctx, conn, lc, frame)
	case wire.TypeAssocRequest:
		h.handleAssocRequest(ctx, conn, frame)
	case wire.TypeTokenAssoc:
		h.handleTokenAssoc(ctx, conn, frame)
	case wire.TypeLogout:
		h.handleLogout(ctx, conn, lc)
	case wire.TypeDevicesRequest:
		h.handleDevices(ctx, conn)
	case wire.TypeInvalid:
		h.sendError(ctx, conn, wire.CodeMalformedMessage)
	default:
		logger.InfoCtx(ctx, "ignoring unexpected message kind",
			logger.MsgType(frame.Type.String()))
	}
}

func (h *Handler) trackAuthenticated(conn *Conn) {
	if h.tracker != nil {
		h.tracker.Authenticated(conn.ID(), conn.session.Username(), conn.session.LoggedDevice)
	}
}

// sendError reports and sends a protocol error. The connection stays open;
// protocol errors are answers, not terminations.
func (h *Handler) sendError(ctx context.Context, conn *Conn, code wire.ErrorCode) {
	h.metrics.RecordError(code.Label())
	telemetry.AddEvent(ctx, "protocol.error", telemetry.ErrorName(code.Label()))
	logger.DebugCtx(ctx, "protocol error sent",
		logger.ErrorName(code.Label()), logger.ErrorCode(int(code)))
	if err := conn.SendError(code); err != nil {
		logger.WarnCtx(ctx, "failed to send protocol error", logger.Err(err))
	}
}

func (h *Handler) handleRegister(ctx context.Context, conn *Conn, lc *logger.LogContext, frame *wire.Frame) {
	var p wire.RegisterPayload
	if err := frame.Decode(&p); err != nil {
		logger.DebugCtx(ctx, "invalid register payload", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeMalformedMessage)
		return
	}

	user := &store.User{
		Username: p.Username,
		Devices: []store.Device{{
			PK:         p.PublicKey,
			DeviceName: p.Device,
			MainDevice: true,
			Logged:     true,
		}},
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			logger.InfoCtx(ctx, "registration refused, username taken",
				logger.Username(p.Username))
			h.sendError(ctx, conn, wire.CodeUsernameAlreadyExists)
			return
		}
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "failed to create user", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeUnknownError)
		return
	}

	conn.session.User = user
	conn.session.LoggedDevice = p.Device
	conn.session.LoginTime = time.Now()
	lc.Username = p.Username
	lc.Device = p.Device
	h.trackAuthenticated(conn)

	h.metrics.RecordRegistration()
	if err := conn.Send(wire.TypeRegistered, nil); err != nil {
		logger.WarnCtx(ctx, "failed to send registration ack", logger.Err(err))
		return
	}
	logger.InfoCtx(ctx, "user registered")
}

func (h *Handler) handleAuthRequest(ctx context.Context, conn *Conn, frame *wire.Frame) {
	var p wire.AuthRequestPayload
	if err := frame.Decode(&p); err != nil {
		logger.DebugCtx(ctx, "invalid auth request payload", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeMalformedMessage)
		return
	}

	user, err := h.store.GetUser(ctx, p.Username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			logger.InfoCtx(ctx, "authentication refused, unknown username",
				logger.Username(p.Username))
			h.sendError(ctx, conn, wire.CodeUsernameNotFound)
			return
		}
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "failed to load user", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeUnknownError)
		return
	}

	tempPK, err := schnorr.ParseHex(p.Temp)
	if err != nil {
		logger.DebugCtx(ctx, "invalid commitment encoding", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeMalformedMessage)
		return
	}

	challenge, err := h.group.Challenge()
	if err != nil {
		logger.ErrorCtx(ctx, "failed to draw challenge", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeUnknownError)
		return
	}

	// The user snapshot rides in the session; verification runs against
	// the devices as they were at challenge time.
	conn.session.User = user
	conn.session.TempPK = tempPK
	conn.session.Challenge = challenge

	err = conn.Send(wire.TypeChallenge, wire.ChallengePayload{
		Challenge: schnorr.FormatHex(challenge),
	})
	if err != nil {
		logger.WarnCtx(ctx, "failed to send challenge", logger.Err(err))
		return
	}
	logger.DebugCtx(ctx, "challenge issued", logger.Username(p.Username))
}

func (h *Handler) handleAuthResponse(ctx context.Context, conn *Conn, lc *logger.LogContext, frame *wire.Frame) {
	sess := &conn.session
	if sess.User == nil || !sess.AwaitingResponse() {
		logger.DebugCtx(ctx, "auth response without pending challenge")
		h.sendError(ctx, conn, wire.CodeSessionNotFound)
		return
	}

	var p wire.AuthResponsePayload
	if err := frame.Decode(&p); err != nil {
		logger.DebugCtx(ctx, "invalid auth response payload", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeMalformedMessage)
		return
	}

	z, err := schnorr.ParseHex(p.Response)
	if err != nil {
		logger.DebugCtx(ctx, "invalid response encoding", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeMalformedMessage)
		return
	}

	// First matching device wins, in stored list order. A device whose
	// stored key does not parse is skipped, not fatal.
	start := time.Now()
	verifyCtx, verifySpan := telemetry.StartVerifySpan(ctx, sess.Username(), len(sess.User.Devices))
	var matched *store.Device
	for i := range sess.User.Devices {
		d := &sess.User.Devices[i]
		y, err := schnorr.ParseHex(d.PK)
		if err != nil {
			logger.WarnCtx(verifyCtx, "skipping device with invalid stored key",
				logger.Device(d.DeviceName))
			continue
		}
		if h.group.Verify(y, sess.TempPK, sess.Challenge, z) {
			matched = d
			break
		}
	}
	sess.ClearChallenge()

	if matched == nil {
		verifySpan.SetAttributes(telemetry.Result("rejected"))
		verifySpan.End()
		h.metrics.RecordAuth("rejected", time.Since(start).Seconds())
		logger.InfoCtx(ctx, "authentication rejected", logger.Username(sess.Username()))
		if err := conn.Send(wire.TypeRejected, nil); err != nil {
			logger.WarnCtx(ctx, "failed to send rejection", logger.Err(err))
		}
		return
	}

	verifySpan.SetAttributes(telemetry.Result("accepted"), telemetry.Device(matched.DeviceName))
	verifySpan.End()

	sess.LoggedDevice = matched.DeviceName
	sess.LoginTime = time.Now()
	matched.Logged = true
	lc.Username = sess.Username()
	lc.Device = matched.DeviceName
	h.trackAuthenticated(conn)

	if err := h.store.SetDeviceLogged(ctx, sess.Username(), matched.DeviceName, true); err != nil {
		logger.ErrorCtx(ctx, "failed to persist login flag", logger.Err(err))
	}

	h.metrics.RecordAuth("accepted", time.Since(start).Seconds())
	if err := conn.Send(wire.TypeAccepted, nil); err != nil {
		logger.WarnCtx(ctx, "failed to send acceptance", logger.Err(err))
		return
	}
	logger.InfoCtx(ctx, "user authenticated")
}

func (h *Handler) handleAssocRequest(ctx context.Context, conn *Conn, frame *wire.Frame) {
	var p wire.AssocRequestPayload
	if err := frame.Decode(&p); err != nil {
		logger.DebugCtx(ctx, "invalid association request payload", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeMalformedMessage)
		return
	}

	token, err := pairing.MintToken(p.PK, p.Device)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to mint pairing token", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeUnknownError)
		return
	}

	now := time.Now().UTC()
	tok := &store.TempToken{
		Token:      token,
		PK:         p.PK,
		DeviceName: p.Device,
		CreatedAt:  now,
		Expiry:     now.Add(h.tokenTTL),
	}
	if err := h.store.CreateToken(ctx, tok); err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "failed to persist pairing token", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeAssocFailure)
		return
	}

	// Persist, then register, then send: once the client sees the token,
	// a confirmation on another connection must be able to find both.
	conn.trackToken(token)
	h.registry.Register(token, conn.inbox)
	h.metrics.SetPendingPairings(h.registry.Len())

	if err := conn.Send(wire.TypeTokenAssoc, wire.TokenPayload{Token: token}); err != nil {
		logger.WarnCtx(ctx, "failed to send pairing token", logger.Err(err))
		return
	}
	logger.InfoCtx(ctx, "pairing started",
		logger.Device(p.Device), logger.TokenPrefix(token))
}

func (h *Handler) handleTokenAssoc(ctx context.Context, conn *Conn, frame *wire.Frame) {
	var p wire.TokenPayload
	if err := frame.Decode(&p); err != nil {
		logger.DebugCtx(ctx, "invalid confirmation payload", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeMalformedMessage)
		return
	}

	tok, err := h.store.GetToken(ctx, p.Token)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			logger.InfoCtx(ctx, "confirmation with unknown token",
				logger.TokenPrefix(p.Token))
			h.sendError(ctx, conn, wire.CodeUnauthorized)
			return
		}
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "failed to load pairing token", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeUnknownError)
		return
	}

	sess := &conn.session
	if !sess.Authenticated() {
		h.sendError(ctx, conn, wire.CodeSessionNotFound)
		return
	}

	if tok.Expired(time.Now().UTC()) {
		if err := h.store.DeleteToken(ctx, p.Token); err != nil && !errors.Is(err, store.ErrTokenNotFound) {
			logger.WarnCtx(ctx, "failed to delete expired token", logger.Err(err))
		}
		h.metrics.RecordPairing("failed")
		h.sendError(ctx, conn, wire.CodeTokenInvalidOrExpired)
		return
	}

	confirming := sess.User.Device(sess.LoggedDevice)
	if confirming == nil || !confirming.MainDevice {
		h.sendError(ctx, conn, wire.CodeNoMainDevice)
		return
	}

	device := store.Device{
		PK:         tok.PK,
		DeviceName: tok.DeviceName,
		MainDevice: false,
		Logged:     true,
	}
	if err := h.store.AppendDevice(ctx, sess.User.Username, device); err != nil {
		switch {
		case errors.Is(err, store.ErrDeviceExists):
			h.sendError(ctx, conn, wire.CodeDeviceAlreadyRegistered)
		case errors.Is(err, store.ErrUserNotFound):
			h.sendError(ctx, conn, wire.CodeUsernameNotFound)
		default:
			telemetry.RecordError(ctx, err)
			logger.ErrorCtx(ctx, "failed to append device", logger.Err(err))
			h.sendError(ctx, conn, wire.CodeUnknownError)
		}
		return
	}
	sess.User.Devices = append(sess.User.Devices, device)

	if err := h.store.DeleteToken(ctx, p.Token); err != nil && !errors.Is(err, store.ErrTokenNotFound) {
		logger.WarnCtx(ctx, "failed to delete consumed token", logger.Err(err))
	}

	delivered := h.registry.Deliver(p.Token, pairing.Completion{
		User:   sess.User.Clone(),
		Device: tok.DeviceName,
	})
	h.metrics.SetPendingPairings(h.registry.Len())

	if !delivered {
		// The secondary is gone; the device stays enrolled, only the live
		// handoff failed.
		h.metrics.RecordPairing("failed")
		logger.WarnCtx(ctx, "pairing confirmed but secondary disconnected",
			logger.Device(tok.DeviceName))
		h.sendError(ctx, conn, wire.CodeAssocFailure)
		return
	}

	if err := conn.Send(wire.TypeAccepted, nil); err != nil {
		logger.WarnCtx(ctx, "failed to ack pairing confirmation", logger.Err(err))
		return
	}
	logger.InfoCtx(ctx, "device paired", logger.Device(tok.DeviceName))
}

// completePairing runs on the secondary's worker when its inbox receives
// the completion posted by the primary's confirmation.
func (h *Handler) completePairing(ctx context.Context, conn *Conn, lc *logger.LogContext, comp pairing.Completion) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanPairingComplete)
	span.SetAttributes(telemetry.Username(comp.User.Username), telemetry.Device(comp.Device))
	defer span.End()

	conn.session.User = comp.User
	conn.session.LoggedDevice = comp.Device
	conn.session.LoginTime = time.Now()
	lc.Username = comp.User.Username
	lc.Device = comp.Device
	h.trackAuthenticated(conn)

	h.metrics.RecordPairing("completed")
	err := conn.Send(wire.TypeAccepted, wire.AcceptedPayload{Username: comp.User.Username})
	if err != nil {
		logger.WarnCtx(ctx, "failed to deliver pairing acceptance", logger.Err(err))
		return
	}
	logger.InfoCtx(ctx, "device joined account")
}

func (h *Handler) handleLogout(ctx context.Context, conn *Conn, lc *logger.LogContext) {
	sess := &conn.session
	if !sess.Authenticated() {
		h.sendError(ctx, conn, wire.CodeSessionNotFound)
		return
	}

	if err := conn.Send(wire.TypeLoggedOut, nil); err != nil {
		logger.WarnCtx(ctx, "failed to send logout ack", logger.Err(err))
	}

	if sess.LoggedDevice != "" {
		if err := h.store.SetDeviceLogged(ctx, sess.Username(), sess.LoggedDevice, false); err != nil {
			logger.WarnCtx(ctx, "failed to clear login flag", logger.Err(err))
		}
	}

	logger.InfoCtx(ctx, "user logged out")
	sess.Clear()
	lc.Username = ""
	lc.Device = ""
	if h.tracker != nil {
		h.tracker.LoggedOut(conn.ID())
	}
}

func (h *Handler) handleDevices(ctx context.Context, conn *Conn) {
	sess := &conn.session
	if !sess.Authenticated() || sess.LoggedDevice == "" {
		h.sendError(ctx, conn, wire.CodeSessionNotFound)
		return
	}

	user, err := h.store.GetUser(ctx, sess.Username())
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "failed to load device list", logger.Err(err))
		h.sendError(ctx, conn, wire.CodeUnknownError)
		return
	}

	devices := make([]wire.DeviceSummary, 0, len(user.Devices))
	for _, d := range user.Devices {
		devices = append(devices, wire.DeviceSummary{
			PK:         d.PK,
			DeviceName: d.DeviceName,
			MainDevice: d.MainDevice,
			Logged:     d.Logged,
		})
	}

	err = conn.Send(wire.TypeDevicesResponse, wire.DevicesResponsePayload{Devices: devices})
	if err != nil {
		logger.WarnCtx(ctx, "failed to send device list", logger.Err(err))
		return
	}
	logger.DebugCtx(ctx, "device list sent", logger.Devices(len(devices)))
}

func (h *Handler) logStreamEnd(ctx context.Context, err error) {
	switch {
	case errors.Is(err, wire.ErrFrameTooLarge):
		logger.WarnCtx(ctx, "dropping connection, oversized frame", logger.Err(err))
	case errors.Is(err, wire.ErrConnectionClosed):
		logger.InfoCtx(ctx, "connection closed by peer")
	default:
		logger.WarnCtx(ctx, "connection read failed", logger.Err(err))
	}
}
