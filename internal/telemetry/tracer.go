package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for tracing protocol operations.
// Domain keys use the "zkauth." prefix; keys that OpenTelemetry semantic
// conventions already cover keep their conventional names.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// Protocol attributes
	// ========================================================================
	AttrMessageType = "zkauth.message_type" // Wire message being handled
	AttrGroupID     = "zkauth.group_id"     // Schnorr group announced for the session
	AttrUsername    = "zkauth.username"     // Account the operation acts on
	AttrDevice      = "zkauth.device"       // Device name within the account
	AttrMainDevice  = "zkauth.main_device"  // Whether the device can approve pairings
	AttrDeviceCount = "zkauth.device_count" // Enrolled devices checked during verification
	AttrSessionID   = "zkauth.session_id"   // Connection/session identifier
	AttrResult      = "zkauth.result"       // Operation outcome (accepted, rejected, ...)
	AttrErrorName   = "zkauth.error"        // Protocol error name sent to the client
	AttrTokenPrefix = "zkauth.token_prefix" // Truncated pairing token for correlation

	// ========================================================================
	// Persistence attributes
	// ========================================================================
	AttrStoreType = "store.type"      // Backend type: badger, sqlite, postgres, memory
	AttrStoreOp   = "store.operation" // Store method name
)

// Span names follow <component>.<operation>:
//
//	auth.<MESSAGE>   one span per dispatched protocol message
//	schnorr.verify   proof verification against enrolled devices
//	pairing.complete delivery of a pairing result to the waiting device
//	store.<op>       persistence operations
const (
	SpanVerify          = "schnorr.verify"
	SpanPairingComplete = "pairing.complete"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// MessageType returns an attribute for the wire message type name
func MessageType(name string) attribute.KeyValue {
	return attribute.String(AttrMessageType, name)
}

// GroupID returns an attribute for the Schnorr group identifier
func GroupID(id string) attribute.KeyValue {
	return attribute.String(AttrGroupID, id)
}

// Username returns an attribute for the account name
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// Device returns an attribute for the device name
func Device(name string) attribute.KeyValue {
	return attribute.String(AttrDevice, name)
}

// MainDevice returns an attribute marking whether the device is the
// account's main device
func MainDevice(main bool) attribute.KeyValue {
	return attribute.Bool(AttrMainDevice, main)
}

// DeviceCount returns an attribute for the number of enrolled devices
func DeviceCount(n int) attribute.KeyValue {
	return attribute.Int(AttrDeviceCount, n)
}

// SessionID returns an attribute for the connection identifier
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// Result returns an attribute for the operation outcome
func Result(result string) attribute.KeyValue {
	return attribute.String(AttrResult, result)
}

// ErrorName returns an attribute for the protocol error name
func ErrorName(name string) attribute.KeyValue {
	return attribute.String(AttrErrorName, name)
}

// TokenPrefix returns an attribute carrying only the first characters of a
// pairing token. Tokens are bearer secrets and must never reach the trace
// backend whole.
func TokenPrefix(token string) attribute.KeyValue {
	const n = 8
	if len(token) > n {
		token = token[:n]
	}
	return attribute.String(AttrTokenPrefix, token)
}

// StoreType returns an attribute for the persistence backend type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// StoreOp returns an attribute for the store method name
func StoreOp(op string) attribute.KeyValue {
	return attribute.String(AttrStoreOp, op)
}

// StartMessageSpan starts a span for one dispatched protocol message.
// This is a convenience function that sets common attributes.
func StartMessageSpan(ctx context.Context, msgType string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		MessageType(msgType),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "auth."+msgType, trace.WithAttributes(allAttrs...))
}

// StartVerifySpan starts a span covering proof verification against an
// account's enrolled devices.
func StartVerifySpan(ctx context.Context, username string, deviceCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanVerify, trace.WithAttributes(
		Username(username),
		DeviceCount(deviceCount),
	))
}

// StartStoreSpan starts a span for a persistence operation.
func StartStoreSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		StoreOp(operation),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "store."+operation, trace.WithAttributes(allAttrs...))
}
