package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Protocol & Messages
	// ========================================================================
	KeyMsgType   = "msg_type"   // Message kind label: REGISTER, AUTH_REQUEST, etc.
	KeyMsgCode   = "msg_code"   // Numeric message kind
	KeyErrorCode = "error_code" // Numeric protocol error code
	KeyErrorName = "error_name" // Protocol error label: UNAUTHORIZED, etc.
	KeyGroupID   = "group_id"   // Schnorr group identifier

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port
	KeyConnID     = "conn_id"     // Connection identifier
	KeyUsername   = "username"    // Account username
	KeyDevice     = "device"      // Device name within an account

	// ========================================================================
	// Accounts & Devices
	// ========================================================================
	KeyDevices    = "devices"     // Number of devices on an account
	KeyMainDevice = "main_device" // Main device indicator
	KeyLogged     = "logged"      // Device logged-in flag

	// ========================================================================
	// Pairing
	// ========================================================================
	KeyTokenPrefix = "token_prefix" // Truncated pairing token for correlation
	KeyExpiry      = "expiry"       // Token expiry timestamp

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyComponent  = "component"   // Subsystem: server, api, store, backup

	// ========================================================================
	// Storage Backend
	// ========================================================================
	KeyStoreType = "store_type" // Store type: memory, badger, sqlite, postgres
	KeyPath      = "path"       // Filesystem path
	KeyUsers     = "users"      // Number of accounts
	KeyTokens    = "tokens"     // Number of pending tokens

	// ========================================================================
	// Session & Connection Counters
	// ========================================================================
	KeyActiveConns = "active_connections" // Currently open connections
	KeySessions    = "sessions"           // Authenticated sessions
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// MsgType returns a slog.Attr for a message kind label
func MsgType(label string) slog.Attr {
	return slog.String(KeyMsgType, label)
}

// MsgCode returns a slog.Attr for a numeric message kind
func MsgCode(code int) slog.Attr {
	return slog.Int(KeyMsgCode, code)
}

// ErrorCode returns a slog.Attr for a numeric protocol error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// ErrorName returns a slog.Attr for a protocol error label
func ErrorName(name string) slog.Attr {
	return slog.String(KeyErrorName, name)
}

// GroupID returns a slog.Attr for a Schnorr group identifier
func GroupID(id string) slog.Attr {
	return slog.String(KeyGroupID, id)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// ConnID returns a slog.Attr for connection identifier
func ConnID(id string) slog.Attr {
	return slog.String(KeyConnID, id)
}

// Username returns a slog.Attr for account username
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Device returns a slog.Attr for device name
func Device(name string) slog.Attr {
	return slog.String(KeyDevice, name)
}

// Devices returns a slog.Attr for the number of devices on an account
func Devices(n int) slog.Attr {
	return slog.Int(KeyDevices, n)
}

// MainDevice returns a slog.Attr for the main device indicator
func MainDevice(main bool) slog.Attr {
	return slog.Bool(KeyMainDevice, main)
}

// Logged returns a slog.Attr for the device logged-in flag
func Logged(logged bool) slog.Attr {
	return slog.Bool(KeyLogged, logged)
}

// TokenPrefix returns a slog.Attr carrying only the first characters of a
// pairing token. Tokens are bearer secrets and must never be logged whole.
func TokenPrefix(token string) slog.Attr {
	const n = 8
	if len(token) > n {
		token = token[:n]
	}
	return slog.String(KeyTokenPrefix, token)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Component returns a slog.Attr for a subsystem name
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// StoreType returns a slog.Attr for store type
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}

// Path returns a slog.Attr for a filesystem path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// ActiveConns returns a slog.Attr for currently open connections
func ActiveConns(n int64) slog.Attr {
	return slog.Int64(KeyActiveConns, n)
}

// Sessions returns a slog.Attr for authenticated session count
func Sessions(n int) slog.Attr {
	return slog.Int(KeySessions, n)
}
