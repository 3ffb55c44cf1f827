package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "zkauthd", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestTraceIDsEmptyWithoutSpan(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", TraceID(ctx))
	assert.Equal(t, "", SpanID(ctx))
}

func TestTraceIDsWithinSpan(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19},
		SpanID:  trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	assert.Equal(t, sc.TraceID().String(), TraceID(ctx))
	assert.Equal(t, sc.SpanID().String(), SpanID(ctx))
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("MessageType", func(t *testing.T) {
		attr := MessageType("AUTH_REQUEST")
		assert.Equal(t, AttrMessageType, string(attr.Key))
		assert.Equal(t, "AUTH_REQUEST", attr.Value.AsString())
	})

	t.Run("GroupID", func(t *testing.T) {
		attr := GroupID("modp-1536")
		assert.Equal(t, AttrGroupID, string(attr.Key))
		assert.Equal(t, "modp-1536", attr.Value.AsString())
	})

	t.Run("Username", func(t *testing.T) {
		attr := Username("alice")
		assert.Equal(t, AttrUsername, string(attr.Key))
		assert.Equal(t, "alice", attr.Value.AsString())
	})

	t.Run("Device", func(t *testing.T) {
		attr := Device("laptop")
		assert.Equal(t, AttrDevice, string(attr.Key))
		assert.Equal(t, "laptop", attr.Value.AsString())
	})

	t.Run("MainDevice", func(t *testing.T) {
		attr := MainDevice(true)
		assert.Equal(t, AttrMainDevice, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("DeviceCount", func(t *testing.T) {
		attr := DeviceCount(3)
		assert.Equal(t, AttrDeviceCount, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("SessionID", func(t *testing.T) {
		attr := SessionID("conn-42")
		assert.Equal(t, AttrSessionID, string(attr.Key))
		assert.Equal(t, "conn-42", attr.Value.AsString())
	})

	t.Run("Result", func(t *testing.T) {
		attr := Result("accepted")
		assert.Equal(t, AttrResult, string(attr.Key))
		assert.Equal(t, "accepted", attr.Value.AsString())
	})

	t.Run("ErrorName", func(t *testing.T) {
		attr := ErrorName("USERNAME_NOT_FOUND")
		assert.Equal(t, AttrErrorName, string(attr.Key))
		assert.Equal(t, "USERNAME_NOT_FOUND", attr.Value.AsString())
	})

	t.Run("TokenPrefix", func(t *testing.T) {
		attr := TokenPrefix("04d4c4047ec2f1a3d7bd7b3c1a9f2e88")
		assert.Equal(t, AttrTokenPrefix, string(attr.Key))
		assert.Equal(t, "04d4c404", attr.Value.AsString())
	})

	t.Run("TokenPrefix_Short", func(t *testing.T) {
		attr := TokenPrefix("ab")
		assert.Equal(t, "ab", attr.Value.AsString())
	})

	t.Run("StoreType", func(t *testing.T) {
		attr := StoreType("badger")
		assert.Equal(t, AttrStoreType, string(attr.Key))
		assert.Equal(t, "badger", attr.Value.AsString())
	})

	t.Run("StoreOp", func(t *testing.T) {
		attr := StoreOp("get_user")
		assert.Equal(t, AttrStoreOp, string(attr.Key))
		assert.Equal(t, "get_user", attr.Value.AsString())
	})
}

func TestStartMessageSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartMessageSpan(ctx, "REGISTER")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartMessageSpan(ctx, "AUTH_REQUEST",
		ClientAddr("10.0.0.1:55555"), Username("alice"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartVerifySpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartVerifySpan(ctx, "alice", 2)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartStoreSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartStoreSpan(ctx, "get_user")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartStoreSpan(ctx, "create_token", StoreType("badger"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
