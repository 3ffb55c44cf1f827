package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false // disable colors for easier testing
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		SetLevel("INFO")
		SetFormat("text")
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InfoLevelFiltersDebug", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")

		Debug("debug message")
		Info("info message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.Contains(t, out, "info message")
	})

	t.Run("ErrorLevelShowsOnlyErrors", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.NotContains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("VERBOSE")

		Info("still logging")
		assert.Contains(t, buf.String(), "still logging")
	})
}

func TestStructuredFields(t *testing.T) {
	t.Run("TextFormat", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("text")

		Info("client connected", KeyClientIP, "127.0.0.1", KeyConnID, "c-42")

		out := buf.String()
		assert.Contains(t, out, "client connected")
		assert.Contains(t, out, "client_ip=127.0.0.1")
		assert.Contains(t, out, "conn_id=c-42")
	})

	t.Run("JSONFormat", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetFormat("json")

		Info("user registered", KeyUsername, "alice", KeyDevices, 2)

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "user registered", record["msg"])
		assert.Equal(t, "alice", record["username"])
		assert.Equal(t, float64(2), record["devices"])
	})
}

func TestContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	lc := NewLogContext("c-7", "10.0.0.5").WithUser("alice", "laptop")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "challenge issued")

	out := buf.String()
	assert.Contains(t, out, "conn_id=c-7")
	assert.Contains(t, out, "client_ip=10.0.0.5")
	assert.Contains(t, out, "username=alice")
	assert.Contains(t, out, "device=laptop")
}

func TestContextHelpers(t *testing.T) {
	t.Run("FromMissingContext", func(t *testing.T) {
		assert.Nil(t, FromContext(context.Background()))
	})

	t.Run("WithUserDoesNotMutateOriginal", func(t *testing.T) {
		lc := NewLogContext("c-1", "127.0.0.1")
		bound := lc.WithUser("bob", "phone")

		assert.Empty(t, lc.Username)
		assert.Equal(t, "bob", bound.Username)
		assert.Equal(t, "phone", bound.Device)
		assert.Equal(t, "c-1", bound.ConnID)
	})

	t.Run("NilSafe", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithUser("a", "b"))
		assert.Zero(t, lc.DurationMs())
	})
}

func TestTokenPrefix(t *testing.T) {
	attr := TokenPrefix("04d4c4047ec2f1a3d7bd7b3c1a9f2e88")
	assert.Equal(t, "04d4c404", attr.Value.String())

	short := TokenPrefix("abcd")
	assert.Equal(t, "abcd", short.Value.String())
}

func TestTextHandlerFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")

	Info("hello")

	line := strings.TrimRight(buf.String(), "\n")
	// [timestamp] [LEVEL] message
	require.True(t, strings.HasPrefix(line, "["), "line = %q", line)
	assert.Contains(t, line, "] [INFO] hello")
}

func TestInitWithFile(t *testing.T) {
	path := t.TempDir() + "/zkauth.log"
	err := Init(Config{Level: "INFO", Format: "text", Output: path})
	require.NoError(t, err)
	defer func() {
		mu.Lock()
		output = new(bytes.Buffer)
		mu.Unlock()
		SetLevel("INFO")
		SetFormat("text")
	}()

	Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
