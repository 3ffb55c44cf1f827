package wire

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_EnvelopeAndPayload(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	err := enc.Encode(TypeAuthRequest, AuthRequestPayload{Username: "alice", Temp: "0x10"})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))
	assert.Equal(t, float64(4), obj["type_code"])
	assert.Equal(t, "AUTH_REQUEST", obj["type"])
	assert.Equal(t, "alice", obj["username"])
	assert.Equal(t, "0x10", obj["temp"])
}

func TestEncode_BareEnvelope(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(TypeRejected, nil))

	var obj map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))
	assert.Equal(t, float64(7), obj["type_code"])
	assert.Equal(t, "REJECTED", obj["type"])
	assert.Len(t, obj, 2)
}

func TestEncodeError_Shape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).EncodeError(CodeNoMainDevice))

	var obj map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))
	assert.Equal(t, float64(2), obj["type_code"])
	assert.Equal(t, "ERROR", obj["type"])
	assert.Equal(t, float64(4), obj["error_code"])
	assert.Equal(t, "NO_MAIN_DEVICE", obj["error"])
	assert.NotEmpty(t, obj["message"])
	assert.NotContains(t, obj, "details")
}

func TestEncode_ErrorDetails(t *testing.T) {
	var buf bytes.Buffer
	payload := NewErrorPayload(CodeUsernameNotFound).WithDetails(map[string]any{"username": "ghost"})
	require.NoError(t, NewEncoder(&buf).Encode(TypeError, payload))

	var obj map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))
	details, ok := obj["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ghost", details["username"])
}

func TestEncode_TooLarge(t *testing.T) {
	var buf bytes.Buffer
	huge := strings.Repeat("a", MaxMessageSize)
	err := NewEncoder(&buf).Encode(TypeRegister, RegisterPayload{Username: huge, PublicKey: "0x1", Device: "d"})
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Zero(t, buf.Len())
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(TypeRegister, RegisterPayload{
		Username:  "alice",
		PublicKey: "0x12",
		Device:    "laptop",
	}))

	frame, err := NewDecoder(&buf).Next()
	require.NoError(t, err)
	assert.Equal(t, TypeRegister, frame.Type)
	assert.Equal(t, "REGISTER", frame.Label)

	var p RegisterPayload
	require.NoError(t, frame.Decode(&p))
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "0x12", p.PublicKey)
	assert.Equal(t, "laptop", p.Device)
}

func TestDecoder_SplitFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(TypeChallenge, ChallengePayload{Challenge: "0x7"}))

	// One byte per read forces reassembly across short reads.
	dec := NewDecoder(iotest.OneByteReader(&buf))
	frame, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, TypeChallenge, frame.Type)
}

func TestDecoder_CoalescedFrames(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(TypeTokenAssoc, TokenPayload{Token: "abc"}))
	require.NoError(t, enc.Encode(TypeAccepted, AcceptedPayload{Username: "alice"}))

	// Both frames arrive in the same buffer; Next must return them in order.
	dec := NewDecoder(bytes.NewReader(buf.Bytes()))

	first, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, TypeTokenAssoc, first.Type)

	second, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, TypeAccepted, second.Type)
	var p AcceptedPayload
	require.NoError(t, second.Decode(&p))
	assert.Equal(t, "alice", p.Username)
}

func TestDecoder_FrameTooLarge(t *testing.T) {
	data := `{"type_code":0,"type":"REGISTER","username":"` + strings.Repeat("a", MaxMessageSize) + `"}`
	_, err := NewDecoder(strings.NewReader(data)).Next()
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestDecoder_Garbage(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("hello there")).Next()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestDecoder_PeerClosed(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("")).Next()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestDecoder_TruncatedThenEOF(t *testing.T) {
	_, err := NewDecoder(strings.NewReader(`{"type_code":0,`)).Next()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestDecoder_MismatchedBraces(t *testing.T) {
	_, err := NewDecoder(strings.NewReader(`{]`)).Next()
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestDecoder_MissingTypeCode(t *testing.T) {
	frame, err := NewDecoder(strings.NewReader(`{"type":"REGISTER","username":"alice"}`)).Next()
	require.NoError(t, err)
	assert.Equal(t, TypeInvalid, frame.Type)
}

func TestDecoder_NonIntegerTypeCode(t *testing.T) {
	frame, err := NewDecoder(strings.NewReader(`{"type_code":"4"}`)).Next()
	require.NoError(t, err)
	assert.Equal(t, TypeInvalid, frame.Type)
}

func TestDecoder_UnknownTypeCode(t *testing.T) {
	frame, err := NewDecoder(strings.NewReader(`{"type_code":99,"type":"FUTURE"}`)).Next()
	require.NoError(t, err)
	assert.Equal(t, MessageType(99), frame.Type)
	assert.False(t, frame.Type.Known())
	assert.Equal(t, "FUTURE", frame.Label)
}

func TestDecoder_BracesInsideStrings(t *testing.T) {
	frame, err := NewDecoder(strings.NewReader(`{"type_code":0,"username":"br{ce}\"s"}`)).Next()
	require.NoError(t, err)
	assert.Equal(t, TypeRegister, frame.Type)
}

func TestFrameDecode_Validation(t *testing.T) {
	t.Run("missing required field", func(t *testing.T) {
		frame, err := NewDecoder(strings.NewReader(`{"type_code":0,"username":"alice"}`)).Next()
		require.NoError(t, err)

		var p RegisterPayload
		assert.ErrorIs(t, frame.Decode(&p), ErrMalformedPayload)
	})

	t.Run("wrong field type", func(t *testing.T) {
		frame, err := NewDecoder(strings.NewReader(`{"type_code":4,"username":42,"temp":"0x1"}`)).Next()
		require.NoError(t, err)

		var p AuthRequestPayload
		assert.ErrorIs(t, frame.Decode(&p), ErrMalformedPayload)
	})

	t.Run("empty required field", func(t *testing.T) {
		frame, err := NewDecoder(strings.NewReader(`{"type_code":10,"token":""}`)).Next()
		require.NoError(t, err)

		var p TokenPayload
		assert.ErrorIs(t, frame.Decode(&p), ErrMalformedPayload)
	})
}
