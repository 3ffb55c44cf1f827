package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Codes and labels are wire contract; renumbering breaks deployed clients.
func TestMessageTaxonomy_Stable(t *testing.T) {
	expected := map[MessageType]string{
		0:  "REGISTER",
		1:  "GROUP_SELECTION",
		2:  "ERROR",
		3:  "CHALLENGE",
		4:  "AUTH_REQUEST",
		5:  "AUTH_RESPONSE",
		6:  "ACCEPTED",
		7:  "REJECTED",
		8:  "REGISTERED",
		9:  "ASSOC_REQUEST",
		10: "TOKEN_ASSOC",
		11: "LOGOUT",
		12: "HANDSHAKE_REQ",
		13: "HANDSHAKE_RES",
		14: "LOGGED_OUT",
		15: "DEVICES_REQUEST",
		16: "DEVICES_RESPONSE",
	}

	for code, label := range expected {
		assert.True(t, code.Known(), label)
		assert.Equal(t, label, code.Label())
		assert.Equal(t, label, code.String())
	}
	assert.Len(t, messageLabels, len(expected))
}

func TestErrorTaxonomy_Stable(t *testing.T) {
	expected := map[ErrorCode]string{
		0: "USERNAME_ALREADY_EXISTS",
		1: "USERNAME_NOT_FOUND",
		2: "UNKNOWN_ERROR",
		3: "SESSION_NOT_FOUND",
		4: "NO_MAIN_DEVICE",
		5: "MALFORMED_MESSAGE",
		6: "TOKEN_INVALID_OR_EXPIRED",
		7: "UNAUTHORIZED",
		8: "DEVICE_ALREADY_REGISTERED",
		9: "ASSOC_FAILURE",
	}

	for code, label := range expected {
		assert.Equal(t, label, code.Label())
		assert.Equal(t, label, code.String())
		assert.NotEmpty(t, code.Message())
	}
	assert.Len(t, errorKinds, len(expected))
}

func TestUnknownCodes_String(t *testing.T) {
	assert.Equal(t, "UNKNOWN(42)", MessageType(42).String())
	assert.Equal(t, "UNKNOWN(42)", ErrorCode(42).String())
	assert.False(t, MessageType(42).Known())
	assert.Empty(t, MessageType(42).Label())
}
