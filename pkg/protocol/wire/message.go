// Package wire implements the JSON frame protocol spoken between clients and
// the authentication server.
//
// Every message is a single JSON object carrying the envelope fields
// type_code (stable integer) and type (stable symbolic label) next to the
// kind-specific payload fields. Messages are written in one send and read
// under a fixed size ceiling; anything that does not fit or does not parse
// terminates the connection at this layer.
package wire

import "fmt"

// MessageType identifies a frame kind. The numeric codes are part of the
// wire contract and must never be renumbered.
type MessageType int

const (
	// TypeInvalid marks a frame whose envelope carried no usable type_code.
	TypeInvalid MessageType = -1

	TypeRegister        MessageType = 0
	TypeGroupSelection  MessageType = 1
	TypeError           MessageType = 2
	TypeChallenge       MessageType = 3
	TypeAuthRequest     MessageType = 4
	TypeAuthResponse    MessageType = 5
	TypeAccepted        MessageType = 6
	TypeRejected        MessageType = 7
	TypeRegistered      MessageType = 8
	TypeAssocRequest    MessageType = 9
	TypeTokenAssoc      MessageType = 10
	TypeLogout          MessageType = 11
	TypeHandshakeReq    MessageType = 12
	TypeHandshakeRes    MessageType = 13
	TypeLoggedOut       MessageType = 14
	TypeDevicesRequest  MessageType = 15
	TypeDevicesResponse MessageType = 16
)

var messageLabels = map[MessageType]string{
	TypeRegister:        "REGISTER",
	TypeGroupSelection:  "GROUP_SELECTION",
	TypeError:           "ERROR",
	TypeChallenge:       "CHALLENGE",
	TypeAuthRequest:     "AUTH_REQUEST",
	TypeAuthResponse:    "AUTH_RESPONSE",
	TypeAccepted:        "ACCEPTED",
	TypeRejected:        "REJECTED",
	TypeRegistered:      "REGISTERED",
	TypeAssocRequest:    "ASSOC_REQUEST",
	TypeTokenAssoc:      "TOKEN_ASSOC",
	TypeLogout:          "LOGOUT",
	TypeHandshakeReq:    "HANDSHAKE_REQ",
	TypeHandshakeRes:    "HANDSHAKE_RES",
	TypeLoggedOut:       "LOGGED_OUT",
	TypeDevicesRequest:  "DEVICES_REQUEST",
	TypeDevicesResponse: "DEVICES_RESPONSE",
}

// Known reports whether the code belongs to the message taxonomy.
func (t MessageType) Known() bool {
	_, ok := messageLabels[t]
	return ok
}

// Label returns the stable symbolic label, or empty for unknown codes.
func (t MessageType) Label() string {
	return messageLabels[t]
}

// String implements fmt.Stringer for logs.
func (t MessageType) String() string {
	if label, ok := messageLabels[t]; ok {
		return label
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// ErrorCode identifies an ERROR frame kind. Like message codes, these values
// are part of the wire contract.
type ErrorCode int

const (
	CodeUsernameAlreadyExists   ErrorCode = 0
	CodeUsernameNotFound        ErrorCode = 1
	CodeUnknownError            ErrorCode = 2
	CodeSessionNotFound         ErrorCode = 3
	CodeNoMainDevice            ErrorCode = 4
	CodeMalformedMessage        ErrorCode = 5
	CodeTokenInvalidOrExpired   ErrorCode = 6
	CodeUnauthorized            ErrorCode = 7
	CodeDeviceAlreadyRegistered ErrorCode = 8
	CodeAssocFailure            ErrorCode = 9
)

type errorKind struct {
	label   string
	message string
}

var errorKinds = map[ErrorCode]errorKind{
	CodeUsernameAlreadyExists:   {"USERNAME_ALREADY_EXISTS", "Username already exists."},
	CodeUsernameNotFound:        {"USERNAME_NOT_FOUND", "Username not found."},
	CodeUnknownError:            {"UNKNOWN_ERROR", "An unknown error occurred."},
	CodeSessionNotFound:         {"SESSION_NOT_FOUND", "No authenticated session for this connection."},
	CodeNoMainDevice:            {"NO_MAIN_DEVICE", "Pairing must be confirmed from the main device."},
	CodeMalformedMessage:        {"MALFORMED_MESSAGE", "Malformed message or missing required fields."},
	CodeTokenInvalidOrExpired:   {"TOKEN_INVALID_OR_EXPIRED", "Pairing token is invalid or has expired."},
	CodeUnauthorized:            {"UNAUTHORIZED", "Operation not authorized."},
	CodeDeviceAlreadyRegistered: {"DEVICE_ALREADY_REGISTERED", "Device is already registered."},
	CodeAssocFailure:            {"ASSOC_FAILURE", "Device association failed."},
}

// Label returns the stable symbolic label, or empty for unknown codes.
func (c ErrorCode) Label() string {
	return errorKinds[c].label
}

// Message returns the default human-readable message for the code.
func (c ErrorCode) Message() string {
	if k, ok := errorKinds[c]; ok {
		return k.message
	}
	return "Unknown error kind."
}

// String implements fmt.Stringer for logs.
func (c ErrorCode) String() string {
	if k, ok := errorKinds[c]; ok {
		return k.label
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(c))
}
