package wire

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// payloadValidator enforces the required-field rules declared on the payload
// structs below. Shared across connections; validator instances are safe for
// concurrent use.
var payloadValidator = validator.New()

// RegisterPayload enrolls a new user with their first (main) device.
type RegisterPayload struct {
	Username  string `json:"username"   validate:"required"`
	PublicKey string `json:"public_key" validate:"required"`
	Device    string `json:"device"     validate:"required"`
}

// GroupSelectionPayload announces the group the server verifies against.
type GroupSelectionPayload struct {
	GroupID string `json:"group_id" validate:"required"`
}

// ChallengePayload carries the hex-encoded challenge scalar.
type ChallengePayload struct {
	Challenge string `json:"challenge" validate:"required"`
}

// AuthRequestPayload opens an identification round: username plus the
// hex-encoded commitment value.
type AuthRequestPayload struct {
	Username string `json:"username" validate:"required"`
	Temp     string `json:"temp"     validate:"required"`
}

// AuthResponsePayload carries the hex-encoded response scalar.
type AuthResponsePayload struct {
	Response string `json:"response" validate:"required"`
}

// AcceptedPayload is empty on login success; on pairing success the secondary
// device additionally learns which username it now belongs to.
type AcceptedPayload struct {
	Username string `json:"username,omitempty"`
}

// AssocRequestPayload asks to enroll an additional device for a not yet
// disclosed user. The pairing token binds it to a user only when the main
// device confirms.
type AssocRequestPayload struct {
	Device string `json:"device" validate:"required"`
	PK     string `json:"pk"     validate:"required"`
}

// TokenPayload carries a pairing token, both when the server mints one for
// the secondary device and when the main device sends it back to confirm.
type TokenPayload struct {
	Token string `json:"token" validate:"required"`
}

// ErrorPayload is attached to every ERROR frame.
type ErrorPayload struct {
	ErrorCode ErrorCode      `json:"error_code"`
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// DeviceSummary is one enrolled device as reported by DEVICES_RESPONSE.
// The pk is the enrolled public key; nothing secret appears here.
type DeviceSummary struct {
	PK         string `json:"pk"`
	DeviceName string `json:"device_name"`
	MainDevice bool   `json:"main_device"`
	Logged     bool   `json:"logged"`
}

// DevicesResponsePayload lists the authenticated user's enrolled devices.
type DevicesResponsePayload struct {
	Devices []DeviceSummary `json:"devices"`
}

// NewErrorPayload builds the canonical payload for an error kind with its
// default human message.
func NewErrorPayload(code ErrorCode) ErrorPayload {
	return ErrorPayload{
		ErrorCode: code,
		Error:     code.Label(),
		Message:   code.Message(),
	}
}

// WithDetails returns a copy of the payload carrying structured context.
func (p ErrorPayload) WithDetails(details map[string]any) ErrorPayload {
	p.Details = details
	return p
}

// decodePayload unmarshals raw frame bytes into the typed payload and checks
// its required fields. Both failure modes mean the peer sent a malformed
// message.
func decodePayload(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := payloadValidator.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
