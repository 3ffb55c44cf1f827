package apiclient

import (
	"time"
)

// TokenInfo is a pending pairing token.
type TokenInfo struct {
	Token      string    `json:"token"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
	Expiry     time.Time `json:"expiry"`
	Expired    bool      `json:"expired"`
}

// ListTokens returns all pending pairing tokens.
func (c *Client) ListTokens() ([]TokenInfo, error) {
	return listResources[TokenInfo](c, "/api/v1/tokens")
}

// DeleteToken revokes a pending pairing token before it is confirmed.
func (c *Client) DeleteToken(token string) error {
	return c.delete(resourcePath("/api/v1/tokens/%s", token), nil)
}
