package apiclient

import (
	"time"
)

// UserSummary is the list representation of an enrolled account.
type UserSummary struct {
	Username  string    `json:"username"`
	Devices   int       `json:"devices"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceInfo is one enrolled device of an account.
type DeviceInfo struct {
	DeviceName string `json:"device_name"`
	PublicKey  string `json:"public_key"`
	MainDevice bool   `json:"main_device"`
	Logged     bool   `json:"logged"`
}

// UserDetail is the full representation of an enrolled account.
type UserDetail struct {
	Username  string       `json:"username"`
	Devices   []DeviceInfo `json:"devices"`
	CreatedAt time.Time    `json:"created_at"`
}

// ListUsers returns all enrolled accounts.
func (c *Client) ListUsers() ([]UserSummary, error) {
	return listResources[UserSummary](c, "/api/v1/users")
}

// GetUser returns a single account with its enrolled devices.
func (c *Client) GetUser(username string) (*UserDetail, error) {
	return getResource[UserDetail](c, resourcePath("/api/v1/users/%s", username))
}

// DeleteUser removes an account and every device enrolled with it.
func (c *Client) DeleteUser(username string) error {
	return c.delete(resourcePath("/api/v1/users/%s", username), nil)
}

// DeleteDevice removes a single device from an account. Removing the main
// device is refused by the server.
func (c *Client) DeleteDevice(username, device string) error {
	return c.delete(resourcePath("/api/v1/users/%s/devices/%s", username, device), nil)
}
