package apiclient

import (
	"time"
)

// Session is one live wire-protocol connection.
type Session struct {
	ID          string     `json:"id"`
	RemoteAddr  string     `json:"remote_addr"`
	Username    string     `json:"username,omitempty"`
	Device      string     `json:"device,omitempty"`
	ConnectedAt time.Time  `json:"connected_at"`
	LoginTime   *time.Time `json:"login_time,omitempty"`
}

// Authenticated reports whether the connection holds a logged-in session.
func (s Session) Authenticated() bool {
	return s.Username != ""
}

// Sessions returns the live connections currently held by the server.
func (c *Client) Sessions() ([]Session, error) {
	return listResources[Session](c, "/api/v1/sessions")
}
