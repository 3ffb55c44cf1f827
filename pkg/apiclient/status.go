package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// HealthStatus is the result of the liveness probe.
type HealthStatus struct {
	Healthy bool
	Service string
	Message string
}

// Health probes GET /health. A reachable server always yields a status,
// healthy or not; an error means the server could not be reached at all.
func (c *Client) Health() (*HealthStatus, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env struct {
		Status string `json:"status"`
		Data   struct {
			Service string `json:"service"`
		} `json:"data"`
		Error string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &HealthStatus{
		Healthy: env.Status == "healthy",
		Service: env.Data.Service,
		Message: env.Error,
	}, nil
}

// Status is the payload of GET /api/v1/status.
type Status struct {
	Service               string `json:"service"`
	Version               string `json:"version"`
	Uptime                string `json:"uptime"`
	GroupID               string `json:"group_id"`
	ActiveConnections     int    `json:"active_connections"`
	AuthenticatedSessions int    `json:"authenticated_sessions"`
	Users                 int    `json:"users"`
	PendingTokens         int    `json:"pending_tokens"`
}

// Status returns the service status.
func (c *Client) Status() (*Status, error) {
	return getResource[Status](c, "/api/v1/status")
}

// Handshake returns the Schnorr group the server announces to clients.
func (c *Client) Handshake() (string, error) {
	var resp struct {
		GroupID string `json:"group_id"`
	}
	if err := c.get("/api/v1/handshake", &resp); err != nil {
		return "", err
	}
	return resp.GroupID, nil
}
