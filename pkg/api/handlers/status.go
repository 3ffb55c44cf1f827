package handlers

import (
	"net/http"
	"time"

	"github.com/marmos91/zkauth/pkg/server"
	"github.com/marmos91/zkauth/pkg/store"
)

// StatusHandler serves read-only service status.
type StatusHandler struct {
	store    store.Store
	sessions *server.SessionRegistry
	groupID  string
	version  string
	started  time.Time
}

// NewStatusHandler creates a status handler. The sessions registry may be
// nil, in which case connection counts report zero.
func NewStatusHandler(st store.Store, sessions *server.SessionRegistry, groupID, version string) *StatusHandler {
	return &StatusHandler{
		store:    st,
		sessions: sessions,
		groupID:  groupID,
		version:  version,
		started:  time.Now(),
	}
}

// StatusResponse is the payload of GET /api/v1/status.
type StatusResponse struct {
	Service               string `json:"service"`
	Version               string `json:"version"`
	Uptime                string `json:"uptime"`
	GroupID               string `json:"group_id"`
	ActiveConnections     int    `json:"active_connections"`
	AuthenticatedSessions int    `json:"authenticated_sessions"`
	Users                 int    `json:"users"`
	PendingTokens         int    `json:"pending_tokens"`
}

// Status handles GET /api/v1/status.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to count users")
		return
	}
	tokens, err := h.store.ListTokens(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to count pending tokens")
		return
	}

	resp := StatusResponse{
		Service:       "zkauthd",
		Version:       h.version,
		Uptime:        time.Since(h.started).Round(time.Second).String(),
		GroupID:       h.groupID,
		Users:         len(users),
		PendingTokens: len(tokens),
	}
	if h.sessions != nil {
		resp.ActiveConnections = h.sessions.Count()
		resp.AuthenticatedSessions = h.sessions.AuthenticatedCount()
	}

	WriteJSONOK(w, resp)
}

// Handshake handles GET /api/v1/handshake - the HTTP mirror of the wire
// handshake, announcing which group clients must use.
func (h *StatusHandler) Handshake(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, map[string]string{"group_id": h.groupID})
}
