package handlers

import (
	"net/http"

	"github.com/marmos91/zkauth/pkg/server"
)

// SessionHandler serves the live-connection listing.
type SessionHandler struct {
	sessions *server.SessionRegistry
}

// NewSessionHandler creates a new SessionHandler. The registry may be nil,
// in which case the listing is always empty.
func NewSessionHandler(sessions *server.SessionRegistry) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		WriteJSONOK(w, []server.SessionInfo{})
		return
	}
	WriteJSONOK(w, h.sessions.Snapshot())
}
