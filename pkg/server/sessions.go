package server

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// SessionInfo is a point-in-time view of one live connection.
type SessionInfo struct {
	ID          string     `json:"id"`
	RemoteAddr  string     `json:"remote_addr"`
	Username    string     `json:"username,omitempty"`
	Device      string     `json:"device,omitempty"`
	ConnectedAt time.Time  `json:"connected_at"`
	LoginTime   *time.Time `json:"login_time,omitempty"`
}

// Authenticated reports whether the connection holds a logged-in session.
func (s SessionInfo) Authenticated() bool {
	return s.Username != ""
}

// SessionRegistry tracks live connections and their authentication state.
// It satisfies the protocol handler's Tracker interface; attach it with
// protocol.WithTracker so the status API and CLI can observe connections.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*SessionInfo
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*SessionInfo)}
}

// Opened records a new connection.
func (r *SessionRegistry) Opened(id, remoteAddr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &SessionInfo{
		ID:          id,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	}
}

// Authenticated marks a connection as logged in.
func (r *SessionRegistry) Authenticated(id, username, device string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	now := time.Now()
	s.Username = username
	s.Device = device
	s.LoginTime = &now
}

// LoggedOut clears the identity of a connection that stays open.
func (r *SessionRegistry) LoggedOut(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	s.Username = ""
	s.Device = ""
	s.LoginTime = nil
}

// Closed drops a connection from the registry.
func (r *SessionRegistry) Closed(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Count returns the number of live connections.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// AuthenticatedCount returns the number of logged-in connections.
func (r *SessionRegistry) AuthenticatedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.sessions {
		if s.Username != "" {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of all live sessions ordered by connection time.
func (r *SessionRegistry) Snapshot() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		info := *s
		if s.LoginTime != nil {
			t := *s.LoginTime
			info.LoginTime = &t
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b SessionInfo) int {
		if c := a.ConnectedAt.Compare(b.ConnectedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}
