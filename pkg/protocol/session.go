package protocol

import (
	"math/big"
	"time"

	"github.com/marmos91/zkauth/pkg/store"
)

// Session is the per-connection authentication state. A connection counts
// as authenticated once a user is bound to it; the challenge fields are
// only populated between AUTH_REQUEST and AUTH_RESPONSE.
type Session struct {
	User         *store.User
	LoggedDevice string
	LoginTime    time.Time

	// In-flight challenge state.
	TempPK    *big.Int
	Challenge *big.Int
}

// Authenticated reports whether a user is bound to the connection.
func (s *Session) Authenticated() bool {
	return s.User != nil
}

// Username returns the bound account name, or empty when anonymous.
func (s *Session) Username() string {
	if s.User == nil {
		return ""
	}
	return s.User.Username
}

// AwaitingResponse reports whether a challenge is in flight.
func (s *Session) AwaitingResponse() bool {
	return s.TempPK != nil && s.Challenge != nil
}

// ClearChallenge drops the in-flight commitment and challenge. Called once
// an AUTH_RESPONSE has been judged, whichever way it went.
func (s *Session) ClearChallenge() {
	s.TempPK = nil
	s.Challenge = nil
}

// Clear resets the session to anonymous.
func (s *Session) Clear() {
	*s = Session{}
}
