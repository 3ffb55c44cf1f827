// Package store defines the persistence contracts for enrolled users and
// pending pairing tokens, together with the document models they share.
//
// Backends live in the subpackages memory (tests and ephemeral runs), badger
// (embedded default), and sqlstore (SQLite or PostgreSQL through GORM). Every
// method is atomic at the document level: concurrent operations on the same
// user may serialize in any order but never interleave partial updates. The
// conformance suite in storetest pins these semantics for all backends.
package store

import "context"

// UserStore persists enrolled users keyed by username.
type UserStore interface {
	// CreateUser inserts a new user document. Returns ErrUserExists when the
	// username is already taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUser returns the user document, or ErrUserNotFound.
	GetUser(ctx context.Context, username string) (*User, error)

	// ListUsers returns all user documents ordered by username.
	ListUsers(ctx context.Context) ([]*User, error)

	// DeleteUser removes the user document, or ErrUserNotFound.
	DeleteUser(ctx context.Context, username string) error

	// AppendDevice appends one device to the user's list as a single atomic
	// push. Returns ErrUserNotFound for unknown users and ErrDeviceExists
	// when the device name is already enrolled for this user.
	AppendDevice(ctx context.Context, username string, device Device) error

	// SetDeviceLogged flips the logged flag of one device, matched by name.
	// Returns ErrUserNotFound or ErrDeviceNotFound.
	SetDeviceLogged(ctx context.Context, username, deviceName string, logged bool) error

	// RemoveDevice removes one device, matched by name. The main device
	// cannot be removed (ErrMainDevice); delete the user instead.
	RemoveDevice(ctx context.Context, username, deviceName string) error
}

// TokenStore persists pending pairing tokens keyed by token value.
type TokenStore interface {
	// CreateToken inserts a pending token. Returns ErrTokenExists on
	// collision.
	CreateToken(ctx context.Context, token *TempToken) error

	// GetToken returns the token document regardless of expiry, or
	// ErrTokenNotFound. Expiry is the caller's decision; a lookup must be
	// able to distinguish an expired token from an absent one.
	GetToken(ctx context.Context, token string) (*TempToken, error)

	// ListTokens returns all pending tokens ordered by token value.
	ListTokens(ctx context.Context) ([]*TempToken, error)

	// DeleteToken removes the token, or ErrTokenNotFound.
	DeleteToken(ctx context.Context, token string) error
}

// Store is one backend handle covering both collections.
type Store interface {
	UserStore
	TokenStore

	// HealthCheck verifies the backend is reachable and writable.
	HealthCheck(ctx context.Context) error

	// Close releases the backend. The handle must not be used afterwards.
	Close() error
}
