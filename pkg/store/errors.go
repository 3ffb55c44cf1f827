package store

import "errors"

// Sentinel errors shared by all backends. Backends translate their native
// not-found and constraint failures into these so callers can use errors.Is
// without knowing which backend is configured.
var (
	ErrUserExists     = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrDeviceExists   = errors.New("device already registered")
	ErrDeviceNotFound = errors.New("device not found")
	ErrMainDevice     = errors.New("cannot remove the main device")
	ErrTokenExists    = errors.New("token already exists")
	ErrTokenNotFound  = errors.New("token not found")
)
