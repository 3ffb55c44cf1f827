// Package pairing coordinates device pairing across connections.
//
// A secondary device that wants to join an account sends an association
// request and then waits on its socket. The primary device confirms with the
// minted token on a different connection. The Registry is the bridge between
// the two workers: the secondary registers an inbox channel under the token,
// and the primary posts a Completion to that inbox. The secondary's own
// worker performs the final send, so no worker ever writes to another
// worker's socket.
package pairing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/marmos91/zkauth/pkg/store"
)

// TokenLength is the number of hex characters kept from the token digest.
const TokenLength = 32

// Completion is posted to a waiting secondary when its primary confirms
// the pairing. It carries everything the secondary worker needs to
// populate its session: the account with the freshly appended device and
// the name of the device that just joined.
type Completion struct {
	User   *store.User
	Device string
}

// Registry maps pending pairing tokens to the inbox of the secondary
// connection awaiting confirmation. All methods are safe for concurrent
// use; the internal lock is never held across I/O.
type Registry struct {
	mu      sync.Mutex
	waiting map[string]chan<- Completion
}

// NewRegistry returns an empty pairing registry.
func NewRegistry() *Registry {
	return &Registry{
		waiting: make(map[string]chan<- Completion),
	}
}

// Register records the inbox of the connection waiting on token. A later
// registration for the same token replaces the earlier one.
func (r *Registry) Register(token string, inbox chan<- Completion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waiting[token] = inbox
}

// Deliver posts a completion to the connection waiting on token and removes
// the registry entry. It reports false when no connection is waiting, which
// the caller surfaces as a pairing failure.
func (r *Registry) Deliver(token string, c Completion) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	inbox, ok := r.waiting[token]
	if !ok {
		return false
	}
	delete(r.waiting, token)

	select {
	case inbox <- c:
		return true
	default:
		// Inbox full: the waiter stopped draining, treat as gone.
		return false
	}
}

// Remove drops the entry for token, if any. Called by the secondary's
// worker when its connection closes before the primary confirms.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.waiting, token)
}

// Len returns the number of connections currently awaiting confirmation.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiting)
}

// MintToken derives a single-use pairing token from the pending public key,
// the device name and 16 bytes of cryptographic randomness. The token is
// the first TokenLength hex characters of a SHA-256 digest.
func MintToken(pk, device string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to draw token nonce: %w", err)
	}

	digest := sha256.Sum256([]byte(pk + device + hex.EncodeToString(nonce)))
	return hex.EncodeToString(digest[:])[:TokenLength], nil
}
