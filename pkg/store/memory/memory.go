// Package memory implements the store contracts in process memory. Nothing
// survives a restart; it backs tests and throwaway local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/marmos91/zkauth/pkg/store"
)

// Store holds both collections behind one mutex. Documents are cloned on the
// way in and out, so callers never alias internal state.
type Store struct {
	mu     sync.RWMutex
	users  map[string]*store.User
	tokens map[string]*store.TempToken
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		users:  make(map[string]*store.User),
		tokens: make(map[string]*store.TempToken),
	}
}

func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return store.ErrUserExists
	}
	s.users[user.Username] = user.Clone()
	return nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*store.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, username)
	return nil
}

func (s *Store) AppendDevice(ctx context.Context, username string, device store.Device) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return store.ErrUserNotFound
	}
	if user.Device(device.DeviceName) != nil {
		return store.ErrDeviceExists
	}
	user.Devices = append(user.Devices, device)
	return nil
}

func (s *Store) SetDeviceLogged(ctx context.Context, username, deviceName string, logged bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return store.ErrUserNotFound
	}
	device := user.Device(deviceName)
	if device == nil {
		return store.ErrDeviceNotFound
	}
	device.Logged = logged
	return nil
}

func (s *Store) RemoveDevice(ctx context.Context, username, deviceName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[username]
	if !ok {
		return store.ErrUserNotFound
	}
	for i := range user.Devices {
		if user.Devices[i].DeviceName != deviceName {
			continue
		}
		if user.Devices[i].MainDevice {
			return store.ErrMainDevice
		}
		user.Devices = append(user.Devices[:i], user.Devices[i+1:]...)
		return nil
	}
	return store.ErrDeviceNotFound
}

func (s *Store) CreateToken(ctx context.Context, token *store.TempToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token.Token]; ok {
		return store.ErrTokenExists
	}
	clone := *token
	s.tokens[token.Token] = &clone
	return nil
}

func (s *Store) GetToken(ctx context.Context, token string) (*store.TempToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, store.ErrTokenNotFound
	}
	clone := *t
	return &clone, nil
}

func (s *Store) ListTokens(ctx context.Context) ([]*store.TempToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]*store.TempToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		clone := *t
		tokens = append(tokens, &clone)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Token < tokens[j].Token })
	return tokens, nil
}

func (s *Store) DeleteToken(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token]; !ok {
		return store.ErrTokenNotFound
	}
	delete(s.tokens, token)
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}
