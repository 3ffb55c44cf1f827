package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/zkauth/pkg/store"
)

// Key namespaces. Badger iterates keys in byte order, so list operations
// come back sorted for free.
//
//	u:<username>  user document (JSON)
//	t:<token>     pending pairing token document (JSON)
const (
	userPrefix  = "u:"
	tokenPrefix = "t:"
)

func userKey(username string) []byte {
	return []byte(userPrefix + username)
}

func tokenKey(token string) []byte {
	return []byte(tokenPrefix + token)
}

func encodeUser(u *store.User) ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user %s: %w", u.Username, err)
	}
	return data, nil
}

func decodeUser(data []byte) (*store.User, error) {
	var u store.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user document: %w", err)
	}
	return &u, nil
}

func encodeToken(t *store.TempToken) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode token: %w", err)
	}
	return data, nil
}

func decodeToken(data []byte) (*store.TempToken, error) {
	var t store.TempToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode token document: %w", err)
	}
	return &t, nil
}
