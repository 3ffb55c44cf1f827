package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/zkauth/pkg/store"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// getUserOrError fetches a user by username and handles common errors.
// Returns the user and true if successful.
// Returns nil and false if user not found (writes 404) or on error (writes 500).
func getUserOrError(ctx context.Context, w http.ResponseWriter, st store.Store, username string) (*store.User, bool) {
	user, err := st.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			NotFound(w, "User not found")
			return nil, false
		}
		InternalServerError(w, "Failed to get user")
		return nil, false
	}
	return user, true
}
