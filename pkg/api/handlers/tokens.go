package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/zkauth/pkg/store"
)

// TokenHandler handles pending pairing token endpoints.
type TokenHandler struct {
	store store.Store
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(st store.Store) *TokenHandler {
	return &TokenHandler{store: st}
}

// TokenInfo is the API representation of a pending pairing token.
type TokenInfo struct {
	Token      string    `json:"token"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
	Expiry     time.Time `json:"expiry"`
	Expired    bool      `json:"expired"`
}

// List handles GET /api/v1/tokens.
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.store.ListTokens(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list tokens")
		return
	}

	now := time.Now().UTC()
	response := make([]TokenInfo, len(tokens))
	for i, t := range tokens {
		response[i] = TokenInfo{
			Token:      t.Token,
			DeviceName: t.DeviceName,
			CreatedAt:  t.CreatedAt,
			Expiry:     t.Expiry,
			Expired:    t.Expired(now),
		}
	}

	WriteJSONOK(w, response)
}

// Delete handles DELETE /api/v1/tokens/{token}.
// Revokes a pending pairing token before it is confirmed.
func (h *TokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		BadRequest(w, "Token is required")
		return
	}

	if err := h.store.DeleteToken(r.Context(), token); err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			NotFound(w, "Token not found")
			return
		}
		InternalServerError(w, "Failed to delete token")
		return
	}

	WriteNoContent(w)
}
