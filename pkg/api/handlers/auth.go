package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/marmos91/zkauth/internal/logger"
	"github.com/marmos91/zkauth/pkg/api/auth"
	"github.com/marmos91/zkauth/pkg/api/middleware"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	credential auth.Credential
	tokens     *auth.TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(credential auth.Credential, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		credential: credential,
		tokens:     tokens,
	}
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response body for POST /api/v1/auth/login.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	Username     string    `json:"username"`
}

// RefreshRequest is the request body for POST /api/v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login handles POST /api/v1/auth/login.
// Authenticates the admin credential and returns a JWT token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		BadRequest(w, "Username and password are required")
		return
	}

	if !h.credential.Configured() {
		logger.Warn("admin login attempted but no admin credential is configured")
		Unauthorized(w, "Invalid username or password")
		return
	}

	if !h.credential.Verify(req.Username, req.Password) {
		logger.Info("admin login rejected", "username", req.Username, "remote_addr", r.RemoteAddr)
		Unauthorized(w, "Invalid username or password")
		return
	}

	tokenPair, err := h.tokens.GenerateTokenPair(req.Username)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	logger.Info("admin logged in", "username", req.Username, "remote_addr", r.RemoteAddr)
	WriteJSONOK(w, loginResponse(tokenPair, req.Username))
}

// Refresh handles POST /api/v1/auth/refresh.
// Returns a new token pair using a valid refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.RefreshToken == "" {
		BadRequest(w, "Refresh token is required")
		return
	}

	claims, err := h.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			Unauthorized(w, "Refresh token has expired")
			return
		}
		Unauthorized(w, "Invalid refresh token")
		return
	}

	// The credential may have rotated since the token was issued.
	if claims.Username != h.credential.Username {
		Unauthorized(w, "Invalid refresh token")
		return
	}

	tokenPair, err := h.tokens.GenerateTokenPair(claims.Username)
	if err != nil {
		InternalServerError(w, "Failed to generate token")
		return
	}

	WriteJSONOK(w, loginResponse(tokenPair, claims.Username))
}

// Me handles GET /api/v1/auth/me.
// Returns the authenticated admin's identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	WriteJSONOK(w, map[string]interface{}{
		"username":   claims.Username,
		"expires_at": claims.ExpiresAt,
	})
}

func loginResponse(pair *auth.TokenPair, username string) LoginResponse {
	return LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		ExpiresAt:    pair.ExpiresAt,
		Username:     username,
	}
}
