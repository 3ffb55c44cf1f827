package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/zkauth/internal/logger"
	"github.com/marmos91/zkauth/pkg/api/auth"
	"github.com/marmos91/zkauth/pkg/api/handlers"
	apiMiddleware "github.com/marmos91/zkauth/pkg/api/middleware"
	"github.com/marmos91/zkauth/pkg/server"
	"github.com/marmos91/zkauth/pkg/store"
)

// Deps bundles everything the API serves from. Store is required for all
// routes past the liveness probe; Sessions, Tokens and Credential may be
// left empty, progressively disabling the session listing and admin routes.
type Deps struct {
	// Store is the account and pairing token store.
	Store store.Store

	// Sessions is the live-connection registry. May be nil.
	Sessions *server.SessionRegistry

	// Tokens issues and validates admin bearer tokens. When nil, admin
	// routes answer 503 so operators see why instead of a bare 404.
	Tokens *auth.TokenService

	// Credential is the admin login checked by /auth/login.
	Credential auth.Credential

	// GroupID is the Schnorr group announced to clients.
	GroupID string

	// Version is the server version string reported by /status.
	Version string
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /api/v1/status - Service status
//   - GET /api/v1/handshake - Group announcement (HTTP mirror of the wire handshake)
//   - POST /api/v1/auth/login - Admin authentication
//   - POST /api/v1/auth/refresh - Token refresh
//   - GET /api/v1/auth/me - Current admin info
//   - /api/v1/users/* - Account inspection and removal (admin only)
//   - /api/v1/tokens/* - Pending pairing token management (admin only)
//   - GET /api/v1/sessions - Live connection listing (admin only)
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.Store)
	statusHandler := handlers.NewStatusHandler(deps.Store, deps.Sessions, deps.GroupID, deps.Version)

	// Health routes - unauthenticated
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Read-only status - unauthenticated
		r.Get("/status", statusHandler.Status)
		r.Get("/handshake", statusHandler.Handshake)

		if deps.Tokens == nil {
			mountAdminDisabled(r)
			return
		}

		authHandler := handlers.NewAuthHandler(deps.Credential, deps.Tokens)

		// Auth routes - login and refresh are unauthenticated
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.JWTAuth(deps.Tokens))
				r.Get("/me", authHandler.Me)
			})
		})

		// Protected routes - require a valid access token
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.JWTAuth(deps.Tokens))

			userHandler := handlers.NewUserHandler(deps.Store)
			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Get("/{username}", userHandler.Get)
				r.Delete("/{username}", userHandler.Delete)
				r.Delete("/{username}/devices/{device}", userHandler.DeleteDevice)
			})

			tokenHandler := handlers.NewTokenHandler(deps.Store)
			r.Route("/tokens", func(r chi.Router) {
				r.Get("/", tokenHandler.List)
				r.Delete("/{token}", tokenHandler.Delete)
			})

			sessionHandler := handlers.NewSessionHandler(deps.Sessions)
			r.Get("/sessions", sessionHandler.List)
		})
	})

	return r
}

// mountAdminDisabled answers every admin route with 503 when no JWT secret
// is configured.
func mountAdminDisabled(r chi.Router) {
	disabled := func(w http.ResponseWriter, req *http.Request) {
		handlers.ServiceUnavailable(w, "admin API disabled: no JWT secret configured")
	}
	for _, pattern := range []string{
		"/auth/*", "/users", "/users/*", "/tokens", "/tokens/*", "/sessions",
	} {
		r.HandleFunc(pattern, disabled)
	}
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		// Log healthcheck requests at DEBUG to avoid polluting logs in k8s
		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
