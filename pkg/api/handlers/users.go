package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/zkauth/pkg/store"
)

// UserHandler handles enrolled-account management endpoints.
//
// Accounts are created over the wire protocol, never through the API;
// the API only inspects and removes them.
type UserHandler struct {
	store store.Store
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(st store.Store) *UserHandler {
	return &UserHandler{store: st}
}

// UserSummary is the list representation of an enrolled account.
type UserSummary struct {
	Username  string    `json:"username"`
	Devices   int       `json:"devices"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceInfo is the API representation of an enrolled device.
type DeviceInfo struct {
	DeviceName string `json:"device_name"`
	PublicKey  string `json:"public_key"`
	MainDevice bool   `json:"main_device"`
	Logged     bool   `json:"logged"`
}

// UserDetail is the full representation of an enrolled account.
type UserDetail struct {
	Username  string       `json:"username"`
	Devices   []DeviceInfo `json:"devices"`
	CreatedAt time.Time    `json:"created_at"`
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		InternalServerError(w, "Failed to list users")
		return
	}

	response := make([]UserSummary, len(users))
	for i, u := range users {
		response[i] = UserSummary{
			Username:  u.Username,
			Devices:   len(u.Devices),
			CreatedAt: u.CreatedAt,
		}
	}

	WriteJSONOK(w, response)
}

// Get handles GET /api/v1/users/{username}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		BadRequest(w, "Username is required")
		return
	}

	user, ok := getUserOrError(r.Context(), w, h.store, username)
	if !ok {
		return
	}

	WriteJSONOK(w, userToDetail(user))
}

// Delete handles DELETE /api/v1/users/{username}.
// Removes the account and every device enrolled with it.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		BadRequest(w, "Username is required")
		return
	}

	if err := h.store.DeleteUser(r.Context(), username); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			NotFound(w, "User not found")
			return
		}
		InternalServerError(w, "Failed to delete user")
		return
	}

	WriteNoContent(w)
}

// DeleteDevice handles DELETE /api/v1/users/{username}/devices/{device}.
// The main device cannot be removed; delete the account instead.
func (h *UserHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	device := chi.URLParam(r, "device")
	if username == "" || device == "" {
		BadRequest(w, "Username and device are required")
		return
	}

	if err := h.store.RemoveDevice(r.Context(), username, device); err != nil {
		switch {
		case errors.Is(err, store.ErrUserNotFound):
			NotFound(w, "User not found")
		case errors.Is(err, store.ErrDeviceNotFound):
			NotFound(w, "Device not found")
		case errors.Is(err, store.ErrMainDevice):
			Forbidden(w, "Cannot remove the main device")
		default:
			InternalServerError(w, "Failed to remove device")
		}
		return
	}

	WriteNoContent(w)
}

// userToDetail converts a stored user to its API representation.
func userToDetail(user *store.User) UserDetail {
	devices := make([]DeviceInfo, len(user.Devices))
	for i, d := range user.Devices {
		devices[i] = DeviceInfo{
			DeviceName: d.DeviceName,
			PublicKey:  d.PK,
			MainDevice: d.MainDevice,
			Logged:     d.Logged,
		}
	}
	return UserDetail{
		Username:  user.Username,
		Devices:   devices,
		CreatedAt: user.CreatedAt,
	}
}
