package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/zkauth/pkg/store"
	"github.com/marmos91/zkauth/pkg/store/memory"
)

func seedUser(t *testing.T, st store.Store, username string, devices ...string) {
	t.Helper()

	user := &store.User{
		Username:  username,
		CreatedAt: time.Now().UTC(),
		Devices: []store.Device{
			{PK: "aa01", DeviceName: "laptop", MainDevice: true, Logged: true},
		},
	}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	for _, name := range devices {
		device := store.Device{PK: "bb02", DeviceName: name}
		if err := st.AppendDevice(context.Background(), username, device); err != nil {
			t.Fatalf("Failed to seed device: %v", err)
		}
	}
}

func paramRequest(method, target string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestUserHandler_List(t *testing.T) {
	st := memory.New()
	seedUser(t, st, "alice", "phone")
	seedUser(t, st, "bob")
	handler := NewUserHandler(st)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("List() status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Status string        `json:"status"`
		Data   []UserSummary `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", resp.Status)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(resp.Data))
	}

	byName := make(map[string]UserSummary)
	for _, u := range resp.Data {
		byName[u.Username] = u
	}
	if byName["alice"].Devices != 2 {
		t.Errorf("Expected alice to have 2 devices, got %d", byName["alice"].Devices)
	}
	if byName["bob"].Devices != 1 {
		t.Errorf("Expected bob to have 1 device, got %d", byName["bob"].Devices)
	}
}

func TestUserHandler_Get(t *testing.T) {
	st := memory.New()
	seedUser(t, st, "alice", "phone")
	handler := NewUserHandler(st)

	tests := []struct {
		name       string
		username   string
		wantStatus int
	}{
		{name: "existing user", username: "alice", wantStatus: http.StatusOK},
		{name: "unknown user", username: "ghost", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := paramRequest(http.MethodGet, "/api/v1/users/"+tt.username,
				map[string]string{"username": tt.username})
			w := httptest.NewRecorder()

			handler.Get(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Get() status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				Data UserDetail `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to unmarshal response: %v", err)
			}
			if resp.Data.Username != "alice" {
				t.Errorf("Expected username 'alice', got '%s'", resp.Data.Username)
			}
			if len(resp.Data.Devices) != 2 {
				t.Fatalf("Expected 2 devices, got %d", len(resp.Data.Devices))
			}
			if !resp.Data.Devices[0].MainDevice {
				t.Error("Expected first device to be the main device")
			}
			if resp.Data.Devices[1].DeviceName != "phone" {
				t.Errorf("Expected second device 'phone', got '%s'", resp.Data.Devices[1].DeviceName)
			}
		})
	}
}

func TestUserHandler_Delete(t *testing.T) {
	st := memory.New()
	seedUser(t, st, "alice")
	handler := NewUserHandler(st)

	req := paramRequest(http.MethodDelete, "/api/v1/users/alice",
		map[string]string{"username": "alice"})
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Delete() status = %d, want %d", w.Code, http.StatusNoContent)
	}

	if _, err := st.GetUser(context.Background(), "alice"); err != store.ErrUserNotFound {
		t.Errorf("Expected user to be gone, got err = %v", err)
	}

	// Deleting again reports not found
	w = httptest.NewRecorder()
	handler.Delete(w, paramRequest(http.MethodDelete, "/api/v1/users/alice",
		map[string]string{"username": "alice"}))

	if w.Code != http.StatusNotFound {
		t.Errorf("Delete() status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestUserHandler_DeleteDevice(t *testing.T) {
	st := memory.New()
	seedUser(t, st, "alice", "phone")
	handler := NewUserHandler(st)

	tests := []struct {
		name       string
		username   string
		device     string
		wantStatus int
	}{
		{name: "secondary device", username: "alice", device: "phone", wantStatus: http.StatusNoContent},
		{name: "main device", username: "alice", device: "laptop", wantStatus: http.StatusForbidden},
		{name: "unknown device", username: "alice", device: "tablet", wantStatus: http.StatusNotFound},
		{name: "unknown user", username: "ghost", device: "phone", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := paramRequest(http.MethodDelete,
				"/api/v1/users/"+tt.username+"/devices/"+tt.device,
				map[string]string{"username": tt.username, "device": tt.device})
			w := httptest.NewRecorder()

			handler.DeleteDevice(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("DeleteDevice() status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}

	// The main device survived every attempt
	user, err := st.GetUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	if len(user.Devices) != 1 || !user.Devices[0].MainDevice {
		t.Errorf("Expected only the main device to remain, got %+v", user.Devices)
	}
}
