package apiclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users", r.URL.Path)

		respond(t, w, http.StatusOK, "ok", []UserSummary{
			{Username: "alice", Devices: 2, CreatedAt: time.Now()},
			{Username: "bob", Devices: 1, CreatedAt: time.Now()},
		}, "")
	}))
	defer server.Close()

	client := New(server.URL).WithToken("tok")
	users, err := client.ListUsers()

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, 2, users[0].Devices)
}

func TestGetUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/alice", r.URL.Path)

		respond(t, w, http.StatusOK, "ok", UserDetail{
			Username: "alice",
			Devices: []DeviceInfo{
				{DeviceName: "laptop", MainDevice: true, Logged: true, PublicKey: "0xabc"},
				{DeviceName: "phone", PublicKey: "0xdef"},
			},
		}, "")
	}))
	defer server.Close()

	client := New(server.URL).WithToken("tok")
	user, err := client.GetUser("alice")

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	require.Len(t, user.Devices, 2)
	assert.True(t, user.Devices[0].MainDevice)
	assert.False(t, user.Devices[1].MainDevice)
}

func TestGetUser_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusNotFound, "error", nil, "User not found")
	}))
	defer server.Close()

	client := New(server.URL).WithToken("tok")
	_, err := client.GetUser("ghost")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestDeleteUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/users/alice", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL).WithToken("tok")
	require.NoError(t, client.DeleteUser("alice"))
}

func TestDeleteDevice_MainDeviceRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/alice/devices/laptop", r.URL.Path)
		respond(t, w, http.StatusForbidden, "error", nil, "Cannot remove the main device")
	}))
	defer server.Close()

	client := New(server.URL).WithToken("tok")
	err := client.DeleteDevice("alice", "laptop")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "Cannot remove the main device", apiErr.Message)
}

func TestListTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tokens", r.URL.Path)

		respond(t, w, http.StatusOK, "ok", []TokenInfo{
			{Token: "tok-1", DeviceName: "tablet", Expired: false},
		}, "")
	}))
	defer server.Close()

	client := New(server.URL).WithToken("tok")
	tokens, err := client.ListTokens()

	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "tablet", tokens[0].DeviceName)
}
