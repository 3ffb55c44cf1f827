package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/zkauth/pkg/store"
)

// StoreFactory creates a fresh, empty store for a single test. The factory
// should register cleanup via t.Cleanup so each test starts from scratch.
type StoreFactory func(t *testing.T) store.Store

// RunConformanceSuite runs the full conformance suite against the given
// backend. Every store implementation must pass it.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("Users", func(t *testing.T) {
		testUsers(t, factory)
	})
	t.Run("Devices", func(t *testing.T) {
		testDevices(t, factory)
	})
	t.Run("Tokens", func(t *testing.T) {
		testTokens(t, factory)
	})
	t.Run("HealthCheck", func(t *testing.T) {
		testHealthCheck(t, factory)
	})
}

func testHealthCheck(t *testing.T, factory StoreFactory) {
	t.Run("ReportsHealthy", func(t *testing.T) {
		s := factory(t)
		if err := s.HealthCheck(context.Background()); err != nil {
			t.Fatalf("HealthCheck failed on a fresh store: %v", err)
		}
	})

	t.Run("CancelledContext", func(t *testing.T) {
		s := factory(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.HealthCheck(ctx); err == nil {
			t.Error("HealthCheck succeeded with a cancelled context")
		}
	})
}

// sampleUser builds a user with a main device and one secondary device.
func sampleUser(username string) *store.User {
	return &store.User{
		Username: username,
		Devices: []store.Device{
			{
				PK:         "0x12",
				DeviceName: "laptop",
				MainDevice: true,
				Logged:     true,
			},
			{
				PK:         "0x10",
				DeviceName: "phone",
				MainDevice: false,
				Logged:     false,
			},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func sampleToken(token string) *store.TempToken {
	now := time.Now().UTC().Truncate(time.Second)
	return &store.TempToken{
		Token:      token,
		PK:         "0xabcdef",
		DeviceName: "tablet",
		CreatedAt:  now,
		Expiry:     now.Add(10 * time.Minute),
	}
}
