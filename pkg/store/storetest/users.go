package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/zkauth/pkg/store"
)

func testUsers(t *testing.T, factory StoreFactory) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		s := factory(t)
		want := sampleUser("alice")
		if err := s.CreateUser(ctx, want); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		got, err := s.GetUser(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if got.Username != "alice" {
			t.Errorf("username = %q, want %q", got.Username, "alice")
		}
		if len(got.Devices) != 2 {
			t.Fatalf("devices = %d, want 2", len(got.Devices))
		}
		if !got.Devices[0].MainDevice {
			t.Error("first device lost its main flag")
		}
		if got.Devices[0].DeviceName != "laptop" || got.Devices[1].DeviceName != "phone" {
			t.Errorf("device order not preserved: %q, %q",
				got.Devices[0].DeviceName, got.Devices[1].DeviceName)
		}
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		err := s.CreateUser(ctx, sampleUser("alice"))
		if !errors.Is(err, store.ErrUserExists) {
			t.Errorf("duplicate create returned %v, want ErrUserExists", err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := factory(t)
		_, err := s.GetUser(ctx, "nobody")
		if !errors.Is(err, store.ErrUserNotFound) {
			t.Errorf("GetUser returned %v, want ErrUserNotFound", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		s := factory(t)
		for _, name := range []string{"carol", "alice", "bob"} {
			if err := s.CreateUser(ctx, sampleUser(name)); err != nil {
				t.Fatalf("CreateUser(%q) failed: %v", name, err)
			}
		}

		users, err := s.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 3 {
			t.Fatalf("listed %d users, want 3", len(users))
		}
		for i, want := range []string{"alice", "bob", "carol"} {
			if users[i].Username != want {
				t.Errorf("users[%d] = %q, want %q", i, users[i].Username, want)
			}
		}
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := factory(t)
		users, err := s.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 0 {
			t.Errorf("listed %d users on an empty store", len(users))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if err := s.DeleteUser(ctx, "alice"); err != nil {
			t.Fatalf("DeleteUser failed: %v", err)
		}
		_, err := s.GetUser(ctx, "alice")
		if !errors.Is(err, store.ErrUserNotFound) {
			t.Errorf("GetUser after delete returned %v, want ErrUserNotFound", err)
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		s := factory(t)
		err := s.DeleteUser(ctx, "nobody")
		if !errors.Is(err, store.ErrUserNotFound) {
			t.Errorf("DeleteUser returned %v, want ErrUserNotFound", err)
		}
	})
}

func testDevices(t *testing.T, factory StoreFactory) {
	ctx := context.Background()

	t.Run("Append", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		dev := store.Device{PK: "0xff", DeviceName: "tablet"}
		if err := s.AppendDevice(ctx, "alice", dev); err != nil {
			t.Fatalf("AppendDevice failed: %v", err)
		}

		got, err := s.GetUser(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if len(got.Devices) != 3 {
			t.Fatalf("devices = %d, want 3", len(got.Devices))
		}
		last := got.Devices[2]
		if last.DeviceName != "tablet" || last.PK != "0xff" {
			t.Errorf("appended device = %+v", last)
		}
		if last.MainDevice || last.Logged {
			t.Errorf("appended device should start unflagged: %+v", last)
		}
	})

	t.Run("AppendDuplicateName", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		err := s.AppendDevice(ctx, "alice", store.Device{PK: "0xff", DeviceName: "phone"})
		if !errors.Is(err, store.ErrDeviceExists) {
			t.Errorf("AppendDevice returned %v, want ErrDeviceExists", err)
		}
	})

	t.Run("AppendToMissingUser", func(t *testing.T) {
		s := factory(t)
		err := s.AppendDevice(ctx, "nobody", store.Device{PK: "0xff", DeviceName: "tablet"})
		if !errors.Is(err, store.ErrUserNotFound) {
			t.Errorf("AppendDevice returned %v, want ErrUserNotFound", err)
		}
	})

	t.Run("SetLogged", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		if err := s.SetDeviceLogged(ctx, "alice", "phone", true); err != nil {
			t.Fatalf("SetDeviceLogged failed: %v", err)
		}
		got, err := s.GetUser(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if !got.Devices[1].Logged {
			t.Error("phone not marked logged")
		}
		if !got.Devices[0].Logged {
			t.Error("laptop flag changed by unrelated update")
		}

		if err := s.SetDeviceLogged(ctx, "alice", "laptop", false); err != nil {
			t.Fatalf("SetDeviceLogged failed: %v", err)
		}
		got, err = s.GetUser(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if got.Devices[0].Logged {
			t.Error("laptop still marked logged")
		}
	})

	t.Run("SetLoggedMissingDevice", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		err := s.SetDeviceLogged(ctx, "alice", "watch", true)
		if !errors.Is(err, store.ErrDeviceNotFound) {
			t.Errorf("SetDeviceLogged returned %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("SetLoggedMissingUser", func(t *testing.T) {
		s := factory(t)
		err := s.SetDeviceLogged(ctx, "nobody", "laptop", true)
		if !errors.Is(err, store.ErrUserNotFound) {
			t.Errorf("SetDeviceLogged returned %v, want ErrUserNotFound", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if err := s.RemoveDevice(ctx, "alice", "phone"); err != nil {
			t.Fatalf("RemoveDevice failed: %v", err)
		}
		got, err := s.GetUser(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if len(got.Devices) != 1 {
			t.Fatalf("devices = %d, want 1", len(got.Devices))
		}
		if got.Devices[0].DeviceName != "laptop" {
			t.Errorf("remaining device = %q, want laptop", got.Devices[0].DeviceName)
		}
	})

	t.Run("RemoveMainRefused", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		err := s.RemoveDevice(ctx, "alice", "laptop")
		if !errors.Is(err, store.ErrMainDevice) {
			t.Errorf("RemoveDevice returned %v, want ErrMainDevice", err)
		}
		got, gerr := s.GetUser(ctx, "alice")
		if gerr != nil {
			t.Fatalf("GetUser failed: %v", gerr)
		}
		if len(got.Devices) != 2 {
			t.Errorf("devices = %d after refused remove, want 2", len(got.Devices))
		}
	})

	t.Run("RemoveMissingDevice", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		err := s.RemoveDevice(ctx, "alice", "watch")
		if !errors.Is(err, store.ErrDeviceNotFound) {
			t.Errorf("RemoveDevice returned %v, want ErrDeviceNotFound", err)
		}
	})

	t.Run("OrderSurvivesUpdates", func(t *testing.T) {
		s := factory(t)
		if err := s.CreateUser(ctx, sampleUser("alice")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		for _, name := range []string{"tablet", "watch", "tv"} {
			if err := s.AppendDevice(ctx, "alice", store.Device{PK: "0x1", DeviceName: name}); err != nil {
				t.Fatalf("AppendDevice(%q) failed: %v", name, err)
			}
		}
		if err := s.SetDeviceLogged(ctx, "alice", "watch", true); err != nil {
			t.Fatalf("SetDeviceLogged failed: %v", err)
		}

		got, err := s.GetUser(ctx, "alice")
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		want := []string{"laptop", "phone", "tablet", "watch", "tv"}
		if len(got.Devices) != len(want) {
			t.Fatalf("devices = %d, want %d", len(got.Devices), len(want))
		}
		for i, name := range want {
			if got.Devices[i].DeviceName != name {
				t.Errorf("devices[%d] = %q, want %q", i, got.Devices[i].DeviceName, name)
			}
		}
	})
}
