package store

import "time"

// Device is one enrolled device of a user. PK holds the hex-encoded public
// key y = g^alpha mod p; the matching private scalar exists only on the
// device itself.
type Device struct {
	PK         string `json:"pk"`
	DeviceName string `json:"device_name"`
	MainDevice bool   `json:"main_device"`
	Logged     bool   `json:"logged"`
}

// User is one enrolled user document. Devices is ordered: the first enrolled
// device is the main one, and authentication tries keys in list order.
type User struct {
	Username  string    `json:"_id"`
	Devices   []Device  `json:"devices"`
	CreatedAt time.Time `json:"created_at"`
}

// MainDevice returns the user's main device, or nil if the document is
// corrupt and has none. The pointer aliases the Devices slice.
func (u *User) MainDevice() *Device {
	for i := range u.Devices {
		if u.Devices[i].MainDevice {
			return &u.Devices[i]
		}
	}
	return nil
}

// Device returns the device with the given name, or nil. The pointer aliases
// the Devices slice.
func (u *User) Device(name string) *Device {
	for i := range u.Devices {
		if u.Devices[i].DeviceName == name {
			return &u.Devices[i]
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (u *User) Clone() *User {
	c := *u
	c.Devices = make([]Device, len(u.Devices))
	copy(c.Devices, u.Devices)
	return &c
}

// TempToken is one pending pairing token document. The token value is the
// document key; Expiry is fixed at mint time.
type TempToken struct {
	Token      string    `json:"_id"`
	PK         string    `json:"pk"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
	Expiry     time.Time `json:"expiry"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t *TempToken) Expired(now time.Time) bool {
	return now.After(t.Expiry)
}
