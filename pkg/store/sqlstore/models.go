package sqlstore

import (
	"sort"
	"time"

	"github.com/marmos91/zkauth/pkg/store"
)

// userRow is the users table. Devices hang off it as ordered child rows so
// the enrolled list round-trips in enrollment order.
type userRow struct {
	Username  string `gorm:"primaryKey"`
	CreatedAt time.Time
	Devices   []deviceRow `gorm:"foreignKey:Username;references:Username"`
}

func (userRow) TableName() string { return "users" }

// deviceRow is the devices table. (username, device_name) is unique per the
// data model; position preserves enrollment order.
type deviceRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Username   string `gorm:"uniqueIndex:idx_user_device;index"`
	DeviceName string `gorm:"uniqueIndex:idx_user_device"`
	PK         string
	MainDevice bool
	Logged     bool
	Position   int
}

func (deviceRow) TableName() string { return "devices" }

// tokenRow is the temp_tokens table.
type tokenRow struct {
	Token      string `gorm:"primaryKey"`
	PK         string
	DeviceName string
	CreatedAt  time.Time
	Expiry     time.Time
}

func (tokenRow) TableName() string { return "temp_tokens" }

func toUserRow(u *store.User) *userRow {
	row := &userRow{
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		Devices:   make([]deviceRow, len(u.Devices)),
	}
	for i, d := range u.Devices {
		row.Devices[i] = deviceRow{
			Username:   u.Username,
			DeviceName: d.DeviceName,
			PK:         d.PK,
			MainDevice: d.MainDevice,
			Logged:     d.Logged,
			Position:   i,
		}
	}
	return row
}

func fromUserRow(row *userRow) *store.User {
	sort.Slice(row.Devices, func(i, j int) bool {
		return row.Devices[i].Position < row.Devices[j].Position
	})
	user := &store.User{
		Username:  row.Username,
		CreatedAt: row.CreatedAt,
		Devices:   make([]store.Device, len(row.Devices)),
	}
	for i, d := range row.Devices {
		user.Devices[i] = store.Device{
			PK:         d.PK,
			DeviceName: d.DeviceName,
			MainDevice: d.MainDevice,
			Logged:     d.Logged,
		}
	}
	return user
}

func toTokenRow(t *store.TempToken) *tokenRow {
	return &tokenRow{
		Token:      t.Token,
		PK:         t.PK,
		DeviceName: t.DeviceName,
		CreatedAt:  t.CreatedAt,
		Expiry:     t.Expiry,
	}
}

func fromTokenRow(row *tokenRow) *store.TempToken {
	return &store.TempToken{
		Token:      row.Token,
		PK:         row.PK,
		DeviceName: row.DeviceName,
		CreatedAt:  row.CreatedAt,
		Expiry:     row.Expiry,
	}
}
