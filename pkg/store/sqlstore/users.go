package sqlstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/marmos91/zkauth/pkg/store"
)

func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	err := s.db.WithContext(ctx).Create(toUserRow(user)).Error
	if isUniqueConstraintError(err) {
		return store.ErrUserExists
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, username string) (*store.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).
		Preload("Devices", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&row, "username = ?", username).Error
	if err != nil {
		return nil, convertNotFoundError(err, store.ErrUserNotFound)
	}
	return fromUserRow(&row), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*store.User, error) {
	var rows []userRow
	err := s.db.WithContext(ctx).
		Preload("Devices", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("username ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	users := make([]*store.User, len(rows))
	for i := range rows {
		users[i] = fromUserRow(&rows[i])
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", username).Delete(&deviceRow{}).Error; err != nil {
			return err
		}
		result := tx.Where("username = ?", username).Delete(&userRow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.ErrUserNotFound
		}
		return nil
	})
}

func (s *Store) AppendDevice(ctx context.Context, username string, device store.Device) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&userRow{}, "username = ?", username).Error; err != nil {
			return convertNotFoundError(err, store.ErrUserNotFound)
		}

		var count int64
		if err := tx.Model(&deviceRow{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return err
		}

		err := tx.Create(&deviceRow{
			Username:   username,
			DeviceName: device.DeviceName,
			PK:         device.PK,
			MainDevice: device.MainDevice,
			Logged:     device.Logged,
			Position:   int(count),
		}).Error
		if isUniqueConstraintError(err) {
			return store.ErrDeviceExists
		}
		return err
	})
}

func (s *Store) SetDeviceLogged(ctx context.Context, username, deviceName string, logged bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&userRow{}, "username = ?", username).Error; err != nil {
			return convertNotFoundError(err, store.ErrUserNotFound)
		}

		result := tx.Model(&deviceRow{}).
			Where("username = ? AND device_name = ?", username, deviceName).
			Update("logged", logged)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.ErrDeviceNotFound
		}
		return nil
	})
}

func (s *Store) RemoveDevice(ctx context.Context, username, deviceName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&userRow{}, "username = ?", username).Error; err != nil {
			return convertNotFoundError(err, store.ErrUserNotFound)
		}

		var row deviceRow
		err := tx.First(&row, "username = ? AND device_name = ?", username, deviceName).Error
		if err != nil {
			return convertNotFoundError(err, store.ErrDeviceNotFound)
		}
		if row.MainDevice {
			return store.ErrMainDevice
		}
		return tx.Delete(&row).Error
	})
}
