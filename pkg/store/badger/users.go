package badger

import (
	"context"
	"errors"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/zkauth/pkg/store"
)

func (s *Store) CreateUser(ctx context.Context, user *store.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(userKey(user.Username))
		if err == nil {
			return store.ErrUserExists
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		data, err := encodeUser(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(user.Username), data)
	})
}

func (s *Store) GetUser(ctx context.Context, username string) (*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var user *store.User
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(userKey(username))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return store.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			user, err = decodeUser(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var users []*store.User
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(userPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				user, err := decodeUser(val)
				if err != nil {
					return err
				}
				users = append(users, user)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(userKey(username)); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return store.ErrUserNotFound
			}
			return err
		}
		return txn.Delete(userKey(username))
	})
}

func (s *Store) AppendDevice(ctx context.Context, username string, device store.Device) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutateUser(username, func(user *store.User) error {
		if user.Device(device.DeviceName) != nil {
			return store.ErrDeviceExists
		}
		user.Devices = append(user.Devices, device)
		return nil
	})
}

func (s *Store) SetDeviceLogged(ctx context.Context, username, deviceName string, logged bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutateUser(username, func(user *store.User) error {
		device := user.Device(deviceName)
		if device == nil {
			return store.ErrDeviceNotFound
		}
		device.Logged = logged
		return nil
	})
}

func (s *Store) RemoveDevice(ctx context.Context, username, deviceName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutateUser(username, func(user *store.User) error {
		for i := range user.Devices {
			if user.Devices[i].DeviceName != deviceName {
				continue
			}
			if user.Devices[i].MainDevice {
				return store.ErrMainDevice
			}
			user.Devices = append(user.Devices[:i], user.Devices[i+1:]...)
			return nil
		}
		return store.ErrDeviceNotFound
	})
}

// mutateUser applies fn to the decoded user document and writes the result
// back, all inside one transaction.
func (s *Store) mutateUser(username string, fn func(user *store.User) error) error {
	return s.update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(userKey(username))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return store.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		var user *store.User
		if err := item.Value(func(val []byte) error {
			user, err = decodeUser(val)
			return err
		}); err != nil {
			return err
		}

		if err := fn(user); err != nil {
			return err
		}

		data, err := encodeUser(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(username), data)
	})
}
