package badger

import (
	"context"
	"errors"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/zkauth/pkg/store"
)

func (s *Store) CreateToken(ctx context.Context, token *store.TempToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(tokenKey(token.Token))
		if err == nil {
			return store.ErrTokenExists
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		data, err := encodeToken(token)
		if err != nil {
			return err
		}
		return txn.Set(tokenKey(token.Token), data)
	})
}

func (s *Store) GetToken(ctx context.Context, token string) (*store.TempToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var t *store.TempToken
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(tokenKey(token))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return store.ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			t, err = decodeToken(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) ListTokens(ctx context.Context) ([]*store.TempToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var tokens []*store.TempToken
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(tokenPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				token, err := decodeToken(val)
				if err != nil {
					return err
				}
				tokens = append(tokens, token)
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
	return tokens, nil
}

func (s *Store) DeleteToken(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(tokenKey(token)); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return store.ErrTokenNotFound
			}
			return err
		}
		return txn.Delete(tokenKey(token))
	})
}
