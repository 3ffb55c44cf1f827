package sqlstore

import (
	"context"

	"github.com/marmos91/zkauth/pkg/store"
)

func (s *Store) CreateToken(ctx context.Context, token *store.TempToken) error {
	err := s.db.WithContext(ctx).Create(toTokenRow(token)).Error
	if isUniqueConstraintError(err) {
		return store.ErrTokenExists
	}
	return err
}

func (s *Store) GetToken(ctx context.Context, token string) (*store.TempToken, error) {
	var row tokenRow
	err := s.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if err != nil {
		return nil, convertNotFoundError(err, store.ErrTokenNotFound)
	}
	return fromTokenRow(&row), nil
}

func (s *Store) ListTokens(ctx context.Context) ([]*store.TempToken, error) {
	var rows []tokenRow
	err := s.db.WithContext(ctx).Order("token ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	tokens := make([]*store.TempToken, len(rows))
	for i := range rows {
		tokens[i] = fromTokenRow(&rows[i])
	}
	return tokens, nil
}

func (s *Store) DeleteToken(ctx context.Context, token string) error {
	result := s.db.WithContext(ctx).Where("token = ?", token).Delete(&tokenRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrTokenNotFound
	}
	return nil
}
