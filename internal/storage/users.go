// internal/storage/users.go
package storage

import (
	"context"

	"storefront/internal/model"
)

func (s *Storage) UserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return model.User{}, mapError(err)
	}
	return u, nil
}

func (s *Storage) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, u.Name, u.Email, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return model.User{}, mapError(err)
	}
	return u, nil
}

func (s *Storage) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, userID)
	return affectedOne(res, err)
}
