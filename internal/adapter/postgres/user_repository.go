package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pizza-status/internal/domain"
	"pizza-status/internal/interfaces"
)

type userRepository struct {
	db DB
}

func NewUserRepository(db DB) interfaces.UserDirectory {
	return &userRepository{db: db}
}

// LookupUserByEmail resolves a user id from an exact email match.
func (r *userRepository) LookupUserByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, domain.ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrUserLookupFailed, err)
	}
	return id, nil
}
