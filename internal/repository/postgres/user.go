package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/boardlab/notify-api/pkg/errors"

	"github.com/boardlab/notify-api/internal/model"
	"github.com/boardlab/notify-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) UpdateChannelPreference(ctx context.Context, id uuid.UUID, pref model.ChannelPreference) error {
	query := `UPDATE users SET channel_preference = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, pref, id)
	if err != nil {
		return fmt.Errorf("failed to update channel preference: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return apperrors.NotFound("user", nil)
	}
	return nil
}
