package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/humon/server/internal/model"
)

// UserRepo defines the interface for user repository operations
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByAuthToken(ctx context.Context, authToken string) (model.User, error)
	// GetOrCreateByDeviceToken returns the user for deviceToken, inserting it with
	// authToken when absent. created reports whether this call inserted the row.
	GetOrCreateByDeviceToken(ctx context.Context, deviceToken, authToken string) (user model.User, created bool, err error)
	RotateAuthToken(ctx context.Context, id int64, authToken string) (model.User, error)
}

type userRepo struct {
	db *sqlx.DB
}

// NewUserRepo creates a new UserRepo instance
func NewUserRepo(db *sqlx.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, device_token, auth_token, created_at, updated_at`

func (r *userRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	const op = "repo.user.GetByID"

	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (r *userRepo) GetByAuthToken(ctx context.Context, authToken string) (model.User, error) {
	const op = "repo.user.GetByAuthToken"

	var user model.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE auth_token = $1`, authToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// GetOrCreateByDeviceToken inserts with ON CONFLICT DO NOTHING so concurrent first
// calls for the same device settle on one row.
func (r *userRepo) GetOrCreateByDeviceToken(ctx context.Context, deviceToken, authToken string) (model.User, bool, error) {
	const op = "repo.user.GetOrCreateByDeviceToken"

	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (device_token, auth_token)
		VALUES ($1, $2)
		ON CONFLICT (device_token) DO NOTHING
		RETURNING `+userColumns, deviceToken, authToken)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.User{}, false, fmt.Errorf("%s: insert: %w", op, err)
	}

	// Conflict: the device already has a user.
	err = r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE device_token = $1`, deviceToken)
	if err != nil {
		return model.User{}, false, fmt.Errorf("%s: select: %w", op, err)
	}
	return user, false, nil
}

func (r *userRepo) RotateAuthToken(ctx context.Context, id int64, authToken string) (model.User, error) {
	const op = "repo.user.RotateAuthToken"

	var user model.User
	err := r.db.GetContext(ctx, &user, `
		UPDATE users SET auth_token = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, authToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}
