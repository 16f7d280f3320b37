package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const columns = `id, telegram_id, email, first_name, last_name, username,
	is_technical_director, is_finance_manager, is_active, registered_at, updated_at`

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := r.getOne(ctx, `SELECT `+columns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *userRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	u, err := r.getOne(ctx, `SELECT `+columns+` FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id %d: %w", telegramID, err)
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (telegram_id, email, first_name, last_name, username,
			is_technical_director, is_finance_manager, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, registered_at, updated_at
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		user.TelegramID, user.Email, user.FirstName, user.LastName, user.Username,
		user.IsTechnicalDirector, user.IsFinanceManager, user.IsActive,
	).Scan(&user.ID, &user.RegisteredAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepository) LinkTelegram(ctx context.Context, userID, telegramID int64) error {
	query := `UPDATE users SET telegram_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	if _, err := repository.Executor(ctx, r.db).ExecContext(ctx, query, telegramID, userID); err != nil {
		return fmt.Errorf("link telegram to user %d: %w", userID, err)
	}
	return nil
}

func (r *userRepository) ListTechnicalDirectors(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + columns + ` FROM users WHERE is_technical_director = TRUE AND is_active = TRUE ORDER BY id`

	var users []models.User
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list technical directors: %w", err)
	}
	return users, nil
}

func (r *userRepository) ListFinanceManagers(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + columns + ` FROM users WHERE is_finance_manager = TRUE AND is_active = TRUE ORDER BY id`

	var users []models.User
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list finance managers: %w", err)
	}
	return users, nil
}
