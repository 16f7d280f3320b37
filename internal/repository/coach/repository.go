package coach

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type coachRepository struct {
	db *sqlx.DB
}

func NewCoachRepository(db *sqlx.DB) repository.CoachRepository {
	return &coachRepository{db: db}
}

const columns = `c.id, c.user_id, c.first_name, c.last_name, c.phone, c.is_active, c.created_at, c.updated_at`

func (r *coachRepository) GetByID(ctx context.Context, id int64) (*models.Coach, error) {
	query := `SELECT ` + columns + ` FROM coaches c WHERE c.id = $1`

	var c models.Coach
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coach %d: %w", id, err)
	}
	return &c, nil
}

func (r *coachRepository) Create(ctx context.Context, c *models.Coach) error {
	query := `
		INSERT INTO coaches (user_id, first_name, last_name, phone, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		c.UserID, c.FirstName, c.LastName, c.Phone, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create coach: %w", err)
	}
	return nil
}

func (r *coachRepository) ListWithActiveRate(ctx context.Context, categoryID int64) ([]models.Coach, error) {
	query := `
		SELECT ` + columns + `
		FROM coaches c
		JOIN coach_category_rates r ON r.coach_id = c.id
		WHERE r.category_id = $1 AND r.is_active = TRUE AND c.is_active = TRUE
		ORDER BY c.last_name, c.first_name, c.id
	`
	var coaches []models.Coach
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &coaches, query, categoryID); err != nil {
		return nil, fmt.Errorf("list coaches of category %d: %w", categoryID, err)
	}
	return coaches, nil
}

func (r *coachRepository) ListByCategories(ctx context.Context, categoryIDs []int64) ([]models.Coach, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT DISTINCT ` + columns + `
		FROM coaches c
		JOIN coach_category_rates r ON r.coach_id = c.id
		WHERE r.category_id = ANY($1) AND r.is_active = TRUE AND c.is_active = TRUE
		ORDER BY c.last_name, c.first_name, c.id
	`
	var coaches []models.Coach
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &coaches, query, pq.Array(categoryIDs)); err != nil {
		return nil, fmt.Errorf("list coaches of categories %v: %w", categoryIDs, err)
	}
	return coaches, nil
}
