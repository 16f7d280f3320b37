package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
)

type categoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) repository.CategoryRepository {
	return &categoryRepository{db: db}
}

const columns = `id, name, monthly_fee, is_active, created_at`

func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*models.TrainingCategory, error) {
	query := `SELECT ` + columns + ` FROM training_categories WHERE id = $1`

	var c models.TrainingCategory
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return &c, nil
}

func (r *categoryRepository) ListActive(ctx context.Context) ([]models.TrainingCategory, error) {
	query := `SELECT ` + columns + ` FROM training_categories WHERE is_active = TRUE ORDER BY name`

	var categories []models.TrainingCategory
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list active categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *models.TrainingCategory) error {
	query := `
		INSERT INTO training_categories (name, monthly_fee, is_active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query, c.Name, c.MonthlyFee, c.IsActive).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}
