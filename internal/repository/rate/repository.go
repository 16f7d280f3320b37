package rate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
)

type rateRepository struct {
	db *sqlx.DB
}

func NewRateRepository(db *sqlx.DB) repository.RateRepository {
	return &rateRepository{db: db}
}

const columns = `id, coach_id, category_id, session_rate, is_active`

func (r *rateRepository) GetActive(ctx context.Context, coachID, categoryID int64) (*models.CoachCategoryRate, error) {
	query := `
		SELECT ` + columns + `
		FROM coach_category_rates
		WHERE coach_id = $1 AND category_id = $2 AND is_active = TRUE
	`
	var rate models.CoachCategoryRate
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &rate, query, coachID, categoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rate coach %d category %d: %w", coachID, categoryID, err)
	}
	return &rate, nil
}

func (r *rateRepository) Upsert(ctx context.Context, rate *models.CoachCategoryRate) error {
	query := `
		INSERT INTO coach_category_rates (coach_id, category_id, session_rate, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (coach_id, category_id) DO UPDATE SET
			session_rate = EXCLUDED.session_rate,
			is_active = EXCLUDED.is_active
		RETURNING id
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		rate.CoachID, rate.CategoryID, rate.SessionRate, rate.IsActive,
	).Scan(&rate.ID)
	if err != nil {
		return fmt.Errorf("upsert rate coach %d category %d: %w", rate.CoachID, rate.CategoryID, err)
	}
	return nil
}
