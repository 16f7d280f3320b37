package salary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
)

type salaryRepository struct {
	db *sqlx.DB
}

func NewSalaryRepository(db *sqlx.DB) repository.SalaryRepository {
	return &salaryRepository{db: db}
}

const columns = `id, coach_id, category_id, attendance_sheet_id, sessions_attended, session_rate,
	base_amount, manual_adjustment, adjustment_reason, final_amount, status,
	processed_by, paid_at, coach_confirmed_at, created_at, updated_at`

func (r *salaryRepository) get(ctx context.Context, query string, args ...any) (*models.CoachSalary, error) {
	var s models.CoachSalary
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &s, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *salaryRepository) GetByID(ctx context.Context, id int64) (*models.CoachSalary, error) {
	s, err := r.get(ctx, `SELECT `+columns+` FROM coach_salaries WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get salary %d: %w", id, err)
	}
	return s, nil
}

func (r *salaryRepository) Lock(ctx context.Context, id int64) (*models.CoachSalary, error) {
	s, err := r.get(ctx, `SELECT `+columns+` FROM coach_salaries WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("lock salary %d: %w", id, err)
	}
	return s, nil
}

func (r *salaryRepository) Get(ctx context.Context, coachID, categoryID, sheetID int64) (*models.CoachSalary, error) {
	query := `
		SELECT ` + columns + `
		FROM coach_salaries
		WHERE coach_id = $1 AND category_id = $2 AND attendance_sheet_id = $3
	`
	s, err := r.get(ctx, query, coachID, categoryID, sheetID)
	if err != nil {
		return nil, fmt.Errorf("get salary coach %d category %d sheet %d: %w", coachID, categoryID, sheetID, err)
	}
	return s, nil
}

// Upsert writes the computed amounts keyed by (coach, category, sheet).
func (r *salaryRepository) Upsert(ctx context.Context, s *models.CoachSalary) error {
	query := `
		INSERT INTO coach_salaries (coach_id, category_id, attendance_sheet_id, sessions_attended,
			session_rate, base_amount, manual_adjustment, adjustment_reason, final_amount,
			status, processed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (coach_id, category_id, attendance_sheet_id) DO UPDATE SET
			sessions_attended = EXCLUDED.sessions_attended,
			session_rate = EXCLUDED.session_rate,
			base_amount = EXCLUDED.base_amount,
			manual_adjustment = EXCLUDED.manual_adjustment,
			adjustment_reason = EXCLUDED.adjustment_reason,
			final_amount = EXCLUDED.final_amount,
			status = EXCLUDED.status,
			processed_by = EXCLUDED.processed_by,
			updated_at = NOW()
		WHERE coach_salaries.status IN ('calculated', 'approved')
		RETURNING id, created_at, updated_at
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		s.CoachID, s.CategoryID, s.SheetID, s.SessionsAttended,
		s.SessionRate, s.BaseAmount, s.ManualAdjustment, s.AdjustmentReason, s.FinalAmount,
		s.Status, s.ProcessedBy,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("salary coach %d category %d sheet %d is settled: %w", s.CoachID, s.CategoryID, s.SheetID, models.ErrInvalidState)
	}
	if err != nil {
		return fmt.Errorf("upsert salary coach %d category %d sheet %d: %w", s.CoachID, s.CategoryID, s.SheetID, err)
	}
	return nil
}

func (r *salaryRepository) UpdateStatus(ctx context.Context, s *models.CoachSalary, from models.SalaryStatus) error {
	query := `
		UPDATE coach_salaries
		SET status = $2, processed_by = $3, paid_at = $4, coach_confirmed_at = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6
		RETURNING updated_at
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		s.ID, s.Status, s.ProcessedBy, s.PaidAt, s.CoachConfirmedAt, from,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("salary %d is no longer %s: %w", s.ID, from, models.ErrInvalidState)
	}
	if err != nil {
		return fmt.Errorf("update salary %d status: %w", s.ID, err)
	}
	return nil
}
