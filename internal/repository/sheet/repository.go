package sheet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
)

type sheetRepository struct {
	db *sqlx.DB
}

func NewSheetRepository(db *sqlx.DB) repository.SheetRepository {
	return &sheetRepository{db: db}
}

const sheetColumns = `id, category_id, jalali_year, jalali_month, is_finalized, finalized_at, finalized_by, created_at`

func (r *sheetRepository) get(ctx context.Context, query string, args ...any) (*models.AttendanceSheet, error) {
	var s models.AttendanceSheet
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &s, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *sheetRepository) Get(ctx context.Context, categoryID int64, year, month int) (*models.AttendanceSheet, error) {
	query := `
		SELECT ` + sheetColumns + `
		FROM attendance_sheets
		WHERE category_id = $1 AND jalali_year = $2 AND jalali_month = $3
	`
	s, err := r.get(ctx, query, categoryID, year, month)
	if err != nil {
		return nil, fmt.Errorf("get sheet %d %d/%d: %w", categoryID, year, month, err)
	}
	return s, nil
}

func (r *sheetRepository) GetByID(ctx context.Context, id int64) (*models.AttendanceSheet, error) {
	s, err := r.get(ctx, `SELECT `+sheetColumns+` FROM attendance_sheets WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get sheet %d: %w", id, err)
	}
	return s, nil
}

func (r *sheetRepository) Lock(ctx context.Context, id int64) (*models.AttendanceSheet, error) {
	s, err := r.get(ctx, `SELECT `+sheetColumns+` FROM attendance_sheets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("lock sheet %d: %w", id, err)
	}
	return s, nil
}

func (r *sheetRepository) Create(ctx context.Context, s *models.AttendanceSheet) (bool, error) {
	query := `
		INSERT INTO attendance_sheets (category_id, jalali_year, jalali_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (category_id, jalali_year, jalali_month) DO NOTHING
		RETURNING id, is_finalized, created_at
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query, s.CategoryID, s.JalaliYear, s.JalaliMonth).
		Scan(&s.ID, &s.IsFinalized, &s.CreatedAt)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("create sheet: %w", err)
	}

	existing, err := r.Get(ctx, s.CategoryID, s.JalaliYear, s.JalaliMonth)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("create sheet: conflicting row for category %d vanished", s.CategoryID)
	}
	*s = *existing
	return false, nil
}

func (r *sheetRepository) Finalize(ctx context.Context, id int64, at time.Time, by int64) (bool, error) {
	query := `
		UPDATE attendance_sheets
		SET is_finalized = TRUE, finalized_at = $2, finalized_by = $3
		WHERE id = $1 AND is_finalized = FALSE
	`
	res, err := repository.Executor(ctx, r.db).ExecContext(ctx, query, id, at, by)
	if err != nil {
		return false, fmt.Errorf("finalize sheet %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("finalize sheet %d: %w", id, err)
	}
	return n == 1, nil
}

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, sheet_id, date, session_number, notes`

func (r *sessionRepository) GetByID(ctx context.Context, id int64) (*models.SessionDate, error) {
	query := `SELECT ` + sessionColumns + ` FROM session_dates WHERE id = $1`

	var s models.SessionDate
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return &s, nil
}

func (r *sessionRepository) ListBySheet(ctx context.Context, sheetID int64) ([]models.SessionDate, error) {
	query := `SELECT ` + sessionColumns + ` FROM session_dates WHERE sheet_id = $1 ORDER BY date`

	var sessions []models.SessionDate
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &sessions, query, sheetID); err != nil {
		return nil, fmt.Errorf("list sessions of sheet %d: %w", sheetID, err)
	}
	return sessions, nil
}

func (r *sessionRepository) Create(ctx context.Context, s *models.SessionDate) (bool, error) {
	query := `
		INSERT INTO session_dates (sheet_id, date, session_number, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sheet_id, date) DO NOTHING
		RETURNING id
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		s.SheetID, s.Date.Format(time.DateOnly), s.SessionNumber, s.Notes,
	).Scan(&s.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create session %s: %w", s.Date.Format(time.DateOnly), err)
	}
	return true, nil
}
