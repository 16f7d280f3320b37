package schedule

import (
	"context"
	"fmt"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
)

type scheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) ListByCategory(ctx context.Context, categoryID int64) ([]models.TrainingSchedule, error) {
	query := `
		SELECT id, category_id, weekday, start_time, end_time, location
		FROM training_schedules
		WHERE category_id = $1
		ORDER BY array_position(ARRAY['sat','sun','mon','tue','wed','thu','fri'], weekday), start_time
	`

	var schedules []models.TrainingSchedule
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &schedules, query, categoryID); err != nil {
		return nil, fmt.Errorf("list schedules of category %d: %w", categoryID, err)
	}
	return schedules, nil
}

func (r *scheduleRepository) Create(ctx context.Context, s *models.TrainingSchedule) error {
	query := `
		INSERT INTO training_schedules (category_id, weekday, start_time, end_time, location)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		s.CategoryID, s.Weekday, s.StartTime, s.EndTime, s.Location,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM training_schedules WHERE id = $1`
	if _, err := repository.Executor(ctx, r.db).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	return nil
}
