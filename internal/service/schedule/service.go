package schedule_service

import (
	"context"
	"fmt"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"
	"futsal-club/internal/service"
	"futsal-club/pkg/jalali"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type scheduleService struct {
	tx         repository.Transactor
	categories repository.CategoryRepository
	schedules  repository.ScheduleRepository
	sheets     repository.SheetRepository
	sessions   repository.SessionRepository
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewScheduleService(
	tx repository.Transactor,
	categories repository.CategoryRepository,
	schedules repository.ScheduleRepository,
	sheets repository.SheetRepository,
	sessions repository.SessionRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) service.ScheduleService {
	return &scheduleService{
		tx:         tx,
		categories: categories,
		schedules:  schedules,
		sheets:     sheets,
		sessions:   sessions,
		validate:   validate,
		logger:     logger.Named("schedule"),
	}
}

func (s *scheduleService) GetOrCreateSheet(ctx context.Context, categoryID int64, month jalali.Month, asOf time.Time) (*models.AttendanceSheet, bool, error) {
	current := jalali.CurrentMonth(asOf)
	if month.After(current) {
		sheet, err := s.sheets.Get(ctx, categoryID, month.Year(), month.Month())
		return sheet, false, err
	}

	var (
		sheet   *models.AttendanceSheet
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		category, err := s.categories.GetByID(ctx, categoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return fmt.Errorf("category %d: %w", categoryID, service.ErrNotFound)
		}

		sheet = &models.AttendanceSheet{
			CategoryID:  categoryID,
			JalaliYear:  month.Year(),
			JalaliMonth: month.Month(),
		}
		created, err = s.sheets.Create(ctx, sheet)
		if err != nil {
			return err
		}

		// Past sheets are historical record; only a new sheet or the
		// current, still open month picks up schedule changes.
		if !created && (month != current || sheet.IsFinalized) {
			return nil
		}
		added, err := s.addMissingSessions(ctx, sheet, month)
		if err != nil {
			return err
		}
		if created || added > 0 {
			s.logger.Info("sheet sessions updated",
				zap.Int64("category_id", categoryID),
				zap.Stringer("month", month),
				zap.Int64("sheet_id", sheet.ID),
				zap.Bool("created", created),
				zap.Int("added", added),
			)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get or create sheet %d %s: %w", categoryID, month, err)
	}
	return sheet, created, nil
}

// addMissingSessions inserts a session for every scheduled date of month the
// sheet does not have yet. Numbers continue after the current maximum and
// existing sessions are never renumbered.
func (s *scheduleService) addMissingSessions(ctx context.Context, sheet *models.AttendanceSheet, month jalali.Month) (int, error) {
	schedules, err := s.schedules.ListByCategory(ctx, sheet.CategoryID)
	if err != nil {
		return 0, err
	}
	if len(schedules) == 0 {
		s.logger.Warn("category has no training schedule", zap.Int64("category_id", sheet.CategoryID))
		return 0, nil
	}

	weekdays := make([]jalali.Weekday, 0, len(schedules))
	for _, sc := range schedules {
		weekdays = append(weekdays, sc.Weekday)
	}

	existing, err := s.sessions.ListBySheet(ctx, sheet.ID)
	if err != nil {
		return 0, err
	}
	have := make(map[jalali.Date]bool, len(existing))
	last := 0
	for _, sess := range existing {
		have[sess.JalaliDate()] = true
		last = max(last, sess.SessionNumber)
	}

	added := 0
	for _, d := range month.DaysForWeekdays(weekdays...) {
		if have[d] {
			continue
		}
		sess := &models.SessionDate{
			SheetID:       sheet.ID,
			Date:          d.Time(time.UTC),
			SessionNumber: last + 1,
		}
		ok, err := s.sessions.Create(ctx, sess)
		if err != nil {
			return added, err
		}
		if ok {
			last++
			added++
		}
	}
	return added, nil
}

// SyncCurrentMonth brings every active category's sheet for the month of
// asOf up to date with its schedule.
func (s *scheduleService) SyncCurrentMonth(ctx context.Context, asOf time.Time) (int, error) {
	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	month := jalali.CurrentMonth(asOf)

	var errs error
	synced := 0
	for _, c := range categories {
		if _, _, err := s.GetOrCreateSheet(ctx, c.ID, month, asOf); err != nil {
			s.logger.Error("sheet sync failed", zap.Int64("category_id", c.ID), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		synced++
	}
	return synced, errs
}

func (s *scheduleService) ListSchedules(ctx context.Context, categoryID int64) ([]models.TrainingSchedule, error) {
	return s.schedules.ListByCategory(ctx, categoryID)
}

func (s *scheduleService) AddSchedule(ctx context.Context, sc *models.TrainingSchedule) error {
	if err := s.validate.Struct(sc); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	if !sc.Weekday.Valid() {
		return fmt.Errorf("%w: weekday %d", service.ErrInvalidInput, sc.Weekday)
	}
	if _, err := time.Parse("15:04", sc.StartTime); err != nil {
		return fmt.Errorf("%w: start time %q", service.ErrInvalidInput, sc.StartTime)
	}
	return s.schedules.Create(ctx, sc)
}

func (s *scheduleService) RemoveSchedule(ctx context.Context, id int64) error {
	return s.schedules.Delete(ctx, id)
}
