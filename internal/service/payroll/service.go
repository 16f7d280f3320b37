package payroll_service

import (
	"context"
	"errors"
	"fmt"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"
	"futsal-club/internal/service"
	"futsal-club/pkg/jalali"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type payrollService struct {
	tx         repository.Transactor
	categories repository.CategoryRepository
	coaches    repository.CoachRepository
	rates      repository.RateRepository
	sheets     repository.SheetRepository
	sessions   repository.SessionRepository
	attendance repository.AttendanceRepository
	salaries   repository.SalaryRepository
	notifier   service.Notifier
	now        service.Clock
	logger     *zap.Logger
}

func NewPayrollService(
	tx repository.Transactor,
	categories repository.CategoryRepository,
	coaches repository.CoachRepository,
	rates repository.RateRepository,
	sheets repository.SheetRepository,
	sessions repository.SessionRepository,
	attendance repository.AttendanceRepository,
	salaries repository.SalaryRepository,
	notifier service.Notifier,
	now service.Clock,
	logger *zap.Logger,
) service.PayrollService {
	return &payrollService{
		tx:         tx,
		categories: categories,
		coaches:    coaches,
		rates:      rates,
		sheets:     sheets,
		sessions:   sessions,
		attendance: attendance,
		salaries:   salaries,
		notifier:   notifier,
		now:        now,
		logger:     logger.Named("payroll"),
	}
}

// CalculateSalary computes a breakdown from the coach's attendance on the
// category's sheet. Nothing is written.
func (s *payrollService) CalculateSalary(ctx context.Context, coachID, categoryID int64, month jalali.Month, adjustment decimal.Decimal, reason string) (*service.SalaryBreakdown, error) {
	coach, err := s.coaches.GetByID(ctx, coachID)
	if err != nil {
		return nil, err
	}
	if coach == nil {
		return nil, fmt.Errorf("coach %d: %w", coachID, service.ErrNotFound)
	}

	rate, err := s.rates.GetActive(ctx, coachID, categoryID)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, fmt.Errorf("coach %d, category %d: %w", coachID, categoryID, service.ErrRateNotDefined)
	}

	sheet, err := s.sheets.Get(ctx, categoryID, month.Year(), month.Month())
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, fmt.Errorf("category %d, %s: %w", categoryID, month, service.ErrSheetNotFound)
	}

	sessions, err := s.sessions.ListBySheet(ctx, sheet.ID)
	if err != nil {
		return nil, err
	}
	counts, err := s.attendance.CountByStatus(ctx, models.KindCoach, sheet.ID, coachID)
	if err != nil {
		return nil, err
	}

	b := &service.SalaryBreakdown{
		CoachID:          coachID,
		CoachName:        coach.FullName(),
		CategoryID:       categoryID,
		SheetID:          sheet.ID,
		JalaliYear:       month.Year(),
		JalaliMonth:      month.Month(),
		SessionsTotal:    len(sessions),
		SessionsAttended: counts[models.StatusPresent],
		SessionsExcused:  counts[models.StatusExcused],
		SessionRate:      rate.SessionRate,
		Adjustment:       adjustment,
		AdjustmentReason: reason,
	}
	// Recorded rows can outnumber sessions only if data is inconsistent.
	b.SessionsAbsent = max(b.SessionsTotal-b.SessionsAttended-b.SessionsExcused, 0)
	b.BaseAmount = b.SessionRate.Mul(decimal.NewFromInt(int64(b.SessionsAttended)))
	b.FinalAmount = b.BaseAmount.Add(b.Adjustment)
	return b, nil
}

// CommitSalary upserts the salary for (coach, category, sheet). Committing
// again resets an approved salary to calculated; paid ones are refused.
func (s *payrollService) CommitSalary(ctx context.Context, b *service.SalaryBreakdown, processedBy int64) (*models.CoachSalary, error) {
	if b == nil || b.CoachID == 0 || b.CategoryID == 0 || b.SheetID == 0 {
		return nil, fmt.Errorf("%w: incomplete salary breakdown", service.ErrInvalidInput)
	}
	month, err := jalali.NewMonth(b.JalaliYear, b.JalaliMonth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}

	salary := &models.CoachSalary{
		CoachID:          b.CoachID,
		CategoryID:       b.CategoryID,
		SheetID:          b.SheetID,
		SessionsAttended: b.SessionsAttended,
		SessionRate:      b.SessionRate,
		ManualAdjustment: b.Adjustment,
		AdjustmentReason: b.AdjustmentReason,
		Status:           models.SalaryCalculated,
		ProcessedBy:      &processedBy,
	}
	if err := salary.Recompute(); err != nil {
		return nil, fmt.Errorf("coach %d: %w", b.CoachID, err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.salaries.Get(ctx, b.CoachID, b.CategoryID, b.SheetID)
		if err != nil {
			return err
		}
		if existing != nil {
			if _, err := existing.Status.Apply(models.SalaryRecalculate); err != nil {
				return err
			}
		}
		return s.salaries.Upsert(ctx, salary)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("salary committed",
		zap.Int64("salary_id", salary.ID),
		zap.Int64("coach_id", salary.CoachID),
		zap.Int64("category_id", salary.CategoryID),
		zap.String("final_amount", salary.FinalAmount.String()),
	)
	s.notifyCoach(ctx, salary, models.NotifySalaryReady,
		"حقوق "+month.Name()+" محاسبه شد",
		fmt.Sprintf("حقوق %s %d: %d جلسه، مبلغ نهایی %s ریال", month.Name(), month.Year(), salary.SessionsAttended, salary.FinalAmount.StringFixed(0)))
	return salary, nil
}

func (s *payrollService) CalculateAllForCategory(ctx context.Context, categoryID int64, month jalali.Month) (*service.PayrollBatch, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %d: %w", categoryID, service.ErrNotFound)
	}
	sheet, err := s.sheets.Get(ctx, categoryID, month.Year(), month.Month())
	if err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, fmt.Errorf("category %d, %s: %w", categoryID, month, service.ErrSheetNotFound)
	}

	coaches, err := s.coaches.ListWithActiveRate(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	batch := &service.PayrollBatch{CategoryID: categoryID, Breakdowns: []service.SalaryBreakdown{}}
	for _, c := range coaches {
		b, err := s.CalculateSalary(ctx, c.ID, categoryID, month, decimal.Zero, "")
		switch {
		case errors.Is(err, service.ErrRateNotDefined):
			s.logger.Warn("coach skipped, no active rate",
				zap.Int64("coach_id", c.ID), zap.Int64("category_id", categoryID))
			batch.Skipped = append(batch.Skipped, service.BatchError{
				EntityID: c.ID, Name: c.FullName(), Stage: "calculate", Reason: err.Error(),
			})
		case err != nil:
			batch.Errors = append(batch.Errors, service.BatchError{
				EntityID: c.ID, Name: c.FullName(), Stage: "calculate", Reason: err.Error(),
			})
		default:
			batch.Breakdowns = append(batch.Breakdowns, *b)
		}
	}
	return batch, nil
}

// CommitAllForCategory calculates and commits every coach of the category.
// Each coach commits in its own transaction.
func (s *payrollService) CommitAllForCategory(ctx context.Context, categoryID int64, month jalali.Month, processedBy int64) (*service.PayrollBatch, error) {
	batch, err := s.CalculateAllForCategory(ctx, categoryID, month)
	if err != nil {
		return nil, err
	}
	for i := range batch.Breakdowns {
		b := &batch.Breakdowns[i]
		if _, err := s.CommitSalary(ctx, b, processedBy); err != nil {
			batch.Errors = append(batch.Errors, service.BatchError{
				EntityID: b.CoachID, Name: b.CoachName, Stage: "commit", Reason: err.Error(),
			})
			continue
		}
		batch.Committed++
	}

	s.logger.Info("payroll committed",
		zap.Int64("category_id", categoryID),
		zap.String("month", month.String()),
		zap.Int("committed", batch.Committed),
		zap.Int("skipped", len(batch.Skipped)),
		zap.Int("errors", len(batch.Errors)),
	)
	return batch, nil
}

func (s *payrollService) Approve(ctx context.Context, salaryID, by int64) (*models.CoachSalary, error) {
	return s.transition(ctx, salaryID, models.SalaryApprove, func(sal *models.CoachSalary) {
		sal.ProcessedBy = &by
	})
}

func (s *payrollService) MarkPaid(ctx context.Context, salaryID, by int64) (*models.CoachSalary, error) {
	sal, err := s.transition(ctx, salaryID, models.SalaryMarkPaid, func(sal *models.CoachSalary) {
		at := s.now()
		sal.PaidAt = &at
		sal.ProcessedBy = &by
	})
	if err != nil {
		return nil, err
	}
	s.notifyCoach(ctx, sal, models.NotifySalaryPaid, "حقوق پرداخت شد",
		fmt.Sprintf("مبلغ %s ریال پرداخت شد. لطفا دریافت را تایید کنید.", sal.FinalAmount.StringFixed(0)))
	return sal, nil
}

// Confirm is the coach acknowledging receipt.
func (s *payrollService) Confirm(ctx context.Context, salaryID, by int64) (*models.CoachSalary, error) {
	return s.transition(ctx, salaryID, models.SalaryConfirm, func(sal *models.CoachSalary) {
		at := s.now()
		sal.CoachConfirmedAt = &at
	})
}

// Dispute leaves the salary as it is and alerts finance managers. Repeated
// disputes are allowed and do not block Confirm.
func (s *payrollService) Dispute(ctx context.Context, salaryID, by int64, reason string) error {
	sal, err := s.salaries.GetByID(ctx, salaryID)
	if err != nil {
		return err
	}
	if sal == nil {
		return fmt.Errorf("salary %d: %w", salaryID, service.ErrNotFound)
	}
	if _, err := sal.Status.Apply(models.SalaryDispute); err != nil {
		return err
	}

	name := fmt.Sprintf("#%d", sal.CoachID)
	if c, err := s.coaches.GetByID(ctx, sal.CoachID); err == nil && c != nil {
		name = c.FullName()
	}
	s.logger.Info("salary disputed", zap.Int64("salary_id", salaryID), zap.Int64("by", by))
	err = s.notifier.NotifyFinanceManagers(ctx, models.Notification{
		Type:    models.NotifySalaryDispute,
		Title:   "اعتراض به حقوق",
		Message: fmt.Sprintf("مربی %s به حقوق شماره %d اعتراض کرد: %s", name, salaryID, reason),
		Subject: fmt.Sprintf("salary:%d", salaryID),
	})
	if err != nil {
		return fmt.Errorf("notify finance managers: %w", err)
	}
	return nil
}

func (s *payrollService) transition(ctx context.Context, salaryID int64, action models.SalaryAction, apply func(*models.CoachSalary)) (*models.CoachSalary, error) {
	var sal *models.CoachSalary
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		sal, err = s.salaries.Lock(ctx, salaryID)
		if err != nil {
			return err
		}
		if sal == nil {
			return fmt.Errorf("salary %d: %w", salaryID, service.ErrNotFound)
		}
		from := sal.Status
		next, err := from.Apply(action)
		if err != nil {
			return err
		}
		sal.Status = next
		apply(sal)
		return s.salaries.UpdateStatus(ctx, sal, from)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("salary status changed",
		zap.Int64("salary_id", salaryID),
		zap.String("action", string(action)),
		zap.String("status", string(sal.Status)),
	)
	return sal, nil
}

// notifyCoach is best effort: failures are logged and never returned.
func (s *payrollService) notifyCoach(ctx context.Context, sal *models.CoachSalary, typ models.NotificationType, title, message string) {
	log := s.logger.With(zap.Int64("coach_id", sal.CoachID), zap.Int64("salary_id", sal.ID))
	coach, err := s.coaches.GetByID(ctx, sal.CoachID)
	if err != nil {
		log.Warn("load coach for notification", zap.Error(err))
		return
	}
	if coach == nil || coach.UserID == nil {
		log.Debug("coach has no user account, notification skipped")
		return
	}
	err = s.notifier.Notify(ctx, &models.Notification{
		RecipientID: *coach.UserID,
		Type:        typ,
		Title:       title,
		Message:     message,
		Subject:     fmt.Sprintf("salary:%d", sal.ID),
	})
	if err != nil {
		log.Warn("notify coach", zap.Error(err))
	}
}
