// Package scheduler runs the club's periodic jobs on Tehran wall-clock time.
// Monthly jobs fire daily and check the Jalali day themselves, since cron
// only knows the Gregorian calendar.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"futsal-club/internal/models/config"
	"futsal-club/internal/service"
	"futsal-club/pkg/jalali"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 10 * time.Minute

type Job struct {
	Name string
	Spec string
	// Day limits the job to one Jalali day of month; 0 means every day.
	Day int
	Run func(ctx context.Context, asOf time.Time) error
}

// DueOn reports whether the job should do its work at asOf.
func (j Job) DueOn(asOf time.Time) bool {
	return j.Day == 0 || jalali.FromTime(asOf).Day == j.Day
}

type Scheduler struct {
	cron   *cron.Cron
	loc    *time.Location
	now    service.Clock
	jobs   []Job
	logger *zap.Logger
}

func New(
	cfg *config.Config,
	schedules service.ScheduleService,
	invoices service.InvoiceService,
	insurance service.InsuranceService,
	now service.Clock,
	logger *zap.Logger,
) *Scheduler {
	logger = logger.Named("scheduler")
	cronLog := cron.PrintfLogger(zap.NewStdLog(logger))
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		loc:    cfg.Location,
		now:    now,
		logger: logger,
	}
	s.jobs = clubJobs(cfg.Jobs, schedules, invoices, insurance, logger)
	return s
}

func clubJobs(cfg config.JobsConfig, schedules service.ScheduleService, invoices service.InvoiceService, insurance service.InsuranceService, logger *zap.Logger) []Job {
	return []Job{
		{
			Name: "sync-sheets",
			Spec: "0 5 * * *",
			Run: func(ctx context.Context, asOf time.Time) error {
				n, err := schedules.SyncCurrentMonth(ctx, asOf)
				logger.Info("sheets synced", zap.Int("categories", n))
				return err
			},
		},
		{
			Name: "monthly-invoices",
			Spec: "0 6 * * *",
			Day:  cfg.InvoiceDay,
			Run: func(ctx context.Context, asOf time.Time) error {
				run, err := invoices.GenerateAllCategories(ctx, jalali.CurrentMonth(asOf))
				if err != nil {
					return err
				}
				if n := run.ErrorCount(); n > 0 {
					logger.Warn("invoice run finished with errors", zap.Int("created", run.Created), zap.Int("errors", n))
				}
				return nil
			},
		},
		{
			Name: "insurance-expiry",
			Spec: "0 7 * * *",
			Run: func(ctx context.Context, asOf time.Time) error {
				_, err := insurance.CheckInsuranceExpiry(ctx, asOf, cfg.InsuranceThresholdDays)
				return err
			},
		},
		{
			Name: "mark-debtors",
			Spec: "0 8 * * *",
			Day:  cfg.DebtorDay,
			Run: func(ctx context.Context, asOf time.Time) error {
				_, err := invoices.MarkDebtors(ctx, asOf)
				return err
			},
		},
		{
			Name: "payment-reminders",
			Spec: "0 9 * * *",
			Day:  cfg.ReminderDay,
			Run: func(ctx context.Context, asOf time.Time) error {
				_, err := invoices.SendPaymentReminders(ctx, asOf)
				return err
			},
		},
	}
}

func (s *Scheduler) Jobs() []Job { return s.jobs }

// Register adds every job to the cron table.
func (s *Scheduler) Register() error {
	for _, job := range s.jobs {
		if _, err := s.cron.AddFunc(job.Spec, func() {
			_, _ = s.RunJob(context.Background(), job, s.now().In(s.loc))
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name, err)
		}
	}
	return nil
}

// RunJob runs job for asOf unless it is not due that day. It reports
// whether the job ran.
func (s *Scheduler) RunJob(ctx context.Context, job Job, asOf time.Time) (bool, error) {
	log := s.logger.With(
		zap.String("job", job.Name),
		zap.String("run_id", uuid.NewString()),
		zap.Stringer("jalali_date", jalali.FromTime(asOf)),
	)
	if !job.DueOn(asOf) {
		log.Debug("job not due today", zap.Int("day", job.Day))
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	log.Info("job started")
	if err := job.Run(ctx, asOf); err != nil {
		log.Error("job failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		return true, err
	}
	log.Info("job finished", zap.Duration("took", time.Since(start)))
	return true, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop stops scheduling and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
