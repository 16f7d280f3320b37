package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"futsal-club/internal/bot"
	"futsal-club/internal/mail"
	"futsal-club/internal/models/config"
	"futsal-club/internal/repository"
	"futsal-club/internal/repository/attendance"
	"futsal-club/internal/repository/category"
	"futsal-club/internal/repository/coach"
	"futsal-club/internal/repository/invoice"
	"futsal-club/internal/repository/memstore"
	"futsal-club/internal/repository/notification"
	"futsal-club/internal/repository/player"
	"futsal-club/internal/repository/rate"
	"futsal-club/internal/repository/salary"
	"futsal-club/internal/repository/schedule"
	"futsal-club/internal/repository/sheet"
	"futsal-club/internal/repository/user"
	"futsal-club/internal/scheduler"
	"futsal-club/internal/service"
	attendance_service "futsal-club/internal/service/attendance"
	insurance_service "futsal-club/internal/service/insurance"
	invoice_service "futsal-club/internal/service/invoice"
	notification_service "futsal-club/internal/service/notification"
	payroll_service "futsal-club/internal/service/payroll"
	schedule_service "futsal-club/internal/service/schedule"
	"futsal-club/internal/web"
	database "futsal-club/pkg"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	fx.New(
		fx.Supply(cfg),
		storage(cfg),
		fx.Provide(
			newLogger,
			newClock,
			func() *validator.Validate { return validator.New() },

			newChannels,
			notification_service.NewNotificationService,
			schedule_service.NewScheduleService,
			attendance_service.NewAttendanceService,
			payroll_service.NewPayrollService,
			invoice_service.NewInvoiceService,
			insurance_service.NewInsuranceService,

			scheduler.New,
			web.NewHandler,
			web.NewServer,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(
			registerNotifier,
			registerHTTP,
			registerBot,
			registerJobs,
		),
	).Run()
}

// storage provides the transactor and every repository for the configured
// backend. It comes first so its stop hooks run last.
func storage(cfg *config.Config) fx.Option {
	if cfg.Store == config.StoreMemory {
		return fx.Options(
			fx.Provide(
				memstore.New,
				func(s *memstore.Store) repository.Transactor { return s },
				(*memstore.Store).Users,
				(*memstore.Store).Categories,
				(*memstore.Store).Schedules,
				(*memstore.Store).Sheets,
				(*memstore.Store).Sessions,
				(*memstore.Store).Attendance,
				(*memstore.Store).Players,
				(*memstore.Store).Coaches,
				(*memstore.Store).Rates,
				(*memstore.Store).Salaries,
				(*memstore.Store).Invoices,
				(*memstore.Store).Notifications,
			),
			fx.Invoke(func(logger *zap.Logger) {
				logger.Warn("using in-memory store, data is lost on exit")
			}),
		)
	}
	return fx.Options(
		fx.Provide(
			newDB,
			repository.NewTransactor,
			user.NewUserRepository,
			category.NewCategoryRepository,
			schedule.NewScheduleRepository,
			sheet.NewSheetRepository,
			sheet.NewSessionRepository,
			attendance.NewAttendanceRepository,
			player.NewPlayerRepository,
			coach.NewCoachRepository,
			rate.NewRateRepository,
			salary.NewSalaryRepository,
			invoice.NewInvoiceRepository,
			notification.NewNotificationRepository,
		),
		fx.Invoke(registerDatabase),
	)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newDB(cfg *config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	return database.NewPostgres(cfg.Database, logger)
}

func newClock(cfg *config.Config) service.Clock {
	return func() time.Time { return time.Now().In(cfg.Location) }
}

type channelsOut struct {
	fx.Out

	Channels []notification_service.Channel
	Bot      *bot.Bot
}

// newChannels builds the delivery channels that are configured. A missing
// bot token or mail key disables that channel only.
func newChannels(cfg *config.Config, users repository.UserRepository, notifications repository.NotificationRepository, now service.Clock, logger *zap.Logger) (channelsOut, error) {
	var out channelsOut
	if cfg.Bot.Token != "" {
		tg, err := bot.NewBot(cfg.Bot, users, notifications, now, logger)
		if err != nil {
			return out, err
		}
		out.Bot = tg
		out.Channels = append(out.Channels, tg)
	} else {
		logger.Warn("BOT_TOKEN is empty, telegram delivery disabled")
	}
	if cfg.Mail.APIKey != "" {
		out.Channels = append(out.Channels, mail.NewMailer(cfg.Mail, logger))
	} else {
		logger.Warn("RESEND_API_KEY is empty, email delivery disabled")
	}
	return out, nil
}

func registerDatabase(lc fx.Lifecycle, db *sqlx.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := database.Migrate(ctx, db); err != nil {
				return err
			}
			logger.Info("schema applied")
			return nil
		},
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
}

// Registered before the producers so it stops after them.
func registerNotifier(lc fx.Lifecycle, notifier service.Notifier) {
	lc.Append(fx.Hook{
		OnStop: notifier.Close,
	})
}

func registerHTTP(lc fx.Lifecycle, srv *http.Server, shutdowner fx.Shutdowner, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
}

func registerBot(lc fx.Lifecycle, tg *bot.Bot, logger *zap.Logger) {
	if tg == nil {
		return
	}
	var cancel context.CancelFunc
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				if err := tg.Start(ctx); err != nil {
					logger.Error("telegram bot stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func registerJobs(lc fx.Lifecycle, cfg *config.Config, jobs *scheduler.Scheduler, logger *zap.Logger) error {
	if !cfg.Jobs.Enabled {
		logger.Info("periodic jobs disabled")
		return nil
	}
	if err := jobs.Register(); err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			jobs.Start()
			return nil
		},
		OnStop: jobs.Stop,
	})
	return nil
}
