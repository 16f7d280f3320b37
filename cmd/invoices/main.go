// Command invoices generates (or previews) monthly player invoices outside
// the scheduler, e.g. to backfill a month.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futsal-club/internal/mail"
	"futsal-club/internal/models/config"
	"futsal-club/internal/repository"
	"futsal-club/internal/repository/category"
	"futsal-club/internal/repository/invoice"
	"futsal-club/internal/repository/notification"
	"futsal-club/internal/repository/player"
	"futsal-club/internal/repository/user"
	invoice_service "futsal-club/internal/service/invoice"
	notification_service "futsal-club/internal/service/notification"
	database "futsal-club/pkg"
	"futsal-club/pkg/jalali"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "invoices:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		year       = flag.Int("year", 0, "Jalali year (default: current)")
		month      = flag.Int("month", 0, "Jalali month 1-12 (default: current)")
		categoryID = flag.Int64("category", 0, "category id (default: all active categories)")
		dryRun     = flag.Bool("dry-run", false, "only report what would be created")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Store != config.StorePostgres {
		return fmt.Errorf("STORE=%s: invoices can only be generated against postgres", cfg.Store)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	target := jalali.CurrentMonth(time.Now().In(cfg.Location))
	if *year != 0 || *month != 0 {
		if target, err = jalali.NewMonth(*year, *month); err != nil {
			return fmt.Errorf("-year/-month: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	now := func() time.Time { return time.Now().In(cfg.Location) }
	var channels []notification_service.Channel
	if cfg.Mail.APIKey != "" {
		channels = append(channels, mail.NewMailer(cfg.Mail, logger))
	}
	notifier := notification_service.NewNotificationService(
		notification.NewNotificationRepository(db), user.NewUserRepository(db), channels, now, logger)
	svc := invoice_service.NewInvoiceService(
		repository.NewTransactor(db),
		category.NewCategoryRepository(db),
		player.NewPlayerRepository(db),
		invoice.NewInvoiceRepository(db),
		notifier, now, logger,
	)

	logger.Info("invoice run", zap.Stringer("month", target), zap.Int64("category", *categoryID), zap.Bool("dry_run", *dryRun))

	var result any
	switch {
	case *dryRun:
		result, err = svc.Preview(ctx, target, *categoryID)
	case *categoryID != 0:
		result, err = svc.GenerateMonthlyInvoices(ctx, *categoryID, target)
	default:
		result, err = svc.GenerateAllCategories(ctx, target)
	}
	if err != nil {
		return err
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := notifier.Close(closeCtx); err != nil {
		logger.Warn("pending deliveries abandoned", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
