package invoice_service

import (
	"context"
	"fmt"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"
	"futsal-club/internal/service"
	"futsal-club/pkg/jalali"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type invoiceService struct {
	tx         repository.Transactor
	categories repository.CategoryRepository
	players    repository.PlayerRepository
	invoices   repository.InvoiceRepository
	notifier   service.Notifier
	now        service.Clock
	logger     *zap.Logger
}

func NewInvoiceService(
	tx repository.Transactor,
	categories repository.CategoryRepository,
	players repository.PlayerRepository,
	invoices repository.InvoiceRepository,
	notifier service.Notifier,
	now service.Clock,
	logger *zap.Logger,
) service.InvoiceService {
	return &invoiceService{
		tx:         tx,
		categories: categories,
		players:    players,
		invoices:   invoices,
		notifier:   notifier,
		now:        now,
		logger:     logger.Named("invoice"),
	}
}

func invoiceSubject(id int64) string {
	return fmt.Sprintf("invoice:%d", id)
}

func formatRial(d decimal.Decimal) string {
	return d.StringFixed(0) + " ریال"
}

// GenerateMonthlyInvoices issues one invoice per billable player. Existing
// invoices are counted as skipped and never modified, so reruns are safe.
func (s *invoiceService) GenerateMonthlyInvoices(ctx context.Context, categoryID int64, month jalali.Month) (*service.InvoiceBatch, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %d: %w", categoryID, service.ErrNotFound)
	}
	if !category.IsActive {
		return nil, fmt.Errorf("category %d is inactive: %w", categoryID, service.ErrInvalidState)
	}
	players, err := s.players.ListBillableByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	batch := &service.InvoiceBatch{
		CategoryID:   categoryID,
		CategoryName: category.Name,
		JalaliYear:   month.Year(),
		JalaliMonth:  month.Month(),
	}
	for _, p := range players {
		inv := &models.PlayerInvoice{
			PlayerID:    p.ID,
			CategoryID:  categoryID,
			JalaliYear:  month.Year(),
			JalaliMonth: month.Month(),
			Amount:      category.MonthlyFee,
			Discount:    decimal.Zero,
			Status:      models.InvoicePending,
		}
		created, err := s.invoices.CreateIfAbsent(ctx, inv)
		if err != nil {
			batch.Errors = append(batch.Errors, service.BatchError{
				EntityID: p.ID, Name: p.FullName(), Stage: "create", Reason: err.Error(),
			})
			continue
		}
		if !created {
			batch.Skipped++
			continue
		}
		batch.Created++

		if p.UserID == nil {
			continue
		}
		err = s.notifier.Notify(ctx, &models.Notification{
			RecipientID:     *p.UserID,
			Type:            models.NotifyInvoiceIssued,
			Title:           fmt.Sprintf("صورتحساب %s %d", month.Name(), month.Year()),
			Message:         fmt.Sprintf("شهریه %s برای %s: %s", category.Name, month.Name(), formatRial(inv.FinalAmount)),
			RelatedPlayerID: &p.ID,
			Subject:         invoiceSubject(inv.ID),
		})
		if err != nil {
			batch.Errors = append(batch.Errors, service.BatchError{
				EntityID: p.ID, Name: p.FullName(), Stage: "notify", Reason: err.Error(),
			})
		}
	}

	s.logger.Info("invoices generated",
		zap.Int64("category_id", categoryID),
		zap.String("month", month.String()),
		zap.Int("created", batch.Created),
		zap.Int("skipped", batch.Skipped),
		zap.Int("errors", len(batch.Errors)),
	)
	return batch, nil
}

// GenerateAllCategories runs every active category on its own; a failing
// category is reported and the rest still run.
func (s *invoiceService) GenerateAllCategories(ctx context.Context, month jalali.Month) (*service.InvoiceRun, error) {
	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	run := &service.InvoiceRun{}
	for _, c := range categories {
		batch, err := s.GenerateMonthlyInvoices(ctx, c.ID, month)
		if err != nil {
			s.logger.Error("category invoice run failed", zap.Int64("category_id", c.ID), zap.Error(err))
			run.Failed = append(run.Failed, service.BatchError{
				EntityID: c.ID, Name: c.Name, Stage: "category", Reason: err.Error(),
			})
			continue
		}
		run.Add(*batch)
	}
	return run, nil
}

// Preview counts what a run would do without writing. categoryID 0 means
// every active category.
func (s *invoiceService) Preview(ctx context.Context, month jalali.Month, categoryID int64) ([]service.InvoicePreview, error) {
	var categories []models.TrainingCategory
	if categoryID == 0 {
		var err error
		if categories, err = s.categories.ListActive(ctx); err != nil {
			return nil, err
		}
	} else {
		c, err := s.categories.GetByID(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("category %d: %w", categoryID, service.ErrNotFound)
		}
		if !c.IsActive {
			return nil, fmt.Errorf("category %d is inactive: %w", categoryID, service.ErrInvalidState)
		}
		categories = append(categories, *c)
	}

	out := make([]service.InvoicePreview, 0, len(categories))
	for _, c := range categories {
		players, err := s.players.ListBillableByCategory(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		existing, err := s.invoices.CountByCategoryMonth(ctx, c.ID, month.Year(), month.Month())
		if err != nil {
			return nil, err
		}
		out = append(out, service.InvoicePreview{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			MonthlyFee:   c.MonthlyFee,
			Eligible:     len(players),
			Existing:     existing,
		})
	}
	return out, nil
}

// MarkDebtors moves last month's pending invoices to debtor and tells the players.
func (s *invoiceService) MarkDebtors(ctx context.Context, asOf time.Time) (*service.InvoiceSweep, error) {
	month := jalali.CurrentMonth(asOf).Prev()
	invoices, err := s.invoices.ListByMonth(ctx, month.Year(), month.Month(), models.InvoicePending)
	if err != nil {
		return nil, err
	}

	sweep := &service.InvoiceSweep{JalaliYear: month.Year(), JalaliMonth: month.Month()}
	for _, inv := range invoices {
		sweep.Examined++
		next, err := inv.Status.Apply(models.InvoiceMarkDebtor)
		if err != nil {
			continue
		}
		inv.Status = next
		if err := s.invoices.Update(ctx, &inv); err != nil {
			sweep.Errors = append(sweep.Errors, service.BatchError{
				EntityID: inv.ID, Stage: "update", Reason: err.Error(),
			})
			continue
		}
		sweep.Updated++
		s.remind(ctx, sweep, &inv, month,
			"بدهی شهریه",
			fmt.Sprintf("شهریه %s پرداخت نشده است. مبلغ: %s", month.Name(), formatRial(inv.FinalAmount)))
	}

	s.logger.Info("debtors marked",
		zap.String("month", month.String()),
		zap.Int("examined", sweep.Examined),
		zap.Int("updated", sweep.Updated),
	)
	return sweep, nil
}

// SendPaymentReminders reminds every player with an unpaid invoice for the
// current month. A player who has not read the previous reminder is skipped.
func (s *invoiceService) SendPaymentReminders(ctx context.Context, asOf time.Time) (*service.InvoiceSweep, error) {
	month := jalali.CurrentMonth(asOf)
	invoices, err := s.invoices.ListByMonth(ctx, month.Year(), month.Month(), models.InvoicePending, models.InvoiceDebtor)
	if err != nil {
		return nil, err
	}

	sweep := &service.InvoiceSweep{JalaliYear: month.Year(), JalaliMonth: month.Month()}
	for _, inv := range invoices {
		sweep.Examined++
		s.remind(ctx, sweep, &inv, month,
			"یادآوری پرداخت شهریه",
			fmt.Sprintf("شهریه %s هنوز پرداخت نشده است. مبلغ: %s", month.Name(), formatRial(inv.FinalAmount)))
	}

	s.logger.Info("payment reminders sent",
		zap.String("month", month.String()),
		zap.Int("examined", sweep.Examined),
		zap.Int("notified", sweep.Notified),
		zap.Int("deduplicated", sweep.Deduplicated),
	)
	return sweep, nil
}

func (s *invoiceService) remind(ctx context.Context, sweep *service.InvoiceSweep, inv *models.PlayerInvoice, month jalali.Month, title, message string) {
	p, err := s.players.GetByID(ctx, inv.PlayerID)
	if err != nil {
		sweep.Errors = append(sweep.Errors, service.BatchError{EntityID: inv.PlayerID, Stage: "notify", Reason: err.Error()})
		return
	}
	if p == nil || p.UserID == nil {
		return
	}
	sent, err := s.notifier.NotifyOnce(ctx, &models.Notification{
		RecipientID:     *p.UserID,
		Type:            models.NotifyPaymentReminder,
		Title:           title,
		Message:         message,
		RelatedPlayerID: &p.ID,
		Subject:         invoiceSubject(inv.ID),
	})
	switch {
	case err != nil:
		sweep.Errors = append(sweep.Errors, service.BatchError{
			EntityID: p.ID, Name: p.FullName(), Stage: "notify", Reason: err.Error(),
		})
	case sent:
		sweep.Notified++
	default:
		sweep.Deduplicated++
	}
}

func (s *invoiceService) ApplyDiscount(ctx context.Context, invoiceID int64, discount decimal.Decimal) (*models.PlayerInvoice, error) {
	return s.update(ctx, invoiceID, models.InvoiceDiscount, func(inv *models.PlayerInvoice) {
		inv.Discount = discount
	})
}

func (s *invoiceService) SubmitReceipt(ctx context.Context, invoiceID int64, receiptRef string) (*models.PlayerInvoice, error) {
	if receiptRef == "" {
		return nil, fmt.Errorf("%w: empty receipt reference", service.ErrInvalidInput)
	}
	inv, err := s.update(ctx, invoiceID, models.InvoiceSubmitReceipt, func(inv *models.PlayerInvoice) {
		inv.ReceiptRef = receiptRef
	})
	if err != nil {
		return nil, err
	}

	month := jalali.MustMonth(inv.JalaliYear, inv.JalaliMonth)
	err = s.notifier.NotifyFinanceManagers(ctx, models.Notification{
		Type:            models.NotifyReceiptUploaded,
		Title:           "رسید پرداخت جدید",
		Message:         fmt.Sprintf("رسید شهریه %s %d برای صورتحساب %d ثبت شد", month.Name(), month.Year(), inv.ID),
		RelatedPlayerID: &inv.PlayerID,
		Subject:         invoiceSubject(inv.ID),
	})
	if err != nil {
		s.logger.Warn("notify finance managers", zap.Int64("invoice_id", inv.ID), zap.Error(err))
	}
	return inv, nil
}

func (s *invoiceService) ConfirmPayment(ctx context.Context, invoiceID, by int64) (*models.PlayerInvoice, error) {
	inv, err := s.update(ctx, invoiceID, models.InvoiceConfirmPay, func(inv *models.PlayerInvoice) {
		at := s.now()
		inv.PaidAt = &at
		inv.ConfirmedBy = &by
	})
	if err != nil {
		return nil, err
	}

	if p, err := s.players.GetByID(ctx, inv.PlayerID); err != nil {
		s.logger.Warn("load player", zap.Int64("player_id", inv.PlayerID), zap.Error(err))
	} else if p != nil && p.UserID != nil {
		err := s.notifier.Notify(ctx, &models.Notification{
			RecipientID:     *p.UserID,
			Type:            models.NotifyInvoicePaid,
			Title:           "پرداخت تایید شد",
			Message:         fmt.Sprintf("پرداخت %s تایید شد", formatRial(inv.FinalAmount)),
			RelatedPlayerID: &p.ID,
			Subject:         invoiceSubject(inv.ID),
		})
		if err != nil {
			s.logger.Warn("notify player", zap.Int64("player_id", p.ID), zap.Error(err))
		}
	}
	return inv, nil
}

func (s *invoiceService) update(ctx context.Context, invoiceID int64, action models.InvoiceAction, apply func(*models.PlayerInvoice)) (*models.PlayerInvoice, error) {
	var inv *models.PlayerInvoice
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return fmt.Errorf("invoice %d: %w", invoiceID, service.ErrNotFound)
		}
		next, err := inv.Status.Apply(action)
		if err != nil {
			return err
		}
		inv.Status = next
		apply(inv)
		return s.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invoice updated",
		zap.Int64("invoice_id", invoiceID),
		zap.String("action", string(action)),
		zap.String("status", string(inv.Status)),
	)
	return inv, nil
}
