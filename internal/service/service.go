package service

import (
	"context"
	"time"

	"futsal-club/internal/models"
	"futsal-club/pkg/jalali"

	"github.com/shopspring/decimal"
)

// Clock supplies attribution timestamps (finalized_at, paid_at, ...).
// Month and day decisions take an explicit asOf instead.
type Clock func() time.Time

type ScheduleService interface {
	// GetOrCreateSheet returns the category's sheet for month. Future months
	// are never created; the sheet is nil when none exists yet.
	GetOrCreateSheet(ctx context.Context, categoryID int64, month jalali.Month, asOf time.Time) (*models.AttendanceSheet, bool, error)
	SyncCurrentMonth(ctx context.Context, asOf time.Time) (int, error)
	ListSchedules(ctx context.Context, categoryID int64) ([]models.TrainingSchedule, error)
	AddSchedule(ctx context.Context, schedule *models.TrainingSchedule) error
	RemoveSchedule(ctx context.Context, id int64) error
}

type AttendanceService interface {
	RecordAttendance(ctx context.Context, sessionID int64, kind models.EntityKind, entries []models.AttendanceEntry, recordedBy int64) ([]models.AttendanceRecord, error)
	RecordFullSession(ctx context.Context, sessionID int64, players, coaches []models.AttendanceEntry, recordedBy int64) (*SessionRecords, error)
	BuildAttendanceMatrix(ctx context.Context, categoryID int64, month jalali.Month, asOf time.Time) (*AttendanceMatrix, error)
	FinalizeSheet(ctx context.Context, sheetID, by int64) (*models.AttendanceSheet, error)
	PlayerMonthlyStats(ctx context.Context, playerID int64, month jalali.Month) ([]MonthlyStats, error)
}

type PayrollService interface {
	CalculateSalary(ctx context.Context, coachID, categoryID int64, month jalali.Month, adjustment decimal.Decimal, reason string) (*SalaryBreakdown, error)
	CommitSalary(ctx context.Context, breakdown *SalaryBreakdown, processedBy int64) (*models.CoachSalary, error)
	CalculateAllForCategory(ctx context.Context, categoryID int64, month jalali.Month) (*PayrollBatch, error)
	CommitAllForCategory(ctx context.Context, categoryID int64, month jalali.Month, processedBy int64) (*PayrollBatch, error)
	Approve(ctx context.Context, salaryID, by int64) (*models.CoachSalary, error)
	MarkPaid(ctx context.Context, salaryID, by int64) (*models.CoachSalary, error)
	Confirm(ctx context.Context, salaryID, by int64) (*models.CoachSalary, error)
	// Dispute leaves the salary paid and alerts every finance manager. Since
	// the alert is its only effect, a notification failure is returned even
	// though the dispute itself was already logged.
	Dispute(ctx context.Context, salaryID, by int64, reason string) error
}

type InvoiceService interface {
	GenerateMonthlyInvoices(ctx context.Context, categoryID int64, month jalali.Month) (*InvoiceBatch, error)
	GenerateAllCategories(ctx context.Context, month jalali.Month) (*InvoiceRun, error)
	Preview(ctx context.Context, month jalali.Month, categoryID int64) ([]InvoicePreview, error)
	MarkDebtors(ctx context.Context, asOf time.Time) (*InvoiceSweep, error)
	SendPaymentReminders(ctx context.Context, asOf time.Time) (*InvoiceSweep, error)
	ApplyDiscount(ctx context.Context, invoiceID int64, discount decimal.Decimal) (*models.PlayerInvoice, error)
	SubmitReceipt(ctx context.Context, invoiceID int64, receiptRef string) (*models.PlayerInvoice, error)
	ConfirmPayment(ctx context.Context, invoiceID, by int64) (*models.PlayerInvoice, error)
}

type InsuranceService interface {
	CheckInsuranceExpiry(ctx context.Context, asOf time.Time, thresholdDays int) (*SweepResult, error)
}

// Notifier persists notifications and hands them to delivery channels.
// Delivery is asynchronous; only persistence errors are returned.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
	// NotifyOnce skips when the recipient still has an unread notification
	// with the same type and subject.
	NotifyOnce(ctx context.Context, n *models.Notification) (bool, error)
	NotifyFinanceManagers(ctx context.Context, n models.Notification) error
	ListUnread(ctx context.Context, recipientID int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	// Close waits for in-flight deliveries or until ctx is done.
	Close(ctx context.Context) error
}
