package repository

import (
	"context"
	"time"

	"futsal-club/internal/models"
)

// Getters return (nil, nil) when the row does not exist.

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	LinkTelegram(ctx context.Context, userID, telegramID int64) error
	ListTechnicalDirectors(ctx context.Context) ([]models.User, error)
	ListFinanceManagers(ctx context.Context) ([]models.User, error)
}

type CategoryRepository interface {
	GetByID(ctx context.Context, id int64) (*models.TrainingCategory, error)
	ListActive(ctx context.Context) ([]models.TrainingCategory, error)
	Create(ctx context.Context, category *models.TrainingCategory) error
}

type ScheduleRepository interface {
	ListByCategory(ctx context.Context, categoryID int64) ([]models.TrainingSchedule, error)
	Create(ctx context.Context, schedule *models.TrainingSchedule) error
	Delete(ctx context.Context, id int64) error
}

type SheetRepository interface {
	Get(ctx context.Context, categoryID int64, year, month int) (*models.AttendanceSheet, error)
	GetByID(ctx context.Context, id int64) (*models.AttendanceSheet, error)
	// Lock reads the sheet and holds a row lock until the surrounding transaction ends.
	Lock(ctx context.Context, id int64) (*models.AttendanceSheet, error)
	// Create inserts the sheet, or loads the existing one for the same
	// (category, year, month) into sheet and reports created = false.
	Create(ctx context.Context, sheet *models.AttendanceSheet) (created bool, err error)
	// Finalize flips the flag only when it is still unset.
	Finalize(ctx context.Context, id int64, at time.Time, by int64) (bool, error)
}

type SessionRepository interface {
	GetByID(ctx context.Context, id int64) (*models.SessionDate, error)
	// ListBySheet returns sessions ordered by date.
	ListBySheet(ctx context.Context, sheetID int64) ([]models.SessionDate, error)
	// Create is a no-op returning false when the sheet already has the date.
	Create(ctx context.Context, session *models.SessionDate) (bool, error)
}

type AttendanceRepository interface {
	Upsert(ctx context.Context, kind models.EntityKind, record *models.AttendanceRecord) error
	ListBySessions(ctx context.Context, kind models.EntityKind, sessionIDs []int64) ([]models.AttendanceRecord, error)
	// CountByStatus counts recorded statuses of one entity over a sheet's sessions.
	CountByStatus(ctx context.Context, kind models.EntityKind, sheetID, entityID int64) (map[models.AttendanceStatus]int, error)
}

type PlayerRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Player, error)
	Create(ctx context.Context, player *models.Player) error
	AddToCategory(ctx context.Context, categoryID, playerID int64) error
	// ListBillableByCategory returns approved, non-archived players ordered by last then first name.
	ListBillableByCategory(ctx context.Context, categoryID int64) ([]models.Player, error)
	ListWithActiveInsurance(ctx context.Context) ([]models.Player, error)
	ListCategoryIDs(ctx context.Context, playerID int64) ([]int64, error)
}

type CoachRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Coach, error)
	Create(ctx context.Context, coach *models.Coach) error
	// ListWithActiveRate returns active coaches holding an active rate in the
	// category, ordered by last then first name.
	ListWithActiveRate(ctx context.Context, categoryID int64) ([]models.Coach, error)
	ListByCategories(ctx context.Context, categoryIDs []int64) ([]models.Coach, error)
}

type RateRepository interface {
	GetActive(ctx context.Context, coachID, categoryID int64) (*models.CoachCategoryRate, error)
	Upsert(ctx context.Context, rate *models.CoachCategoryRate) error
}

type SalaryRepository interface {
	GetByID(ctx context.Context, id int64) (*models.CoachSalary, error)
	// Lock reads the salary and holds its row until the transaction ends.
	Lock(ctx context.Context, id int64) (*models.CoachSalary, error)
	Get(ctx context.Context, coachID, categoryID, sheetID int64) (*models.CoachSalary, error)
	// Upsert fails with models.ErrInvalidState when the stored salary is
	// already paid or confirmed.
	Upsert(ctx context.Context, salary *models.CoachSalary) error
	// UpdateStatus writes only if the stored status is still from;
	// otherwise it fails with models.ErrInvalidState.
	UpdateStatus(ctx context.Context, salary *models.CoachSalary, from models.SalaryStatus) error
}

type InvoiceRepository interface {
	GetByID(ctx context.Context, id int64) (*models.PlayerInvoice, error)
	// CreateIfAbsent never touches an existing invoice for the same
	// (player, category, year, month).
	CreateIfAbsent(ctx context.Context, invoice *models.PlayerInvoice) (bool, error)
	Update(ctx context.Context, invoice *models.PlayerInvoice) error
	ListByMonth(ctx context.Context, year, month int, statuses ...models.InvoiceStatus) ([]models.PlayerInvoice, error)
	CountByCategoryMonth(ctx context.Context, categoryID int64, year, month int) (int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ExistsUnread(ctx context.Context, recipientID int64, typ models.NotificationType, subject string) (bool, error)
	ListUnread(ctx context.Context, recipientID int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id int64, at time.Time) error
}
