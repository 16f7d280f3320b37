package service

import (
	"math"

	"futsal-club/internal/models"

	"github.com/shopspring/decimal"
)

type MatrixRow struct {
	EntityID      int64                             `json:"entity_id"`
	Kind          models.EntityKind                 `json:"kind"`
	FirstName     string                            `json:"first_name"`
	LastName      string                            `json:"last_name"`
	Sessions      map[int64]models.AttendanceStatus `json:"sessions"`
	Present       int                               `json:"present"`
	Absent        int                               `json:"absent"`
	Excused       int                               `json:"excused"`
	AttendancePct float64                           `json:"attendance_pct"`
}

type AttendanceMatrix struct {
	CategoryID  int64                   `json:"category_id"`
	JalaliYear  int                     `json:"jalali_year"`
	JalaliMonth int                     `json:"jalali_month"`
	MonthName   string                  `json:"month_name"`
	Sheet       *models.AttendanceSheet `json:"sheet,omitempty"`
	Sessions    []models.SessionDate    `json:"sessions"`
	Players     []MatrixRow             `json:"players"`
	Coaches     []MatrixRow             `json:"coaches"`
}

type SessionRecords struct {
	Players []models.AttendanceRecord `json:"players"`
	Coaches []models.AttendanceRecord `json:"coaches"`
}

type MonthlyStats struct {
	CategoryID    int64   `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	Total         int     `json:"total"`
	Present       int     `json:"present"`
	Absent        int     `json:"absent"`
	Excused       int     `json:"excused"`
	AttendancePct float64 `json:"attendance_pct"`
}

// Percent returns part/total*100 rounded to one decimal, 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)*1000/float64(total)) / 10
}

// SalaryBreakdown is a computed, not yet persisted, salary.
type SalaryBreakdown struct {
	CoachID          int64           `json:"coach_id"`
	CoachName        string          `json:"coach_name"`
	CategoryID       int64           `json:"category_id"`
	SheetID          int64           `json:"sheet_id"`
	JalaliYear       int             `json:"jalali_year"`
	JalaliMonth      int             `json:"jalali_month"`
	SessionsTotal    int             `json:"sessions_total"`
	SessionsAttended int             `json:"sessions_attended"`
	SessionsExcused  int             `json:"sessions_excused"`
	SessionsAbsent   int             `json:"sessions_absent"`
	SessionRate      decimal.Decimal `json:"session_rate"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	Adjustment       decimal.Decimal `json:"manual_adjustment"`
	AdjustmentReason string          `json:"adjustment_reason"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
}

// BatchError describes one item a bulk operation could not complete.
type BatchError struct {
	EntityID int64  `json:"entity_id"`
	Name     string `json:"name"`
	Stage    string `json:"stage"`
	Reason   string `json:"reason"`
}

type PayrollBatch struct {
	CategoryID int64             `json:"category_id"`
	Breakdowns []SalaryBreakdown `json:"breakdowns"`
	Committed  int               `json:"committed"`
	Skipped    []BatchError      `json:"skipped"`
	Errors     []BatchError      `json:"errors"`
}

type InvoiceBatch struct {
	CategoryID   int64        `json:"category_id"`
	CategoryName string       `json:"category_name"`
	JalaliYear   int          `json:"jalali_year"`
	JalaliMonth  int          `json:"jalali_month"`
	Created      int          `json:"created"`
	Skipped      int          `json:"skipped"`
	Errors       []BatchError `json:"errors"`
}

type InvoiceRun struct {
	Batches []InvoiceBatch `json:"batches"`
	Created int            `json:"created"`
	Skipped int            `json:"skipped"`
	// Failed lists categories whose batch could not run at all.
	Failed []BatchError `json:"failed"`
}

func (r *InvoiceRun) Add(b InvoiceBatch) {
	r.Batches = append(r.Batches, b)
	r.Created += b.Created
	r.Skipped += b.Skipped
}

func (r *InvoiceRun) ErrorCount() int {
	n := len(r.Failed)
	for _, b := range r.Batches {
		n += len(b.Errors)
	}
	return n
}

type InvoicePreview struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	MonthlyFee   decimal.Decimal `json:"monthly_fee"`
	Eligible     int             `json:"eligible"`
	Existing     int             `json:"existing"`
}

// InvoiceSweep reports a pass over one month's invoices.
type InvoiceSweep struct {
	JalaliYear   int          `json:"jalali_year"`
	JalaliMonth  int          `json:"jalali_month"`
	Examined     int          `json:"examined"`
	Updated      int          `json:"updated"`
	Notified     int          `json:"notified"`
	Deduplicated int          `json:"deduplicated"`
	Errors       []BatchError `json:"errors"`
}

type SweepResult struct {
	Checked      int          `json:"checked"`
	Expiring     int          `json:"expiring"`
	Notified     int          `json:"notified"`
	Deduplicated int          `json:"deduplicated"`
	Errors       []BatchError `json:"errors"`
}
