package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CoachCategoryRate struct {
	ID          int64           `db:"id" json:"id"`
	CoachID     int64           `db:"coach_id" json:"coach_id"`
	CategoryID  int64           `db:"category_id" json:"category_id"`
	SessionRate decimal.Decimal `db:"session_rate" json:"session_rate"`
	IsActive    bool            `db:"is_active" json:"is_active"`
}

type SalaryStatus string

const (
	SalaryCalculated SalaryStatus = "calculated"
	SalaryApproved   SalaryStatus = "approved"
	SalaryPaid       SalaryStatus = "paid"
	SalaryConfirmed  SalaryStatus = "confirmed"
)

type SalaryAction string

const (
	SalaryRecalculate SalaryAction = "recalculate"
	SalaryApprove     SalaryAction = "approve"
	SalaryMarkPaid    SalaryAction = "mark_paid"
	SalaryConfirm     SalaryAction = "confirm"
	SalaryDispute     SalaryAction = "dispute"
)

// Dispute leaves the salary in paid; it only alerts finance staff.
var salaryTransitions = map[SalaryAction]transition[SalaryStatus]{
	SalaryRecalculate: {from: []SalaryStatus{SalaryCalculated, SalaryApproved}, to: SalaryCalculated},
	SalaryApprove:     {from: []SalaryStatus{SalaryCalculated}, to: SalaryApproved},
	SalaryMarkPaid:    {from: []SalaryStatus{SalaryApproved}, to: SalaryPaid},
	SalaryConfirm:     {from: []SalaryStatus{SalaryPaid}, to: SalaryConfirmed},
	SalaryDispute:     {from: []SalaryStatus{SalaryPaid}, to: SalaryPaid},
}

// Apply returns the status reached by performing action from s.
func (s SalaryStatus) Apply(action SalaryAction) (SalaryStatus, error) {
	t, ok := salaryTransitions[action]
	if !ok || !t.allows(s) {
		return s, &TransitionError{Entity: "salary", Action: string(action), From: string(s)}
	}
	return t.to, nil
}

type CoachSalary struct {
	ID               int64           `db:"id" json:"id"`
	CoachID          int64           `db:"coach_id" json:"coach_id"`
	CategoryID       int64           `db:"category_id" json:"category_id"`
	SheetID          int64           `db:"attendance_sheet_id" json:"attendance_sheet_id"`
	SessionsAttended int             `db:"sessions_attended" json:"sessions_attended"`
	SessionRate      decimal.Decimal `db:"session_rate" json:"session_rate"`
	BaseAmount       decimal.Decimal `db:"base_amount" json:"base_amount"`
	ManualAdjustment decimal.Decimal `db:"manual_adjustment" json:"manual_adjustment"`
	AdjustmentReason string          `db:"adjustment_reason" json:"adjustment_reason"`
	FinalAmount      decimal.Decimal `db:"final_amount" json:"final_amount"`
	Status           SalaryStatus    `db:"status" json:"status"`
	ProcessedBy      *int64          `db:"processed_by" json:"processed_by,omitempty"`
	PaidAt           *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CoachConfirmedAt *time.Time      `db:"coach_confirmed_at" json:"coach_confirmed_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Recompute derives base and final amounts from attendance, rate and adjustment.
func (s *CoachSalary) Recompute() error {
	if s.SessionRate.IsNegative() || s.SessionsAttended < 0 {
		return ErrNegativeAmount
	}
	s.BaseAmount = s.SessionRate.Mul(decimal.NewFromInt(int64(s.SessionsAttended)))
	s.FinalAmount = s.BaseAmount.Add(s.ManualAdjustment)
	if s.FinalAmount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
