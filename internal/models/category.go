package models

import (
	"time"

	"futsal-club/pkg/jalali"

	"github.com/shopspring/decimal"
)

type TrainingCategory struct {
	ID         int64           `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	MonthlyFee decimal.Decimal `db:"monthly_fee" json:"monthly_fee"`
	IsActive   bool            `db:"is_active" json:"is_active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// TrainingSchedule is one recurring weekly slot of a category.
type TrainingSchedule struct {
	ID         int64          `db:"id" json:"id"`
	CategoryID int64          `db:"category_id" json:"category_id" validate:"required"`
	Weekday    jalali.Weekday `db:"weekday" json:"weekday"`
	StartTime  string         `db:"start_time" json:"start_time" validate:"required"` // "17:00"
	EndTime    *string        `db:"end_time" json:"end_time,omitempty"`
	Location   string         `db:"location" json:"location"`
}
