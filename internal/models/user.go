package models

import "time"

type User struct {
	ID                  int64     `db:"id" json:"id"`
	TelegramID          *int64    `db:"telegram_id" json:"telegram_id,omitempty"`
	Email               string    `db:"email" json:"email"`
	FirstName           string    `db:"first_name" json:"first_name"`
	LastName            string    `db:"last_name" json:"last_name"`
	Username            string    `db:"username" json:"username"`
	IsTechnicalDirector bool      `db:"is_technical_director" json:"is_technical_director"`
	IsFinanceManager    bool      `db:"is_finance_manager" json:"is_finance_manager"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	RegisteredAt        time.Time `db:"registered_at" json:"registered_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}
