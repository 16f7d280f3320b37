package models

import (
	"time"

	"futsal-club/pkg/jalali"
)

type PlayerStatus string

const (
	PlayerPending  PlayerStatus = "pending"
	PlayerApproved PlayerStatus = "approved"
	PlayerRejected PlayerStatus = "rejected"
)

type InsuranceStatus string

const (
	InsuranceNone    InsuranceStatus = "none"
	InsuranceActive  InsuranceStatus = "active"
	InsuranceExpired InsuranceStatus = "expired"
)

type Player struct {
	ID              int64           `db:"id" json:"id"`
	UserID          *int64          `db:"user_id" json:"user_id,omitempty"`
	PlayerCode      string          `db:"player_code" json:"player_code"`
	FirstName       string          `db:"first_name" json:"first_name"`
	LastName        string          `db:"last_name" json:"last_name"`
	Status          PlayerStatus    `db:"status" json:"status"`
	IsArchived      bool            `db:"is_archived" json:"is_archived"`
	InsuranceStatus InsuranceStatus `db:"insurance_status" json:"insurance_status"`
	InsuranceExpiry *time.Time      `db:"insurance_expiry" json:"insurance_expiry,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

func (p *Player) FullName() string {
	return p.FirstName + " " + p.LastName
}

// Billable reports whether the player takes part in attendance and invoicing.
func (p *Player) Billable() bool {
	return p.Status == PlayerApproved && !p.IsArchived
}

func (p *Player) InsuranceExpiryDate() (jalali.Date, bool) {
	if p.InsuranceStatus != InsuranceActive || p.InsuranceExpiry == nil {
		return jalali.Date{}, false
	}
	return jalali.FromTime(*p.InsuranceExpiry), true
}
