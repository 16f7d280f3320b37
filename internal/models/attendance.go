package models

import (
	"fmt"
	"time"

	"futsal-club/pkg/jalali"
)

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusExcused AttendanceStatus = "excused"
)

// DefaultAttendanceStatus is what an entity counts as in a session nobody marked it in.
const DefaultAttendanceStatus = StatusAbsent

func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusExcused:
		return true
	}
	return false
}

func ParseAttendanceStatus(v string) (AttendanceStatus, error) {
	s := AttendanceStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown attendance status %q", v)
	}
	return s, nil
}

// EntityKind selects whose attendance a record holds.
type EntityKind string

const (
	KindPlayer EntityKind = "player"
	KindCoach  EntityKind = "coach"
)

func (k EntityKind) Valid() bool {
	return k == KindPlayer || k == KindCoach
}

type AttendanceSheet struct {
	ID          int64      `db:"id" json:"id"`
	CategoryID  int64      `db:"category_id" json:"category_id"`
	JalaliYear  int        `db:"jalali_year" json:"jalali_year"`
	JalaliMonth int        `db:"jalali_month" json:"jalali_month"`
	IsFinalized bool       `db:"is_finalized" json:"is_finalized"`
	FinalizedAt *time.Time `db:"finalized_at" json:"finalized_at,omitempty"`
	FinalizedBy *int64     `db:"finalized_by" json:"finalized_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

func (s *AttendanceSheet) Month() jalali.Month {
	return jalali.MustMonth(s.JalaliYear, s.JalaliMonth)
}

type SessionDate struct {
	ID            int64     `db:"id" json:"id"`
	SheetID       int64     `db:"sheet_id" json:"sheet_id"`
	Date          time.Time `db:"date" json:"date"`
	SessionNumber int       `db:"session_number" json:"session_number"`
	Notes         string    `db:"notes" json:"notes"`
}

func (s *SessionDate) JalaliDate() jalali.Date {
	return jalali.FromTime(s.Date)
}

// AttendanceRecord is one row of player_attendance or coach_attendance.
type AttendanceRecord struct {
	ID         int64            `db:"id" json:"id"`
	SessionID  int64            `db:"session_id" json:"session_id"`
	EntityID   int64            `db:"entity_id" json:"entity_id"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Note       string           `db:"note" json:"note"`
	RecordedBy *int64           `db:"recorded_by" json:"recorded_by,omitempty"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceEntry is one line of a recording request.
type AttendanceEntry struct {
	EntityID int64            `json:"entity_id" validate:"required,gt=0"`
	Status   AttendanceStatus `json:"status" validate:"required,oneof=present absent excused"`
	Note     string           `json:"note" validate:"max=500"`
}
