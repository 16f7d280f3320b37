// Package memstore keeps every repository in process memory. Transactions
// snapshot the whole state and restore it when the callback fails; they are
// not isolated from concurrent callers.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"
)

type state struct {
	seq             int64
	users           map[int64]models.User
	categories      map[int64]models.TrainingCategory
	schedules       map[int64]models.TrainingSchedule
	sheets          map[int64]models.AttendanceSheet
	sessions        map[int64]models.SessionDate
	attendance      map[models.EntityKind]map[int64]models.AttendanceRecord
	players         map[int64]models.Player
	categoryPlayers map[int64]map[int64]bool
	coaches         map[int64]models.Coach
	rates           map[int64]models.CoachCategoryRate
	salaries        map[int64]models.CoachSalary
	invoices        map[int64]models.PlayerInvoice
	notifications   map[int64]models.Notification
}

func newState() state {
	return state{
		users:      map[int64]models.User{},
		categories: map[int64]models.TrainingCategory{},
		schedules:  map[int64]models.TrainingSchedule{},
		sheets:     map[int64]models.AttendanceSheet{},
		sessions:   map[int64]models.SessionDate{},
		attendance: map[models.EntityKind]map[int64]models.AttendanceRecord{
			models.KindPlayer: {},
			models.KindCoach:  {},
		},
		players:         map[int64]models.Player{},
		categoryPlayers: map[int64]map[int64]bool{},
		coaches:         map[int64]models.Coach{},
		rates:           map[int64]models.CoachCategoryRate{},
		salaries:        map[int64]models.CoachSalary{},
		invoices:        map[int64]models.PlayerInvoice{},
		notifications:   map[int64]models.Notification{},
	}
}

func (s state) clone() state {
	c := s
	c.users = maps.Clone(s.users)
	c.categories = maps.Clone(s.categories)
	c.schedules = maps.Clone(s.schedules)
	c.sheets = maps.Clone(s.sheets)
	c.sessions = maps.Clone(s.sessions)
	c.attendance = make(map[models.EntityKind]map[int64]models.AttendanceRecord, len(s.attendance))
	for k, v := range s.attendance {
		c.attendance[k] = maps.Clone(v)
	}
	c.players = maps.Clone(s.players)
	c.categoryPlayers = make(map[int64]map[int64]bool, len(s.categoryPlayers))
	for k, v := range s.categoryPlayers {
		c.categoryPlayers[k] = maps.Clone(v)
	}
	c.coaches = maps.Clone(s.coaches)
	c.rates = maps.Clone(s.rates)
	c.salaries = maps.Clone(s.salaries)
	c.invoices = maps.Clone(s.invoices)
	c.notifications = maps.Clone(s.notifications)
	return c
}

type fault struct {
	after int
	err   error
}

type Store struct {
	// Now stamps created_at style columns.
	Now func() time.Time

	mu     sync.Mutex
	st     state
	faults map[string]fault
}

func New() *Store {
	return &Store{
		Now:    time.Now,
		st:     newState(),
		faults: map[string]fault{},
	}
}

// FailAfter makes the operation op succeed n more times and then return err
// on every call. Operations are named "<repo>.<method>", e.g. "attendance.upsert".
func (s *Store) FailAfter(op string, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = fault{after: n, err: err}
}

func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]fault{}
}

// check must be called with mu held.
func (s *Store) check(op string) error {
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	if f.after > 0 {
		f.after--
		s.faults[op] = f
		return nil
	}
	return f.err
}

func (s *Store) nextID() int64 {
	s.st.seq++
	return s.st.seq
}

type txKey struct{}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Users() repository.UserRepository                 { return userRepo{s} }
func (s *Store) Categories() repository.CategoryRepository        { return categoryRepo{s} }
func (s *Store) Schedules() repository.ScheduleRepository         { return scheduleRepo{s} }
func (s *Store) Sheets() repository.SheetRepository               { return sheetRepo{s} }
func (s *Store) Sessions() repository.SessionRepository           { return sessionRepo{s} }
func (s *Store) Attendance() repository.AttendanceRepository      { return attendanceRepo{s} }
func (s *Store) Players() repository.PlayerRepository             { return playerRepo{s} }
func (s *Store) Coaches() repository.CoachRepository              { return coachRepo{s} }
func (s *Store) Rates() repository.RateRepository                 { return rateRepo{s} }
func (s *Store) Salaries() repository.SalaryRepository            { return salaryRepo{s} }
func (s *Store) Invoices() repository.InvoiceRepository           { return invoiceRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }

// Count helpers for assertions.

func (s *Store) SessionCount(sheetID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.st.sessions {
		if sess.SheetID == sheetID {
			n++
		}
	}
	return n
}

func (s *Store) SheetCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.sheets)
}

func (s *Store) AttendanceCount(kind models.EntityKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.attendance[kind])
}

func (s *Store) InvoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.invoices)
}

func (s *Store) SalaryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.salaries)
}

func (s *Store) NotificationsFor(recipientID int64) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range sortedValues(s.st.notifications) {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}
