package attendance_service

import (
	"context"
	"errors"
	"testing"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository/memstore"
	"futsal-club/internal/service"
	schedule_service "futsal-club/internal/service/schedule"
	"futsal-club/pkg/jalali"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	tehran = time.FixedZone("IRST", 3*3600+1800)
	asOf   = time.Date(2024, time.August, 5, 10, 0, 0, 0, tehran) // 1403/05/15
	mordad = jalali.MustMonth(1403, 5)
	fixed  = time.Date(2024, time.August, 20, 12, 0, 0, 0, tehran)
)

const staffID = 7

type fixture struct {
	store    *memstore.Store
	svc      service.AttendanceService
	category *models.TrainingCategory
	sheet    *models.AttendanceSheet
	sessions []models.SessionDate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	v := validator.New()
	scheduler := schedule_service.NewScheduleService(store, store.Categories(), store.Schedules(),
		store.Sheets(), store.Sessions(), v, zap.NewNop())

	f := &fixture{
		store: store,
		svc: NewAttendanceService(store, store.Categories(), store.Sheets(), store.Sessions(),
			store.Attendance(), store.Players(), store.Coaches(), scheduler, v,
			func() time.Time { return fixed }, zap.NewNop()),
		category: &models.TrainingCategory{Name: "U12", MonthlyFee: decimal.NewFromInt(3000000), IsActive: true},
	}
	must(t, store.Categories().Create(ctx, f.category))
	must(t, scheduler.AddSchedule(ctx, &models.TrainingSchedule{CategoryID: f.category.ID, Weekday: jalali.Saturday, StartTime: "17:00"}))

	sheet, _, err := scheduler.GetOrCreateSheet(ctx, f.category.ID, mordad, asOf)
	must(t, err)
	f.sheet = sheet
	f.sessions, err = store.Sessions().ListBySheet(ctx, sheet.ID)
	must(t, err)
	if len(f.sessions) != 4 {
		t.Fatalf("fixture expects 4 sessions, got %d", len(f.sessions))
	}
	return f
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) addPlayer(t *testing.T, first, last string, status models.PlayerStatus, archived bool) *models.Player {
	t.Helper()
	ctx := context.Background()
	p := &models.Player{FirstName: first, LastName: last, PlayerCode: first + last, Status: status, IsArchived: archived}
	must(t, f.store.Players().Create(ctx, p))
	must(t, f.store.Players().AddToCategory(ctx, f.category.ID, p.ID))
	return p
}

func (f *fixture) addCoach(t *testing.T, first, last string, rateActive bool) *models.Coach {
	t.Helper()
	ctx := context.Background()
	c := &models.Coach{FirstName: first, LastName: last, IsActive: true}
	must(t, f.store.Coaches().Create(ctx, c))
	must(t, f.store.Rates().Upsert(ctx, &models.CoachCategoryRate{
		CoachID: c.ID, CategoryID: f.category.ID, SessionRate: decimal.NewFromInt(500000), IsActive: rateActive,
	}))
	return c
}

func TestMatrixDefaultsToAbsent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPlayer(t, "Ali", "Rezaei", models.PlayerApproved, false)

	_, err := f.svc.RecordAttendance(ctx, f.sessions[1].ID, models.KindPlayer,
		[]models.AttendanceEntry{{EntityID: p.ID, Status: models.StatusPresent}}, staffID)
	must(t, err)

	m, err := f.svc.BuildAttendanceMatrix(ctx, f.category.ID, mordad, asOf)
	must(t, err)
	if len(m.Players) != 1 {
		t.Fatalf("got %d player rows", len(m.Players))
	}
	row := m.Players[0]
	want := []models.AttendanceStatus{models.StatusAbsent, models.StatusPresent, models.StatusAbsent, models.StatusAbsent}
	for i, sess := range m.Sessions {
		if row.Sessions[sess.ID] != want[i] {
			t.Errorf("session %d = %s, want %s", sess.SessionNumber, row.Sessions[sess.ID], want[i])
		}
	}
	if row.Present != 1 || row.Absent != 3 || row.AttendancePct != 25.0 {
		t.Errorf("present=%d absent=%d pct=%v", row.Present, row.Absent, row.AttendancePct)
	}
}

func TestMatrixRowsAndOrdering(t *testing.T) {
	f := newFixture(t)
	f.addPlayer(t, "Sara", "Karimi", models.PlayerApproved, false)
	f.addPlayer(t, "Amir", "Ahmadi", models.PlayerApproved, false)
	f.addPlayer(t, "Bahram", "Ahmadi", models.PlayerApproved, false)
	f.addPlayer(t, "Old", "Archived", models.PlayerApproved, true)
	f.addPlayer(t, "New", "Pending", models.PlayerPending, false)
	f.addCoach(t, "Reza", "Navabi", true)
	f.addCoach(t, "Former", "Coach", false)

	m, err := f.svc.BuildAttendanceMatrix(context.Background(), f.category.ID, mordad, asOf)
	must(t, err)

	var names []string
	for _, r := range m.Players {
		names = append(names, r.FirstName+" "+r.LastName)
		if len(r.Sessions) != len(m.Sessions) {
			t.Errorf("%s has %d columns, want %d", r.LastName, len(r.Sessions), len(m.Sessions))
		}
	}
	want := []string{"Amir Ahmadi", "Bahram Ahmadi", "Sara Karimi"}
	if len(names) != len(want) {
		t.Fatalf("players = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("row %d = %s, want %s", i, names[i], want[i])
		}
	}
	if len(m.Coaches) != 1 || m.Coaches[0].LastName != "Navabi" {
		t.Errorf("coaches = %+v", m.Coaches)
	}
	for i := 1; i < len(m.Sessions); i++ {
		if !m.Sessions[i-1].Date.Before(m.Sessions[i].Date) {
			t.Errorf("sessions not in date order at %d", i)
		}
	}
}

func TestMatrixForFutureMonthHasNoSessions(t *testing.T) {
	f := newFixture(t)
	f.addPlayer(t, "Ali", "Rezaei", models.PlayerApproved, false)

	m, err := f.svc.BuildAttendanceMatrix(context.Background(), f.category.ID, mordad.Next(), asOf)
	must(t, err)
	if m.Sheet != nil || len(m.Sessions) != 0 {
		t.Fatalf("future matrix has sheet %v and %d sessions", m.Sheet, len(m.Sessions))
	}
	if len(m.Players) != 1 || m.Players[0].AttendancePct != 0 {
		t.Errorf("rows = %+v", m.Players)
	}
}

func TestRecordAttendanceUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPlayer(t, "Ali", "Rezaei", models.PlayerApproved, false)
	session := f.sessions[0].ID

	_, err := f.svc.RecordAttendance(ctx, session, models.KindPlayer,
		[]models.AttendanceEntry{{EntityID: p.ID, Status: models.StatusPresent}}, staffID)
	must(t, err)
	_, err = f.svc.RecordAttendance(ctx, session, models.KindPlayer,
		[]models.AttendanceEntry{{EntityID: p.ID, Status: models.StatusExcused, Note: "sick"}}, staffID)
	must(t, err)

	if n := f.store.AttendanceCount(models.KindPlayer); n != 1 {
		t.Fatalf("got %d rows, want 1", n)
	}
	recs, err := f.store.Attendance().ListBySessions(ctx, models.KindPlayer, []int64{session})
	must(t, err)
	if recs[0].Status != models.StatusExcused || recs[0].Note != "sick" {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestRecordAttendanceOnFinalizedSheetFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPlayer(t, "Ali", "Rezaei", models.PlayerApproved, false)
	_, err := f.svc.FinalizeSheet(ctx, f.sheet.ID, staffID)
	must(t, err)

	for _, kind := range []models.EntityKind{models.KindPlayer, models.KindCoach} {
		_, err = f.svc.RecordAttendance(ctx, f.sessions[0].ID, kind,
			[]models.AttendanceEntry{{EntityID: p.ID, Status: models.StatusPresent}}, staffID)
		if !errors.Is(err, service.ErrSheetFinalized) {
			t.Errorf("%s: err = %v, want ErrSheetFinalized", kind, err)
		}
	}
	_, err = f.svc.RecordFullSession(ctx, f.sessions[0].ID,
		[]models.AttendanceEntry{{EntityID: p.ID, Status: models.StatusPresent}}, nil, staffID)
	if !errors.Is(err, service.ErrSheetFinalized) {
		t.Errorf("full session: err = %v", err)
	}
	if n := f.store.AttendanceCount(models.KindPlayer); n != 0 {
		t.Errorf("finalized sheet got %d rows", n)
	}
}

func TestRecordAttendanceIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.addPlayer(t, "A", "A", models.PlayerApproved, false)
	b := f.addPlayer(t, "B", "B", models.PlayerApproved, false)
	c := f.addPlayer(t, "C", "C", models.PlayerApproved, false)
	boom := errors.New("connection reset")
	f.store.FailAfter("attendance.upsert", 2, boom)

	_, err := f.svc.RecordAttendance(ctx, f.sessions[0].ID, models.KindPlayer, []models.AttendanceEntry{
		{EntityID: a.ID, Status: models.StatusPresent},
		{EntityID: b.ID, Status: models.StatusPresent},
		{EntityID: c.ID, Status: models.StatusPresent},
	}, staffID)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if n := f.store.AttendanceCount(models.KindPlayer); n != 0 {
		t.Errorf("partial write left %d rows", n)
	}
}

func TestRecordFullSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPlayer(t, "Ali", "Rezaei", models.PlayerApproved, false)
	c := f.addCoach(t, "Reza", "Navabi", true)

	out, err := f.svc.RecordFullSession(ctx, f.sessions[0].ID,
		[]models.AttendanceEntry{{EntityID: p.ID, Status: models.StatusPresent}},
		[]models.AttendanceEntry{{EntityID: c.ID, Status: models.StatusPresent}}, staffID)
	must(t, err)
	if len(out.Players) != 1 || len(out.Coaches) != 1 {
		t.Errorf("records = %+v", out)
	}

	f.store.FailAfter("attendance.upsert", 0, errors.New("boom"))
	_, err = f.svc.RecordFullSession(ctx, f.sessions[1].ID,
		[]models.AttendanceEntry{{EntityID: p.ID, Status: models.StatusPresent}},
		[]models.AttendanceEntry{{EntityID: c.ID, Status: models.StatusPresent}}, staffID)
	if err == nil {
		t.Fatal("expected failure")
	}
	if f.store.AttendanceCount(models.KindPlayer) != 1 || f.store.AttendanceCount(models.KindCoach) != 1 {
		t.Error("failed full session left rows behind")
	}
}

func TestRecordAttendanceRejectsInvalidEntries(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name  string
		kind  models.EntityKind
		entry models.AttendanceEntry
	}{
		{"unknown status", models.KindPlayer, models.AttendanceEntry{EntityID: 1, Status: "late"}},
		{"missing entity", models.KindPlayer, models.AttendanceEntry{Status: models.StatusPresent}},
		{"unknown kind", models.EntityKind("parent"), models.AttendanceEntry{EntityID: 1, Status: models.StatusPresent}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordAttendance(context.Background(), f.sessions[0].ID, tt.kind, []models.AttendanceEntry{tt.entry}, staffID)
			if !errors.Is(err, service.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRecordAttendanceUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RecordAttendance(context.Background(), 12345, models.KindPlayer, nil, staffID)
	if !errors.Is(err, service.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestFinalizeSheet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sheet, err := f.svc.FinalizeSheet(ctx, f.sheet.ID, staffID)
	must(t, err)
	if !sheet.IsFinalized || sheet.FinalizedBy == nil || *sheet.FinalizedBy != staffID || !sheet.FinalizedAt.Equal(fixed) {
		t.Errorf("sheet = %+v", sheet)
	}

	if _, err := f.svc.FinalizeSheet(ctx, f.sheet.ID, staffID); !errors.Is(err, service.ErrAlreadyFinalized) {
		t.Errorf("second finalize err = %v", err)
	}
	if _, err := f.svc.FinalizeSheet(ctx, 999, staffID); !errors.Is(err, service.ErrSheetNotFound) {
		t.Errorf("unknown sheet err = %v", err)
	}
}

func TestPlayerMonthlyStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addPlayer(t, "Ali", "Rezaei", models.PlayerApproved, false)

	statuses := []models.AttendanceStatus{models.StatusPresent, models.StatusPresent, models.StatusExcused}
	for i, st := range statuses {
		_, err := f.svc.RecordAttendance(ctx, f.sessions[i].ID, models.KindPlayer,
			[]models.AttendanceEntry{{EntityID: p.ID, Status: st}}, staffID)
		must(t, err)
	}

	stats, err := f.svc.PlayerMonthlyStats(ctx, p.ID, mordad)
	must(t, err)
	if len(stats) != 1 {
		t.Fatalf("got %d categories", len(stats))
	}
	st := stats[0]
	if st.CategoryName != "U12" || st.Total != 4 || st.Present != 2 || st.Excused != 1 || st.Absent != 1 || st.AttendancePct != 50 {
		t.Errorf("stats = %+v", st)
	}

	empty, err := f.svc.PlayerMonthlyStats(ctx, p.ID, mordad.Prev())
	must(t, err)
	if empty[0].Total != 0 || empty[0].AttendancePct != 0 {
		t.Errorf("month without sheet = %+v", empty[0])
	}
	if f.store.SheetCount() != 1 {
		t.Error("stats must not create sheets")
	}
}
