package sheet

import (
	"context"
	"testing"
	"time"

	"futsal-club/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	db := sqlx.NewDb(raw, "postgres")
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
		db.Close()
	})
	return db, mock
}

var sheetCols = []string{"id", "category_id", "jalali_year", "jalali_month", "is_finalized", "finalized_at", "finalized_by", "created_at"}

func TestCreateSheetInserts(t *testing.T) {
	db, mock := newMock(t)
	created := time.Date(2024, 7, 22, 5, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO attendance_sheets").
		WithArgs(3, 1403, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_finalized", "created_at"}).AddRow(10, false, created))

	s := &models.AttendanceSheet{CategoryID: 3, JalaliYear: 1403, JalaliMonth: 5}
	ok, err := NewSheetRepository(db).Create(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || s.ID != 10 || !s.CreatedAt.Equal(created) {
		t.Errorf("Create = %v, sheet %+v", ok, s)
	}
}

func TestCreateSheetReturnsExistingOnConflict(t *testing.T) {
	db, mock := newMock(t)
	by := int64(7)

	mock.ExpectQuery("INSERT INTO attendance_sheets").
		WithArgs(3, 1403, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_finalized", "created_at"}))
	mock.ExpectQuery("FROM attendance_sheets\\s+WHERE category_id = \\$1").
		WithArgs(3, 1403, 5).
		WillReturnRows(sqlmock.NewRows(sheetCols).AddRow(4, 3, 1403, 5, true, time.Now(), by, time.Now()))

	s := &models.AttendanceSheet{CategoryID: 3, JalaliYear: 1403, JalaliMonth: 5}
	ok, err := NewSheetRepository(db).Create(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("conflict reported as created")
	}
	if s.ID != 4 || !s.IsFinalized || s.FinalizedBy == nil || *s.FinalizedBy != by {
		t.Errorf("existing sheet not loaded: %+v", s)
	}
}

func TestGetSheetMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM attendance_sheets WHERE id = \\$1").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(sheetCols))

	s, err := NewSheetRepository(db).GetByID(context.Background(), 99)
	if err != nil || s != nil {
		t.Errorf("GetByID = %v, %v; want nil, nil", s, err)
	}
}

func TestFinalizeOnlyOnce(t *testing.T) {
	db, mock := newMock(t)
	at := time.Date(2024, 8, 20, 12, 0, 0, 0, time.UTC)
	repo := NewSheetRepository(db)

	mock.ExpectExec("UPDATE attendance_sheets").
		WithArgs(10, at, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE attendance_sheets").
		WithArgs(10, at, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if ok, err := repo.Finalize(context.Background(), 10, at, 7); err != nil || !ok {
		t.Fatalf("first Finalize = %v, %v", ok, err)
	}
	if ok, err := repo.Finalize(context.Background(), 10, at, 7); err != nil || ok {
		t.Fatalf("second Finalize = %v, %v", ok, err)
	}
}

func TestCreateSessionSkipsDuplicateDate(t *testing.T) {
	db, mock := newMock(t)
	date := time.Date(2024, 7, 27, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO session_dates").
		WithArgs(10, "2024-07-27", 1, "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	s := &models.SessionDate{SheetID: 10, Date: date, SessionNumber: 1}
	ok, err := NewSessionRepository(db).Create(context.Background(), s)
	if err != nil || ok {
		t.Errorf("Create = %v, %v; want false, nil", ok, err)
	}
}
