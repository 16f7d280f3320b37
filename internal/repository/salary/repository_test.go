package salary

import (
	"context"
	"database/sql/driver"
	"errors"
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

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestUpsertSkipsSettledRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSalaryRepository(db)

	// The conflict update matched nothing: the stored row is paid.
	mock.ExpectQuery(`ON CONFLICT .* WHERE coach_salaries.status IN \('calculated', 'approved'\)`).
		WithArgs(anyArgs(11)...).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}))

	s := &models.CoachSalary{CoachID: 2, CategoryID: 3, SheetID: 4, Status: models.SalaryCalculated}
	err := repo.Upsert(context.Background(), s)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestUpdateStatusRequiresExpectedStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSalaryRepository(db)

	mock.ExpectQuery(`UPDATE coach_salaries .* WHERE id = \$1 AND status = \$6`).
		WithArgs(9, models.SalaryPaid, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.SalaryApproved).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectQuery(`UPDATE coach_salaries`).
		WithArgs(9, models.SalaryPaid, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), models.SalaryApproved).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	s := &models.CoachSalary{ID: 9, Status: models.SalaryPaid}
	if err := repo.UpdateStatus(context.Background(), s, models.SalaryApproved); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpdateStatus(context.Background(), s, models.SalaryApproved); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("second update err = %v, want ErrInvalidState", err)
	}
}

func TestLockSelectsForUpdate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM coach_salaries WHERE id = \$1 FOR UPDATE`).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))

	s, err := NewSalaryRepository(db).Lock(context.Background(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != 9 {
		t.Errorf("id = %d", s.ID)
	}
}
