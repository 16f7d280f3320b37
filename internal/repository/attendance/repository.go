package attendance

import (
	"context"
	"fmt"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type attendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) repository.AttendanceRepository {
	return &attendanceRepository{db: db}
}

func table(kind models.EntityKind) (string, error) {
	switch kind {
	case models.KindPlayer:
		return "player_attendance", nil
	case models.KindCoach:
		return "coach_attendance", nil
	}
	return "", fmt.Errorf("unknown attendance kind %q", kind)
}

func (r *attendanceRepository) Upsert(ctx context.Context, kind models.EntityKind, rec *models.AttendanceRecord) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (session_id, entity_id, status, note, recorded_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (session_id, entity_id) DO UPDATE SET
			status = EXCLUDED.status,
			note = EXCLUDED.note,
			recorded_by = EXCLUDED.recorded_by,
			updated_at = NOW()
		RETURNING id, updated_at
	`, t)

	err = repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		rec.SessionID, rec.EntityID, rec.Status, rec.Note, rec.RecordedBy,
	).Scan(&rec.ID, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert %s attendance session %d entity %d: %w", kind, rec.SessionID, rec.EntityID, err)
	}
	return nil
}

func (r *attendanceRepository) ListBySessions(ctx context.Context, kind models.EntityKind, sessionIDs []int64) ([]models.AttendanceRecord, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`
		SELECT id, session_id, entity_id, status, note, recorded_by, updated_at
		FROM %s
		WHERE session_id = ANY($1)
	`, t)

	var records []models.AttendanceRecord
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &records, query, pq.Array(sessionIDs)); err != nil {
		return nil, fmt.Errorf("list %s attendance: %w", kind, err)
	}
	return records, nil
}

func (r *attendanceRepository) CountByStatus(ctx context.Context, kind models.EntityKind, sheetID, entityID int64) (map[models.AttendanceStatus]int, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT a.status, COUNT(*) AS count
		FROM %s a
		JOIN session_dates s ON s.id = a.session_id
		WHERE s.sheet_id = $1 AND a.entity_id = $2
		GROUP BY a.status
	`, t)

	var rows []struct {
		Status models.AttendanceStatus `db:"status"`
		Count  int                     `db:"count"`
	}
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &rows, query, sheetID, entityID); err != nil {
		return nil, fmt.Errorf("count %s attendance sheet %d entity %d: %w", kind, sheetID, entityID, err)
	}

	counts := make(map[models.AttendanceStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
