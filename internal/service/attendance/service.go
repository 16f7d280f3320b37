package attendance_service

import (
	"context"
	"fmt"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"
	"futsal-club/internal/service"
	"futsal-club/pkg/jalali"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type attendanceService struct {
	tx         repository.Transactor
	categories repository.CategoryRepository
	sheets     repository.SheetRepository
	sessions   repository.SessionRepository
	attendance repository.AttendanceRepository
	players    repository.PlayerRepository
	coaches    repository.CoachRepository
	scheduler  service.ScheduleService
	validate   *validator.Validate
	now        service.Clock
	logger     *zap.Logger
}

func NewAttendanceService(
	tx repository.Transactor,
	categories repository.CategoryRepository,
	sheets repository.SheetRepository,
	sessions repository.SessionRepository,
	attendance repository.AttendanceRepository,
	players repository.PlayerRepository,
	coaches repository.CoachRepository,
	scheduler service.ScheduleService,
	validate *validator.Validate,
	now service.Clock,
	logger *zap.Logger,
) service.AttendanceService {
	return &attendanceService{
		tx:         tx,
		categories: categories,
		sheets:     sheets,
		sessions:   sessions,
		attendance: attendance,
		players:    players,
		coaches:    coaches,
		scheduler:  scheduler,
		validate:   validate,
		now:        now,
		logger:     logger.Named("attendance"),
	}
}

func (s *attendanceService) validateEntries(entries []models.AttendanceEntry) error {
	for i := range entries {
		if err := s.validate.Struct(&entries[i]); err != nil {
			return fmt.Errorf("%w: entry %d: %v", service.ErrInvalidInput, i, err)
		}
	}
	return nil
}

// RecordAttendance upserts the given entries only; entities left out keep
// whatever they had. Either every entry is written or none is.
func (s *attendanceService) RecordAttendance(ctx context.Context, sessionID int64, kind models.EntityKind, entries []models.AttendanceEntry, recordedBy int64) ([]models.AttendanceRecord, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", service.ErrInvalidInput, kind)
	}
	if err := s.validateEntries(entries); err != nil {
		return nil, err
	}

	var records []models.AttendanceRecord
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.lockOpenSession(ctx, sessionID); err != nil {
			return err
		}
		var err error
		records, err = s.upsert(ctx, sessionID, kind, entries, recordedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("attendance recorded",
		zap.Int64("session_id", sessionID),
		zap.String("kind", string(kind)),
		zap.Int("entries", len(records)),
	)
	return records, nil
}

func (s *attendanceService) RecordFullSession(ctx context.Context, sessionID int64, players, coaches []models.AttendanceEntry, recordedBy int64) (*service.SessionRecords, error) {
	if err := s.validateEntries(players); err != nil {
		return nil, err
	}
	if err := s.validateEntries(coaches); err != nil {
		return nil, err
	}

	out := &service.SessionRecords{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.lockOpenSession(ctx, sessionID); err != nil {
			return err
		}
		var err error
		if out.Players, err = s.upsert(ctx, sessionID, models.KindPlayer, players, recordedBy); err != nil {
			return err
		}
		out.Coaches, err = s.upsert(ctx, sessionID, models.KindCoach, coaches, recordedBy)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockOpenSession fails with ErrSheetFinalized once the session's sheet is locked.
func (s *attendanceService) lockOpenSession(ctx context.Context, sessionID int64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %d: %w", sessionID, service.ErrNotFound)
	}
	sheet, err := s.sheets.Lock(ctx, session.SheetID)
	if err != nil {
		return err
	}
	if sheet == nil {
		return fmt.Errorf("sheet %d: %w", session.SheetID, service.ErrSheetNotFound)
	}
	if sheet.IsFinalized {
		return fmt.Errorf("sheet %d: %w", sheet.ID, service.ErrSheetFinalized)
	}
	return nil
}

func (s *attendanceService) upsert(ctx context.Context, sessionID int64, kind models.EntityKind, entries []models.AttendanceEntry, recordedBy int64) ([]models.AttendanceRecord, error) {
	records := make([]models.AttendanceRecord, 0, len(entries))
	for _, e := range entries {
		rec := models.AttendanceRecord{
			SessionID:  sessionID,
			EntityID:   e.EntityID,
			Status:     e.Status,
			Note:       e.Note,
			RecordedBy: &recordedBy,
		}
		if err := s.attendance.Upsert(ctx, kind, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// statusLookup answers the status of (session, entity). Having no record is
// not an error: it counts as models.DefaultAttendanceStatus.
type statusLookup map[[2]int64]models.AttendanceStatus

func newStatusLookup(records []models.AttendanceRecord) statusLookup {
	l := make(statusLookup, len(records))
	for _, r := range records {
		l[[2]int64{r.SessionID, r.EntityID}] = r.Status
	}
	return l
}

func (l statusLookup) status(sessionID, entityID int64) models.AttendanceStatus {
	if st, ok := l[[2]int64{sessionID, entityID}]; ok {
		return st
	}
	return models.DefaultAttendanceStatus
}

func (l statusLookup) row(kind models.EntityKind, id int64, first, last string, sessions []models.SessionDate) service.MatrixRow {
	row := service.MatrixRow{
		EntityID:  id,
		Kind:      kind,
		FirstName: first,
		LastName:  last,
		Sessions:  make(map[int64]models.AttendanceStatus, len(sessions)),
	}
	for _, sess := range sessions {
		st := l.status(sess.ID, id)
		row.Sessions[sess.ID] = st
		switch st {
		case models.StatusPresent:
			row.Present++
		case models.StatusExcused:
			row.Excused++
		default:
			row.Absent++
		}
	}
	row.AttendancePct = service.Percent(row.Present, len(sessions))
	return row
}

func (s *attendanceService) BuildAttendanceMatrix(ctx context.Context, categoryID int64, month jalali.Month, asOf time.Time) (*service.AttendanceMatrix, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %d: %w", categoryID, service.ErrNotFound)
	}

	sheet, _, err := s.scheduler.GetOrCreateSheet(ctx, categoryID, month, asOf)
	if err != nil {
		return nil, err
	}

	m := &service.AttendanceMatrix{
		CategoryID:  categoryID,
		JalaliYear:  month.Year(),
		JalaliMonth: month.Month(),
		MonthName:   month.Name(),
		Sheet:       sheet,
		Sessions:    []models.SessionDate{},
		Players:     []service.MatrixRow{},
		Coaches:     []service.MatrixRow{},
	}
	if sheet != nil {
		if m.Sessions, err = s.sessions.ListBySheet(ctx, sheet.ID); err != nil {
			return nil, err
		}
	}
	ids := make([]int64, len(m.Sessions))
	for i, sess := range m.Sessions {
		ids[i] = sess.ID
	}

	players, err := s.players.ListBillableByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	playerRecords, err := s.attendance.ListBySessions(ctx, models.KindPlayer, ids)
	if err != nil {
		return nil, err
	}
	lookup := newStatusLookup(playerRecords)
	for _, p := range players {
		m.Players = append(m.Players, lookup.row(models.KindPlayer, p.ID, p.FirstName, p.LastName, m.Sessions))
	}

	coaches, err := s.coaches.ListWithActiveRate(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	coachRecords, err := s.attendance.ListBySessions(ctx, models.KindCoach, ids)
	if err != nil {
		return nil, err
	}
	lookup = newStatusLookup(coachRecords)
	for _, c := range coaches {
		m.Coaches = append(m.Coaches, lookup.row(models.KindCoach, c.ID, c.FirstName, c.LastName, m.Sessions))
	}
	return m, nil
}

func (s *attendanceService) FinalizeSheet(ctx context.Context, sheetID, by int64) (*models.AttendanceSheet, error) {
	var sheet *models.AttendanceSheet
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		sheet, err = s.sheets.Lock(ctx, sheetID)
		if err != nil {
			return err
		}
		if sheet == nil {
			return fmt.Errorf("sheet %d: %w", sheetID, service.ErrSheetNotFound)
		}
		if sheet.IsFinalized {
			return fmt.Errorf("sheet %d: %w", sheetID, service.ErrAlreadyFinalized)
		}

		at := s.now()
		ok, err := s.sheets.Finalize(ctx, sheetID, at, by)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("sheet %d: %w", sheetID, service.ErrAlreadyFinalized)
		}
		sheet.IsFinalized = true
		sheet.FinalizedAt = &at
		sheet.FinalizedBy = &by
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sheet finalized", zap.Int64("sheet_id", sheetID), zap.Int64("by", by))
	return sheet, nil
}

// PlayerMonthlyStats reports the player's attendance in every category they
// belong to. It never creates sheets.
func (s *attendanceService) PlayerMonthlyStats(ctx context.Context, playerID int64, month jalali.Month) ([]service.MonthlyStats, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, fmt.Errorf("player %d: %w", playerID, service.ErrNotFound)
	}

	categoryIDs, err := s.players.ListCategoryIDs(ctx, playerID)
	if err != nil {
		return nil, err
	}

	stats := make([]service.MonthlyStats, 0, len(categoryIDs))
	for _, categoryID := range categoryIDs {
		st := service.MonthlyStats{CategoryID: categoryID}
		if c, err := s.categories.GetByID(ctx, categoryID); err != nil {
			return nil, err
		} else if c != nil {
			st.CategoryName = c.Name
		}

		sheet, err := s.sheets.Get(ctx, categoryID, month.Year(), month.Month())
		if err != nil {
			return nil, err
		}
		if sheet != nil {
			sessions, err := s.sessions.ListBySheet(ctx, sheet.ID)
			if err != nil {
				return nil, err
			}
			counts, err := s.attendance.CountByStatus(ctx, models.KindPlayer, sheet.ID, playerID)
			if err != nil {
				return nil, err
			}
			st.Total = len(sessions)
			st.Present = counts[models.StatusPresent]
			st.Excused = counts[models.StatusExcused]
			st.Absent = max(st.Total-st.Present-st.Excused, 0)
			st.AttendancePct = service.Percent(st.Present, st.Total)
		}
		stats = append(stats, st)
	}
	return stats, nil
}
