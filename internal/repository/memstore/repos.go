package memstore

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"futsal-club/internal/models"
)

func sortedValues[V any](m map[int64]V) []V {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func byName(aLast, aFirst string, aID int64, bLast, bFirst string, bID int64) int {
	return cmp.Or(cmp.Compare(aLast, bLast), cmp.Compare(aFirst, bFirst), cmp.Compare(aID, bID))
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.st.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r userRepo) GetByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range sortedValues(r.s.st.users) {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			return &u, nil
		}
	}
	return nil, nil
}

func (r userRepo) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("users.create"); err != nil {
		return err
	}
	u.ID = r.s.nextID()
	u.RegisteredAt = r.s.Now()
	u.UpdatedAt = u.RegisteredAt
	r.s.st.users[u.ID] = *u
	return nil
}

func (r userRepo) LinkTelegram(_ context.Context, userID, telegramID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.st.users[userID]
	if !ok {
		return nil
	}
	u.TelegramID = ptr(telegramID)
	r.s.st.users[userID] = u
	return nil
}

func (r userRepo) list(pred func(models.User) bool) []models.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.User
	for _, u := range sortedValues(r.s.st.users) {
		if u.IsActive && pred(u) {
			out = append(out, u)
		}
	}
	return out
}

func (r userRepo) ListTechnicalDirectors(context.Context) ([]models.User, error) {
	return r.list(func(u models.User) bool { return u.IsTechnicalDirector }), nil
}

func (r userRepo) ListFinanceManagers(context.Context) ([]models.User, error) {
	return r.list(func(u models.User) bool { return u.IsFinanceManager }), nil
}

type categoryRepo struct{ s *Store }

func (r categoryRepo) GetByID(_ context.Context, id int64) (*models.TrainingCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.st.categories[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r categoryRepo) ListActive(context.Context) ([]models.TrainingCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.TrainingCategory
	for _, c := range sortedValues(r.s.st.categories) {
		if c.IsActive {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b models.TrainingCategory) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r categoryRepo) Create(_ context.Context, c *models.TrainingCategory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.Now()
	r.s.st.categories[c.ID] = *c
	return nil
}

type scheduleRepo struct{ s *Store }

func (r scheduleRepo) ListByCategory(_ context.Context, categoryID int64) ([]models.TrainingSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.TrainingSchedule
	for _, sc := range sortedValues(r.s.st.schedules) {
		if sc.CategoryID == categoryID {
			out = append(out, sc)
		}
	}
	slices.SortStableFunc(out, func(a, b models.TrainingSchedule) int {
		return cmp.Or(cmp.Compare(a.Weekday, b.Weekday), cmp.Compare(a.StartTime, b.StartTime))
	})
	return out, nil
}

func (r scheduleRepo) Create(_ context.Context, sc *models.TrainingSchedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc.ID = r.s.nextID()
	r.s.st.schedules[sc.ID] = *sc
	return nil
}

func (r scheduleRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.st.schedules, id)
	return nil
}

type sheetRepo struct{ s *Store }

func (r sheetRepo) Get(_ context.Context, categoryID int64, year, month int) (*models.AttendanceSheet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(categoryID, year, month), nil
}

func (r sheetRepo) find(categoryID int64, year, month int) *models.AttendanceSheet {
	for _, sh := range r.s.st.sheets {
		if sh.CategoryID == categoryID && sh.JalaliYear == year && sh.JalaliMonth == month {
			return &sh
		}
	}
	return nil
}

func (r sheetRepo) GetByID(_ context.Context, id int64) (*models.AttendanceSheet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sh, ok := r.s.st.sheets[id]; ok {
		return &sh, nil
	}
	return nil, nil
}

func (r sheetRepo) Lock(ctx context.Context, id int64) (*models.AttendanceSheet, error) {
	return r.GetByID(ctx, id)
}

func (r sheetRepo) Create(_ context.Context, sh *models.AttendanceSheet) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("sheets.create"); err != nil {
		return false, err
	}
	if existing := r.find(sh.CategoryID, sh.JalaliYear, sh.JalaliMonth); existing != nil {
		*sh = *existing
		return false, nil
	}
	sh.ID = r.s.nextID()
	sh.CreatedAt = r.s.Now()
	r.s.st.sheets[sh.ID] = *sh
	return true, nil
}

func (r sheetRepo) Finalize(_ context.Context, id int64, at time.Time, by int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.st.sheets[id]
	if !ok || sh.IsFinalized {
		return false, nil
	}
	sh.IsFinalized = true
	sh.FinalizedAt = ptr(at)
	sh.FinalizedBy = ptr(by)
	r.s.st.sheets[id] = sh
	return true, nil
}

type sessionRepo struct{ s *Store }

func (r sessionRepo) GetByID(_ context.Context, id int64) (*models.SessionDate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.st.sessions[id]; ok {
		return &sess, nil
	}
	return nil, nil
}

func (r sessionRepo) ListBySheet(_ context.Context, sheetID int64) ([]models.SessionDate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.SessionDate
	for _, sess := range sortedValues(r.s.st.sessions) {
		if sess.SheetID == sheetID {
			out = append(out, sess)
		}
	}
	slices.SortStableFunc(out, func(a, b models.SessionDate) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (r sessionRepo) Create(_ context.Context, sess *models.SessionDate) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("sessions.create"); err != nil {
		return false, err
	}
	for _, existing := range r.s.st.sessions {
		if existing.SheetID == sess.SheetID && existing.Date.Equal(sess.Date) {
			return false, nil
		}
	}
	sess.ID = r.s.nextID()
	r.s.st.sessions[sess.ID] = *sess
	return true, nil
}

type attendanceRepo struct{ s *Store }

func (r attendanceRepo) Upsert(_ context.Context, kind models.EntityKind, rec *models.AttendanceRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("attendance.upsert"); err != nil {
		return err
	}
	rows := r.s.st.attendance[kind]
	rec.UpdatedAt = r.s.Now()
	for id, existing := range rows {
		if existing.SessionID == rec.SessionID && existing.EntityID == rec.EntityID {
			rec.ID = id
			rows[id] = *rec
			return nil
		}
	}
	rec.ID = r.s.nextID()
	rows[rec.ID] = *rec
	return nil
}

func (r attendanceRepo) ListBySessions(_ context.Context, kind models.EntityKind, sessionIDs []int64) ([]models.AttendanceRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.AttendanceRecord
	for _, rec := range sortedValues(r.s.st.attendance[kind]) {
		if slices.Contains(sessionIDs, rec.SessionID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r attendanceRepo) CountByStatus(_ context.Context, kind models.EntityKind, sheetID, entityID int64) (map[models.AttendanceStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[models.AttendanceStatus]int{}
	for _, rec := range r.s.st.attendance[kind] {
		if rec.EntityID != entityID {
			continue
		}
		if sess, ok := r.s.st.sessions[rec.SessionID]; ok && sess.SheetID == sheetID {
			counts[rec.Status]++
		}
	}
	return counts, nil
}

type playerRepo struct{ s *Store }

func (r playerRepo) GetByID(_ context.Context, id int64) (*models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.st.players[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (r playerRepo) Create(_ context.Context, p *models.Player) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.nextID()
	p.CreatedAt = r.s.Now()
	r.s.st.players[p.ID] = *p
	return nil
}

func (r playerRepo) AddToCategory(_ context.Context, categoryID, playerID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.st.categoryPlayers[categoryID] == nil {
		r.s.st.categoryPlayers[categoryID] = map[int64]bool{}
	}
	r.s.st.categoryPlayers[categoryID][playerID] = true
	return nil
}

func (r playerRepo) ListBillableByCategory(_ context.Context, categoryID int64) ([]models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Player
	for id := range r.s.st.categoryPlayers[categoryID] {
		if p, ok := r.s.st.players[id]; ok && p.Billable() {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Player) int {
		return byName(a.LastName, a.FirstName, a.ID, b.LastName, b.FirstName, b.ID)
	})
	return out, nil
}

func (r playerRepo) ListWithActiveInsurance(context.Context) ([]models.Player, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Player
	for _, p := range sortedValues(r.s.st.players) {
		if p.Billable() && p.InsuranceStatus == models.InsuranceActive && p.InsuranceExpiry != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r playerRepo) ListCategoryIDs(_ context.Context, playerID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []int64
	for categoryID, members := range r.s.st.categoryPlayers {
		if members[playerID] {
			ids = append(ids, categoryID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

type coachRepo struct{ s *Store }

func (r coachRepo) GetByID(_ context.Context, id int64) (*models.Coach, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.st.coaches[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (r coachRepo) Create(_ context.Context, c *models.Coach) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.st.coaches[c.ID] = *c
	return nil
}

func (r coachRepo) ListWithActiveRate(ctx context.Context, categoryID int64) ([]models.Coach, error) {
	return r.ListByCategories(ctx, []int64{categoryID})
}

func (r coachRepo) ListByCategories(_ context.Context, categoryIDs []int64) ([]models.Coach, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[int64]bool{}
	var out []models.Coach
	for _, rate := range sortedValues(r.s.st.rates) {
		if !rate.IsActive || !slices.Contains(categoryIDs, rate.CategoryID) || seen[rate.CoachID] {
			continue
		}
		if c, ok := r.s.st.coaches[rate.CoachID]; ok && c.IsActive {
			seen[c.ID] = true
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.Coach) int {
		return byName(a.LastName, a.FirstName, a.ID, b.LastName, b.FirstName, b.ID)
	})
	return out, nil
}

type rateRepo struct{ s *Store }

func (r rateRepo) GetActive(_ context.Context, coachID, categoryID int64) (*models.CoachCategoryRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rate := range r.s.st.rates {
		if rate.CoachID == coachID && rate.CategoryID == categoryID && rate.IsActive {
			return &rate, nil
		}
	}
	return nil, nil
}

func (r rateRepo) Upsert(_ context.Context, rate *models.CoachCategoryRate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.st.rates {
		if existing.CoachID == rate.CoachID && existing.CategoryID == rate.CategoryID {
			rate.ID = id
			r.s.st.rates[id] = *rate
			return nil
		}
	}
	rate.ID = r.s.nextID()
	r.s.st.rates[rate.ID] = *rate
	return nil
}

type salaryRepo struct{ s *Store }

func (r salaryRepo) GetByID(_ context.Context, id int64) (*models.CoachSalary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sal, ok := r.s.st.salaries[id]; ok {
		return &sal, nil
	}
	return nil, nil
}

func (r salaryRepo) Lock(ctx context.Context, id int64) (*models.CoachSalary, error) {
	return r.GetByID(ctx, id)
}

func (r salaryRepo) Get(_ context.Context, coachID, categoryID, sheetID int64) (*models.CoachSalary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sal := range r.s.st.salaries {
		if sal.CoachID == coachID && sal.CategoryID == categoryID && sal.SheetID == sheetID {
			return &sal, nil
		}
	}
	return nil, nil
}

func (r salaryRepo) Upsert(_ context.Context, sal *models.CoachSalary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("salaries.upsert"); err != nil {
		return err
	}
	now := r.s.Now()
	sal.UpdatedAt = now
	for id, existing := range r.s.st.salaries {
		if existing.CoachID == sal.CoachID && existing.CategoryID == sal.CategoryID && existing.SheetID == sal.SheetID {
			if existing.Status != models.SalaryCalculated && existing.Status != models.SalaryApproved {
				return fmt.Errorf("salary %d is settled: %w", id, models.ErrInvalidState)
			}
			sal.ID = id
			sal.CreatedAt = existing.CreatedAt
			sal.PaidAt = existing.PaidAt
			sal.CoachConfirmedAt = existing.CoachConfirmedAt
			r.s.st.salaries[id] = *sal
			return nil
		}
	}
	sal.ID = r.s.nextID()
	sal.CreatedAt = now
	r.s.st.salaries[sal.ID] = *sal
	return nil
}

func (r salaryRepo) UpdateStatus(_ context.Context, sal *models.CoachSalary, from models.SalaryStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("salaries.update_status"); err != nil {
		return err
	}
	existing, ok := r.s.st.salaries[sal.ID]
	if !ok || existing.Status != from {
		return fmt.Errorf("salary %d is no longer %s: %w", sal.ID, from, models.ErrInvalidState)
	}
	existing.Status = sal.Status
	existing.ProcessedBy = sal.ProcessedBy
	existing.PaidAt = sal.PaidAt
	existing.CoachConfirmedAt = sal.CoachConfirmedAt
	existing.UpdatedAt = r.s.Now()
	sal.UpdatedAt = existing.UpdatedAt
	r.s.st.salaries[sal.ID] = existing
	return nil
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) GetByID(_ context.Context, id int64) (*models.PlayerInvoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if inv, ok := r.s.st.invoices[id]; ok {
		return &inv, nil
	}
	return nil, nil
}

func (r invoiceRepo) CreateIfAbsent(_ context.Context, inv *models.PlayerInvoice) (bool, error) {
	if err := inv.Normalize(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("invoices.create"); err != nil {
		return false, err
	}
	for _, existing := range r.s.st.invoices {
		if existing.PlayerID == inv.PlayerID && existing.CategoryID == inv.CategoryID &&
			existing.JalaliYear == inv.JalaliYear && existing.JalaliMonth == inv.JalaliMonth {
			return false, nil
		}
	}
	inv.ID = r.s.nextID()
	inv.CreatedAt = r.s.Now()
	inv.UpdatedAt = inv.CreatedAt
	r.s.st.invoices[inv.ID] = *inv
	return true, nil
}

func (r invoiceRepo) Update(_ context.Context, inv *models.PlayerInvoice) error {
	if err := inv.Normalize(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("invoices.update"); err != nil {
		return err
	}
	inv.UpdatedAt = r.s.Now()
	r.s.st.invoices[inv.ID] = *inv
	return nil
}

func (r invoiceRepo) ListByMonth(_ context.Context, year, month int, statuses ...models.InvoiceStatus) ([]models.PlayerInvoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.PlayerInvoice
	for _, inv := range sortedValues(r.s.st.invoices) {
		if inv.JalaliYear != year || inv.JalaliMonth != month {
			continue
		}
		if len(statuses) == 0 || slices.Contains(statuses, inv.Status) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r invoiceRepo) CountByCategoryMonth(_ context.Context, categoryID int64, year, month int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, inv := range r.s.st.invoices {
		if inv.CategoryID == categoryID && inv.JalaliYear == year && inv.JalaliMonth == month {
			n++
		}
	}
	return n, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("notifications.create"); err != nil {
		return err
	}
	n.ID = r.s.nextID()
	n.CreatedAt = r.s.Now()
	r.s.st.notifications[n.ID] = *n
	return nil
}

func (r notificationRepo) ExistsUnread(_ context.Context, recipientID int64, typ models.NotificationType, subject string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.st.notifications {
		if n.RecipientID == recipientID && n.Type == typ && n.Subject == subject && !n.IsRead {
			return true, nil
		}
	}
	return false, nil
}

func (r notificationRepo) ListUnread(_ context.Context, recipientID int64) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Notification
	for _, n := range sortedValues(r.s.st.notifications) {
		if n.RecipientID == recipientID && !n.IsRead {
			out = append(out, n)
		}
	}
	slices.Reverse(out)
	return out, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.st.notifications[id]
	if !ok || n.IsRead {
		return nil
	}
	n.IsRead = true
	n.ReadAt = ptr(at)
	r.s.st.notifications[id] = n
	return nil
}
