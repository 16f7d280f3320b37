package insurance_service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"
	"futsal-club/internal/service"
	"futsal-club/pkg/jalali"

	"go.uber.org/zap"
)

const DefaultThresholdDays = 30

type Urgency string

const (
	UrgencyExpired Urgency = "expired"
	UrgencyUrgent  Urgency = "urgent"
	UrgencyWarning Urgency = "warning"
)

// ClassifyExpiry maps days left until expiry to how loudly to warn.
func ClassifyExpiry(daysLeft int) Urgency {
	switch {
	case daysLeft <= 0:
		return UrgencyExpired
	case daysLeft <= 7:
		return UrgencyUrgent
	default:
		return UrgencyWarning
	}
}

// DerivedStatus is the insurance state shown to people. Near expiry is
// computed on read and never stored.
type DerivedStatus string

const (
	DerivedNone       DerivedStatus = "none"
	DerivedActive     DerivedStatus = "active"
	DerivedNearExpiry DerivedStatus = "near_expiry"
	DerivedExpired    DerivedStatus = "expired"
)

func DerivedInsuranceStatus(p *models.Player, asOf time.Time, thresholdDays int) DerivedStatus {
	switch p.InsuranceStatus {
	case models.InsuranceExpired:
		return DerivedExpired
	case models.InsuranceActive:
	default:
		return DerivedNone
	}
	expiry, ok := p.InsuranceExpiryDate()
	if !ok {
		return DerivedActive
	}
	days := jalali.FromTime(asOf).DaysUntil(expiry)
	switch {
	case days < 0:
		return DerivedExpired
	case days <= thresholdDays:
		return DerivedNearExpiry
	default:
		return DerivedActive
	}
}

type insuranceService struct {
	players    repository.PlayerRepository
	categories repository.CategoryRepository
	coaches    repository.CoachRepository
	users      repository.UserRepository
	notifier   service.Notifier
	logger     *zap.Logger
}

func NewInsuranceService(
	players repository.PlayerRepository,
	categories repository.CategoryRepository,
	coaches repository.CoachRepository,
	users repository.UserRepository,
	notifier service.Notifier,
	logger *zap.Logger,
) service.InsuranceService {
	return &insuranceService{
		players:    players,
		categories: categories,
		coaches:    coaches,
		users:      users,
		notifier:   notifier,
		logger:     logger.Named("insurance"),
	}
}

// CheckInsuranceExpiry warns about every billable player whose active
// insurance ends within thresholdDays of asOf, already expired ones included.
// Each recipient is deduplicated on its own unread notifications.
func (s *insuranceService) CheckInsuranceExpiry(ctx context.Context, asOf time.Time, thresholdDays int) (*service.SweepResult, error) {
	if thresholdDays < 0 {
		return nil, fmt.Errorf("%w: negative threshold %d", service.ErrInvalidInput, thresholdDays)
	}
	players, err := s.players.ListWithActiveInsurance(ctx)
	if err != nil {
		return nil, err
	}
	directors, err := s.users.ListTechnicalDirectors(ctx)
	if err != nil {
		return nil, err
	}

	today := jalali.FromTime(asOf)
	res := &service.SweepResult{}
	for _, p := range players {
		expiry, ok := p.InsuranceExpiryDate()
		if !ok {
			continue
		}
		res.Checked++
		daysLeft := today.DaysUntil(expiry)
		if daysLeft > thresholdDays {
			continue
		}
		res.Expiring++

		recipients, err := s.recipients(ctx, &p, directors)
		if err != nil {
			res.Errors = append(res.Errors, service.BatchError{
				EntityID: p.ID, Name: p.FullName(), Stage: "recipients", Reason: err.Error(),
			})
			continue
		}

		urgency := ClassifyExpiry(daysLeft)
		for _, userID := range recipients {
			sent, err := s.notifier.NotifyOnce(ctx, &models.Notification{
				RecipientID:     userID,
				Type:            models.NotifyInsuranceExpiry,
				Title:           expiryTitle(urgency, &p),
				Message:         expiryMessage(urgency, &p, expiry, daysLeft),
				RelatedPlayerID: &p.ID,
				Subject:         fmt.Sprintf("insurance:player:%d", p.ID),
			})
			switch {
			case err != nil:
				res.Errors = append(res.Errors, service.BatchError{
					EntityID: p.ID, Name: p.FullName(), Stage: "notify", Reason: err.Error(),
				})
			case sent:
				res.Notified++
			default:
				res.Deduplicated++
			}
		}
	}

	s.logger.Info("insurance sweep finished",
		zap.String("as_of", today.String()),
		zap.Int("checked", res.Checked),
		zap.Int("expiring", res.Expiring),
		zap.Int("notified", res.Notified),
		zap.Int("deduplicated", res.Deduplicated),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

// recipients returns distinct user ids: the player, coaches of the player's
// active categories, then technical directors.
func (s *insuranceService) recipients(ctx context.Context, p *models.Player, directors []models.User) ([]int64, error) {
	var ids []int64
	add := func(id int64) {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if p.UserID != nil {
		add(*p.UserID)
	}

	categoryIDs, err := s.players.ListCategoryIDs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	active := categoryIDs[:0]
	for _, id := range categoryIDs {
		c, err := s.categories.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if c != nil && c.IsActive {
			active = append(active, id)
		}
	}
	if len(active) > 0 {
		coaches, err := s.coaches.ListByCategories(ctx, active)
		if err != nil {
			return nil, err
		}
		for _, c := range coaches {
			if c.UserID != nil {
				add(*c.UserID)
			}
		}
	}

	for _, d := range directors {
		add(d.ID)
	}
	return ids, nil
}

func expiryTitle(u Urgency, p *models.Player) string {
	switch u {
	case UrgencyExpired:
		return "بیمه منقضی شد: " + p.FullName()
	case UrgencyUrgent:
		return "هشدار فوری بیمه: " + p.FullName()
	default:
		return "هشدار انقضای بیمه: " + p.FullName()
	}
}

func expiryMessage(u Urgency, p *models.Player, expiry jalali.Date, daysLeft int) string {
	who := fmt.Sprintf("بیمه بازیکن %s (کد: %s)", p.FullName(), p.PlayerCode)
	switch {
	case daysLeft < 0:
		return fmt.Sprintf("%s در تاریخ %s منقضی شده است (%d روز پیش).", who, expiry, -daysLeft)
	case u == UrgencyExpired:
		return fmt.Sprintf("%s امروز %s منقضی می‌شود.", who, expiry)
	default:
		return fmt.Sprintf("%s تا %d روز دیگر (%s) منقضی می‌شود.", who, daysLeft, expiry)
	}
}
