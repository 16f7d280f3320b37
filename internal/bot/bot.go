package bot

import (
	"context"
	"fmt"
	"strings"

	"futsal-club/internal/models"
	"futsal-club/internal/models/config"
	"futsal-club/internal/repository"
	"futsal-club/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is the Telegram side of the club: it delivers notifications and
// answers a few commands about them.
type Bot struct {
	api           *tgbotapi.BotAPI
	out           sender
	users         repository.UserRepository
	notifications repository.NotificationRepository
	// admins may link club accounts to Telegram ids.
	admins map[int64]bool
	now    service.Clock
	logger *zap.Logger
}

func NewBot(
	cfg config.BotConfig,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	now service.Clock,
	logger *zap.Logger,
) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.Debug

	logger = logger.Named("telegram")
	logger.Info("bot initialised", zap.String("username", api.Self.UserName), zap.Bool("debug", cfg.Debug))

	admins := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}

	return &Bot{
		api:           api,
		admins:        admins,
		out:           api,
		users:         users,
		notifications: notifications,
		now:           now,
		logger:        logger,
	}, nil
}

func (b *Bot) Name() string { return "telegram" }

// Deliver sends n to the user's Telegram chat. Users who never linked
// Telegram are skipped silently.
func (b *Bot) Deliver(_ context.Context, user *models.User, n *models.Notification) error {
	if user.TelegramID == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(*user.TelegramID, formatNotification(n))
	if _, err := b.out.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", *user.TelegramID, err)
	}
	return nil
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func formatNotification(n *models.Notification) string {
	var sb strings.Builder
	sb.WriteString(icon(n.Type))
	sb.WriteString(" ")
	sb.WriteString(n.Title)
	if n.Message != "" {
		sb.WriteString("\n\n")
		sb.WriteString(n.Message)
	}
	return sb.String()
}

func icon(t models.NotificationType) string {
	switch t {
	case models.NotifyInsuranceExpiry:
		return "🛡"
	case models.NotifyInvoiceIssued, models.NotifyPaymentReminder:
		return "🧾"
	case models.NotifyInvoicePaid, models.NotifySalaryPaid:
		return "✅"
	case models.NotifySalaryReady:
		return "💰"
	case models.NotifySalaryDispute:
		return "⚠️"
	case models.NotifyReceiptUploaded:
		return "📎"
	default:
		return "🔔"
	}
}
