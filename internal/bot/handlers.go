package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"futsal-club/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"go.uber.org/zap"
)

const (
	buttonNotifications = "🔔 اعلان‌ها"
	buttonMarkRead      = "✅ همه را خواندم"
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	chatID := message.Chat.ID
	telegramID := int64(message.From.ID)
	text := strings.TrimSpace(message.Text)

	if b.admins[telegramID] && strings.HasPrefix(text, "/link") {
		b.linkAccount(ctx, chatID, strings.Fields(text)[1:])
		return
	}

	user, err := b.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		b.logger.Error("load user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		b.sendMessage(chatID, "خطایی رخ داد، لطفا دوباره تلاش کنید.")
		return
	}
	if user == nil {
		b.sendMessage(chatID, fmt.Sprintf(
			"حساب شما در باشگاه ثبت نشده است.\nشناسه تلگرام خود (%d) را برای مدیر باشگاه بفرستید.", telegramID))
		return
	}

	switch text {
	case "/start":
		b.sendWelcomeMessage(chatID, user)
	case "/notifications", buttonNotifications:
		b.showUnread(ctx, chatID, user)
	case "/read", buttonMarkRead:
		b.markAllRead(ctx, chatID, user)
	default:
		b.sendMessage(chatID, "دستور نامعتبر است. از دکمه‌های زیر استفاده کنید.")
	}
}

// linkAccount handles "/link <user_id> <telegram_id>".
func (b *Bot) linkAccount(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		b.sendMessage(chatID, "استفاده: /link <user_id> <telegram_id>")
		return
	}
	userID, errU := strconv.ParseInt(args[0], 10, 64)
	telegramID, errT := strconv.ParseInt(args[1], 10, 64)
	if errU != nil || errT != nil {
		b.sendMessage(chatID, "شناسه‌ها باید عدد باشند.")
		return
	}

	user, err := b.users.GetByID(ctx, userID)
	if err != nil {
		b.logger.Error("load user", zap.Int64("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, "خطایی رخ داد، لطفا دوباره تلاش کنید.")
		return
	}
	if user == nil {
		b.sendMessage(chatID, fmt.Sprintf("کاربر %d یافت نشد.", userID))
		return
	}
	if err := b.users.LinkTelegram(ctx, userID, telegramID); err != nil {
		b.logger.Error("link telegram", zap.Int64("user_id", userID), zap.Error(err))
		b.sendMessage(chatID, "ثبت شناسه تلگرام ناموفق بود.")
		return
	}
	b.logger.Info("telegram linked", zap.Int64("user_id", userID), zap.Int64("telegram_id", telegramID))
	b.sendMessage(chatID, fmt.Sprintf("حساب %s به تلگرام %d متصل شد.", user.FirstName, telegramID))
}

func (b *Bot) sendWelcomeMessage(chatID int64, user *models.User) {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("سلام %s! اعلان‌های باشگاه از این‌جا برای شما ارسال می‌شود.", user.FirstName))
	msg.ReplyMarkup = createMainKeyboard()
	b.send(msg)
}

func (b *Bot) showUnread(ctx context.Context, chatID int64, user *models.User) {
	unread, err := b.notifications.ListUnread(ctx, user.ID)
	if err != nil {
		b.logger.Error("list unread", zap.Int64("user_id", user.ID), zap.Error(err))
		b.sendMessage(chatID, "خطا در دریافت اعلان‌ها.")
		return
	}
	b.sendMessage(chatID, renderUnread(unread))
}

func (b *Bot) markAllRead(ctx context.Context, chatID int64, user *models.User) {
	unread, err := b.notifications.ListUnread(ctx, user.ID)
	if err != nil {
		b.logger.Error("list unread", zap.Int64("user_id", user.ID), zap.Error(err))
		b.sendMessage(chatID, "خطا در دریافت اعلان‌ها.")
		return
	}
	at := b.now()
	for _, n := range unread {
		if err := b.notifications.MarkRead(ctx, n.ID, at); err != nil {
			b.logger.Error("mark read", zap.Int64("notification_id", n.ID), zap.Error(err))
			b.sendMessage(chatID, "خطا در ثبت وضعیت اعلان‌ها.")
			return
		}
	}
	b.sendMessage(chatID, fmt.Sprintf("%d اعلان خوانده شد.", len(unread)))
}

// renderUnread lists at most ten notifications, newest first.
func renderUnread(unread []models.Notification) string {
	if len(unread) == 0 {
		return "اعلان خوانده‌نشده‌ای ندارید."
	}
	const limit = 10
	var sb strings.Builder
	fmt.Fprintf(&sb, "اعلان‌های خوانده‌نشده: %d\n", len(unread))
	for i, n := range unread {
		if i == limit {
			fmt.Fprintf(&sb, "\n… و %d مورد دیگر", len(unread)-limit)
			break
		}
		fmt.Fprintf(&sb, "\n%s %s", icon(n.Type), n.Title)
	}
	return sb.String()
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.out.Send(msg); err != nil {
		b.logger.Warn("send message", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}
