package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

func createMainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonNotifications),
			tgbotapi.NewKeyboardButton(buttonMarkRead),
		),
	)
}
