package ui

import (
	"github.com/Nazarovdf/saverbot/internal/lang"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	CallbackAdminUsers     = "adm:users"
	CallbackAdminBroadcast = "adm:broadcast"
)

// MainMenuKeyboard is the persistent reply keyboard. Admins get an extra
// button for the panel.
func MainMenuKeyboard(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	row := tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(lang.Translate("button.help", nil)),
	)
	if isAdmin {
		row = append(row, tgbotapi.NewKeyboardButton(lang.Translate("button.admin_panel", nil)))
	}
	kb := tgbotapi.NewReplyKeyboard(row)
	kb.ResizeKeyboard = true
	return kb
}

func AdminPanelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(lang.Translate("button.admin_users", nil), CallbackAdminUsers),
			tgbotapi.NewInlineKeyboardButtonData(lang.Translate("button.admin_broadcast", nil), CallbackAdminBroadcast),
		),
	)
}
