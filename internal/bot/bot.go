package bot

import (
	"fmt"

	"github.com/Nazarovdf/saverbot/internal/config"
	"github.com/Nazarovdf/saverbot/internal/logutils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the subset of *tgbotapi.BotAPI used to talk to chats.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	Api *tgbotapi.BotAPI
}

func InitBot(cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logutils.Log.WithError(err).Error("Error creating bot")
		return nil, fmt.Errorf("error creating bot: %w", err)
	}
	logutils.Log.Infof("Authorized on account %s", api.Self.UserName)
	return &Bot{Api: api}, nil
}

// SendMessage sends an HTML message and logs failures. keyboard may be nil.
func SendMessage(s Sender, chatID int64, text string, keyboard any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := s.Send(msg); err != nil {
		logutils.Log.WithError(err).WithField("chat_id", chatID).Error("Message not sent")
	}
}

// AnswerCallback stops the client's spinner on an inline button.
func AnswerCallback(s Sender, callbackID, text string) {
	if _, err := s.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logutils.Log.WithError(err).Debug("Failed to answer callback query")
	}
}
