package handlers

import (
	"context"

	"github.com/Nazarovdf/saverbot/internal/logutils"
	"github.com/Nazarovdf/saverbot/internal/registry"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func LoggingMiddleware(update tgbotapi.Update) {
	if update.Message != nil && update.Message.From != nil {
		logutils.Log.WithFields(map[string]any{
			"user_id":  update.Message.From.ID,
			"username": update.Message.From.UserName,
			"text":     update.Message.Text,
		}).Info("Received a new message")
	}
}

// TouchMiddleware records the sender in the user registry. Failures are
// logged and never block the message.
func TouchMiddleware(ctx context.Context, reg Registry, from *tgbotapi.User) {
	if from == nil || reg == nil {
		return
	}
	err := reg.Touch(ctx, registry.Profile{
		UserID:    from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	})
	if err != nil {
		logutils.Log.WithError(err).WithField("user_id", from.ID).Warn("Failed to touch user")
	}
}
