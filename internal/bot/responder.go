package bot

import (
	"context"
	"strings"

	"github.com/Nazarovdf/saverbot/internal/affordance"
	"github.com/Nazarovdf/saverbot/internal/delivery"
	"github.com/Nazarovdf/saverbot/internal/lang"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChatResponder delivers plans into one Telegram chat.
type ChatResponder struct {
	sender Sender
	chatID int64
}

func NewChatResponder(sender Sender, chatID int64) *ChatResponder {
	return &ChatResponder{sender: sender, chatID: chatID}
}

func (r *ChatResponder) SendText(_ context.Context, text string, affs []affordance.Token) (delivery.MessageRef, error) {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb := AffordanceKeyboard(affs); kb != nil {
		msg.ReplyMarkup = *kb
	}
	sent, err := r.sender.Send(msg)
	if err != nil {
		return delivery.MessageRef{}, err
	}
	return delivery.MessageRef{ChatID: r.chatID, MessageID: sent.MessageID}, nil
}

func (r *ChatResponder) EditText(_ context.Context, ref delivery.MessageRef, text string) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := r.sender.Send(edit)
	return err
}

func (r *ChatResponder) Delete(_ context.Context, ref delivery.MessageRef) error {
	_, err := r.sender.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID))
	return err
}

func (r *ChatResponder) SendMedia(_ context.Context, item delivery.Item) error {
	file := tgbotapi.FilePath(item.Path)
	caption := mediaCaption(item)
	kb := AffordanceKeyboard(item.Affordances)

	var c tgbotapi.Chattable
	switch item.Kind {
	case delivery.Video:
		v := tgbotapi.NewVideo(r.chatID, file)
		v.Caption, v.ParseMode, v.SupportsStreaming = caption, tgbotapi.ModeHTML, true
		if kb != nil {
			v.ReplyMarkup = *kb
		}
		c = v
	case delivery.Photo:
		p := tgbotapi.NewPhoto(r.chatID, file)
		p.Caption, p.ParseMode = caption, tgbotapi.ModeHTML
		if kb != nil {
			p.ReplyMarkup = *kb
		}
		c = p
	case delivery.Audio:
		a := tgbotapi.NewAudio(r.chatID, file)
		a.Caption, a.ParseMode = caption, tgbotapi.ModeHTML
		if kb != nil {
			a.ReplyMarkup = *kb
		}
		c = a
	default:
		d := tgbotapi.NewDocument(r.chatID, file)
		d.Caption, d.ParseMode = caption, tgbotapi.ModeHTML
		if kb != nil {
			d.ReplyMarkup = *kb
		}
		c = d
	}

	_, err := r.sender.Send(c)
	return err
}

func mediaCaption(item delivery.Item) string {
	var parts []string
	if item.Label != "" {
		parts = append(parts, lang.Translate("delivery.label", map[string]any{"Label": item.Label}))
	}
	if item.Text != "" {
		parts = append(parts, item.Text)
	}
	return strings.Join(parts, "\n")
}
