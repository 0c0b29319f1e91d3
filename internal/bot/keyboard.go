package bot

import (
	"github.com/Nazarovdf/saverbot/internal/affordance"
	"github.com/Nazarovdf/saverbot/internal/lang"
	"github.com/Nazarovdf/saverbot/internal/logutils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const buttonsPerRow = 2

// AffordanceKeyboard renders tokens as inline buttons, two per row.
// It returns nil when there is nothing to show.
func AffordanceKeyboard(tokens []affordance.Token) *tgbotapi.InlineKeyboardMarkup {
	var buttons []tgbotapi.InlineKeyboardButton
	for _, tok := range tokens {
		data, err := affordance.Encode(tok)
		if err != nil {
			logutils.Log.WithError(err).WithField("action", tok.Action.String()).Warn("Skipping affordance button")
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(buttonLabel(tok), data))
	}
	if len(buttons) == 0 {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(buttons); i += buttonsPerRow {
		end := min(i+buttonsPerRow, len(buttons))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons[i:end]...))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func buttonLabel(tok affordance.Token) string {
	switch tok.Action {
	case affordance.ExtractAudio:
		return lang.Translate("button.extract_audio", nil)
	case affordance.ShowCaption:
		return lang.Translate("button.caption", nil)
	case affordance.AudioOnly:
		return lang.Translate("button.audio_only", nil)
	default:
		return tok.Quality
	}
}
