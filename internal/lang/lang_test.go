package lang

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateDefaultsToUzbek(t *testing.T) {
	require.NoError(t, InitLocalizer(DefaultLang))

	got := Translate("loading.platform", map[string]any{"Platform": "TikTok"})
	assert.Equal(t, "⏳ TikTok yuklanmoqda...", got)
	assert.Equal(t, "⏳ MP3 yuklanmoqda...", Translate("loading.audio", nil))
}

func TestTranslateOtherLanguages(t *testing.T) {
	t.Cleanup(func() { _ = InitLocalizer(DefaultLang) })

	require.NoError(t, InitLocalizer("en"))
	assert.Equal(t, "❌ Video not found. Send a new link.", Translate("error.session_expired", nil))

	require.NoError(t, InitLocalizer("ru"))
	assert.True(t, strings.HasPrefix(Translate("help.text", nil), "Отправьте ссылку"))
}

func TestUnknownKeyIsReturnedVerbatim(t *testing.T) {
	require.NoError(t, InitLocalizer(DefaultLang))
	assert.Equal(t, "no.such.key", Translate("no.such.key", nil))
}

func TestEveryLocaleHasEveryKey(t *testing.T) {
	t.Cleanup(func() { _ = InitLocalizer(DefaultLang) })

	keys := []string{
		"start.welcome", "help.text", "button.extract_audio", "button.caption", "button.audio_only",
		"loading.platform", "youtube.choose_quality", "caption.show", "caption.empty",
		"error.unsupported_link", "error.not_found", "error.unsupported", "error.timeout", "error.io",
		"error.corrupt", "error.no_audio_track", "error.session_expired", "error.internal",
		"admin.panel", "admin.broadcast_done",
	}
	assert.ElementsMatch(t, []string{"uz", "en", "ru"}, Languages())

	for _, code := range []string{"uz", "en", "ru"} {
		require.NoError(t, InitLocalizer(code))
		for _, k := range keys {
			assert.NotEqual(t, k, Translate(k, map[string]any{"Platform": "X"}), "%s missing %s", code, k)
		}
	}
}
