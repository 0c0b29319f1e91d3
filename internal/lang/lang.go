package lang

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Nazarovdf/saverbot/internal/logutils"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

const DefaultLang = "uz"

//go:embed locales/*.json
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
)

func init() {
	if err := InitLocalizer(DefaultLang); err != nil {
		panic(err)
	}
}

// InitLocalizer loads every embedded locale and makes code the active one.
// Missing keys fall back to the default language.
func InitLocalizer(code string) error {
	b := i18n.NewBundle(language.Make(DefaultLang))
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read embedded locales: %w", err)
	}
	for _, e := range entries {
		if _, err := b.LoadMessageFileFS(localeFS, "locales/"+e.Name()); err != nil {
			return fmt.Errorf("load locale %s: %w", e.Name(), err)
		}
	}

	mu.Lock()
	bundle = b
	localizer = i18n.NewLocalizer(b, code, DefaultLang)
	mu.Unlock()
	return nil
}

// Translate renders the message for key with data as template arguments.
// An unknown key is returned verbatim so the gap is visible.
func Translate(key string, data map[string]any) string {
	mu.RLock()
	l := localizer
	mu.RUnlock()

	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		logutils.Log.WithError(err).WithField("key", key).Warn("Translation not found")
		return key
	}
	return msg
}

// Languages lists the tags that have at least one message loaded.
func Languages() []string {
	mu.RLock()
	defer mu.RUnlock()
	tags := bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}
