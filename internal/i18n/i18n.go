// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n provides translated user-facing strings for the command line
// and the interactive menu. Translations are YAML files embedded from locales/.
package i18n // import "github.com/one2talk/votekeeper/internal/i18n"

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	current   string
)

// Init loads every embedded locale and selects lang. Unknown languages fall
// back to English.
func Init(lang string) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		_, _ = b.ParseMessageFileBytes(data, f.Name())
	}

	mu.Lock()
	bundle = b
	localizer = i18n.NewLocalizer(b, lang)
	current = lang
	mu.Unlock()
}

// SetLang changes the active language.
func SetLang(lang string) {
	Init(lang)
}

// GetLang returns the language passed to the last Init.
func GetLang() string {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// GetAvailableLocales maps each embedded language tag to its name in that
// language.
func GetAvailableLocales() map[string]string {
	out := map[string]string{}
	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		tag := strings.TrimSuffix(f.Name(), ".yaml")
		name := tag
		if t, err := language.Parse(tag); err == nil {
			if n := display.Self.Name(t); n != "" {
				name = n
			}
		}
		out[tag] = name
	}
	return out
}

// T translates messageID. A single map argument is used as template data;
// any other arguments are applied fmt-style to the translated text. Unknown
// IDs are returned unchanged.
func T(messageID string, args ...any) string {
	mu.RLock()
	l := localizer
	mu.RUnlock()
	if l == nil {
		Init("en")
		mu.RLock()
		l = localizer
		mu.RUnlock()
	}

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(args) == 1 {
		if data, ok := args[0].(map[string]any); ok {
			cfg.TemplateData = data
			args = nil
		}
	}
	msg, err := l.Localize(cfg)
	if err != nil {
		return messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}
