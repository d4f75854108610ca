// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import (
	"sort"
	"testing"

	"gopkg.in/yaml.v3"
)

func localeKeys(t *testing.T, name string) []string {
	t.Helper()
	data, err := localeFS.ReadFile("locales/" + name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestLocalesHaveSameKeys(t *testing.T) {
	en := localeKeys(t, "en.yaml")
	de := localeKeys(t, "de.yaml")
	if len(en) != len(de) {
		t.Fatalf("en has %d keys, de has %d", len(en), len(de))
	}
	for i := range en {
		if en[i] != de[i] {
			t.Fatalf("key mismatch: en %q vs de %q", en[i], de[i])
		}
	}
}

func TestInitAndAvailableLocales(t *testing.T) {
	Init("en")
	if GetLang() != "en" {
		t.Fatalf("expected lang 'en', got %q", GetLang())
	}
	av := GetAvailableLocales()
	for _, k := range []string{"en", "de"} {
		if _, ok := av[k]; !ok {
			t.Fatalf("expected available locale %q to be present", k)
		}
	}
	if av["de"] != "Deutsch" {
		t.Fatalf("unexpected display name for de: %q", av["de"])
	}
}

func TestT_BasicAndFormatting(t *testing.T) {
	Init("en")
	t.Cleanup(func() { Init("en") })

	if got := T("list.name"); got != "Name" {
		t.Fatalf("expected 'Name', got %q", got)
	}
	if got := T("list.total", 3, "1.2 kB"); got != "3 backups, 1.2 kB in total" {
		t.Fatalf("unexpected formatted translation: %q", got)
	}
	if got := T("no.such.message"); got != "no.such.message" {
		t.Fatalf("unknown id should be returned unchanged, got %q", got)
	}

	SetLang("de")
	if GetLang() != "de" {
		t.Fatalf("expected lang 'de', got %q", GetLang())
	}
	if got := T("common.yes_word"); got != "ja" {
		t.Fatalf("expected German 'ja', got %q", got)
	}
}

func TestUnknownLanguageFallsBackToEnglish(t *testing.T) {
	Init("xx")
	t.Cleanup(func() { Init("en") })
	if got := T("stats.total"); got != "Total" {
		t.Fatalf("expected English fallback, got %q", got)
	}
}
