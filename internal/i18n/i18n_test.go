// Copyright (c) 2025 the vmlink authors
// vmlink - remote VM operations over chat
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import (
	"strings"
	"testing"
)

func TestTranslationLookup(t *testing.T) {
	Init("en")
	msg := T("bot.vmpath_saved")
	if msg == "bot.vmpath_saved" {
		t.Fatalf("expected a translation, got the id back")
	}
	if !strings.Contains(msg, "saved") {
		t.Fatalf("unexpected translation %q", msg)
	}
}

func TestMissingIDReturnsID(t *testing.T) {
	Init("en")
	if got := T("bot.does_not_exist"); got != "bot.does_not_exist" {
		t.Fatalf("missing id should echo back, got %q", got)
	}
}

func TestTemplateData(t *testing.T) {
	Init("en")
	msg := Tf("bot.listing", map[string]interface{}{"Path": "/var/log"})
	if !strings.Contains(msg, "/var/log") {
		t.Fatalf("template data not substituted: %q", msg)
	}
}

func TestRussianLocale(t *testing.T) {
	SetLang("ru")
	defer SetLang("en")
	msg := T("bot.vmpath_saved")
	if !strings.Contains(msg, "сохранены") {
		t.Fatalf("expected the Russian translation, got %q", msg)
	}
}

func TestAllErrorIDsPresent(t *testing.T) {
	Init("en")
	ids := []string{
		"err.not_registered", "err.no_credentials", "err.invalid_args",
		"err.invalid_port", "err.auth", "err.transport", "err.timeout",
		"err.remote_exit", "err.not_text_file", "err.code_exhausted",
		"err.invalid_code", "err.conflict", "err.internal",
	}
	for _, id := range ids {
		if T(id) == id {
			t.Errorf("missing translation for %s", id)
		}
	}
}
