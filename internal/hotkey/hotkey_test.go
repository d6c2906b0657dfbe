package hotkey

import (
	"testing"

	"golang.design/x/hotkey"
)

func TestParse(t *testing.T) {
	b, err := Parse("ctrl+alt+c")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.key != hotkey.KeyC {
		t.Errorf("key = %v, want KeyC", b.key)
	}
	if len(b.mods) != 2 {
		t.Errorf("mods = %v, want ctrl and alt", b.mods)
	}
}

func TestParseCaseAndAliases(t *testing.T) {
	b, err := Parse("Control+Option+Space")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.key != hotkey.KeySpace {
		t.Errorf("key = %v, want KeySpace", b.key)
	}
	if len(b.mods) != 2 {
		t.Errorf("mods = %v", b.mods)
	}
}

func TestParseErrors(t *testing.T) {
	for _, combo := range []string{
		"",
		"ctrl+",
		"ctrl+alt",
		"ctrl+c+d",
		"ctrl+pageup",
	} {
		if _, err := Parse(combo); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", combo)
		}
	}
}

func TestParseDigit(t *testing.T) {
	b, err := Parse("shift+7")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.key != hotkey.Key7 {
		t.Errorf("key = %v, want Key7", b.key)
	}
}
