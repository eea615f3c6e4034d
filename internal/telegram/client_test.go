package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitByBytesShortTextUntouched(t *testing.T) {
	parts := splitByBytes("hello", 4096)
	if len(parts) != 1 || parts[0] != "hello" {
		t.Errorf("parts = %v", parts)
	}
}

func TestSplitByBytesRespectsLimit(t *testing.T) {
	text := strings.Repeat("a", 10000)

	parts := splitByBytes(text, 4096)

	var rebuilt strings.Builder
	for i, p := range parts {
		if len(p) > 4096 {
			t.Errorf("part %d is %d bytes", i, len(p))
		}
		rebuilt.WriteString(p)
	}
	if rebuilt.String() != text {
		t.Error("concatenated parts differ from the input")
	}
}

func TestSplitByBytesNeverBreaksRunes(t *testing.T) {
	text := strings.Repeat("é", 3000)

	parts := splitByBytes(text, 4096)

	if len(parts) < 2 {
		t.Fatalf("expected a split, got %d part(s)", len(parts))
	}
	for i, p := range parts {
		if !utf8.ValidString(p) {
			t.Errorf("part %d carries a broken rune", i)
		}
		if len(p) > 4096 {
			t.Errorf("part %d is %d bytes", i, len(p))
		}
	}
}

func TestTruncateByBytes(t *testing.T) {
	if got := truncateByBytes("short", 1024); got != "short" {
		t.Errorf("short text changed: %q", got)
	}

	long := strings.Repeat("é", 600)
	got := truncateByBytes(long, 1024)
	if len(got) > 1024 {
		t.Errorf("truncated caption is %d bytes", len(got))
	}
	if !utf8.ValidString(got) {
		t.Error("truncation broke a rune")
	}
	if got != strings.Repeat("é", 512) {
		t.Errorf("cut landed at %d runes", utf8.RuneCountInString(got))
	}
}
