package handlers

import (
	"strings"
	"testing"

	"story-canvas-ai-bot/internal/pipeline"
)

func analyzedSnapshot() pipeline.Snapshot {
	return pipeline.Snapshot{
		State:          pipeline.StateAnalyzed,
		Story:          "A keeper forgets to light the lamp.",
		VisualElements: "A lighthouse, a storm, a dark sea.",
		StyleOptions:   []string{"Watercolor", "Ink sketch", "Oil painting"},
		SelectedStyle:  "Ink sketch",
		Title:          "The Last Lighthouse",
	}
}

func TestWizardTextShowsSelection(t *testing.T) {
	text := wizardText(analyzedSnapshot())

	for _, want := range []string{
		"Story: A keeper forgets to light the lamp.",
		"Style: Ink sketch",
		"Title: The Last Lighthouse",
		"Image: (none)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("wizard text missing %q:\n%s", want, text)
		}
	}
}

func TestWizardTextAfterGeneration(t *testing.T) {
	snap := analyzedSnapshot()
	snap.State = pipeline.StateGenerated
	snap.HasImage = true

	text := wizardText(snap)

	if !strings.Contains(text, "Image: ready ✅") {
		t.Errorf("generated state not reflected:\n%s", text)
	}
	if !strings.Contains(text, "Download") {
		t.Errorf("download hint missing:\n%s", text)
	}
}

func TestWizardKeyboardMarksSelectedStyle(t *testing.T) {
	kb := wizardKeyboard(77, analyzedSnapshot())

	var labels []string
	var datas []string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			labels = append(labels, btn.Text)
			if btn.CallbackData != nil {
				datas = append(datas, *btn.CallbackData)
			}
		}
	}

	joinedLabels := strings.Join(labels, "|")
	if !strings.Contains(joinedLabels, "✅ Ink sketch") {
		t.Errorf("selected style not marked: %s", joinedLabels)
	}
	if strings.Contains(joinedLabels, "✅ Watercolor") {
		t.Errorf("unselected style marked as chosen: %s", joinedLabels)
	}
	if strings.Contains(joinedLabels, "Download") {
		t.Errorf("download offered before an image exists: %s", joinedLabels)
	}

	joinedData := strings.Join(datas, "|")
	if !strings.Contains(joinedData, "ill:77:style:1") {
		t.Errorf("style callbacks must carry the option index: %s", joinedData)
	}
	if !strings.Contains(joinedData, "ill:77:generate") {
		t.Errorf("generate callback missing: %s", joinedData)
	}
}

func TestWizardKeyboardOffersDownloadAfterGeneration(t *testing.T) {
	snap := analyzedSnapshot()
	snap.State = pipeline.StateGenerated
	snap.HasImage = true

	kb := wizardKeyboard(77, snap)

	found := false
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil && *btn.CallbackData == "ill:77:download" {
				found = true
			}
		}
	}
	if !found {
		t.Error("download button missing after generation")
	}
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	// Telegram rejects callback data over 64 bytes.
	for _, data := range []string{
		cb(9223372036854775807, "style", "2"),
		cb(9223372036854775807, "generate"),
		cb(9223372036854775807, "download"),
		cb(9223372036854775807, "again"),
	} {
		if len(data) > 64 {
			t.Errorf("callback data too long (%d bytes): %s", len(data), data)
		}
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("  short  ", 10); got != "short" {
		t.Errorf("trimmed short line = %q", got)
	}

	got := truncateLine(strings.Repeat("x", 50), 10)
	if got != strings.Repeat("x", 10)+"…" {
		t.Errorf("long line = %q", got)
	}
}

func TestMaskKeyNeverRevealsBody(t *testing.T) {
	masked := maskKey("AIzaSyFakeExampleKey1234")
	if masked != "****1234" {
		t.Errorf("masked = %q", masked)
	}
	if strings.Contains(masked, "AIzaSy") {
		t.Error("mask leaked the key body")
	}

	if got := maskKey("abc"); got != "****" {
		t.Errorf("short key mask = %q", got)
	}
}
