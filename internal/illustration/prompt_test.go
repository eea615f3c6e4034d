package illustration

import (
	"strings"
	"testing"
)

func TestBuildAnalysisPromptEmbedsStoryVerbatim(t *testing.T) {
	story := "A lighthouse keeper forgets\nto light the lamp."

	got := BuildAnalysisPrompt(story)

	if !strings.HasSuffix(got, "Story:\n"+story) {
		t.Fatalf("prompt does not end with the verbatim story:\n%s", got)
	}
	for _, marker := range []string{"VISUAL ELEMENTS:", "STYLE OPTIONS:", "TITLE:"} {
		if !strings.Contains(got, marker) {
			t.Errorf("prompt is missing the %s instruction", marker)
		}
	}
	if !strings.Contains(got, "7 words") {
		t.Error("prompt is missing the title length instruction")
	}
}

func TestBuildIllustrationPromptSections(t *testing.T) {
	got := BuildIllustrationPrompt("A fox, deep snow, a red scarf.", "Ink sketch", "A fox lost its scarf.")

	if !strings.Contains(got, "Key visual elements:\nA fox, deep snow, a red scarf.") {
		t.Errorf("elements section wrong:\n%s", got)
	}
	if !strings.Contains(got, "Art style: Ink sketch") {
		t.Errorf("style section wrong:\n%s", got)
	}
	if !strings.Contains(got, "Story excerpt:\nA fox lost its scarf.") {
		t.Errorf("excerpt section wrong:\n%s", got)
	}
}

func TestBuildIllustrationPromptTruncatesLongStory(t *testing.T) {
	story := strings.Repeat("x", 195) + "ABCDEFGHIJ"

	got := BuildIllustrationPrompt("elements", "style", story)

	wantExcerpt := strings.Repeat("x", 195) + "ABCDE" + "..."
	if !strings.Contains(got, wantExcerpt) {
		t.Fatalf("excerpt was not cut at 200 runes:\n%s", got)
	}
	if strings.Contains(got, "FGHIJ") {
		t.Error("text past the cap leaked into the prompt")
	}
}

func TestBuildIllustrationPromptCutsRunesNotBytes(t *testing.T) {
	story := strings.Repeat("é", 250)

	got := BuildIllustrationPrompt("elements", "style", story)

	if !strings.Contains(got, strings.Repeat("é", 200)+"...") {
		t.Fatal("multibyte story was not cut at 200 runes")
	}
	if n := strings.Count(got, "é"); n != 200 {
		t.Errorf("excerpt carries %d runes, want 200", n)
	}
}

func TestBuildIllustrationPromptKeepsStoryAtCap(t *testing.T) {
	story := strings.Repeat("y", 200)

	got := BuildIllustrationPrompt("elements", "style", story)

	if !strings.Contains(got, "Story excerpt:\n"+story+"\n") {
		t.Fatal("story at the cap should be kept whole")
	}
	if strings.Contains(got, story+"...") {
		t.Error("story at the cap must not grow an ellipsis")
	}
}
