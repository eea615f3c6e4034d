package illustration

import (
	"fmt"
	"strings"
)

// storyPreviewLimit caps how much of the story travels inside the
// generation prompt. The analysis prompt always carries the full story.
const storyPreviewLimit = 200

const analysisTemplate = `You are an illustrator reading a short story before drawing it.
Answer using exactly this layout and keep the section headers as written:

VISUAL ELEMENTS: the three or four most striking visual elements of the story, in one or two sentences.
STYLE OPTIONS:
- an illustration style that suits this story
- a second, clearly different illustration style
- a third, clearly different illustration style
TITLE: a short evocative title for the story, at most 7 words.

Story:
%s`

// BuildAnalysisPrompt wraps the full story in the analysis template. The
// story is embedded verbatim.
func BuildAnalysisPrompt(story string) string {
	return fmt.Sprintf(analysisTemplate, story)
}

// BuildIllustrationPrompt combines the analysis findings, the chosen
// style, and a story excerpt into one generation prompt.
func BuildIllustrationPrompt(elements, style, story string) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("Create one illustration for a short story.\n\n")

	b.WriteString("Key visual elements:\n")
	b.WriteString(strings.TrimSpace(elements))
	b.WriteString("\n\n")

	b.WriteString("Art style: ")
	b.WriteString(strings.TrimSpace(style))
	b.WriteString("\n\n")

	b.WriteString("Story excerpt:\n")
	b.WriteString(storyPreview(story))
	b.WriteString("\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- One single image.\n")
	b.WriteString("- Follow the chosen art style strictly.\n")
	b.WriteString("- No text, captions, or watermarks inside the picture.\n")

	return b.String()
}

// storyPreview cuts the story at the rune cap and appends an ellipsis
// marker. The cut is deliberately not word-aware and the excerpt is not
// trimmed afterwards.
func storyPreview(story string) string {
	runes := []rune(story)
	if len(runes) <= storyPreviewLimit {
		return story
	}
	return string(runes[:storyPreviewLimit]) + "..."
}
