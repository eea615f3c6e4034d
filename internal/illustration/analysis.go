package illustration

import (
	"regexp"
	"strings"
)

const (
	defaultVisualElements = "Key story elements"
	defaultTitle          = "My Story"
)

// DefaultStyleOptions is the style list used when the model reply offers
// none.
func DefaultStyleOptions() []string {
	return []string{"Watercolor", "Digital art", "Pencil sketch"}
}

// Analysis is what the analysis stage distills from a story.
type Analysis struct {
	VisualElements string
	StyleOptions   []string
	SuggestedTitle string
}

var (
	visualElementsRe = regexp.MustCompile(`(?s)VISUAL ELEMENTS:(.*?)(?:STYLE OPTIONS:|TITLE:|$)`)
	styleBlockRe     = regexp.MustCompile(`(?s)STYLE OPTIONS:(.*?)(?:TITLE:|$)`)
	styleLineRe      = regexp.MustCompile(`(?m)^\s*[-*•]\s*(.+)$`)
	titleRe          = regexp.MustCompile(`TITLE:([^\n]*)`)
)

// ParseAnalysis extracts the three analysis sections from a raw model
// reply. The markers are case-sensitive. Each section falls back on its
// own: a missing or empty section never fails the whole parse, so the
// result is always usable.
func ParseAnalysis(raw string) Analysis {
	out := Analysis{
		VisualElements: defaultVisualElements,
		StyleOptions:   DefaultStyleOptions(),
		SuggestedTitle: defaultTitle,
	}

	if m := visualElementsRe.FindStringSubmatch(raw); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			out.VisualElements = v
		}
	}

	if m := styleBlockRe.FindStringSubmatch(raw); m != nil {
		var styles []string
		for _, line := range styleLineRe.FindAllStringSubmatch(m[1], -1) {
			if s := strings.TrimSpace(line[1]); s != "" {
				styles = append(styles, s)
			}
		}
		if len(styles) > 0 {
			out.StyleOptions = styles
		}
	}

	if m := titleRe.FindStringSubmatch(raw); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			out.SuggestedTitle = t
		}
	}

	return out
}
