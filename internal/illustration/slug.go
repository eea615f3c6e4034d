package illustration

import "strings"

const slugFallback = "illustration"

// Slug turns a title into a filesystem-safe file stem: lowercase, runs of
// anything outside [a-z0-9] collapsed into single underscores, edges
// trimmed.
func Slug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingSep := false
	for _, r := range strings.ToLower(title) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	out := b.String()
	if out == "" {
		return slugFallback
	}
	return out
}

// ExportFilename is the download name for a generated image. The
// extension is fixed no matter what MIME type the backend reported.
func ExportFilename(title string) string {
	return Slug(title) + ".png"
}
