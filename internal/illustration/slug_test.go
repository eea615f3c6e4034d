package illustration

import "testing"

func TestSlug(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"My Story!", "my_story"},
		{"The Quiet Winter Fox", "the_quiet_winter_fox"},
		{"Dragon's   Lair: 2024", "dragon_s_lair_2024"},
		{"  spaced   out  ", "spaced_out"},
		{"ALL CAPS", "all_caps"},
		{"123 go", "123_go"},
		{"über brave", "ber_brave"},
		{"", "illustration"},
		{"   ", "illustration"},
		{"!!!", "illustration"},
	}

	for _, tt := range tests {
		if got := Slug(tt.title); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestSlugHasNoEdgeSeparators(t *testing.T) {
	for _, title := range []string{"  leading", "trailing  ", "--both--"} {
		got := Slug(title)
		if len(got) == 0 {
			t.Fatalf("Slug(%q) is empty", title)
		}
		if got[0] == '_' || got[len(got)-1] == '_' {
			t.Errorf("Slug(%q) = %q has an edge separator", title, got)
		}
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"My Story!", "my_story.png"},
		{"", "illustration.png"},
		{"The Last Lighthouse", "the_last_lighthouse.png"},
	}

	for _, tt := range tests {
		if got := ExportFilename(tt.title); got != tt.want {
			t.Errorf("ExportFilename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
