package keystore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on a missing file: %v", err)
	}
	if got := s.Get("anything"); got != "" {
		t.Errorf("Get on empty store = %q", got)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("Open with an empty path must fail")
	}
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Fatal("Open on a corrupt file must fail")
	}
}

func TestRoundTrip(t *testing.T) {
	// The directory does not exist yet; Set must create it.
	path := filepath.Join(t.TempDir(), "data", "keys.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Set("user:1", "key-one"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("user:2", "key-two"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Get("user:1"); got != "key-one" {
		t.Errorf("Get = %q", got)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Get("user:1"); got != "key-one" {
		t.Errorf("after reopen Get(user:1) = %q", got)
	}
	if got := reopened.Get("user:2"); got != "key-two" {
		t.Errorf("after reopen Get(user:2) = %q", got)
	}
}

func TestDeleteRemovesPersistedValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set("user:7", "secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s.Delete("user:7"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := s.Get("user:7"); got != "" {
		t.Errorf("Get after delete = %q", got)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Get("user:7"); got != "" {
		t.Errorf("deleted value survived the reopen: %q", got)
	}
}

func TestSetEmptyNameRejected(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "keys.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := s.Set("   ", "value"); err == nil {
		t.Fatal("Set with a blank name must fail")
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := s.Set("user:1", "rotated"); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "keys.json" {
			t.Errorf("stray file after writes: %s", e.Name())
		}
	}
}
