package users

import (
	"os"
	"path/filepath"
	"testing"
)

func writeUsersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadStoreMissingFileYieldsEmptyStore(t *testing.T) {
	s, err := LoadStore(filepath.Join(t.TempDir(), "users.ini"))
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}
	if s.Count() != 0 {
		t.Errorf("Count = %d, want 0", s.Count())
	}
	if _, _, ok := s.Default(); ok {
		t.Error("empty store should have no default user")
	}
}

func TestLoadStoreParsesSections(t *testing.T) {
	path := writeUsersFile(t, `[alice]
password = s3cret
is_default = true

[bob]
password = hunter2
`)

	s, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}

	if s.Count() != 2 {
		t.Fatalf("Count = %d, want 2", s.Count())
	}

	pw, ok := s.Lookup("alice")
	if !ok || pw != "s3cret" {
		t.Errorf("Lookup(alice) = %q, %v", pw, ok)
	}

	u, ok := s.Get("bob")
	if !ok || u.Password != "hunter2" || u.IsDefault {
		t.Errorf("Get(bob) = %+v, %v", u, ok)
	}

	if _, ok := s.Lookup("mallory"); ok {
		t.Error("unknown user should not resolve")
	}
}

func TestDefaultUserSelection(t *testing.T) {
	path := writeUsersFile(t, `[zoe]
password = z
is_default = true

[anna]
password = a
is_default = true
`)

	s, err := LoadStore(path)
	if err != nil {
		t.Fatal(err)
	}

	// Several defaults: first by username order wins, stable across loads
	username, password, ok := s.Default()
	if !ok {
		t.Fatal("expected a default user")
	}
	if username != "anna" || password != "a" {
		t.Errorf("Default = %q/%q, want anna/a", username, password)
	}
}

func TestAllSorted(t *testing.T) {
	path := writeUsersFile(t, "[charlie]\npassword = c\n\n[alice]\npassword = a\n")

	s, err := LoadStore(path)
	if err != nil {
		t.Fatal(err)
	}

	all := s.All()
	if len(all) != 2 || all[0].Username != "alice" || all[1].Username != "charlie" {
		t.Errorf("All = %+v, want sorted [alice charlie]", all)
	}
}
