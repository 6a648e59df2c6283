package checkpoint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	st, found, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected found=false for missing file")
	}
	if st.StartTime != 0 || st.Token != "" {
		t.Errorf("expected zero state, got %+v", st)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	in := State{StartTime: 1592222400000, Token: "b34dc334beefb34dc334beef"}
	if err := store.Save(in); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out, found, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !found {
		t.Fatal("expected found=true after save")
	}
	if out.StartTime != in.StartTime {
		t.Errorf("StartTime: expected %d, got %d", in.StartTime, out.StartTime)
	}
	if out.Token != in.Token {
		t.Errorf("Token: expected %q, got %q", in.Token, out.Token)
	}
	if out.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be stamped on save")
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.json"))

	if err := store.Save(State{StartTime: 1000, Token: "first"}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := store.Save(State{StartTime: 2000, Token: "second"}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	out, _, err := store.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if out.StartTime != 2000 || out.Token != "second" {
		t.Errorf("expected latest state, got %+v", out)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "dir", "state.json"))

	if err := store.Save(State{StartTime: 1, Token: "none"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, found, err := store.Load(); err != nil || !found {
		t.Fatalf("expected state after save, found=%v err=%v", found, err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.json"))

	if err := store.Save(State{StartTime: 1, Token: "none"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only state.json, got %v", names)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("not json{"), 0600); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, _, err := NewStore(path).Load()
	if err == nil {
		t.Fatal("expected error for corrupt state file")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"tilde prefix", "~/state.json", filepath.Join(home, "state.json")},
		{"absolute path", "/var/lib/wssrelay/state.json", "/var/lib/wssrelay/state.json"},
		{"relative path", "state.json", "state.json"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
