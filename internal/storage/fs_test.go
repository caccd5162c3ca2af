package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	content := []byte("{\n  \"channels\": []\n}\n")
	if err := s.Write("scan.useq.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("scan.useq.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("plates/p1/scan.useq.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("plates/p1/scan.useq.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "{}" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("del.useq.json", []byte("{}"))
	if err := s.Delete("del.useq.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.useq.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("old.useq.json", []byte("{}"))
	if err := s.Move("old.useq.json", "archive/new.useq.json"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("archive/new.useq.json")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "{}" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.useq.json"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestListOnlySequenceDocuments(t *testing.T) {
	s := tempLibrary(t)
	_ = s.Write("a.useq.json", []byte("{}"))
	_ = s.Write("sub/b.useq.yaml", []byte("channels: []\n"))
	_ = s.Write("readme.txt", []byte("not a sequence"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
	for _, m := range items {
		if m.Checksum == "" {
			t.Errorf("missing checksum for %s", m.Path)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.useq.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempLibrary(t)
	if err := s.Write("atomic.useq.json", []byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write("atomic.useq.json", []byte(`{"axis_order":"tc"}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, _ := s.Read("atomic.useq.json")
	if string(got) != `{"axis_order":"tc"}` {
		t.Errorf("content = %q", got)
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".lapse-tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestNewFSMissingRoot(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}
