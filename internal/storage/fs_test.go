package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempStore(t)
	content := []byte("Crack the eggs into a bowl.")
	if err := s.Write("breakfast.txt", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("breakfast.txt")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("z.md", []byte("z"))
	_ = s.Write("sub/a.PDF", []byte("%PDF"))
	_ = s.Write("notes.txt", []byte("n"))
	_ = s.Write("image.png", []byte("png"))
	_ = s.Write(".hidden.txt", []byte("h"))

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(items), items)
	}
	want := []string{"notes.txt", "sub/a.PDF", "z.md"}
	for i, w := range want {
		if items[i].Path != w {
			t.Errorf("items[%d] = %q, want %q", i, items[i].Path, w)
		}
		if items[i].Checksum == "" {
			t.Errorf("items[%d] missing checksum", i)
		}
	}
}

func TestListEmptyStore(t *testing.T) {
	s := tempStore(t)
	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestCustomIncludes(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir, "recipes/**/*.md")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	_ = s.Write("recipes/italian/lasagna.md", []byte("x"))
	_ = s.Write("other.md", []byte("y"))
	items, _ := s.List()
	if len(items) != 1 || items[0].Path != "recipes/italian/lasagna.md" {
		t.Errorf("items = %+v", items)
	}
}

func TestInvalidIncludePattern(t *testing.T) {
	if _, err := NewFS(t.TempDir(), "[unclosed"); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestDeleteAll(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("b.pdf", []byte("b"))
	_ = s.Write("keep.png", []byte("c"))

	n, err := s.DeleteAll()
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "keep.png")); err != nil {
		t.Error("non-document file should survive DeleteAll")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow", ""} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempStore(t)
	_ = s.Write("atomic.md", []byte("original"))
	if err := s.Write("atomic.md", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".souschef-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "souschef-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
