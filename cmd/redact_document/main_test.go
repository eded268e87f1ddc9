package main

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestReadInputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.PDF", "nested/c.hocr", "notes.docx", "nested/d.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	files, err := readInputFiles(dir)
	if err != nil {
		t.Fatalf("readInputFiles() error = %v", err)
	}
	sort.Strings(files)
	want := []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.PDF"),
		filepath.Join(dir, "nested/c.hocr"),
		filepath.Join(dir, "nested/d.txt"),
	}
	if len(files) != len(want) {
		t.Fatalf("readInputFiles() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("readInputFiles() = %v, want %v", files, want)
		}
	}

	single := filepath.Join(dir, "a.json")
	if files, err := readInputFiles(single); err != nil || len(files) != 1 || files[0] != single {
		t.Fatalf("single file input = %v, %v", files, err)
	}
	if _, err := readInputFiles(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing path")
	}
}
