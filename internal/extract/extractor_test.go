package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtract_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("carbon nanotube dispersion"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "carbon nanotube dispersion" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_InvalidUTF8Replaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.md")
	if err := os.WriteFile(path, []byte{'o', 'k', 0xff, 0xfe}, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got[:2] != "ok" {
		t.Errorf("got %q", got)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	if _, err := Extract(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExtract_BadPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Extract(path); err == nil {
		t.Fatal("expected error for malformed pdf")
	}
}
