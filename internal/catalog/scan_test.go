package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"classd/pkg/types"
)

func TestScanGGUFFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"sst2-q4.gguf",
		"emotions.GGUF", // case-insensitive
		"notes.txt",
		"model.bin",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(""), 0o644); err != nil {
			t.Fatalf("write temp file: %v", err)
		}
	}
	out, err := ScanGGUF(dir)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 analyzers, got %d", len(out))
	}
	for _, a := range out {
		if a.Kind != types.KindLearned {
			t.Fatalf("kind = %s", a.Kind)
		}
		if a.RemoteID == "" || a.ID == a.RemoteID {
			t.Fatalf("id/remote id not derived from filename: %+v", a)
		}
	}
}

func TestScanGGUFMissingDir(t *testing.T) {
	if _, err := ScanGGUF(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
