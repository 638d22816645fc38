package fileutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if FileExists(path) {
		t.Fatalf("FileExists true for missing file")
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !FileExists(path) {
		t.Fatalf("FileExists false for existing file")
	}
}

func TestSanitizeNewlines(t *testing.T) {
	t.Parallel()

	got := SanitizeNewlines("a\r\nb\rc\nd")
	if got != `a\nb\nc\nd` {
		t.Fatalf("SanitizeNewlines=%q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("  short  ", 100); got != "short" {
		t.Fatalf("Truncate=%q, want %q", got, "short")
	}
	got := Truncate("abcdefgh", 4)
	if !strings.HasPrefix(got, "abcd") || !strings.HasSuffix(got, "…") {
		t.Fatalf("Truncate=%q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Fatalf("Truncate with max 0=%q, want unchanged", got)
	}
}

func TestWriteJSONFileAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "out.json")
	v := map[string]int{"a": 1}
	if err := WriteJSONFileAtomic(path, v, true); err != nil {
		t.Fatalf("WriteJSONFileAtomic: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["a"] != 1 {
		t.Fatalf("got=%v", got)
	}
	if !strings.HasSuffix(string(b), "\n") {
		t.Fatalf("output missing trailing newline")
	}
}

func TestWriteFileAtomicSameDir_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := WriteFileAtomicSameDir(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomicSameDir: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.txt" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}
