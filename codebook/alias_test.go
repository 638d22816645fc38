package codebook

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAliasFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aliases.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadAliasTable_MapsAliasesAndPrimaries(t *testing.T) {
	t.Parallel()

	path := writeAliasFile(t, `[
		{"primary": "bob", "aliases": ["Robert", "bobby"]},
		{"primary": "alice", "aliases": []}
	]`)

	table, err := LoadAliasTable(path)
	if err != nil {
		t.Fatalf("LoadAliasTable: %v", err)
	}

	cases := map[string]string{
		"Robert":  "bob",
		"bobby":   "bob",
		"bob":     "bob",
		"alice":   "alice",
		"unknown": "unknown",
	}
	for in, want := range cases {
		if got := table.Canonicalize(in); got != want {
			t.Fatalf("Canonicalize(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestLoadAliasTable_BadJSON(t *testing.T) {
	t.Parallel()

	path := writeAliasFile(t, `{"not": "an array"}`)
	if _, err := LoadAliasTable(path); err == nil {
		t.Fatalf("LoadAliasTable accepted a non-array document")
	}
}

func TestCanonicalize_NilTable(t *testing.T) {
	t.Parallel()

	var table AliasTable
	if got := table.Canonicalize("carol"); got != "carol" {
		t.Fatalf("Canonicalize on nil table=%q, want %q", got, "carol")
	}
}

func TestNewPairKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	k1 := NewPairKey("bob", "alice")
	k2 := NewPairKey("alice", "bob")
	if k1 != k2 {
		t.Fatalf("pair keys differ: %v vs %v", k1, k2)
	}
	if k1.A != "alice" || k1.B != "bob" {
		t.Fatalf("pair key not sorted: %v", k1)
	}
}
