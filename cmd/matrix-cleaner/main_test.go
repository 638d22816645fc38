package main

import (
	"flag"
	"testing"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("matrix-cleaner", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InputPath != "" {
		t.Fatalf("InputPath=%q, want empty default", cfg.InputPath)
	}
	if !cfg.Pretty {
		t.Fatalf("Pretty=false, want true by default")
	}
	if cfg.Batch || cfg.Summary || cfg.Overwrite {
		t.Fatalf("boolean flags should default to false")
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("matrix-cleaner", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-in", "dumps",
		"-out", "cleaned",
		"-batch",
		"-pattern", "export_*.json",
		"-overwrite",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InputPath != "dumps" || cfg.OutputPath != "cleaned" {
		t.Fatalf("paths=%q/%q", cfg.InputPath, cfg.OutputPath)
	}
	if !cfg.Batch || !cfg.Overwrite {
		t.Fatalf("Batch/Overwrite not set")
	}
	if cfg.Pattern != "export_*.json" {
		t.Fatalf("Pattern=%q", cfg.Pattern)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected error for empty config")
	}
	if err := (Config{InputPath: "dumps", Batch: true}).Validate(); err == nil {
		t.Fatalf("expected error for -batch without -out")
	}
	if err := (Config{InputPath: "a.json", Pattern: "*.json"}).Validate(); err == nil {
		t.Fatalf("expected error for -pattern without -batch")
	}
	if err := (Config{InputPath: "dumps", OutputPath: "out", Batch: true, Summary: true}).Validate(); err == nil {
		t.Fatalf("expected error for -summary with -batch")
	}
	if err := (Config{InputPath: "a.json"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
