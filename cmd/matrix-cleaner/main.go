package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tallgrasslab/chat-coder/codebook"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := codebook.CleanOptions{
		OverwriteExisting: cfg.Overwrite,
		Pretty:            cfg.Pretty,
	}

	if cfg.Batch {
		res, err := codebook.CleanDumpBatch(ctx, cfg.InputPath, cfg.OutputPath, cfg.Pattern, opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Fprintf(os.Stdout, "files_processed=%d files_skipped=%d messages_cleaned=%d out_dir=%s\n",
			res.FilesProcessed, len(res.FilesSkipped), res.MessagesCleaned, cfg.OutputPath)
		return
	}

	outPath := cfg.OutputPath
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(cfg.InputPath), "cleaned_"+filepath.Base(cfg.InputPath))
	}

	cleaned, err := codebook.CleanDumpFile(cfg.InputPath, outPath, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "messages_cleaned=%d out=%s\n", len(cleaned), outPath)

	if cfg.Summary {
		fmt.Fprint(os.Stdout, "\n"+codebook.SummarizeDump(cleaned).Format())
	}
}

type Config struct {
	InputPath  string
	OutputPath string
	Batch      bool
	Pattern    string
	Summary    bool
	Pretty     bool
	Overwrite  bool
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("missing -in")
	}
	if c.Batch && c.OutputPath == "" {
		return fmt.Errorf("missing -out (required with -batch)")
	}
	if !c.Batch && c.Pattern != "" {
		return fmt.Errorf("-pattern only applies with -batch")
	}
	if c.Batch && c.Summary {
		return fmt.Errorf("-summary only applies to single-file runs")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Pattern: "",
		Pretty:  true,
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Path to a raw chat dump JSON file, or a directory with -batch")
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Output file (default: cleaned_<input> next to the input), or output directory with -batch")
	fs.BoolVar(&cfg.Batch, "batch", false, "Clean every matching file in the -in directory")
	fs.StringVar(&cfg.Pattern, "pattern", cfg.Pattern, "Glob pattern for -batch input files (default *.json)")
	fs.BoolVar(&cfg.Summary, "summary", false, "Print per-room and per-user message counts after cleaning")
	fs.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "Pretty-print output JSON")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing output files")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/matrix-cleaner -in dumps/export.json -summary")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/matrix-cleaner -batch -in dumps -out cleaned -pattern '*.json'")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.InputPath != "" {
		cfg.InputPath = filepath.Clean(cfg.InputPath)
	}
	if cfg.OutputPath != "" {
		cfg.OutputPath = filepath.Clean(cfg.OutputPath)
	}
	return cfg, nil
}
