package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
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

	scheme, err := loadScheme(cfg.SchemePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	var aliases codebook.AliasTable
	if cfg.AliasPath != "" {
		aliases, err = codebook.LoadAliasTable(cfg.AliasPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	}

	res, err := codebook.BuildConversations(ctx, cfg.Files, aliases)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "messages_read=%d messages_kept=%d conversations=%d files_skipped=%d\n",
		res.MessagesRead, res.MessagesKept, len(res.Conversations), len(res.FilesSkipped))
	if res.MessagesRead != res.MessagesKept {
		fmt.Fprintf(os.Stderr, "warning: message count mismatch: read %d, kept %d\n", res.MessagesRead, res.MessagesKept)
	}

	exitCode := 0
	for _, pair := range cfg.Pairs {
		units, ok := res.Conversation(pair[0], pair[1])
		if !ok {
			fmt.Fprintf(os.Stdout, "No conversation found between %s and %s.\n", pair[0], pair[1])
			continue
		}

		outPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("conversation_history_%s_%s.html",
			codebook.SafeFileName(pair[0]), codebook.SafeFileName(pair[1])))
		err := codebook.WriteConversationPage(outPath, pair[0], pair[1], units, scheme, codebook.RenderOptions{
			OverwriteExisting: cfg.Overwrite,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			exitCode = 1
			continue
		}
		fmt.Fprintf(os.Stdout, "wrote %s\n", outPath)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func loadScheme(path string) (codebook.Scheme, error) {
	if path == "" {
		return codebook.SampleScheme(), nil
	}
	return codebook.LoadScheme(path)
}

// stringList collects repeated occurrences of a flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	if v == "" {
		return fmt.Errorf("empty value")
	}
	*l = append(*l, v)
	return nil
}

// pairList collects repeated "user1,user2" flag values.
type pairList [][2]string

func (l *pairList) String() string {
	parts := make([]string, 0, len(*l))
	for _, p := range *l {
		parts = append(parts, p[0]+","+p[1])
	}
	return strings.Join(parts, " ")
}

func (l *pairList) Set(v string) error {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return fmt.Errorf("expected user1,user2 - got %q", v)
	}
	u1 := strings.TrimSpace(parts[0])
	u2 := strings.TrimSpace(parts[1])
	if u1 == "" || u2 == "" {
		return fmt.Errorf("expected user1,user2 - got %q", v)
	}
	*l = append(*l, [2]string{u1, u2})
	return nil
}

type Config struct {
	Files      stringList
	Pairs      pairList
	AliasPath  string
	SchemePath string
	OutputDir  string
	Overwrite  bool
}

func (c Config) Validate() error {
	if len(c.Files) == 0 {
		return fmt.Errorf("missing -file (repeat for multiple logs)")
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("missing -users (repeat for multiple pairs)")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		OutputDir: ".",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	fs.SetOutput(os.Stderr)

	fs.Var(&cfg.Files, "file", "Chat log JSON file (repeat for multiple files)")
	fs.Var(&cfg.Pairs, "users", "Participant pair as user1,user2 (repeat for multiple pairs)")
	fs.StringVar(&cfg.AliasPath, "aliases", cfg.AliasPath, "Path to an alias mapping JSON file")
	fs.StringVar(&cfg.SchemePath, "scheme", cfg.SchemePath, "Annotation scheme file, JSON or TOML (default: built-in sample)")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Directory to write annotation pages into")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing output files")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/convo-coder -file logs/jan.json -users alice,bob")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/convo-coder -file logs/jan.json -file logs/feb.json -aliases aliases.json -users alice,bob -users alice,carol -scheme scheme.toml -out pages")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.OutputDir = filepath.Clean(cfg.OutputDir)
	return cfg, nil
}
