package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

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

	msgs, err := codebook.ReadMessageFile(cfg.InputPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	for i := range msgs {
		msgs[i].Sender = aliases.Canonicalize(msgs[i].Sender)
	}

	if cfg.ChatID != "" {
		msgs = codebook.FilterChat(msgs, cfg.ChatID)
	}
	if len(msgs) == 0 {
		fmt.Fprintf(os.Stderr, "no messages found for chat %q in %s\n", cfg.ChatID, cfg.InputPath)
		os.Exit(1)
	}
	codebook.SortMessages(msgs)

	mainUser := cfg.MainUser
	if mainUser == "" {
		mainUser = codebook.MostActiveSender(msgs)
		fmt.Fprintf(os.Stdout, "main_user=%s (most active sender)\n", mainUser)
	}

	turns := codebook.SegmentTurns(msgs)

	chatLabel := cfg.ChatID
	if chatLabel == "" {
		chatLabel = filepath.Base(cfg.InputPath)
	}
	outPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("group_chat_%s.html", codebook.SafeFileName(chatLabel)))

	err = codebook.WriteGroupChatPage(outPath, chatLabel, mainUser, turns, scheme, codebook.RenderOptions{
		OverwriteExisting: cfg.Overwrite,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "messages=%d turns=%d wrote %s\n", len(msgs), len(turns), outPath)
}

func loadScheme(path string) (codebook.Scheme, error) {
	if path == "" {
		return codebook.SampleScheme(), nil
	}
	return codebook.LoadScheme(path)
}

type Config struct {
	InputPath  string
	ChatID     string
	MainUser   string
	AliasPath  string
	SchemePath string
	OutputDir  string
	Overwrite  bool
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("missing -in")
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

	fs.StringVar(&cfg.InputPath, "in", cfg.InputPath, "Cleaned group chat JSON file")
	fs.StringVar(&cfg.ChatID, "chat-id", cfg.ChatID, "Chat room id to extract (default: all messages in the file)")
	fs.StringVar(&cfg.MainUser, "main-user", cfg.MainUser, "User whose turns align right (default: most active sender)")
	fs.StringVar(&cfg.AliasPath, "aliases", cfg.AliasPath, "Path to an alias mapping JSON file")
	fs.StringVar(&cfg.SchemePath, "scheme", cfg.SchemePath, "Annotation scheme file, JSON or TOML (default: built-in sample)")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Directory to write the annotation page into")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite an existing output file")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/groupchat-coder -in cleaned/cleaned_export.json -chat-id '!abc123'")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/groupchat-coder -in cleaned/cleaned_export.json -chat-id '!abc123' -main-user bob -scheme scheme.toml -out pages")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.InputPath != "" {
		cfg.InputPath = filepath.Clean(cfg.InputPath)
	}
	cfg.OutputDir = filepath.Clean(cfg.OutputDir)
	return cfg, nil
}
