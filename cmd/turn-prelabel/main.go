package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/tallgrasslab/chat-coder/codebook"
	"github.com/tallgrasslab/chat-coder/codebook/fileutils"
	"github.com/tallgrasslab/chat-coder/codebook/provider"
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

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
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
	units, ok := res.Conversation(cfg.Pair[0], cfg.Pair[1])
	if !ok {
		fmt.Fprintf(os.Stderr, "no conversation found between %s and %s\n", cfg.Pair[0], cfg.Pair[1])
		os.Exit(1)
	}

	var turns []codebook.Turn
	for _, unit := range units {
		turns = append(turns, unit...)
	}
	if cfg.MaxTurns > 0 && len(turns) > cfg.MaxTurns {
		turns = turns[:cfg.MaxTurns]
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	labeler := openAILabeler{client: &client, model: cfg.Model}

	rows, err := prelabelTurns(ctx, labeler, turns, scheme)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if err := writeLabelCSV(cfg.OutputPath, rows, cfg.Overwrite); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "turns_labeled=%d rows=%d out=%s\n", len(turns), len(rows), cfg.OutputPath)
}

func loadScheme(path string) (codebook.Scheme, error) {
	if path == "" {
		return codebook.SampleScheme(), nil
	}
	return codebook.LoadScheme(path)
}

// turnLabeler suggests codes for one speaking turn.
type turnLabeler interface {
	LabelTurn(ctx context.Context, scheme codebook.Scheme, turn codebook.Turn) (labelResponse, error)
}

type turnLabel struct {
	Category  string `json:"category"`
	Code      string `json:"code"`
	Detail    string `json:"detail"`
	Rationale string `json:"rationale"`
}

type labelResponse struct {
	Labels []turnLabel `json:"labels"`
}

// prelabelTurns asks the labeler about each turn in order and flattens the
// suggestions into CSV rows: Turn,Sender,Category,Code,Detail,Rationale. A
// failed turn aborts the run; partial suggestion files are worse than none.
func prelabelTurns(ctx context.Context, labeler turnLabeler, turns []codebook.Turn, scheme codebook.Scheme) ([][]string, error) {
	if labeler == nil {
		return nil, errors.New("prelabelTurns: labeler is nil")
	}

	rows := [][]string{{"Turn", "Sender", "Category", "Code", "Detail", "Rationale"}}
	for i, turn := range turns {
		resp, err := labeler.LabelTurn(ctx, scheme, turn)
		if err != nil {
			return nil, fmt.Errorf("prelabelTurns: turn %d: %w", i, err)
		}
		for _, l := range resp.Labels {
			rows = append(rows, []string{
				strconv.Itoa(i),
				turn.Sender(),
				strings.TrimSpace(l.Category),
				strings.TrimSpace(l.Code),
				strings.TrimSpace(l.Detail),
				strings.TrimSpace(l.Rationale),
			})
		}
	}
	return rows, nil
}

func writeLabelCSV(path string, rows [][]string, overwrite bool) error {
	if !overwrite && fileutils.FileExists(path) {
		return fmt.Errorf("writeLabelCSV: output file already exists: %s", path)
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writeLabelCSV: %w", err)
	}
	if err := fileutils.WriteFileAtomicSameDir(path, []byte(strings.TrimRight(b.String(), "\n")), 0o644); err != nil {
		return fmt.Errorf("writeLabelCSV: %w", err)
	}
	return nil
}

type openAILabeler struct {
	client *openai.Client
	model  string
}

var labelSchema = provider.GenerateSchema[labelResponse]()

func (s openAILabeler) LabelTurn(ctx context.Context, scheme codebook.Scheme, turn codebook.Turn) (labelResponse, error) {
	if s.client == nil {
		return labelResponse{}, errors.New("openAILabeler: client is nil")
	}
	if s.model == "" {
		return labelResponse{}, errors.New("openAILabeler: model is empty")
	}

	input := buildTurnPromptInput(scheme, turn)
	format := responses.ResponseFormatTextConfigUnionParam{
		OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
			Name:        "TurnLabels",
			Schema:      labelSchema,
			Strict:      openai.Bool(true),
			Description: openai.String("Turn label suggestions JSON"),
			Type:        "json_schema",
		},
	}

	params := responses.ResponseNewParams{
		Model:           s.model,
		MaxOutputTokens: openai.Int(1000),
		Instructions:    openai.String(turnLabelerPrompt),
		ServiceTier:     responses.ResponseNewParamsServiceTierFlex,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: format,
		},
	}

	resp, err := provider.CallWithRetry(ctx, s.client, params)
	if err != nil {
		return labelResponse{}, err
	}

	var out labelResponse
	if err := fileutils.DecodeModelJSON(resp.OutputText(), &out); err != nil {
		return labelResponse{}, fmt.Errorf("unmarshal labels: %w", err)
	}
	return out, nil
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

type Config struct {
	Files      stringList
	Pair       [2]string
	AliasPath  string
	SchemePath string
	OutputPath string
	Model      string
	MaxTurns   int
	APIKey     string
	Overwrite  bool
}

func (c Config) Validate() error {
	if len(c.Files) == 0 {
		return fmt.Errorf("missing -file (repeat for multiple logs)")
	}
	if c.Pair[0] == "" || c.Pair[1] == "" {
		return fmt.Errorf("missing -users (as user1,user2)")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("missing -out")
	}
	if c.Model == "" {
		return fmt.Errorf("missing -model")
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("-max-turns must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Model: "gpt-5-mini",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	fs.SetOutput(os.Stderr)

	var users string
	fs.Var(&cfg.Files, "file", "Chat log JSON file (repeat for multiple files)")
	fs.StringVar(&users, "users", "", "Participant pair as user1,user2")
	fs.StringVar(&cfg.AliasPath, "aliases", cfg.AliasPath, "Path to an alias mapping JSON file")
	fs.StringVar(&cfg.SchemePath, "scheme", cfg.SchemePath, "Annotation scheme file, JSON or TOML (default: built-in sample)")
	fs.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "Output CSV file for suggested codes")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model for label suggestions")
	fs.IntVar(&cfg.MaxTurns, "max-turns", 0, "Label at most N turns (0 = all)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite an existing output file")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/turn-prelabel -file logs/jan.json -users alice,bob -out suggestions.csv")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/turn-prelabel -file logs/jan.json -users alice,bob -scheme scheme.toml -model gpt-5-mini -max-turns 50 -out suggestions.csv")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if users != "" {
		parts := strings.Split(users, ",")
		if len(parts) != 2 {
			return Config{}, fmt.Errorf("expected -users user1,user2 - got %q", users)
		}
		cfg.Pair[0] = strings.TrimSpace(parts[0])
		cfg.Pair[1] = strings.TrimSpace(parts[1])
	}
	if cfg.OutputPath != "" {
		cfg.OutputPath = filepath.Clean(cfg.OutputPath)
	}
	return cfg, nil
}
