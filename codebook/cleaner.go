package codebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tallgrasslab/chat-coder/codebook/fileutils"
)

// CleanOptions controls how cleaned dump files are written.
type CleanOptions struct {
	// OverwriteExisting controls whether an existing output file is replaced.
	OverwriteExisting bool

	// Pretty controls whether the output JSON is indented.
	Pretty bool
}

// CleanRecords rewrites the chat_id and sender_alias fields of each raw dump
// record, stripping quotes and server suffixes. All other fields pass through
// untouched. The input slice is not modified.
func CleanRecords(records []map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		cleaned := make(map[string]any, len(rec))
		for k, v := range rec {
			cleaned[k] = v
		}
		if chatID, ok := rec["chat_id"].(string); ok {
			cleaned["chat_id"] = CleanRoomID(chatID)
		}
		if sender, ok := rec["sender_alias"].(string); ok {
			cleaned["sender_alias"] = CleanUserID(sender)
		}
		out = append(out, cleaned)
	}
	return out
}

// CleanDumpFile reads a Matrix chat dump, cleans its identifiers and writes
// the result to outPath. A top-level JSON object is tolerated and treated as
// a one-message dump. When outPath is empty nothing is written and only the
// cleaned records are returned.
func CleanDumpFile(inputPath, outPath string, opts CleanOptions) ([]map[string]any, error) {
	if inputPath == "" {
		return nil, errors.New("CleanDumpFile: inputPath is empty")
	}
	b, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("CleanDumpFile: read input: %w", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(b, &records); err != nil {
		var single map[string]any
		if err2 := json.Unmarshal(b, &single); err2 != nil {
			return nil, fmt.Errorf("CleanDumpFile: unmarshal %s: %w", inputPath, err)
		}
		records = []map[string]any{single}
	}

	cleaned := CleanRecords(records)

	if outPath != "" {
		if !opts.OverwriteExisting && fileutils.FileExists(outPath) {
			return nil, fmt.Errorf("CleanDumpFile: output file already exists: %s", outPath)
		}
		if err := fileutils.WriteJSONFileAtomic(outPath, cleaned, opts.Pretty); err != nil {
			return nil, fmt.Errorf("CleanDumpFile: write output: %w", err)
		}
	}
	return cleaned, nil
}

// BatchResult contains basic stats from a batch cleaning run.
type BatchResult struct {
	FilesProcessed  int
	FilesSkipped    []string
	MessagesCleaned int
}

// CleanDumpBatch cleans every file in inputDir matching pattern, writing each
// result to outputDir under a "cleaned_" prefix. Files that fail to parse are
// skipped with a diagnostic on stderr; the batch continues.
func CleanDumpBatch(ctx context.Context, inputDir, outputDir, pattern string, opts CleanOptions) (BatchResult, error) {
	if ctx == nil {
		return BatchResult{}, errors.New("CleanDumpBatch: ctx is nil")
	}
	if inputDir == "" {
		return BatchResult{}, errors.New("CleanDumpBatch: inputDir is empty")
	}
	if outputDir == "" {
		return BatchResult{}, errors.New("CleanDumpBatch: outputDir is empty")
	}
	if pattern == "" {
		pattern = "*.json"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("CleanDumpBatch: mkdir outputDir: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(inputDir, pattern))
	if err != nil {
		return BatchResult{}, fmt.Errorf("CleanDumpBatch: glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return BatchResult{}, fmt.Errorf("CleanDumpBatch: no files matching %q in %s", pattern, inputDir)
	}
	sort.Strings(paths)

	var res BatchResult
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		outPath := filepath.Join(outputDir, "cleaned_"+filepath.Base(path))
		cleaned, err := CleanDumpFile(path, outPath, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", path, err)
			res.FilesSkipped = append(res.FilesSkipped, path)
			continue
		}
		res.FilesProcessed++
		res.MessagesCleaned += len(cleaned)
	}
	return res, nil
}

// DumpSummary counts messages per room and per user in a cleaned dump.
type DumpSummary struct {
	TotalMessages int
	RoomCounts    map[string]int
	UserCounts    map[string]int
}

// SummarizeDump tallies room and user message counts.
func SummarizeDump(records []map[string]any) DumpSummary {
	s := DumpSummary{
		RoomCounts: make(map[string]int),
		UserCounts: make(map[string]int),
	}
	for _, rec := range records {
		s.TotalMessages++
		if room, ok := rec["chat_id"].(string); ok {
			s.RoomCounts[room]++
		}
		if user, ok := rec["sender_alias"].(string); ok {
			s.UserCounts[user]++
		}
	}
	return s
}

// Format renders the summary as the human-readable report printed by the
// cleaner's -summary mode. Rooms and users are listed in sorted order.
func (s DumpSummary) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total messages: %d\n", s.TotalMessages)
	fmt.Fprintf(&b, "Unique chat rooms: %d\n", len(s.RoomCounts))
	fmt.Fprintf(&b, "Unique users: %d\n", len(s.UserCounts))

	if len(s.RoomCounts) > 0 {
		b.WriteString("\nChat rooms:\n")
		for _, room := range sortedKeys(s.RoomCounts) {
			fmt.Fprintf(&b, "  %s: %d messages\n", room, s.RoomCounts[room])
		}
	}
	if len(s.UserCounts) > 0 {
		b.WriteString("\nUsers:\n")
		for _, user := range sortedKeys(s.UserCounts) {
			fmt.Fprintf(&b, "  %s: %d messages\n", user, s.UserCounts[user])
		}
	}
	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
