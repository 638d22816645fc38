package codebook

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// BuildResult is the outcome of assembling conversations from one or more
// chat log files.
type BuildResult struct {
	// Conversations maps each unordered participant pair to its date-grouped,
	// turn-segmented units.
	Conversations map[PairKey][]Unit

	// MessagesRead counts messages parsed from input files; MessagesKept
	// counts messages that landed in a conversation bucket. The two should
	// match; a difference indicates a bug in bucketing.
	MessagesRead int
	MessagesKept int

	// FilesSkipped lists input files that were missing or failed to parse.
	FilesSkipped []string
}

// BuildConversations ingests pairwise chat log files, canonicalizes
// participants through the alias table, buckets messages by unordered pair,
// sorts each bucket by timestamp and segments it into date units of speaking
// turns. Missing or malformed files are skipped with a diagnostic on stderr;
// the run continues with the remaining files.
func BuildConversations(ctx context.Context, files []string, aliases AliasTable) (BuildResult, error) {
	if ctx == nil {
		return BuildResult{}, errors.New("BuildConversations: ctx is nil")
	}
	if len(files) == 0 {
		return BuildResult{}, errors.New("BuildConversations: no input files")
	}

	res := BuildResult{Conversations: make(map[PairKey][]Unit)}
	buckets := make(map[PairKey][]Message)

	for _, path := range files {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		if _, err := os.Stat(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: file not found: %s\n", path)
			res.FilesSkipped = append(res.FilesSkipped, path)
			continue
		}

		msgs, err := ReadMessageFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", path, err)
			res.FilesSkipped = append(res.FilesSkipped, path)
			continue
		}
		res.MessagesRead += len(msgs)

		for _, m := range msgs {
			m.Sender = aliases.Canonicalize(m.Sender)
			m.Receiver = aliases.Canonicalize(m.Receiver)
			key := NewPairKey(m.Sender, m.Receiver)
			buckets[key] = append(buckets[key], m)
			res.MessagesKept++
		}
	}

	for key, msgs := range buckets {
		SortMessages(msgs)
		res.Conversations[key] = SegmentUnits(msgs)
	}
	return res, nil
}

// Conversation returns the units for the two given canonical participants,
// regardless of direction.
func (r BuildResult) Conversation(userI, userJ string) ([]Unit, bool) {
	units, ok := r.Conversations[NewPairKey(userI, userJ)]
	return units, ok
}

// FilterChat keeps only the messages belonging to chatID, preserving order.
func FilterChat(messages []Message, chatID string) []Message {
	var out []Message
	for _, m := range messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// MostActiveSender returns the sender with the highest message count. Ties
// go to the sender seen first. Empty input returns "".
func MostActiveSender(messages []Message) string {
	counts := make(map[string]int)
	var order []string
	for _, m := range messages {
		if m.Sender == "" {
			continue
		}
		if _, ok := counts[m.Sender]; !ok {
			order = append(order, m.Sender)
		}
		counts[m.Sender]++
	}

	best := ""
	bestCount := 0
	for _, sender := range order {
		if counts[sender] > bestCount {
			best = sender
			bestCount = counts[sender]
		}
	}
	return best
}
