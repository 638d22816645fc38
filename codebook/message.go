package codebook

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Message is one chat message after parsing. Messages are derived, read-only
// artifacts of a batch run and are never mutated after construction.
type Message struct {
	Timestamp  time.Time
	Sender     string
	Receiver   string
	Text       string
	Translated string
	ChatID     string
}

// rawMessage covers the field variants seen across exports: pairwise logs use
// ts/from/to/body, cleaned Matrix dumps use timestamp/sender_alias/message.
type rawMessage struct {
	TS          string `json:"ts"`
	Timestamp   string `json:"timestamp"`
	ChatID      string `json:"chat_id"`
	From        string `json:"from"`
	SenderAlias string `json:"sender_alias"`
	To          string `json:"to"`
	Body        string `json:"body"`
	Message     string `json:"message"`
	Translated  string `json:"message_translated"`
}

// ReadMessageFile parses a JSON array of message objects from path.
func ReadMessageFile(path string) ([]Message, error) {
	if path == "" {
		return nil, fmt.Errorf("ReadMessageFile: path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ReadMessageFile: read file: %w", err)
	}

	var raws []rawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, fmt.Errorf("ReadMessageFile: unmarshal %s: %w", path, err)
	}

	msgs := make([]Message, 0, len(raws))
	for i, r := range raws {
		m, err := r.toMessage()
		if err != nil {
			return nil, fmt.Errorf("ReadMessageFile: %s message %d: %w", path, i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (r rawMessage) toMessage() (Message, error) {
	stamp := r.TS
	if stamp == "" {
		stamp = r.Timestamp
	}
	ts, err := ParseTimestamp(stamp)
	if err != nil {
		return Message{}, err
	}

	sender := r.From
	if sender == "" {
		sender = r.SenderAlias
	}
	text := r.Body
	if text == "" {
		text = r.Message
	}

	return Message{
		Timestamp:  ts,
		Sender:     sender,
		Receiver:   r.To,
		Text:       text,
		Translated: r.Translated,
		ChatID:     r.ChatID,
	}, nil
}

// timestampLayouts are tried in order. Exports carry ISO-8601 strings, with
// and without zone offsets or fractional seconds.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp string. Zone-less layouts are
// interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("ParseTimestamp: empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("ParseTimestamp: unrecognized timestamp %q", s)
}

// SortMessages orders messages ascending by timestamp, keeping the input
// order for equal stamps.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
