package codebook

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseTimestamp_Layouts(t *testing.T) {
	t.Parallel()

	cases := []string{
		"2024-01-05T10:00:00Z",
		"2024-01-05T10:00:00+02:00",
		"2024-01-05T10:00:00.123456",
		"2024-01-05T10:00:00",
		"2024-01-05 10:00:00",
		"2024-01-05",
	}
	for _, s := range cases {
		if _, err := ParseTimestamp(s); err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", s, err)
		}
	}
}

func TestParseTimestamp_ZonelessIsUTC(t *testing.T) {
	t.Parallel()

	ts, err := ParseTimestamp("2024-01-05T10:00:00")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	want := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("got %v, want %v", ts, want)
	}
}

func TestParseTimestamp_Rejects(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "  ", "yesterday", "05/01/2024"} {
		if _, err := ParseTimestamp(s); err == nil {
			t.Fatalf("ParseTimestamp(%q) accepted garbage", s)
		}
	}
}

func TestReadMessageFile_FieldVariants(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.json")
	content := `[
		{"ts": "2024-01-05T10:00:00", "from": "alice", "to": "bob", "body": "hi"},
		{"timestamp": "2024-01-05T10:01:00", "sender_alias": "bob", "chat_id": "!room1", "message": "hallo", "message_translated": "hello"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	msgs, err := ReadMessageFile(path)
	if err != nil {
		t.Fatalf("ReadMessageFile: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs)=%d, want 2", len(msgs))
	}

	if msgs[0].Sender != "alice" || msgs[0].Receiver != "bob" || msgs[0].Text != "hi" {
		t.Fatalf("msg0=%+v", msgs[0])
	}
	if msgs[1].Sender != "bob" || msgs[1].ChatID != "!room1" {
		t.Fatalf("msg1=%+v", msgs[1])
	}
	if msgs[1].Text != "hallo" || msgs[1].Translated != "hello" {
		t.Fatalf("msg1 text/translation=%q/%q", msgs[1].Text, msgs[1].Translated)
	}
}

func TestReadMessageFile_BadTimestamp(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.json")
	if err := os.WriteFile(path, []byte(`[{"ts": "not a time", "from": "a"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadMessageFile(path); err == nil {
		t.Fatalf("ReadMessageFile accepted an unparseable timestamp")
	}
}

func TestSortMessages_StableByTimestamp(t *testing.T) {
	t.Parallel()

	msgs := []Message{
		{Timestamp: time.Date(2024, 1, 5, 11, 0, 0, 0, time.UTC), Text: "second"},
		{Timestamp: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), Text: "first-a"},
		{Timestamp: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), Text: "first-b"},
	}
	SortMessages(msgs)
	if msgs[0].Text != "first-a" || msgs[1].Text != "first-b" || msgs[2].Text != "second" {
		t.Fatalf("sorted order wrong: %q %q %q", msgs[0].Text, msgs[1].Text, msgs[2].Text)
	}
}
