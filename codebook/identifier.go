package codebook

import (
	"regexp"
	"strings"
)

// Matrix identifiers as they appear in raw dumps: a room id like
// "!abc123:matrix.example.org" and a user id like "@bob_99:example.org",
// sometimes wrapped in literal quote characters.
var (
	roomIDPattern = regexp.MustCompile(`!([\w\d]+)`)
	userIDPattern = regexp.MustCompile(`@?([\w\d_-]+)`)
)

// StripQuotes removes every literal double-quote character.
func StripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}

// CleanRoomID extracts the local room id token ("!abc123") from a raw
// chat-room identifier. When no room id shape is found the quote-stripped
// input is returned unchanged.
func CleanRoomID(raw string) string {
	s := StripQuotes(raw)
	if m := roomIDPattern.FindStringSubmatch(s); m != nil {
		return "!" + m[1]
	}
	return s
}

// CleanUserID extracts the username token from a raw user identifier,
// dropping the optional "@" prefix and the ":server" suffix. When no
// username shape is found the quote-stripped input is returned unchanged.
func CleanUserID(raw string) string {
	s := StripQuotes(raw)
	if m := userIDPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
