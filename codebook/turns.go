package codebook

import "time"

// TurnBreak is the largest gap allowed between consecutive messages of one
// speaking turn. A gap of exactly TurnBreak does not break the turn.
const TurnBreak = 1800 * time.Second

// Turn is a non-empty run of messages by a single sender whose consecutive
// timestamps are at most TurnBreak apart.
type Turn []Message

// Sender returns the turn's sender.
func (t Turn) Sender() string {
	if len(t) == 0 {
		return ""
	}
	return t[0].Sender
}

// Unit is the sequence of turns derived from the messages of one calendar
// date within a conversation.
type Unit []Turn

// SegmentTurns partitions messages into speaking turns. The input must be
// sorted ascending by timestamp. A new turn starts whenever the sender
// changes or the gap to the previous message exceeds TurnBreak. Every input
// message lands in exactly one turn, in order.
func SegmentTurns(messages []Message) []Turn {
	if len(messages) == 0 {
		return nil
	}

	var turns []Turn
	current := Turn{messages[0]}
	for _, msg := range messages[1:] {
		prev := current[len(current)-1]
		if msg.Sender != prev.Sender || msg.Timestamp.Sub(prev.Timestamp) > TurnBreak {
			turns = append(turns, current)
			current = Turn{msg}
			continue
		}
		current = append(current, msg)
	}
	return append(turns, current)
}

// GroupByDate partitions messages by calendar date, in first-seen date order.
// The input is expected to be sorted by timestamp, in which case each group
// stays sorted too.
func GroupByDate(messages []Message) [][]Message {
	var order []string
	groups := make(map[string][]Message)
	for _, m := range messages {
		day := m.Timestamp.Format("2006-01-02")
		if _, ok := groups[day]; !ok {
			order = append(order, day)
		}
		groups[day] = append(groups[day], m)
	}

	out := make([][]Message, 0, len(order))
	for _, day := range order {
		out = append(out, groups[day])
	}
	return out
}

// SegmentUnits groups sorted messages by calendar date and segments each date
// group into turns independently.
func SegmentUnits(messages []Message) []Unit {
	days := GroupByDate(messages)
	units := make([]Unit, 0, len(days))
	for _, day := range days {
		units = append(units, SegmentTurns(day))
	}
	return units
}
