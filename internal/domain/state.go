package domain

import "strconv"

// ChatState maps a normalized plate to its current expiry date. Exactly one
// date is kept per plate; there is no history.
type ChatState map[string]CalendarDate

// GlobalState is the whole persisted document: chat id -> ChatState.
// It is always loaded and saved as a single unit.
type GlobalState map[string]ChatState

// Clone returns a deep copy of s. A nil state clones to an empty one.
func (s GlobalState) Clone() GlobalState {
	out := make(GlobalState, len(s))
	for chat, cs := range s {
		cp := make(ChatState, len(cs))
		for p, d := range cs {
			cp[p] = d
		}
		out[chat] = cp
	}
	return out
}

// Len is the total number of plate records across all chats.
func (s GlobalState) Len() int {
	n := 0
	for _, cs := range s {
		n += len(cs)
	}
	return n
}

// ChatKey formats a transport chat identifier as a state key.
func ChatKey(id int64) string { return strconv.FormatInt(id, 10) }

// Strategy names the codec strategy that produced a fact.
type Strategy string

const (
	StrategyText     Strategy = "text"
	StrategyFileName Strategy = "filename"
)

// ParsedFact is a (plate, date) pair extracted from one inbound event.
// It is consumed by the merge step and never persisted directly.
type ParsedFact struct {
	Plate    string
	Date     CalendarDate
	Strategy Strategy
}

// DueRecord is a record selected by the daily scan for notification.
type DueRecord struct {
	ChatID   string
	Plate    string
	Expiry   CalendarDate
	DaysLeft int
}
