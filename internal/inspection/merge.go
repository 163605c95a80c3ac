// Package inspection holds the pure core of the reminder service: merging a
// parsed fact into the per-chat state under the "strictly newer wins" rule,
// and scanning the state for records that are due for a reminder today.
//
// Nothing here performs I/O. Callers load the state, call Merge or Scan, and
// persist or dispatch the result themselves.
package inspection

import "github.com/tbourn/annual-inspection-bot/internal/domain"

// Decision describes what Merge did with a fact.
type Decision int

const (
	// Stale means the fact's date was equal to or earlier than the stored
	// one; state is unchanged.
	Stale Decision = iota
	// Inserted means the plate had no record in the chat yet.
	Inserted
	// Replaced means the fact's date was strictly later than the stored one.
	Replaced
)

// Accepted reports whether the fact changed the state.
func (d Decision) Accepted() bool { return d == Inserted || d == Replaced }

func (d Decision) String() string {
	switch d {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	default:
		return "stale"
	}
}

// Merge folds fact into the record set of chatID.
//
// A new plate is accepted unconditionally. An existing plate is updated only
// when the fact's date is strictly later; ties and earlier dates are ignored.
// The input state is never modified: on acceptance a copy with the single
// (chat, plate) entry replaced is returned, otherwise state itself.
func Merge(state domain.GlobalState, chatID string, fact domain.ParsedFact) (domain.GlobalState, Decision) {
	decision := decide(state[chatID], fact)
	if !decision.Accepted() {
		if state == nil {
			state = domain.GlobalState{}
		}
		return state, decision
	}

	next := state.Clone()
	cs, ok := next[chatID]
	if !ok {
		cs = domain.ChatState{}
		next[chatID] = cs
	}
	cs[fact.Plate] = fact.Date
	return next, decision
}

func decide(cs domain.ChatState, fact domain.ParsedFact) Decision {
	current, ok := cs[fact.Plate]
	switch {
	case !ok:
		return Inserted
	case fact.Date.After(current):
		return Replaced
	default:
		return Stale
	}
}
