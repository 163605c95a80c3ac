package repo

import (
	"context"
	"errors"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/annual-inspection-bot/internal/codec"
	"github.com/tbourn/annual-inspection-bot/internal/domain"
)

// DefaultStateKey is the single storage key holding the whole state document.
const DefaultStateKey = "annuals_state_v1"

// StateRepository loads and saves the GlobalState document on top of a KV.
//
// Concurrency: Load and Save are separate round-trips with no version check.
// Two callers that interleave load/merge/save on the same document race and
// the later Save wins for the whole document.
type StateRepository struct {
	KV  KV
	Key string
}

// NewStateRepository returns a repository bound to key (DefaultStateKey when empty).
func NewStateRepository(kv KV, key string) *StateRepository {
	if key == "" {
		key = DefaultStateKey
	}
	return &StateRepository{KV: kv, Key: key}
}

// Load returns the stored state. An absent key or an unparsable document
// yields an empty state, not an error; only backend failures are returned.
func (r *StateRepository) Load(ctx context.Context) (domain.GlobalState, error) {
	raw, err := r.KV.Get(ctx, r.Key)
	if errors.Is(err, ErrNotFound) {
		return domain.GlobalState{}, nil
	}
	if err != nil {
		return nil, err
	}

	state, dropped, err := DecodeState([]byte(raw))
	if err != nil {
		log.Warn().Err(err).Str("key", r.Key).Msg("state document unparsable; starting empty")
		return domain.GlobalState{}, nil
	}
	if dropped > 0 {
		log.Warn().Int("dropped", dropped).Str("key", r.Key).Msg("state document had invalid entries")
	}
	return state, nil
}

// Save replaces the whole stored document with state.
func (r *StateRepository) Save(ctx context.Context, state domain.GlobalState) error {
	b, err := EncodeState(state)
	if err != nil {
		return err
	}
	return r.KV.Set(ctx, r.Key, string(b))
}

// EncodeState serializes state as {"chat":{"PLATE":"YYYY-MM-DD"}}.
func EncodeState(state domain.GlobalState) ([]byte, error) {
	if state == nil {
		state = domain.GlobalState{}
	}
	return json.Marshal(state)
}

// DecodeState parses a state document. The top level must be a JSON object
// (or null); anything else is an error. Chat entries that are not objects,
// empty plate keys and plate entries that are not valid YYYY-MM-DD strings
// are skipped and counted in dropped.
//
// Plate keys are normalized the way inbound facts are, so a document written
// by hand or by an older build still matches new messages. When two keys fold
// to the same plate the later date is kept and the other is counted as dropped.
func DecodeState(b []byte) (state domain.GlobalState, dropped int, err error) {
	var chats map[string]json.RawMessage
	if err := json.Unmarshal(b, &chats); err != nil {
		return nil, 0, err
	}

	state = make(domain.GlobalState, len(chats))
	for chatID, rawChat := range chats {
		var plates map[string]json.RawMessage
		if err := json.Unmarshal(rawChat, &plates); err != nil {
			dropped++
			continue
		}
		cs := make(domain.ChatState, len(plates))
		for plate, rawDate := range plates {
			var s string
			if err := json.Unmarshal(rawDate, &s); err != nil {
				dropped++
				continue
			}
			d, err := domain.ParseCalendarDate(s)
			if err != nil {
				dropped++
				continue
			}
			key := codec.NormalizePlate(strings.TrimSpace(plate))
			if key == "" {
				dropped++
				continue
			}
			if prev, ok := cs[key]; ok {
				dropped++
				if !d.After(prev) {
					continue
				}
			}
			cs[key] = d
		}
		state[chatID] = cs
	}
	return state, dropped, nil
}
