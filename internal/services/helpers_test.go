package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbourn/annual-inspection-bot/internal/domain"
)

// ---------- test doubles ----------

type memStore struct {
	mu      sync.Mutex
	state   domain.GlobalState
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) (domain.GlobalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.state.Clone(), nil
}

func (m *memStore) Save(_ context.Context, st domain.GlobalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = st.Clone()
	return nil
}

type sent struct{ chatID, text string }

type recNotifier struct {
	mu     sync.Mutex
	msgs   []sent
	failOn map[string]bool // chat ids that fail
}

func (r *recNotifier) Deliver(_ context.Context, chatID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{chatID, text})
	if r.failOn[chatID] {
		return errors.New("telegram: 403 blocked by user")
	}
	return nil
}

func (r *recNotifier) sent() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sent, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func date(y int, m time.Month, d int) domain.CalendarDate {
	return domain.MustCalendarDate(y, m, d)
}

// fixedClock returns a clock stuck at noon UTC of the given day.
func fixedClock(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }
}
