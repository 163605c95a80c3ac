package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/annual-inspection-bot/internal/domain"
)

func TestRunDaily_SelectsExactlyThirtyDays(t *testing.T) {
	store := &memStore{state: domain.GlobalState{
		"1": {
			"H03058": date(2025, 11, 30), // 30 days
			"EARLY":  date(2025, 11, 29), // 29
			"LATE":   date(2025, 12, 1),  // 31
		},
		"2": {"PAST": date(2025, 10, 1)},
	}}
	n := &recNotifier{}
	svc := NewReminderService(store, n, 4, zerolog.Nop())
	svc.Now = fixedClock(2025, 10, 31)

	rep, err := svc.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, date(2025, 10, 31), rep.Today)
	assert.Equal(t, 1, rep.Dispatched)
	assert.Zero(t, rep.Failed)
	require.Len(t, n.sent(), 1)
	assert.Equal(t, sent{"1", "Через 30 дней истекает annual inspection для H03058 (2025-11-30)."}, n.sent()[0])
}

func TestRunDaily_TodayIsUTCDate(t *testing.T) {
	store := &memStore{state: domain.GlobalState{"1": {"A": date(2025, 11, 30)}}}
	n := &recNotifier{}
	svc := NewReminderService(store, n, 1, zerolog.Nop())
	// 2025-11-01 01:00 in UTC+3 is still 2025-10-31 in UTC.
	svc.Now = func() time.Time {
		return time.Date(2025, 11, 1, 1, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	}

	rep, err := svc.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, date(2025, 10, 31), rep.Today)
	assert.Equal(t, 1, rep.Dispatched)
}

func TestRunDaily_FailuresDoNotAbortOthers(t *testing.T) {
	state := domain.GlobalState{}
	for i := 0; i < 20; i++ {
		state[fmt.Sprint(i)] = domain.ChatState{"P": date(2025, 11, 30)}
	}
	n := &recNotifier{failOn: map[string]bool{"3": true, "11": true}}
	svc := NewReminderService(&memStore{state: state}, n, 3, zerolog.Nop())
	svc.Now = fixedClock(2025, 10, 31)

	rep, err := svc.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, rep.Dispatched)
	assert.Equal(t, 2, rep.Failed)
	assert.Len(t, n.sent(), 20)
}

func TestRunDaily_LoadFailure(t *testing.T) {
	svc := NewReminderService(&memStore{loadErr: errors.New("down")}, &recNotifier{}, 1, zerolog.Nop())
	svc.Now = fixedClock(2025, 10, 31)

	rep, err := svc.RunDaily(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Zero(t, rep.Dispatched)
}

func TestRunDaily_EmptyState(t *testing.T) {
	svc := NewReminderService(&memStore{}, &recNotifier{}, 0, zerolog.Nop())
	rep, err := svc.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Dispatched)
	assert.Empty(t, rep.Due)
}

func TestRunDaily_FiresOnceAcrossConsecutiveDays(t *testing.T) {
	store := &memStore{state: domain.GlobalState{"1": {"H03058": date(2025, 11, 30)}}}
	n := &recNotifier{}
	svc := NewReminderService(store, n, 2, zerolog.Nop())

	start := time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)
	for d := 0; d < 25; d++ {
		day := start.AddDate(0, 0, d)
		svc.Now = func() time.Time { return day }
		_, err := svc.RunDaily(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, n.sent(), 1)
}

// blockingNotifier tracks the peak number of concurrent deliveries.
type blockingNotifier struct {
	cur, peak atomic.Int64
}

func (b *blockingNotifier) Deliver(context.Context, string, string) error {
	c := b.cur.Add(1)
	for {
		p := b.peak.Load()
		if c <= p || b.peak.CompareAndSwap(p, c) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	b.cur.Add(-1)
	return nil
}

func TestRunDaily_RespectsConcurrencyLimit(t *testing.T) {
	state := domain.GlobalState{}
	for i := 0; i < 12; i++ {
		state[fmt.Sprint(i)] = domain.ChatState{"P": date(2025, 11, 30)}
	}
	n := &blockingNotifier{}
	svc := NewReminderService(&memStore{state: state}, n, 3, zerolog.Nop())
	svc.Now = fixedClock(2025, 10, 31)

	rep, err := svc.RunDaily(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, rep.Dispatched)
	assert.LessOrEqual(t, n.peak.Load(), int64(3))
	assert.GreaterOrEqual(t, n.peak.Load(), int64(1))
}
