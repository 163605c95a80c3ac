package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/annual-inspection-bot/internal/domain"
	"github.com/tbourn/annual-inspection-bot/internal/repo"
	"github.com/tbourn/annual-inspection-bot/internal/services"
)

// ---------- fakes ----------

type fakeRecorder struct {
	mu    sync.Mutex
	got   []services.Update
	out   services.Outcome
	err   error
	panic bool
	block bool
}

func (f *fakeRecorder) Record(ctx context.Context, u services.Update) (services.Outcome, error) {
	f.mu.Lock()
	f.got = append(f.got, u)
	f.mu.Unlock()
	if f.panic {
		panic("boom")
	}
	if f.block {
		<-ctx.Done()
		return services.Outcome{}, ctx.Err()
	}
	return f.out, f.err
}

func (f *fakeRecorder) updates() []services.Update {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.Update(nil), f.got...)
}

type fakeDaily struct {
	rep    services.DailyReport
	err    error
	calls  int
	ctxErr error
}

func (f *fakeDaily) RunDaily(ctx context.Context) (services.DailyReport, error) {
	f.calls++
	f.ctxErr = ctx.Err()
	return f.rep, f.err
}

type chatNotifier struct {
	mu   sync.Mutex
	msgs map[string][]string
}

func (n *chatNotifier) Deliver(_ context.Context, chatID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.msgs == nil {
		n.msgs = map[string][]string{}
	}
	n.msgs[chatID] = append(n.msgs[chatID], text)
	return nil
}

// ---------- helpers ----------

func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Any("/api/telegram", h.Webhook)
	r.Any("/api/daily-check", h.DailyCheck)
	return r
}

func do(r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func assertAck(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

const docUpdate = `{
	"update_id": 1,
	"message": {
		"message_id": 10,
		"chat": {"id": 1},
		"caption": "",
		"document": {"file_id": "f", "file_name": "1225H03058.pdf"}
	}
}`

// ---------- webhook ----------

func TestWebhook_NonPOSTAnswersPlainOK(t *testing.T) {
	rec := &fakeRecorder{}
	r := newRouter(New(rec, &fakeDaily{}, Options{}))

	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := do(r, m, "/api/telegram", "")
		assert.Equal(t, http.StatusOK, w.Code, m)
		assert.Equal(t, "OK", w.Body.String(), m)
	}
	assert.Empty(t, rec.updates())
}

func TestWebhook_MapsMessageToUpdate(t *testing.T) {
	rec := &fakeRecorder{}
	r := newRouter(New(rec, &fakeDaily{}, Options{}))

	assertAck(t, do(r, http.MethodPost, "/api/telegram", docUpdate))
	require.Len(t, rec.updates(), 1)
	assert.Equal(t, services.Update{ChatID: "1", FileName: "1225H03058.pdf"}, rec.updates()[0])
}

func TestWebhook_EditedMessageAndCaptionFallback(t *testing.T) {
	rec := &fakeRecorder{}
	r := newRouter(New(rec, &fakeDaily{}, Options{}))

	body := `{"update_id":2,"edited_message":{"message_id":3,"chat":{"id":-100777},"caption":"TRL1 2026-04-01"}}`
	assertAck(t, do(r, http.MethodPost, "/api/telegram", body))
	require.Len(t, rec.updates(), 1)
	assert.Equal(t, services.Update{ChatID: "-100777", Text: "TRL1 2026-04-01"}, rec.updates()[0])
}

func TestWebhook_AlwaysAcknowledges(t *testing.T) {
	cases := []struct {
		name string
		rec  *fakeRecorder
		body string
	}{
		{"bad json", &fakeRecorder{}, `{not json`},
		{"empty body", &fakeRecorder{}, ``},
		{"no message", &fakeRecorder{}, `{"update_id":5,"callback_query":{}}`},
		{"no fact", &fakeRecorder{err: services.ErrNoFact}, docUpdate},
		{"stale", &fakeRecorder{err: services.ErrStaleUpdate}, docUpdate},
		{"store down", &fakeRecorder{err: errors.Join(services.ErrStoreUnavailable, errors.New("dial tcp"))}, docUpdate},
		{"panic", &fakeRecorder{panic: true}, docUpdate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(New(tc.rec, &fakeDaily{}, Options{}))
			assertAck(t, do(r, http.MethodPost, "/api/telegram", tc.body))
		})
	}
}

func TestWebhook_TimeoutStillAcknowledges(t *testing.T) {
	rec := &fakeRecorder{block: true}
	r := newRouter(New(rec, &fakeDaily{}, Options{WebhookTimeout: 20 * time.Millisecond}))

	start := time.Now()
	assertAck(t, do(r, http.MethodPost, "/api/telegram", docUpdate))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWebhook_SecretToken(t *testing.T) {
	rec := &fakeRecorder{}
	r := newRouter(New(rec, &fakeDaily{}, Options{WebhookSecret: "s3cret"}))

	assertAck(t, do(r, http.MethodPost, "/api/telegram", docUpdate))
	assertAck(t, do(r, http.MethodPost, "/api/telegram", docUpdate, SecretTokenHeader, "wrong"))
	assert.Empty(t, rec.updates())

	assertAck(t, do(r, http.MethodPost, "/api/telegram", docUpdate, SecretTokenHeader, "s3cret"))
	assert.Len(t, rec.updates(), 1)
}

// ---------- daily check ----------

func TestDailyCheck_ReportsCount(t *testing.T) {
	d := &fakeDaily{rep: services.DailyReport{Today: domain.MustCalendarDate(2025, 10, 31), Dispatched: 3, Failed: 1}}
	r := newRouter(New(&fakeRecorder{}, d, Options{}))

	for _, m := range []string{http.MethodGet, http.MethodPost} {
		w := do(r, m, "/api/daily-check", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"notificationsSent":3}`, w.Body.String())
	}
	assert.Equal(t, 2, d.calls)
}

func TestDailyCheck_ZeroIsStillReported(t *testing.T) {
	r := newRouter(New(&fakeRecorder{}, &fakeDaily{}, Options{}))
	w := do(r, http.MethodGet, "/api/daily-check", "")
	assert.JSONEq(t, `{"ok":true,"notificationsSent":0}`, w.Body.String())
}

func TestDailyCheck_LoadFailureOmitsCount(t *testing.T) {
	d := &fakeDaily{err: services.ErrStoreUnavailable}
	r := newRouter(New(&fakeRecorder{}, d, Options{}))
	assertAck(t, do(r, http.MethodGet, "/api/daily-check", ""))
}

func TestDailyCheck_OtherMethods(t *testing.T) {
	d := &fakeDaily{}
	r := newRouter(New(&fakeRecorder{}, d, Options{}))
	w := do(r, http.MethodDelete, "/api/daily-check", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Zero(t, d.calls)
}

func TestDailyCheck_DetachedFromCallerCancellation(t *testing.T) {
	d := &fakeDaily{}
	h := New(&fakeRecorder{}, d, Options{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Request = httptest.NewRequest(http.MethodGet, "/api/daily-check", nil).WithContext(ctx)

	h.DailyCheck(c)
	assert.NoError(t, d.ctxErr)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ---------- end to end through real services ----------

func TestEndToEnd_RecordThenRemind(t *testing.T) {
	store := repo.NewStateRepository(repo.NewMemoryKV(), "")
	n := &chatNotifier{}
	insp := services.NewInspectionService(store, n, zerolog.Nop())
	rem := services.NewReminderService(store, n, 4, zerolog.Nop())
	rem.Now = func() time.Time { return time.Date(2025, 10, 31, 6, 0, 0, 0, time.UTC) }
	r := newRouter(New(insp, rem, Options{}))

	// 1225H03058.pdf on empty state.
	assertAck(t, do(r, http.MethodPost, "/api/telegram", docUpdate))
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.GlobalState{"1": {"H03058": domain.MustCalendarDate(2025, 12, 31)}}, st)

	// Older file for the same plate is ignored.
	older := strings.Replace(docUpdate, "1225H03058.pdf", "0625H03058.pdf", 1)
	assertAck(t, do(r, http.MethodPost, "/api/telegram", older))
	st, _ = store.Load(context.Background())
	assert.Equal(t, domain.MustCalendarDate(2025, 12, 31), st["1"]["H03058"])

	// Text record that is due in 30 days on 2025-10-31.
	text := `{"update_id":3,"message":{"message_id":11,"chat":{"id":1},"text":"trailer t77 2025-11-30"}}`
	assertAck(t, do(r, http.MethodPost, "/api/telegram", text))

	// /start replies with help and stores nothing.
	start := `{"update_id":4,"message":{"message_id":12,"chat":{"id":2},"text":"/start"}}`
	assertAck(t, do(r, http.MethodPost, "/api/telegram", start))
	st, _ = store.Load(context.Background())
	_, has := st["2"]
	assert.False(t, has)

	w := do(r, http.MethodGet, "/api/daily-check", "")
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.EqualValues(t, 1, body["notificationsSent"])

	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Equal(t, []string{services.HelpText}, n.msgs["2"])
	assert.Equal(t, []string{"Через 30 дней истекает annual inspection для T77 (2025-11-30)."}, n.msgs["1"])
}
