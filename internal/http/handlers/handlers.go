// Inspection bot HTTP handlers.
//
// This file exposes the two endpoints of the bot:
//   - POST     {base}/telegram      (Telegram webhook; records an inspection date)
//   - GET|POST {base}/daily-check   (runs the daily reminder sweep)
//
// Both are mounted for every method and answer 200 whatever happens inside:
// Telegram redelivers any update that is not acknowledged with a 2xx, and the
// scheduler that calls the daily check only needs to know the run happened.
package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/annual-inspection-bot/internal/http/middleware"
	"github.com/tbourn/annual-inspection-bot/internal/services"
	"github.com/tbourn/annual-inspection-bot/internal/sysutil"
	"github.com/tbourn/annual-inspection-bot/internal/telegram"
)

// SecretTokenHeader carries the secret configured with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// DefaultWebhookTimeout bounds one update when Options leaves it unset.
const DefaultWebhookTimeout = 8 * time.Second

//
// Service contracts (context-aware)
//

// Recorder records one inbound update. services.InspectionService satisfies it.
type Recorder interface {
	Record(ctx context.Context, u services.Update) (services.Outcome, error)
}

// DailyRunner runs the reminder sweep. services.ReminderService satisfies it.
type DailyRunner interface {
	RunDaily(ctx context.Context) (services.DailyReport, error)
}

//
// Handler wiring
//

// Options tunes the handlers.
type Options struct {
	// WebhookTimeout bounds the work done for one update.
	WebhookTimeout time.Duration
	// WebhookSecret, when set, must match SecretTokenHeader; updates without
	// it are acknowledged and dropped.
	WebhookSecret string
}

// Handlers groups the bot endpoints.
type Handlers struct {
	rec   Recorder
	daily DailyRunner
	opt   Options
}

// New constructs Handlers bound to the given services.
func New(rec Recorder, daily DailyRunner, opt Options) *Handlers {
	if opt.WebhookTimeout <= 0 {
		opt.WebhookTimeout = DefaultWebhookTimeout
	}
	return &Handlers{rec: rec, daily: daily, opt: opt}
}

// Webhook handles a Telegram update.
//
// Non-POST requests get "OK". Everything else gets {"ok":true}: malformed
// JSON, updates without a message, unparsable content, stale dates, store
// failures, timeouts, and panics inside the use case are logged only.
func (h *Handlers) Webhook(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		plainOK(c)
		return
	}
	lg := middleware.LoggerFrom(c)

	if h.opt.WebhookSecret != "" {
		got := c.GetHeader(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.opt.WebhookSecret)) != 1 {
			lg.Warn().Msg("webhook secret mismatch; update dropped")
			ack(c)
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		lg.Warn().Err(err).Msg("webhook body unreadable")
		ack(c)
		return
	}
	upd, err := telegram.DecodeUpdate(body)
	if err != nil {
		lg.Warn().Err(err).Msg("webhook body is not a Telegram update")
		ack(c)
		return
	}
	msg := telegram.EffectiveMessage(upd)
	if msg == nil {
		lg.Debug().Int64("update_id", upd.ID).Msg("update without message ignored")
		ack(c)
		return
	}

	u := services.Update{
		ChatID:   telegram.ChatKey(msg),
		Text:     sysutil.FirstNonEmpty(msg.Text, msg.Caption),
		FileName: telegram.FileName(msg),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opt.WebhookTimeout)
	defer cancel()

	out, err := h.record(ctx, u)
	level := zerolog.InfoLevel
	switch {
	case errors.Is(err, services.ErrNoFact):
		level = zerolog.DebugLevel
	case err != nil && !errors.Is(err, services.ErrStaleUpdate):
		level = zerolog.ErrorLevel
	}
	lg.WithLevel(level).Err(err).
		Int64("update_id", upd.ID).
		Str("chat_id", u.ChatID).
		Str("command", out.Command).
		Str("plate", out.Fact.Plate).
		Str("decision", outcomeDecision(out, err)).
		Msg("telegram update")

	ack(c)
}

// record calls the Recorder, turning a panic into an error.
func (h *Handlers) record(ctx context.Context, u services.Update) (out services.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in update handling: %v", r)
		}
	}()
	return h.rec.Record(ctx, u)
}

func outcomeDecision(out services.Outcome, err error) string {
	switch {
	case out.Command != "":
		return "command"
	case errors.Is(err, services.ErrNoFact):
		return "no_fact"
	case out.Fact.Plate == "":
		return ""
	default:
		return out.Decision.String()
	}
}

// DailyCheck runs the reminder sweep for GET and POST and answers
// {"ok":true,"notificationsSent":n}. When the state cannot be loaded the
// answer is {"ok":true} without a count. Other methods get "OK".
//
// The sweep is detached from the caller's cancellation: a scheduler that gives
// up waiting must not abort deliveries that are already in flight.
func (h *Handlers) DailyCheck(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodPost:
	default:
		plainOK(c)
		return
	}
	lg := middleware.LoggerFrom(c)

	rep, err := h.daily.RunDaily(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		lg.Error().Err(err).Msg("daily check failed")
		ack(c)
		return
	}
	lg.Info().
		Stringer("today", rep.Today).
		Int("dispatched", rep.Dispatched).
		Int("failed", rep.Failed).
		Msg("daily check")
	ackSent(c, rep.Dispatched)
}
