// Package services – ReminderService
//
// This file implements the daily sweep: one state load, a pure scan for
// records exactly inspection.LeadDays from today, then concurrent delivery of
// one reminder per due record. Deliveries are independent; a failure is
// logged and counted but never cancels the others, and nothing is retried.

package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/annual-inspection-bot/internal/domain"
	"github.com/tbourn/annual-inspection-bot/internal/inspection"
)

// DefaultConcurrency bounds parallel deliveries when none is configured.
const DefaultConcurrency = 8

// DailyReport summarizes one sweep.
type DailyReport struct {
	Today domain.CalendarDate
	Due   []domain.DueRecord
	// Dispatched is the number of deliveries attempted (len(Due)).
	Dispatched int
	// Failed is the number of attempted deliveries that returned an error.
	Failed int
}

// ReminderService runs the daily reminder sweep.
type ReminderService struct {
	Store       StateStore
	Notifier    Notifier
	Concurrency int
	// Now is the clock; "today" is its UTC calendar date. Defaults to time.Now.
	Now func() time.Time
	Log zerolog.Logger
}

// NewReminderService wires the service with the wall clock.
func NewReminderService(store StateStore, notifier Notifier, concurrency int, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		Store:       store,
		Notifier:    notifier,
		Concurrency: concurrency,
		Now:         time.Now,
		Log:         log,
	}
}

// RunDaily loads the state, selects due records and delivers reminders.
// The only error is a wrapped ErrStoreUnavailable when the load fails;
// delivery failures are reported through DailyReport.Failed.
func (s *ReminderService) RunDaily(ctx context.Context) (DailyReport, error) {
	tr := otel.Tracer("services/ReminderService")
	ctx, span := tr.Start(ctx, "RunDaily")
	defer span.End()

	now := s.Now
	if now == nil {
		now = time.Now
	}
	report := DailyReport{Today: domain.DateOf(now())}
	span.SetAttributes(attribute.String("today", report.Today.String()))

	state, err := s.Store.Load(ctx)
	if err != nil {
		storeErrorsTotal.WithLabelValues("load").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return report, fmt.Errorf("%w: load: %v", ErrStoreUnavailable, err)
	}

	report.Due = inspection.Scan(state, report.Today)
	report.Dispatched = len(report.Due)
	span.SetAttributes(
		attribute.Int("state.records", state.Len()),
		attribute.Int("reminders.due", report.Dispatched),
	)

	var failed atomic.Int64
	var g errgroup.Group
	limit := s.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	for _, rec := range report.Due {
		g.Go(func() error {
			if err := s.Notifier.Deliver(ctx, rec.ChatID, inspection.ReminderText(rec)); err != nil {
				failed.Add(1)
				remindersTotal.WithLabelValues("failed").Inc()
				s.Log.Warn().Err(err).
					Str("chat_id", rec.ChatID).
					Str("plate", rec.Plate).
					Msg("reminder delivery failed")
				return nil
			}
			remindersTotal.WithLabelValues("sent").Inc()
			return nil
		})
	}
	_ = g.Wait()

	report.Failed = int(failed.Load())
	span.SetAttributes(attribute.Int("reminders.failed", report.Failed))
	s.Log.Info().
		Stringer("today", report.Today).
		Int("dispatched", report.Dispatched).
		Int("failed", report.Failed).
		Msg("daily check complete")
	return report, nil
}
