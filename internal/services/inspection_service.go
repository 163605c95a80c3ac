// Package services – InspectionService
//
// This file implements InspectionService, which turns one inbound chat update
// into a state change: it parses a fact with the codec, loads the whole state
// document, merges the fact under the "strictly newer wins" rule, and saves
// the document back. The /start command is answered with a static help text
// and never touches the store.
//
// Observability: Record is OpenTelemetry-instrumented and feeds the
// annualbot_facts_total and annualbot_store_errors_total counters.

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/annual-inspection-bot/internal/codec"
	"github.com/tbourn/annual-inspection-bot/internal/domain"
	"github.com/tbourn/annual-inspection-bot/internal/inspection"
)

// StartCommand is the command prefix answered with HelpText.
const StartCommand = "/start"

// HelpText is sent in reply to /start.
const HelpText = "Бот активен.\n" +
	"Формат для PDF: имя файла = MMYYНОМЕР_ТРЕЙЛЕРА, например 1225H03058.pdf\n" +
	"12 = месяц, 25 = год (2025), H03058 = номер.\n" +
	"Бот считает датой последний день указанного месяца и за 30 дней до неё шлёт напоминание."

// Update is the transport-neutral content of one inbound chat message.
type Update struct {
	ChatID string
	// Text is the message text, or the caption when the message has none.
	Text string
	// FileName is the attached document's name ("" without a document).
	FileName string
}

// Outcome describes what Record did with an update.
type Outcome struct {
	// Command is set when the update was a command (e.g. "/start").
	Command  string
	Fact     domain.ParsedFact
	Decision inspection.Decision
}

// InspectionService records inspection facts into the state store.
type InspectionService struct {
	Store    StateStore
	Notifier Notifier
	Parser   *codec.Parser
	Log      zerolog.Logger
}

// NewInspectionService wires the service with the default codec strategies.
func NewInspectionService(store StateStore, notifier Notifier, log zerolog.Logger) *InspectionService {
	return &InspectionService{
		Store:    store,
		Notifier: notifier,
		Parser:   codec.New(),
		Log:      log,
	}
}

// Record handles one update.
//
// Returned errors classify the outcome: ErrNoFact when nothing parsed,
// ErrStaleUpdate when the stored date is the same or newer, and
// ErrStoreUnavailable or ErrDeliveryFailed (wrapped) on I/O failures. A nil
// error means the update was a command that was answered, or a fact that
// changed the state and was saved.
func (s *InspectionService) Record(ctx context.Context, u Update) (Outcome, error) {
	tr := otel.Tracer("services/InspectionService")
	ctx, span := tr.Start(ctx, "Record",
		trace.WithAttributes(attribute.String("chat.id", u.ChatID)),
	)
	defer span.End()

	if strings.HasPrefix(u.Text, StartCommand) {
		out := Outcome{Command: StartCommand}
		span.SetAttributes(attribute.String("command", StartCommand))
		if err := s.Notifier.Deliver(ctx, u.ChatID, HelpText); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "help reply failed")
			return out, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
		return out, nil
	}

	p := s.Parser
	if p == nil {
		p = codec.New()
	}
	res := p.Parse(codec.Source{Text: u.Text, FileName: u.FileName})
	if !res.OK {
		return Outcome{}, ErrNoFact
	}
	out := Outcome{Fact: res.Fact}
	span.SetAttributes(
		attribute.String("fact.plate", res.Fact.Plate),
		attribute.String("fact.date", res.Fact.Date.String()),
		attribute.String("fact.strategy", string(res.Fact.Strategy)),
	)

	state, err := s.Store.Load(ctx)
	if err != nil {
		storeErrorsTotal.WithLabelValues("load").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "state load failed")
		return out, fmt.Errorf("%w: load: %v", ErrStoreUnavailable, err)
	}

	next, decision := inspection.Merge(state, u.ChatID, res.Fact)
	out.Decision = decision
	factsTotal.WithLabelValues(string(res.Fact.Strategy), decision.String()).Inc()
	span.SetAttributes(attribute.String("decision", decision.String()))

	if !decision.Accepted() {
		s.Log.Debug().
			Str("chat_id", u.ChatID).
			Str("plate", res.Fact.Plate).
			Stringer("date", res.Fact.Date).
			Msg("stale inspection date ignored")
		return out, ErrStaleUpdate
	}

	if err := s.Store.Save(ctx, next); err != nil {
		storeErrorsTotal.WithLabelValues("save").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "state save failed")
		return out, fmt.Errorf("%w: save: %v", ErrStoreUnavailable, err)
	}

	s.Log.Info().
		Str("chat_id", u.ChatID).
		Str("plate", res.Fact.Plate).
		Stringer("date", res.Fact.Date).
		Str("strategy", string(res.Fact.Strategy)).
		Str("decision", decision.String()).
		Msg("inspection date recorded")
	return out, nil
}
