// Package services implements the use cases of the inspection bot: recording
// an inspection fact from an inbound chat update and running the daily
// reminder sweep. This file centralizes service-level error values so that
// callers can classify outcomes with errors.Is.
//
// None of these errors is surfaced to the inbound transport; handlers log
// them and still acknowledge the update.
package services

import "errors"

var (
	// ErrNoFact is returned when neither the text nor the attached file name
	// carries a recognizable inspection date.
	ErrNoFact = errors.New("no inspection date found")

	// ErrStaleUpdate reports that the stored date for the plate is the same
	// or newer, so the fact was ignored. Informational only.
	ErrStaleUpdate = errors.New("stored inspection date is not older")

	// ErrStoreUnavailable wraps load and save failures of the state store.
	ErrStoreUnavailable = errors.New("state store unavailable")

	// ErrDeliveryFailed wraps failures of the outbound chat channel.
	ErrDeliveryFailed = errors.New("message delivery failed")
)
