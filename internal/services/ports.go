package services

import (
	"context"

	"github.com/tbourn/annual-inspection-bot/internal/domain"
)

// StateStore loads and saves the whole state document.
// repo.StateRepository satisfies it.
type StateStore interface {
	Load(ctx context.Context) (domain.GlobalState, error)
	Save(ctx context.Context, state domain.GlobalState) error
}

// Notifier delivers a plain text message to a chat.
// telegram.Client satisfies it.
type Notifier interface {
	Deliver(ctx context.Context, chatID, text string) error
}
