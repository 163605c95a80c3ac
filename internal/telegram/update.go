// Package telegram adapts the Bot API library to the bot: decoding webhook
// updates into its models and a throttled sendMessage client used for
// replies and reminders.
package telegram

import (
	json "github.com/goccy/go-json"
	"github.com/go-telegram/bot/models"

	"github.com/tbourn/annual-inspection-bot/internal/domain"
)

// DecodeUpdate parses a webhook body.
func DecodeUpdate(body []byte) (*models.Update, error) {
	var u models.Update
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// EffectiveMessage returns the message, or the edited message when there is
// no new one. It is nil for updates the bot does not handle.
func EffectiveMessage(u *models.Update) *models.Message {
	if u == nil {
		return nil
	}
	if u.Message != nil {
		return u.Message
	}
	return u.EditedMessage
}

// ChatKey is the state key for the message's chat.
func ChatKey(m *models.Message) string { return domain.ChatKey(m.Chat.ID) }

// FileName returns the document's file name, or "" without a document.
func FileName(m *models.Message) string {
	if m.Document == nil {
		return ""
	}
	return m.Document.FileName
}
