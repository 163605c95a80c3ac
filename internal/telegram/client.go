package telegram

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Client sends messages through the Bot API.
//
// Outbound calls share one token bucket so that a large daily fan-out stays
// under the Bot API's global send limit. The underlying bot is never started:
// updates arrive through the webhook handler, not through polling.
type Client struct {
	bot     *bot.Bot
	token   string
	limiter *rate.Limiter
}

// Options tunes NewClient.
type Options struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// NewClient builds a client for token. Zero options fall back to the public
// endpoint, a 10s timeout and 25 msg/s with a burst of 5. No request is made.
func NewClient(token string, opt Options) (*Client, error) {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultAPIURL
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 10 * time.Second
	}
	if opt.RPS <= 0 {
		opt.RPS = 25
	}
	if opt.Burst < 1 {
		opt.Burst = 5
	}

	b, err := bot.New(token,
		bot.WithSkipGetMe(),
		bot.WithServerURL(strings.TrimRight(opt.BaseURL, "/")),
		bot.WithHTTPClient(opt.Timeout, &http.Client{Timeout: opt.Timeout}),
	)
	if err != nil {
		return nil, redact(err, token)
	}
	return &Client{
		bot:     b,
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(opt.RPS), opt.Burst),
	}, nil
}

// SendMessage posts text to chatID. Numeric chat ids are sent as numbers,
// anything else (e.g. "@channel") as a string.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var id any = chatID
	if n, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		id = n
	}
	if _, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: id, Text: text}); err != nil {
		return redact(err, c.token)
	}
	return nil
}

// Deliver implements services.Notifier.
func (c *Client) Deliver(ctx context.Context, chatID, text string) error {
	return c.SendMessage(ctx, chatID, text)
}

// redactedError hides the bot token, which transport errors embed in the URL.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if err == nil || token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), err: err}
}
