package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// UpstashKV talks to an Upstash Redis database through its REST API: each
// command is POSTed as a JSON array (["GET", key]) with a bearer token and
// answered with {"result": ...} or {"error": "..."}.
type UpstashKV struct {
	URL   string
	Token string
	HTTP  *http.Client
}

// NewUpstashKV builds a client with a bounded per-request timeout.
func NewUpstashKV(url, token string, timeout time.Duration) *UpstashKV {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UpstashKV{
		URL:   strings.TrimRight(url, "/"),
		Token: token,
		HTTP:  &http.Client{Timeout: timeout},
	}
}

// upstashReply is the REST response envelope.
type upstashReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Get implements KV. A null result is reported as ErrNotFound.
func (u *UpstashKV) Get(ctx context.Context, key string) (string, error) {
	raw, err := u.do(ctx, "GET", key)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", ErrNotFound
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("upstash GET: unexpected result %s: %w", truncateBytes(raw, 64), err)
	}
	return v, nil
}

// Set implements KV.
func (u *UpstashKV) Set(ctx context.Context, key, value string) error {
	_, err := u.do(ctx, "SET", key, value)
	return err
}

func (u *UpstashKV) do(ctx context.Context, command string, args ...string) (json.RawMessage, error) {
	body, err := json.Marshal(append([]string{command}, args...))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+u.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstash %s: %w", command, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("upstash %s: read body: %w", command, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upstash %s: status %d: %s", command, resp.StatusCode, truncateBytes(payload, 256))
	}

	var reply upstashReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return nil, fmt.Errorf("upstash %s: decode reply: %w", command, err)
	}
	if reply.Error != "" {
		return nil, errors.New("upstash " + command + ": " + reply.Error)
	}
	return reply.Result, nil
}

func truncateBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "…"
}

var _ KV = (*UpstashKV)(nil)
