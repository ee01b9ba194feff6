// Package notify posts short messages to a chat webhook.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"foundation/internal/infra"
)

// ErrMissingURL indicates that no webhook endpoint was configured.
var ErrMissingURL = errors.New("notify: webhook url is required")

type Options struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Webhook sends {"text": ...} payloads, the format accepted by Slack and
// Discord-compatible incoming webhooks.
type Webhook struct {
	url    string
	http   *resty.Client
	logger *infra.Logger
}

type payload struct {
	Text string `json:"text"`
}

func NewWebhook(opts Options) (*Webhook, error) {
	u := strings.TrimSpace(opts.URL)
	if u == "" {
		return nil, ErrMissingURL
	}
	if !strings.HasPrefix(u, "https://") && !strings.HasPrefix(u, "http://") {
		return nil, fmt.Errorf("notify: webhook url must be http(s): %q", u)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetTimeout(timeout).SetHeader("Content-Type", "application/json")
	return &Webhook{url: u, http: rc, logger: logger}, nil
}

// Notify posts text to the webhook. No retries; callers treat failure as
// non-fatal.
func (w *Webhook) Notify(ctx context.Context, text string) error {
	resp, err := w.http.R().
		SetContext(ctx).
		SetBody(payload{Text: text}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	if !resp.IsSuccess() {
		body := strings.TrimSpace(string(resp.Body()))
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("notify: webhook returned %d: %s", resp.StatusCode(), body)
	}
	w.logger.Debug().Int("status", resp.StatusCode()).Msg("webhook delivered")
	return nil
}
