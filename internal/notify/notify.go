// Package notify dispatches templated notifications without blocking the
// caller on delivery.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/config"
)

// TemplateCommentAnswer is sent when an author answers with notify=yes.
const TemplateCommentAnswer = "comment-answer"

// Dispatcher sends a payload rendered by the named template
type Dispatcher interface {
	Send(ctx context.Context, template string, payload interface{}) error
}

// New returns a webhook dispatcher when a webhook url is configured and a
// logging dispatcher otherwise.
func New(cfg *config.NotifyConfig, log zerolog.Logger) Dispatcher {
	if cfg.WebhookURL == "" {
		return NewLogDispatcher(log)
	}
	return NewWebhook(cfg.WebhookURL, cfg.Timeout, log)
}

// envelope is the webhook request body
type envelope struct {
	Template string      `json:"template"`
	Payload  interface{} `json:"payload"`
	SentAt   time.Time   `json:"sent_at"`
}

// Webhook posts notifications as JSON to a fixed url
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewWebhook creates a webhook dispatcher
func NewWebhook(url string, timeout time.Duration, log zerolog.Logger) *Webhook {
	return &Webhook{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		log:     log.With().Str("component", "notify").Logger(),
	}
}

// Send encodes the payload and delivers it in the background. Only encoding
// failures are returned; delivery failures are logged.
func (w *Webhook) Send(ctx context.Context, template string, payload interface{}) error {
	body, err := json.Marshal(envelope{Template: template, Payload: payload, SentAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				w.log.Error().Interface("panic", r).Str("template", template).Msg("Notification delivery panicked - recovered")
			}
		}()

		// The request context ends with the request; delivery outlives it.
		deliverCtx, cancel := context.WithTimeout(context.Background(), w.timeout)
		defer cancel()

		if err := w.deliver(deliverCtx, body); err != nil {
			w.log.Warn().Err(err).Str("template", template).Msg("Notification delivery failed")
			return
		}
		w.log.Debug().Str("template", template).Msg("Notification delivered")
	}()

	return nil
}

func (w *Webhook) deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// Wait blocks until every in-flight delivery has finished
func (w *Webhook) Wait() {
	w.wg.Wait()
}

// LogDispatcher writes notifications to the log instead of delivering them
type LogDispatcher struct {
	log zerolog.Logger
}

// NewLogDispatcher creates a logging dispatcher
func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.With().Str("component", "notify").Logger()}
}

func (d *LogDispatcher) Send(ctx context.Context, template string, payload interface{}) error {
	d.log.Info().Str("template", template).Interface("payload", payload).Msg("Notification dispatched")
	return nil
}
