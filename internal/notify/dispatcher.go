package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"splashpark/internal/domain"
)

// WebhookDispatcher posts each event to the configured relay endpoint.
// The relay turns events into customer-facing mail (waivers, confirmations,
// contact follow-ups); template rendering lives there, not here.
type WebhookDispatcher struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

func NewWebhookDispatcher(url string, logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger.With().Str("component", "webhook_dispatcher").Logger(),
	}
}

type webhookEnvelope struct {
	EventKind string          `json:"event_kind"`
	Payload   json.RawMessage `json:"payload"`
	SentAt    time.Time       `json:"sent_at"`
}

func (d *WebhookDispatcher) Dispatch(ctx context.Context, eventKind string, payload []byte) ([]domain.RecipientResult, error) {
	body, err := json.Marshal(webhookEnvelope{
		EventKind: eventKind,
		Payload:   payload,
		SentAt:    time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return []domain.RecipientResult{{Recipient: d.url, Err: err}}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return []domain.RecipientResult{{
			Recipient: d.url,
			Err:       fmt.Errorf("relay returned %d", resp.StatusCode),
		}}, nil
	}

	return []domain.RecipientResult{{Recipient: d.url}}, nil
}

// LogDispatcher is the no-relay fallback: events land in the log only.
// Used when notify.webhook_url is not configured.
type LogDispatcher struct {
	logger zerolog.Logger
}

func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With().Str("component", "log_dispatcher").Logger()}
}

func (d *LogDispatcher) Dispatch(_ context.Context, eventKind string, payload []byte) ([]domain.RecipientResult, error) {
	d.logger.Info().Str("event_kind", eventKind).RawJSON("payload", payload).Msg("notification")
	return []domain.RecipientResult{{Recipient: "log"}}, nil
}
