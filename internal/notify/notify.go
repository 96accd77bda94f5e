// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify posts pass summaries to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jkudo/slideview/internal/httputil"
	"github.com/jkudo/slideview/internal/logging"
	"github.com/jkudo/slideview/pkg/types"
)

// Webhook sends a JSON PassSummary to URL after passes that changed something.
type Webhook struct {
	URL string

	// Token, when set, is sent as a bearer token.
	Token string

	Client     *http.Client
	MaxRetries int
	Logger     *slog.Logger
}

// NewWebhook returns a webhook notifier for cfg, or nil when no URL is configured.
func NewWebhook(cfg types.NotifyConfig, token string, logger *slog.Logger) *Webhook {
	if cfg.WebhookURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{
		URL:    cfg.WebhookURL,
		Token:  token,
		Client: &http.Client{Timeout: timeout},
		Logger: logging.OrDiscard(logger),
	}
}

// Notify posts summary when it reports changes or failures. Passes that left
// everything unchanged are not sent.
func (w *Webhook) Notify(ctx context.Context, summary types.PassSummary) error {
	if w == nil || w.URL == "" || !summary.Changed() {
		return nil
	}
	logger := logging.OrDiscard(w.Logger)

	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling pass summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "slideview")
	if w.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.Token)
	}

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, w.MaxRetries, logger)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}

	logger.Debug("webhook delivered",
		slog.String(logging.KeyPassID, summary.ID),
		slog.Int("status", resp.StatusCode))
	return nil
}
