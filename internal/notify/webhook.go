// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/models"
)

// WebhookNotifier POSTs report events as plain JSON to a configured
// endpoint, with optional custom headers. Intended for city-side
// integrations that are not Discord.
type WebhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// webhookPayload is the JSON body delivered to the endpoint.
type webhookPayload struct {
	Event     string         `json:"event"`
	Report    *models.Report `json:"report"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewWebhookNotifier creates a generic webhook notifier.
func NewWebhookNotifier(cfg *config.NotifyConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.WebhookURL,
		headers: cfg.WebhookHeaders,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name.
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Send posts the report event to the endpoint.
func (n *WebhookNotifier) Send(ctx context.Context, topic string, report *models.Report) error {
	if n.url == "" {
		return nil
	}

	body, err := json.Marshal(webhookPayload{
		Event:     topic,
		Report:    report,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
