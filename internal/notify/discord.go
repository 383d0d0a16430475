// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package notify delivers report lifecycle notifications over webhooks.
// Delivery is fire-and-forget: failures are logged, counted and
// dropped, never retried into the report lifecycle.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/models"
)

// Notifier delivers a notification for a report event.
type Notifier interface {
	Name() string
	Send(ctx context.Context, topic string, report *models.Report) error
}

// DiscordNotifier posts report events as rich embeds to a Discord
// webhook. A rate limiter spaces messages to stay under Discord's
// webhook limits.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	limiter    *rate.Limiter
}

// NewDiscordNotifier creates a Discord notifier. minInterval is the
// minimum spacing between messages.
func NewDiscordNotifier(cfg *config.NotifyConfig) *DiscordNotifier {
	minInterval := cfg.RateLimit
	if minInterval <= 0 {
		minInterval = time.Second
	}

	return &DiscordNotifier{
		webhookURL: cfg.DiscordWebhookURL,
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name.
func (n *DiscordNotifier) Name() string {
	return "discord"
}

// Send posts an embed for the report event. Blocks on the rate limiter
// until a slot is free or the context is canceled.
func (n *DiscordNotifier) Send(ctx context.Context, topic string, report *models.Report) error {
	if n.webhookURL == "" {
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := discordWebhookPayload{
		Embeds: []discordEmbed{n.buildEmbed(topic, report)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create Discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// buildEmbed creates a Discord embed for a report event.
func (n *DiscordNotifier) buildEmbed(topic string, report *models.Report) discordEmbed {
	fields := []discordEmbedField{
		{Name: "Category", Value: report.Category, Inline: true},
		{Name: "Priority", Value: report.Priority, Inline: true},
		{Name: "Severity", Value: fmt.Sprintf("%d/5", report.Severity), Inline: true},
	}
	if report.Location.Address != "" {
		fields = append(fields, discordEmbedField{
			Name:  "Location",
			Value: report.Location.Address,
		})
	}
	if report.AuthorName != "" {
		fields = append(fields, discordEmbedField{
			Name:   "Reported by",
			Value:  report.AuthorName,
			Inline: true,
		})
	}

	description := report.Summary
	if description == "" {
		description = truncateRunes(report.Description, 300)
	}

	return discordEmbed{
		Title:       embedTitle(topic, report),
		Description: description,
		Color:       priorityColor(report.Priority),
		Timestamp:   report.UpdatedAt.Format(time.RFC3339),
		Fields:      fields,
		Footer: discordEmbedFooter{
			Text: "GeoCity Live Map",
		},
	}
}

// embedTitle builds a human title from the topic and category.
func embedTitle(topic string, report *models.Report) string {
	category := report.Category
	if category == "" {
		category = models.CategoryOther
	}
	category = strings.ToUpper(category[:1]) + category[1:]
	switch topic {
	case "report.resolved":
		return fmt.Sprintf("%s incident resolved", category)
	case "report.expired":
		return fmt.Sprintf("%s incident expired", category)
	default:
		return fmt.Sprintf("New %s incident", report.Category)
	}
}

// priorityColor returns the Discord embed color for a priority.
func priorityColor(priority string) int {
	switch priority {
	case models.PriorityCritical:
		return 0xFF0000 // Red
	case models.PriorityHigh:
		return 0xFFA500 // Orange
	case models.PriorityMedium:
		return 0x3498DB // Blue
	default:
		return 0x95A5A6 // Gray
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// Discord webhook structures
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}
