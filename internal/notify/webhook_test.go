// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/events"
)

func TestWebhookSend(t *testing.T) {
	var captured webhookPayload
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-City-Token")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(&config.NotifyConfig{
		WebhookURL:     server.URL,
		WebhookHeaders: map[string]string{"X-City-Token": "secret-token"},
	})

	if err := n.Send(context.Background(), events.TopicReportExpired, notifyTestReport()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotHeader != "secret-token" {
		t.Errorf("X-City-Token = %q, want configured header", gotHeader)
	}
	if captured.Event != events.TopicReportExpired {
		t.Errorf("Event = %q, want %q", captured.Event, events.TopicReportExpired)
	}
	if captured.Report == nil || captured.Report.ID != "r1" {
		t.Errorf("Report = %+v, want r1", captured.Report)
	}
	if captured.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestWebhookSendServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhookNotifier(&config.NotifyConfig{WebhookURL: server.URL})
	if err := n.Send(context.Background(), events.TopicReportCreated, notifyTestReport()); err == nil {
		t.Error("Send() expected error on 500")
	}
}

func TestWebhookSendWithoutURL(t *testing.T) {
	n := NewWebhookNotifier(&config.NotifyConfig{})
	if err := n.Send(context.Background(), events.TopicReportCreated, notifyTestReport()); err != nil {
		t.Errorf("Send() without URL = %v, want nil", err)
	}
}

func TestNotifierNames(t *testing.T) {
	if got := NewWebhookNotifier(&config.NotifyConfig{}).Name(); got != "webhook" {
		t.Errorf("webhook Name() = %q", got)
	}
	if got := NewDiscordNotifier(&config.NotifyConfig{}).Name(); got != "discord" {
		t.Errorf("discord Name() = %q", got)
	}
}
