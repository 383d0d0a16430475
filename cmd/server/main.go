// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package main is the entry point for the GeoCity server.
//
// GeoCity is a citizen incident-reporting platform: residents submit
// photo reports of city incidents (traffic, fire, medical,
// environmental), the server geocodes and classifies them, and every
// connected browser sees the incident appear on a shared live map
// within moments.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config.yaml, and
//     environment variables (koanf v2)
//  2. Store: Badger document store for reports and users
//  3. Auth: JWT sessions, bcrypt credentials, optional Google OIDC
//  4. Vendors: Google Maps geocoding and Gemini classification, each
//     optional and guarded by a circuit breaker or retry fallback
//  5. Event bus: Watermill gochannel Pub/Sub for report lifecycle events
//  6. WebSocket hub: real-time broadcasts to map clients
//  7. Notifiers: Discord and generic JSON webhooks
//  8. HTTP server: Chi-routed REST API plus /metrics
//
// All long-running pieces run under a suture supervision tree and
// restart independently on failure.
//
// # Configuration
//
// Required settings:
//   - JWT_SECRET: 32+ character secret for session token signing
//
// Commonly set:
//   - HTTP_PORT (default 8420), BADGER_PATH (empty for in-memory)
//   - MAPS_API_KEY: enables geocoding
//   - GEMINI_API_KEY: enables incident classification
//   - GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET: enables Google sign-in
//   - DISCORD_WEBHOOK_URL: enables Discord notifications
//   - CRON_SECRET: enables the maintenance endpoints
//   - ADMIN_EMAIL / ADMIN_PASSWORD: bootstraps the first admin account
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests (10s timeout), the hub closes every
// websocket client, and the store flushes and closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocity-dev/geocity/internal/api"
	"github.com/geocity-dev/geocity/internal/auth"
	"github.com/geocity-dev/geocity/internal/authz"
	"github.com/geocity-dev/geocity/internal/classify"
	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/events"
	"github.com/geocity-dev/geocity/internal/geocode"
	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/models"
	"github.com/geocity-dev/geocity/internal/notify"
	"github.com/geocity-dev/geocity/internal/reports"
	"github.com/geocity-dev/geocity/internal/store"
	"github.com/geocity-dev/geocity/internal/supervisor"
	"github.com/geocity-dev/geocity/internal/supervisor/services"
	ws "github.com/geocity-dev/geocity/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Msg("Starting GeoCity")

	st, err := store.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Google sign-in is optional; the login form always works.
	var googleProvider *auth.GoogleProvider
	if cfg.Security.Google.Enabled() {
		googleProvider, err = auth.NewGoogleProvider(ctx, &cfg.Security.Google)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize Google sign-in")
		}
		logging.Info().Msg("Google sign-in enabled")
	} else {
		logging.Info().Msg("Google sign-in disabled (GOOGLE_CLIENT_ID not set)")
	}

	authSvc, err := auth.NewService(st, &cfg.Security, googleProvider)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}
	if err := authSvc.BootstrapAdmin(ctx, &cfg.Security); err != nil {
		logging.Fatal().Err(err).Msg("Failed to bootstrap admin account")
	}

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}

	// Geocoding is optional; reports keep raw coordinates without it.
	var geocoder geocode.Geocoder
	if cfg.Geocode.APIKey != "" {
		client, err := geocode.NewClient(&cfg.Geocode)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize geocoding client")
		}
		geocoder = client
		logging.Info().Msg("Geocoding enabled")
	} else {
		logging.Info().Msg("Geocoding disabled (MAPS_API_KEY not set)")
	}

	// Classification falls back to the citizen's category hint without
	// an API key.
	var classifier classify.Classifier
	if cfg.Classify.APIKey != "" {
		gemini, err := classify.NewGeminiClassifier(ctx, &cfg.Classify)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize classifier")
		}
		classifier = gemini
		logging.Info().Str("model", cfg.Classify.Model).Msg("Classification enabled")
	} else {
		classifier = classify.NoopClassifier{}
		logging.Info().Msg("Classification disabled (GEMINI_API_KEY not set)")
	}

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	router, err := events.NewRouter(bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event router")
	}

	wsHub := ws.NewHub()

	var notifiers []notify.Notifier
	if cfg.Notify.DiscordWebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscordNotifier(&cfg.Notify))
		logging.Info().Msg("Discord notifications enabled")
	}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(&cfg.Notify))
		logging.Info().Msg("Webhook notifications enabled")
	}
	if len(notifiers) > 0 {
		notify.NewDispatcher(notifiers...).Register(router)
	}

	reportSvc := reports.NewService(st, geocoder, classifier, enforcer, bus, &cfg.Reports)
	ws.RegisterBridge(router, wsHub, func(ctx context.Context) (*models.ReportStats, error) {
		stats, _, err := reportSvc.Stats(ctx)
		return stats, err
	})

	handler := api.NewHandler(cfg, st, authSvc, enforcer, reportSvc, wsHub)
	apiRouter := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiRouter.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddDataService(services.NewContextService("badger-gc", st.RunGC))
	tree.AddDataService(services.NewContextService("report-pruner", reportSvc.RunPruner))
	tree.AddMessagingService(services.NewContextService("websocket-hub", wsHub.RunWithContext))
	tree.AddMessagingService(services.NewContextService("event-router", router.Run))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor finishes.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("GeoCity stopped gracefully")
}
