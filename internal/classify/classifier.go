// GeoCity - Citizen Incident Reporting and Live City Map
// Copyright 2026 GeoCity contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geocity-dev/geocity

// Package classify assigns a category and severity to incident reports
// using the Gemini API, and derives the presentation fields (priority,
// map icon) from the result.
//
// Classification is best-effort: after bounded retries the classifier
// falls back to category "other" with severity 2 so report submission
// never fails on a vendor outage.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/genai"

	"github.com/geocity-dev/geocity/internal/config"
	"github.com/geocity-dev/geocity/internal/logging"
	"github.com/geocity-dev/geocity/internal/metrics"
	"github.com/geocity-dev/geocity/internal/models"
)

// Classification is the classifier's verdict on a report.
type Classification struct {
	Category string `json:"category"`
	Severity int    `json:"severity"`
	Summary  string `json:"summary"`
}

// Classifier assigns categories to reports. The reports service depends
// on this interface; tests substitute a stub.
type Classifier interface {
	Classify(ctx context.Context, description, hintCategory string) Classification
}

// Fallback severity when classification is unavailable.
const fallbackSeverity = 2

// FallbackClassification is used when the vendor is unreachable or
// returns garbage. The citizen's own category hint is kept if valid.
func FallbackClassification(hintCategory string) Classification {
	category := models.CategoryOther
	if models.ValidCategory(hintCategory) {
		category = hintCategory
	}
	return Classification{
		Category: category,
		Severity: fallbackSeverity,
	}
}

const systemPrompt = `You classify citizen incident reports for a city map.
Given a report description, respond with JSON only:
{"category": one of "traffic", "fire", "medical", "environmental", "other",
 "severity": integer 1 (minor) to 5 (life-threatening),
 "summary": one sentence, at most 120 characters}`

// GeminiClassifier calls the Gemini API with a strict JSON response
// schema.
type GeminiClassifier struct {
	client     *genai.Client
	model      string
	timeout    time.Duration
	maxRetries int
}

// NewGeminiClassifier creates a classifier. Returns an error when the
// API key is missing; callers should fall back to NoopClassifier then.
func NewGeminiClassifier(ctx context.Context, cfg *config.ClassifyConfig) (*GeminiClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for classification")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &GeminiClassifier{
		client:     client,
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
	}, nil
}

// Classify asks Gemini for a category, severity and summary. Retries
// with exponential backoff (1s, 2s, 4s, ...) on failure; falls back to
// FallbackClassification when retries are exhausted.
func (c *GeminiClassifier) Classify(ctx context.Context, description, hintCategory string) Classification {
	prompt := fmt.Sprintf("%s\n\nCitizen category hint: %s\nReport description:\n%s",
		systemPrompt, hintCategory, description)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				metrics.ClassifyFallbacks.Inc()
				return FallbackClassification(hintCategory)
			case <-time.After(backoff):
			}
		}

		result, err := c.classifyOnce(ctx, prompt)
		if err == nil {
			return result
		}
		lastErr = err
	}

	logging.CtxErr(ctx, lastErr).Msg("Classification failed, using fallback")
	metrics.ClassifyFallbacks.Inc()
	return FallbackClassification(hintCategory)
}

func (c *GeminiClassifier) classifyOnce(ctx context.Context, prompt string) (Classification, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := c.client.Models.GenerateContent(callCtx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	metrics.RecordVendorCall("gemini", "classify", time.Since(start), err)
	if err != nil {
		return Classification{}, fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Classification{}, fmt.Errorf("empty classification response")
	}

	var result Classification
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return Classification{}, fmt.Errorf("parse classification %q: %w", truncate(text, 200), err)
	}
	return sanitize(result)
}

// sanitize validates the vendor's verdict. Out-of-range values are
// errors rather than silently clamped, so the retry loop gets another
// chance at a clean response.
func sanitize(c Classification) (Classification, error) {
	c.Category = strings.ToLower(strings.TrimSpace(c.Category))
	if !models.ValidCategory(c.Category) {
		return c, fmt.Errorf("unknown category %q", c.Category)
	}
	if c.Severity < 1 || c.Severity > 5 {
		return c, fmt.Errorf("severity %d out of range", c.Severity)
	}
	// Truncate on rune boundaries; a byte slice could split a
	// multi-byte character and store invalid UTF-8.
	if runes := []rune(c.Summary); len(runes) > 200 {
		c.Summary = string(runes[:200])
	}
	return c, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// NoopClassifier always returns the fallback classification. Used when
// no API key is configured.
type NoopClassifier struct{}

// Classify returns the fallback for the given hint.
func (NoopClassifier) Classify(_ context.Context, _ string, hintCategory string) Classification {
	return FallbackClassification(hintCategory)
}
