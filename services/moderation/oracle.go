// Package moderation reviews game descriptions for age
// appropriateness through an LLM messages API.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gamevault-backend/lib/telemetry"
	"gamevault-backend/services/catalog"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/moderation")

type Config struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
}

type Oracle struct {
	http  *resty.Client
	model string
}

func NewOracle(config Config) Oracle {
	client := resty.New()
	client.SetBaseURL(config.BaseURL)
	client.SetHeader("x-api-key", config.APIKey)
	client.SetHeader("anthropic-version", "2023-06-01")
	client.SetHeader("content-type", "application/json")
	client.SetTimeout(time.Minute)
	telemetry.InstrumentResty(client, "services/moderation")
	return Oracle{http: client, model: config.Model}
}

const promptTemplate = `You are reviewing game descriptions for a kid-safe game platform.

Game: %s
Description: %s

Tasks:
1. Remove any external links or references to social media/Discord/YouTube
2. Clean up inappropriate language or references
3. Determine if this game is appropriate for children under 13
4. Flag if game contains: horror, violence, dating themes, or other mature content

Respond ONLY with valid JSON in this exact format:
{
  "sanitized_description": "cleaned description here",
  "is_appropriate_for_under13": true or false,
  "flags": ["flag1", "flag2"],
  "reasoning": "brief explanation"
}`

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Moderate reviews one description. It never fails: any transport,
// API, or parse error degrades to a permissive verdict carrying the
// raw description and an "ai-error" flag, so a broken oracle can stall
// exclusions but never corrupt the catalog.
func (o Oracle) Moderate(ctx context.Context, description, name string) catalog.ModerationResult {
	ctx, span := tracer.Start(ctx, "Moderate")
	defer span.End()
	span.SetAttributes(attribute.String("game", name))

	verdict, err := o.review(ctx, description, name)
	if err != nil {
		slog.WarnContext(ctx, "moderation failed, using permissive fallback", "game", name, "err", err)
		span.RecordError(err)
		return catalog.ModerationResult{
			SanitizedDescription:  description,
			AppropriateForUnder13: true,
			Flags:                 []string{"ai-error"},
			Reasoning:             fmt.Sprintf("AI analysis failed: %v", err),
		}
	}

	slog.InfoContext(ctx, "moderation verdict",
		"game", name,
		"appropriate", verdict.AppropriateForUnder13,
		"flags", verdict.Flags,
	)
	return verdict
}

func (o Oracle) review(ctx context.Context, description, name string) (catalog.ModerationResult, error) {
	body := messagesRequest{
		Model:     o.model,
		MaxTokens: 1000,
		Messages: []message{{
			Role:    "user",
			Content: fmt.Sprintf(promptTemplate, name, description),
		}},
	}

	var response messagesResponse
	res, err := o.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&response).
		Post("/v1/messages")
	if err != nil {
		return catalog.ModerationResult{}, err
	}
	if res.IsError() {
		return catalog.ModerationResult{}, fmt.Errorf("messages api returned %s: %s", res.Status(), res.String())
	}
	if len(response.Content) == 0 {
		return catalog.ModerationResult{}, fmt.Errorf("messages api returned no content blocks")
	}

	var verdict catalog.ModerationResult
	if err := json.Unmarshal([]byte(response.Content[0].Text), &verdict); err != nil {
		return catalog.ModerationResult{}, fmt.Errorf("parse verdict: %w", err)
	}
	return verdict, nil
}
