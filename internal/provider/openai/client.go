package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oladayo-ade/solarbill/internal/provider"
)

// ID implements provider.Client.
func (c *Client) ID() string { return "openai" }

// Supports implements provider.Client. Chat completions handle both image
// content parts and plain text, so both capabilities are served.
func (c *Client) Supports(cap provider.Capability) bool {
	return cap == provider.CapabilityVision || cap == provider.CapabilityTextJSON
}

// Extract implements provider.Client over chat/completions. Temperature is
// pinned to 0 and output is capped: structured extraction, not generation.
func (c *Client) Extract(ctx context.Context, req provider.Request) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("openai.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"capability", string(req.Capability),
		"text_len", len(req.Text),
		"has_image", req.ImageDataURL != "",
	)

	var userContent any
	switch req.Capability {
	case provider.CapabilityVision:
		userContent = []map[string]any{
			{"type": "text", "text": "Extract the utility bill fields from this document image."},
			{"type": "image_url", "image_url": map[string]any{"url": req.ImageDataURL}},
		}
	default:
		userContent = req.Text
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     0,
		"max_tokens":      req.MaxOutputTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": req.Prompt},
			{"role": "user", "content": userContent},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, status, httpErr := provider.SendJSON(ctx, c.http, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.logger)
	if httpErr != nil {
		kind := provider.ClassifyTransport(ctx, status, httpErr)
		c.logger.Error("openai.extract.transport_error",
			"req_id", rid, "kind", string(kind), "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &provider.Error{Provider: c.ID(), Kind: kind, Cause: httpErr}
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("openai.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &provider.Error{Provider: c.ID(), Kind: provider.FailureProtocol, Cause: err}
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("openai.extract.no_choices",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &provider.Error{Provider: c.ID(), Kind: provider.FailureProtocol}
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("openai.extract.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
