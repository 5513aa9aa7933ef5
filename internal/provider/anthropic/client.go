package anthropic

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oladayo-ade/solarbill/internal/provider"
)

// Config for the Anthropic messages client.
type Config struct {
	APIKey  string // if empty, falls back to env ANTHROPIC_API_KEY
	BaseURL string // default https://api.anthropic.com/v1
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-sonnet-latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// ID implements provider.Client.
func (c *Client) ID() string { return "anthropic" }

// Supports implements provider.Client.
func (c *Client) Supports(cap provider.Capability) bool {
	return cap == provider.CapabilityVision || cap == provider.CapabilityTextJSON
}

// Extract implements provider.Client over the messages API.
func (c *Client) Extract(ctx context.Context, req provider.Request) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("anthropic.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"capability", string(req.Capability),
		"text_len", len(req.Text),
		"has_image", req.ImageDataURL != "",
	)

	var userContent any
	switch req.Capability {
	case provider.CapabilityVision:
		mediaType, data, ok := splitDataURL(req.ImageDataURL)
		if !ok {
			return "", &provider.Error{Provider: c.ID(), Kind: provider.FailureProtocol}
		}
		userContent = []map[string]any{
			{"type": "image", "source": map[string]any{
				"type":       "base64",
				"media_type": mediaType,
				"data":       data,
			}},
			{"type": "text", "text": "Extract the utility bill fields from this document image."},
		}
	default:
		userContent = req.Text
	}

	body := map[string]any{
		"model":       c.cfg.Model,
		"max_tokens":  req.MaxOutputTokens,
		"temperature": 0,
		"system":      req.Prompt,
		"messages": []map[string]any{
			{"role": "user", "content": userContent},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/messages"
	raw, status, httpErr := provider.SendJSON(ctx, c.http, endpoint, body, map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": "2023-06-01",
	}, c.logger)
	if httpErr != nil {
		kind := provider.ClassifyTransport(ctx, status, httpErr)
		c.logger.Error("anthropic.extract.transport_error",
			"req_id", rid, "kind", string(kind), "error", httpErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &provider.Error{Provider: c.ID(), Kind: kind, Cause: httpErr}
	}

	var msg struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Error("anthropic.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &provider.Error{Provider: c.ID(), Kind: provider.FailureProtocol, Cause: err}
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		c.logger.Error("anthropic.extract.empty_content",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &provider.Error{Provider: c.ID(), Kind: provider.FailureProtocol}
	}

	c.logger.Info("anthropic.extract.ok",
		"req_id", rid,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// splitDataURL breaks "data:<media>;base64,<data>" into its parts.
func splitDataURL(u string) (mediaType, data string, ok bool) {
	rest, found := strings.CutPrefix(u, "data:")
	if !found {
		return "", "", false
	}
	mediaType, data, found = strings.Cut(rest, ";base64,")
	if !found || mediaType == "" || data == "" {
		return "", "", false
	}
	return mediaType, data, true
}
