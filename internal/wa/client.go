package wa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"parchaoo-bot/internal/metrics"
)

// Client provides typed access to the WhatsApp Cloud (Graph) API.
type Client struct {
	logger        *slog.Logger
	baseURL       string
	accessToken   string
	phoneNumberID string
	timeout       time.Duration
	http          *http.Client
	metrics       *metrics.Metrics
}

// Config holds WhatsApp client configuration.
type Config struct {
	BaseURL       string
	AccessToken   string
	PhoneNumberID string
	Timeout       time.Duration
}

// New creates a new WhatsApp Cloud API client.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://graph.facebook.com/v22.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		logger:        logger.With("component", "wa"),
		baseURL:       base,
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		timeout:       timeout,
		http:          &http.Client{Timeout: timeout},
		metrics:       m,
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.accessToken != "" && c.phoneNumberID != ""
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *graphError `json:"error"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// SendText sends a plain text message and returns the provider message id.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"preview_url": false, "body": body},
	}
	return c.sendMessage(ctx, "send_text", payload)
}

// SendTemplate sends a pre-approved template message.
func (c *Client) SendTemplate(ctx context.Context, to, templateName, languageCode string) (string, error) {
	if languageCode == "" {
		languageCode = "es"
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]any{
			"name":     templateName,
			"language": map[string]any{"code": languageCode},
		},
	}
	return c.sendMessage(ctx, "send_template", payload)
}

// SendImage sends an image by public URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, to, imageURL, caption string) (string, error) {
	image := map[string]any{"link": imageURL}
	if caption != "" {
		image["caption"] = caption
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "image",
		"image":             image,
	}
	return c.sendMessage(ctx, "send_image", payload)
}

// MarkAsRead marks an inbound message as read.
func (c *Client) MarkAsRead(ctx context.Context, messageID string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	_, err := c.sendMessage(ctx, "mark_read", payload)
	return err
}

func (c *Client) sendMessage(ctx context.Context, endpoint string, payload map[string]any) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("whatsapp client not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", endpoint, err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	raw, err := c.do(ctx, endpoint, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}

	var resp sendResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("graph api %s error %d: %s", endpoint, resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Messages) == 0 {
		return "", nil
	}
	return resp.Messages[0].ID, nil
}

// MediaURL resolves the short-lived download URL of an inbound media id.
func (c *Client) MediaURL(ctx context.Context, mediaID string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("whatsapp client not configured")
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	raw, err := c.do(ctx, "media_url", http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		URL   string      `json:"url"`
		Error *graphError `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode media response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("graph api media error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return resp.URL, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(started).Seconds()
	if err != nil {
		c.metrics.GraphRequests.WithLabelValues(endpoint, "error").Inc()
		c.metrics.GraphLatency.WithLabelValues(endpoint, "error").Observe(elapsed)
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.metrics.GraphRequests.WithLabelValues(endpoint, "error").Inc()
		c.metrics.GraphLatency.WithLabelValues(endpoint, "error").Observe(elapsed)
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	status := "ok"
	if resp.StatusCode >= 400 {
		status = "error"
	}
	c.metrics.GraphRequests.WithLabelValues(endpoint, status).Inc()
	c.metrics.GraphLatency.WithLabelValues(endpoint, status).Observe(elapsed)

	if resp.StatusCode >= 400 {
		c.logger.Error("graph api returned error status",
			"endpoint", endpoint, "status", resp.StatusCode, "body", string(raw))
		var envelope struct {
			Error *graphError `json:"error"`
		}
		if jsonErr := json.Unmarshal(raw, &envelope); jsonErr == nil && envelope.Error != nil {
			return nil, fmt.Errorf("graph api %s error %d: %s", endpoint, envelope.Error.Code, envelope.Error.Message)
		}
		return nil, fmt.Errorf("graph api %s status %d", endpoint, resp.StatusCode)
	}
	return raw, nil
}
