package openai

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

	"github.com/google/uuid"

	"github.com/brstatements/fatura-extractor/internal/common"
	"github.com/brstatements/fatura-extractor/internal/llm"
)

// Client talks to the OpenAI chat-completions API. It implements both
// llm.StatementFormatter and llm.BatchExtractor. No retries: every call
// either succeeds once or fails the document.
type Client struct {
	cfg    Config
	http   *http.Client
	log    *slog.Logger
	repair llm.RepairStrategy
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		log:    logger,
		repair: llm.AppendClosingBrace,
	}
}

// FormatStatement runs the cleaning pre-pass: normalized statement text in,
// bare transaction lines out. The response is prose; only the structured
// extraction expects JSON.
func (c *Client) FormatStatement(ctx context.Context, text string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.format.start", "req_id", rid, "model", c.cfg.Model, "text_len", len(text))

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildFormatPrompt(text)},
		},
	}
	content, err := c.complete(ctx, rid, body)
	if err != nil {
		c.log.Error("llm.format.failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", err
	}

	c.log.Info("llm.format.ok", "req_id", rid, "content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds())
	return content, nil
}

// ExtractBatch runs the structured extraction and decodes the response into
// a validated StatementBatch.
func (c *Client) ExtractBatch(ctx context.Context, text string) (*llm.StatementBatch, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start", "req_id", rid, "model", c.cfg.Model, "text_len", len(text))

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildStructuredPrompt(text)},
		},
	}
	content, err := c.complete(ctx, rid, body)
	if err != nil {
		c.log.Error("llm.extract.http_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	batch, err := llm.DecodeBatch(content, c.repair, c.log)
	if err != nil {
		c.log.Error("llm.extract.decode_failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	c.log.Info("llm.extract.ok", "req_id", rid, "records", batch.Len(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return batch, nil
}

// complete posts a chat-completions body and returns the trimmed content of
// the first choice. Transport and shape failures wrap ErrExtractionService.
func (c *Client) complete(ctx context.Context, rid string, body map[string]any) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	c.log.Debug("llm.http.request", "req_id", rid, "url", endpoint)
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return "", common.WrapError(common.ErrExtractionService, err.Error())
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", common.WrapError(common.ErrExtractionService, fmt.Sprintf("decode response: %v", err))
	}
	if len(cc.Choices) == 0 {
		return "", common.WrapError(common.ErrExtractionService, "no choices in response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return "", common.WrapError(common.ErrExtractionService, "empty completion content")
	}
	return content, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			c.log.Warn("llm.http.response_body_close_error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
