// Package llm classifies article text through an OpenAI-compatible
// chat-completions API.
package llm

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

	"ContentAirlock/internal/domain"
	"ContentAirlock/internal/ports"
)

// maxPromptChars bounds how much article text is sent to the model. Long
// documents are summarized from their head; a cost/latency tradeoff, not
// a bug.
const maxPromptChars = 15000

// Config defines how to contact the completion API.
type Config struct {
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string
}

// Classifier implements ports.Classifier backed by chat completions.
type Classifier struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier builds a client from configuration.
func NewClassifier(cfg Config, logger *slog.Logger) *Classifier {
	return &Classifier{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// Classify sends the head of text to the model and returns title, category,
// and summary. A category outside the closed set is coerced to Other; any
// transport failure or empty/unparseable response is a ClassificationError.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if c.cfg.APIKey == "" || c.cfg.Endpoint == "" || c.cfg.Model == "" {
		return domain.Classification{}, &domain.ClassificationError{Err: fmt.Errorf("classifier misconfigured")}
	}

	content, err := c.complete(ctx, buildPrompt(truncate(text, maxPromptChars)))
	if err != nil {
		return domain.Classification{}, &domain.ClassificationError{Err: err}
	}

	var parsed struct {
		Title    string `json:"title"`
		Category string `json:"category"`
		Summary  string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.Classification{}, &domain.ClassificationError{Err: fmt.Errorf("parse model output: %w", err)}
	}
	if parsed.Title == "" && parsed.Summary == "" {
		return domain.Classification{}, &domain.ClassificationError{Err: fmt.Errorf("model output missing title and summary")}
	}

	category := domain.ParseCategory(parsed.Category)
	if string(category) != parsed.Category {
		c.warn("invalid category coerced", "returned", parsed.Category, "coerced", category)
	}

	return domain.Classification{
		Title:    parsed.Title,
		Category: category,
		Summary:  parsed.Summary,
	}, nil
}

func (c *Classifier) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Classifier) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(c.cfg.SystemPrompt)},
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0.3,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion response")
	}
	return completion.Choices[0].Message.Content, nil
}

func buildPrompt(content string) string {
	names := make([]string, 0, len(domain.Categories()))
	for _, cat := range domain.Categories() {
		names = append(names, string(cat))
	}

	return fmt.Sprintf(`Analyze the following article content and provide:
1. A concise, filesystem-safe title (max 60 characters, alphanumeric and hyphens only).
2. A category strictly chosen from this list: %s.
3. A one-sentence summary (max 150 characters).

Respond ONLY with a valid JSON object in this format:
{
  "title": "Compact-Title-Here",
  "category": "%s",
  "summary": "This article discusses..."
}

Article Content:
%s`, strings.Join(names, ", "), domain.CategoryGenAI, content)
}

func systemPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a helpful assistant that summarizes technical articles."
	}
	return prompt
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}
