// Package translate calls an OpenAI-compatible chat-completion endpoint to
// translate message text.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotConfigured = errors.New("translate: no backend configured")
	ErrEmptyInput    = errors.New("translate: text and target language are required")
)

const MaxTextLength = 5000

// Client is a thin chat-completion client
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// New creates a Client. An empty baseURL or apiKey yields a client whose
// calls fail with ErrNotConfigured.
func New(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the client has a backend
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Translate returns text rendered in targetLang
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	text, targetLang = strings.TrimSpace(text), strings.TrimSpace(targetLang)
	if text == "" || targetLang == "" {
		return "", ErrEmptyInput
	}
	if len([]rune(text)) > MaxTextLength {
		return "", fmt.Errorf("translate: text longer than %d characters", MaxTextLength)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "Translate the user's message into " + targetLang + ". Reply with the translation only."},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translate: backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("translate: decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("translate: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("translate: empty response")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
