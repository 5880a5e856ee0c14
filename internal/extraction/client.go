package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"manejobot/internal/models"
)

// Completer is the minimal surface the selector needs from a backend.
// jsonMode requests structured output from the backend; free-form answers
// (the specialist path) leave it off.
type Completer interface {
	Complete(ctx context.Context, system, user string, jsonMode bool) (string, models.Usage, error)
	Name() string
}

// Client talks to one OpenAI-compatible chat completions backend.
type Client struct {
	backend models.Backend
	http    *http.Client
}

func NewClient(backend models.Backend, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		backend: backend,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return c.backend.Name }

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends one chat completion and returns the raw content plus
// token usage. jsonMode sets response_format to json_object; prose answers
// must not, or backends reject the request when the prompt never says
// "JSON".
func (c *Client) Complete(ctx context.Context, system, user string, jsonMode bool) (string, models.Usage, error) {
	payload := chatRequest{
		Model: c.backend.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0,
	}
	if jsonMode {
		payload.ResponseFormat = &respFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", models.Usage{}, &BackendError{Backend: c.backend.Name, Cause: err}
	}

	url := strings.TrimSuffix(c.backend.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", models.Usage{}, &BackendError{Backend: c.backend.Name, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.backend.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.backend.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", models.Usage{}, &BackendError{Backend: c.backend.Name, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", models.Usage{}, &BackendError{Backend: c.backend.Name, Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", models.Usage{}, classifyHTTP(c.backend.Name, resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", models.Usage{}, &BackendError{Backend: c.backend.Name, Cause: err}
	}
	if len(parsed.Choices) == 0 {
		return "", models.Usage{}, &BackendError{Backend: c.backend.Name, Cause: fmt.Errorf("resposta sem choices")}
	}

	usage := models.Usage{
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}
	return parsed.Choices[0].Message.Content, usage, nil
}

// StripFences removes the ```json ... ``` wrapper some models emit even in
// JSON mode.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// ParseExtraction decodes model output into the structured result.
func ParseExtraction(content string) (*models.ExtractionResult, error) {
	cleaned := StripFences(content)
	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &result, nil
}
