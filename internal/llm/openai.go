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
)

// DefaultBaseURL is the OpenRouter chat completions endpoint, which fronts the
// Claude, GPT and Gemini families behind one OpenAI-compatible schema.
const DefaultBaseURL = "https://openrouter.ai/api/v1/chat/completions"

// HTTPConfig configures an OpenAI-compatible chat completions backend.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retry   RetryConfig
}

// HTTPClient implements Client against an OpenAI-compatible chat completions API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      ModelConfig
	retry      RetryConfig
	httpClient *http.Client
}

// NewHTTPClient creates a client bound to one model.
func NewHTTPClient(cfg HTTPConfig, model ModelConfig) (*HTTPClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("NewHTTPClient: API key cannot be empty")
	}
	if model.Name == "" {
		return nil, fmt.Errorf("NewHTTPClient: model name cannot be empty")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		retry:      retry,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the conversation and returns the first choice's content.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("X-Title", "slidedeckflow")
		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("model error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	if reason := out.Choices[0].FinishReason; reason == "length" {
		slog.Warn("Model response was truncated at the token limit.", "model", c.model.Name, "maxTokens", c.model.MaxTokens)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *HTTPClient) buildRequest(req Request) chatRequest {
	out := chatRequest{
		Model:       c.model.Name,
		MaxTokens:   c.model.MaxTokens,
		Temperature: c.model.Temperature,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
	}
	if req.JSON {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	for _, m := range req.Messages {
		msg := chatMessage{Role: string(m.Role)}
		for _, p := range m.Parts {
			if p.Image != nil {
				msg.Content = append(msg.Content, contentPart{
					Type:     "image_url",
					ImageURL: &imageURL{URL: "data:" + p.Image.MIMEType + ";base64," + p.Image.Data},
				})
				continue
			}
			msg.Content = append(msg.Content, contentPart{Type: "text", Text: p.Text})
		}
		out.Messages = append(out.Messages, msg)
	}
	return out
}
