// Package openai provides an LLM adapter for OpenAI-compatible chat completions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docrag/internal/llm"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
)

// Ensure Client implements the interface.
var _ llm.LLM = (*Client)(nil)

// Config holds configuration for the chat completions client.
type Config struct {
	BaseURL string
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string
	// APIKey takes precedence over APIKeyEnv when set.
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// Client generates answers through the chat completions endpoint.
// Each Generate call is a single attempt.
type Client struct {
	api         *openai.Client
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewClient creates a chat completions client.
func NewClient(cfg Config) (*Client, error) {
	key := cfg.APIKey
	if key == "" && cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}

	oc := openai.DefaultConfig(key)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{}

	return &Client{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the identifier of this LLM implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Generate sends prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string) llm.Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return llm.Failure(llm.KindBadResponse, "no choices returned")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return llm.Failure(llm.KindEmpty, "model returned empty content")
	}
	return llm.Answer(text)
}

func classify(ctx context.Context, err error) llm.Result {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return llm.Failure(llm.KindTimeout, err.Error())
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return llm.Failure(llm.KindUnavailable, fmt.Sprintf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 200 && reqErr.HTTPStatusCode < 300 {
			return llm.Failure(llm.KindBadResponse, reqErr.Error())
		}
		return llm.Failure(llm.KindUnavailable, reqErr.Error())
	}
	return llm.Failure(llm.KindUnavailable, err.Error())
}
