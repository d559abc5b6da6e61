package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 120 * time.Second
	openRouterBaseURL  = "https://openrouter.ai/api/v1"
)

// defaultRetry is the retry posture for pipeline traffic: five attempts with
// exponential backoff from one second, capped at ten.
var defaultRetry = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   time.Second,
	MaxDelay:    10 * time.Second,
}

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Referer string
	Title   string
	Timeout time.Duration
}

func (cfg Config) normalized() Config {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = openRouterBaseURL
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	return cfg
}

// RetryPolicy bounds the retry loop around each chat request. A BaseDelay of
// zero or less disables waiting between attempts. Sleep, when set, replaces
// the context-aware timer wait; tests use it to observe delays without
// slowing down.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Sleep       func(time.Duration)
}

// Client speaks the OpenRouter chat completions protocol. Every request asks
// for a JSON object response; the pipeline never consumes free-form prose.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      RetryPolicy
}

// Option customizes the client.
type Option func(*Client)

// WithRetry replaces the default retry policy.
func WithRetry(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient builds a client for the configured endpoint. Whitespace in
// credentials and URLs is trimmed; an unset base URL targets OpenRouter.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg = cfg.normalized()
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      defaultRetry,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model reports the configured model identifier.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.cfg.Model
}

// Message is a single chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the content and accounting returned by a chat request.
type Completion struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Complete issues a JSON-only chat completion for the supplied conversation.
// maxTokens caps the response when positive. The first message must be the
// system prompt and at least one non-system message must follow.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int) (Completion, error) {
	var empty Completion
	if len(messages) < 2 {
		return empty, errors.New("llm complete: system and user messages required")
	}
	for i, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			return empty, fmt.Errorf("llm complete: message %d is empty", i)
		}
	}
	if messages[0].Role != "system" {
		return empty, errors.New("llm complete: first message must carry the system role")
	}
	if c.cfg.APIKey == "" {
		return empty, errors.New("llm complete: api key required")
	}
	payload := chatRequest{
		Model:          c.cfg.Model,
		Messages:       messages,
		Temperature:    0,
		MaxTokens:      maxTokens,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	return c.do(ctx, payload, "llm complete")
}

// HealthCheck verifies the API key and model are usable by asking for a tiny
// fixed JSON object and checking it parses.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	probe := []Message{
		{Role: "system", Content: "You must respond with JSON only."},
		{Role: "user", Content: `Respond with {"ok":true}`},
	}
	completion, err := c.Complete(ctx, probe, 32)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(completion.Content)), &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
