package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message choiceMessage `json:"message"`
		// Some providers answer with the streaming schema (delta) even when
		// stream=false, so it is tolerated as a fallback.
		Delta choiceMessage `json:"delta"`
		// Legacy completion-style responses put text here.
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type choiceMessage struct {
	Content      string        `json:"content"`
	ToolCalls    []toolCall    `json:"tool_calls"`
	FunctionCall *functionCall `json:"function_call"`
	Refusal      string        `json:"refusal"`
}

type toolCall struct {
	Type     string       `json:"type"`
	ID       string       `json:"id"`
	Index    int          `json:"index"`
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// emptyContentError marks a structurally valid response whose content slots
// all came back blank. Providers do this transiently, so it is retryable.
type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf(
		"%s: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.Op,
		e.FinishReason,
		e.Refusal,
		e.Snippet,
	)
}

// do runs the request through the retry loop. Each attempt that fails is
// classified by retryDelay; non-retryable errors surface as-is.
func (c *Client) do(ctx context.Context, payload chatRequest, op string) (Completion, error) {
	attempts := c.retryAttempts()
	for attempt := 1; ; attempt++ {
		completion, err := c.once(ctx, payload, op)
		if err == nil {
			return completion, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return Completion{}, err
		}
		if waitErr := c.wait(ctx, delay); waitErr != nil {
			return Completion{}, waitErr
		}
	}
}

func (c *Client) once(ctx context.Context, payload chatRequest, op string) (Completion, error) {
	response, body, err := c.post(ctx, payload)
	if err != nil {
		return Completion{}, err
	}
	content, finishReason := responseContent(response)
	if content == "" {
		if len(response.Choices) == 0 {
			return Completion{}, fmt.Errorf("%s: empty choices", op)
		}
		return Completion{}, &emptyContentError{
			Op:           op,
			FinishReason: finishReason,
			Refusal:      responseRefusal(response),
			Snippet:      payloadSnippet(string(body)),
		}
	}
	return Completion{Content: content, FinishReason: finishReason, Usage: response.Usage}, nil
}

func (c *Client) post(ctx context.Context, payload chatRequest) (chatResponse, []byte, error) {
	var parsed chatResponse
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "chat", "completions")
	if err != nil {
		return parsed, nil, fmt.Errorf("llm request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return parsed, nil, fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return parsed, nil, fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
		req.Header.Set("Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return parsed, nil, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeout(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return parsed, nil, fmt.Errorf("llm request: read body (timeout=%s): %w", c.timeout(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return parsed, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return parsed, body, fmt.Errorf("llm request: decode response: %w", err)
	}
	if parsed.Error != nil {
		return parsed, body, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	return parsed, body, nil
}

// responseContent walks the choices for the first usable payload: plain
// content first, then tool or function call arguments. It also reports the
// first finish reason encountered.
func responseContent(resp chatResponse) (string, string) {
	var finish string
	for _, choice := range resp.Choices {
		if finish == "" {
			finish = strings.TrimSpace(choice.FinishReason)
		}
		slots := []string{
			choice.Message.Content,
			choice.Delta.Content,
			choice.Text,
			callArguments(choice.Message),
			callArguments(choice.Delta),
		}
		for _, slot := range slots {
			if content := strings.TrimSpace(slot); content != "" {
				return content, finish
			}
		}
	}
	return "", finish
}

// callArguments salvages a JSON body that arrived as a tool or function call
// instead of message content.
func callArguments(msg choiceMessage) string {
	if msg.FunctionCall != nil {
		if args := strings.TrimSpace(msg.FunctionCall.Arguments); args != "" {
			return args
		}
	}
	for _, call := range msg.ToolCalls {
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			return args
		}
	}
	return ""
}

func responseRefusal(resp chatResponse) string {
	for _, choice := range resp.Choices {
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			return refusal
		}
		if refusal := strings.TrimSpace(choice.Delta.Refusal); refusal != "" {
			return refusal
		}
	}
	return ""
}

func (c *Client) policy() RetryPolicy {
	if c == nil {
		return RetryPolicy{MaxAttempts: 1}
	}
	return c.retry
}

func (c *Client) retryAttempts() int {
	if p := c.policy(); p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return 1
}

// retryDelay decides whether err warrants another attempt and how long to
// wait first. Rate limits, server-side statuses, network timeouts, and empty
// content retry; client errors and context cancellation are final.
func (c *Client) retryDelay(ctx context.Context, err error, attempt, attempts int) (time.Duration, bool) {
	if err == nil || attempt >= attempts {
		return 0, false
	}
	if ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var emptyErr *emptyContentError
	if errors.As(err, &emptyErr) {
		return c.backoff(attempt), true
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if !retryableStatus(statusErr.StatusCode) {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return c.capDelay(statusErr.RetryAfter), true
		}
		return c.backoff(attempt), true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoff(attempt), true
	}
	return 0, false
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// backoff doubles the base delay per attempt up to the policy's maximum.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.policy().BaseDelay
	if delay <= 0 {
		return 0
	}
	ceiling := c.maxDelay()
	for i := 1; i < attempt; i++ {
		if delay > ceiling/2 {
			return ceiling
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) maxDelay() time.Duration {
	if p := c.policy(); p.MaxDelay > 0 {
		return p.MaxDelay
	}
	return defaultRetry.MaxDelay
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	switch limit := c.maxDelay(); {
	case delay < 0:
		return 0
	case delay > limit:
		return limit
	default:
		return delay
	}
}

func (c *Client) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("llm retry: nil context")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if sleep := c.policy().Sleep; sleep != nil {
		sleep(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) timeout() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

// parseRetryAfter reads a Retry-After header as either seconds or an HTTP
// date. Unparseable or past values yield 0.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay
		}
	}
	return 0
}

// payloadSnippet flattens a response body onto one line, capped at 160 runes,
// for inclusion in error messages.
func payloadSnippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	runes := []rune(clean)
	if len(runes) > 160 {
		return string(runes[:160]) + "..."
	}
	return clean
}
