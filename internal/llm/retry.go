package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/avast/retry-go/v4"
	"github.com/sashabaranov/go-openai"
)

// RetryConfig controls how failed completions are retried.
type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// RetryingClient retries transient failures of the wrapped client.
type RetryingClient struct {
	next Client
	cfg  RetryConfig
}

// WithRetry wraps client. One attempt or fewer returns client unchanged.
func WithRetry(client Client, cfg RetryConfig) Client {
	if cfg.Attempts <= 1 {
		return client
	}
	return &RetryingClient{next: client, cfg: cfg}
}

// Name returns the wrapped provider name.
func (c *RetryingClient) Name() string {
	return c.next.Name()
}

// Models returns the wrapped provider's models.
func (c *RetryingClient) Models() []string {
	return c.next.Models()
}

// Complete calls the wrapped client until it succeeds or gives up.
func (c *RetryingClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return retry.DoWithData(
		func() (*CompletionResponse, error) {
			return c.next.Complete(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(c.cfg.Delay),
		retry.MaxDelay(c.cfg.MaxDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsRetryable),
	)
}

// IsRetryable reports whether err is worth another attempt. Only 429s, 5xx
// and errors without an HTTP status qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	status := statusCode(err)
	if status == 0 {
		return true
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func statusCode(err error) int {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
