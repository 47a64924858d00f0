package llm

import (
	"context"
	"time"
)

// timeoutClient bounds each call of the wrapped client.
type timeoutClient struct {
	inner   Client
	timeout time.Duration
}

// WithTimeout wraps a client so every call runs under a deadline.
// A non-positive timeout returns the client unchanged.
func WithTimeout(c Client, timeout time.Duration) Client {
	if timeout <= 0 {
		return c
	}
	return &timeoutClient{inner: c, timeout: timeout}
}

func (t *timeoutClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Chat(ctx, model, messages, tools)
}

func (t *timeoutClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Ping(ctx)
}
