// LLMClient - Provider wrapper that applies the retry policy to every call.

package llm

import (
	"context"
)

// Client wraps a Provider with a retry policy.
type Client struct {
	provider Provider
	policy   RetryPolicy
}

// NewClient creates a new LLM client from a provider using the default retry policy.
func NewClient(provider Provider) *Client {
	return &Client{provider: provider, policy: DefaultRetryPolicy()}
}

// WithRetryPolicy overrides the retry policy.
func (c *Client) WithRetryPolicy(policy RetryPolicy) *Client {
	c.policy = policy
	return c
}

// Converse sends one request through the retry policy.
// When every attempt fails the error is an *ExhaustedRetriesError.
func (c *Client) Converse(ctx context.Context, req Request) (Response, error) {
	return c.policy.Invoke(ctx, func(ctx context.Context) (Response, error) {
		return c.provider.Converse(ctx, req)
	})
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// RetryPolicy returns the active retry policy.
func (c *Client) RetryPolicy() RetryPolicy {
	return c.policy
}
