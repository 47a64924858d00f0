package llm

import "context"

// Client is the interface every completion provider implements.
type Client interface {
	// Chat sends a completion request with the given message list and
	// tool schemas, and returns either a final answer or tool calls.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
