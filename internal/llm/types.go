// Package llm provides completion provider client implementations.
package llm

// Message represents a chat message exchanged with the model.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on tool-result messages
}

// ToolCall is a tool invocation requested by the model. ID correlates
// the eventual tool-result message back to this request.
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction names the tool and carries its arguments as raw
// JSON. Argument validation happens at dispatch, not here.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the unified response from any provider. Wire format
// conversion happens at provider boundaries (openai.go, ollama.go).
type ChatResponse struct {
	Model        string
	Message      Message
	FinishReason string

	// Token usage (provider-neutral; zero when unavailable)
	InputTokens  int
	OutputTokens int
}

// HasToolCalls reports whether the model asked for tools instead of
// producing a final answer.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.Message.ToolCalls) > 0
}
