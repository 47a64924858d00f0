package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient is a client for the OpenAI chat completions API, or any
// endpoint that speaks the same protocol.
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a new OpenAI client. baseURL is optional and
// overrides the default API endpoint.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	}

	for _, t := range tools {
		tool, err := toOpenAITool(t)
		if err != nil {
			return nil, err
		}
		params.Tools = append(params.Tools, tool)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: empty choices")
	}

	choice := resp.Choices[0]
	msg := Message{Role: "assistant", Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID: tc.ID,
			Function: ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return &ChatResponse{
		Model:        resp.Model,
		Message:      msg,
		FinishReason: choice.FinishReason,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "user":
			out = append(out, openai.UserMessage(m.Content))
		case "assistant":
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Function.Name,
							Arguments: tc.Function.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

// toOpenAITool converts a generic tool schema of the form
// {"type":"function","function":{"name":...,"description":...,"parameters":...}}
// into the typed params the SDK expects.
func toOpenAITool(schema map[string]any) (openai.ChatCompletionToolUnionParam, error) {
	fn, ok := schema["function"].(map[string]any)
	if !ok {
		return openai.ChatCompletionToolUnionParam{}, fmt.Errorf("tool schema missing function block")
	}
	name, _ := fn["name"].(string)
	if name == "" {
		return openai.ChatCompletionToolUnionParam{}, fmt.Errorf("tool schema missing name")
	}

	def := openai.FunctionDefinitionParam{Name: name}
	if desc, ok := fn["description"].(string); ok {
		def.Description = openai.String(desc)
	}
	if params, ok := fn["parameters"].(map[string]any); ok {
		def.Parameters = openai.FunctionParameters(params)
	}
	return openai.ChatCompletionFunctionTool(def), nil
}

// Ping checks if the API is reachable with the configured key.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	_, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
