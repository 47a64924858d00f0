package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaChat(t *testing.T) {
	var gotReq ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "llama3.1",
			Message:         ollamaMessage{Role: "assistant", Content: "hello back"},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       7,
		})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	resp, err := client.Chat(context.Background(), "llama3.1", []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if gotReq.Model != "llama3.1" {
		t.Errorf("request model = %q, want llama3.1", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("request stream = true, want false")
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("request messages = %d, want 2", len(gotReq.Messages))
	}
	if resp.Message.Content != "hello back" {
		t.Errorf("content = %q, want %q", resp.Message.Content, "hello back")
	}
	if resp.FinishReason != "stop" {
		t.Errorf("finish reason = %q, want stop", resp.FinishReason)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 7 {
		t.Errorf("tokens = %d/%d, want 12/7", resp.InputTokens, resp.OutputTokens)
	}
}

func TestOllamaChatToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg ollamaMessage
		msg.Role = "assistant"
		var tc ollamaToolCall
		tc.Function.Name = "record_unknown_question"
		tc.Function.Arguments = map[string]any{"question": "favorite color?"}
		msg.ToolCalls = []ollamaToolCall{tc}
		json.NewEncoder(w).Encode(ollamaChatResponse{Model: "llama3.1", Message: msg, Done: true})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	resp, err := client.Chat(context.Background(), "llama3.1", []Message{{Role: "user", Content: "hm"}}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if !resp.HasToolCalls() {
		t.Fatal("expected tool calls")
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q, want tool_calls", resp.FinishReason)
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call_0" {
		t.Errorf("synthesized id = %q, want call_0", tc.ID)
	}
	if tc.Function.Name != "record_unknown_question" {
		t.Errorf("name = %q", tc.Function.Name)
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}
	if args["question"] != "favorite color?" {
		t.Errorf("arguments = %v", args)
	}
}

func TestOllamaToolCallRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 3 {
			t.Fatalf("messages = %d, want 3", len(req.Messages))
		}
		asst := req.Messages[1]
		if len(asst.ToolCalls) != 1 {
			t.Fatalf("assistant tool calls = %d, want 1", len(asst.ToolCalls))
		}
		if got := asst.ToolCalls[0].Function.Arguments["email"]; got != "a@b.c" {
			t.Errorf("arguments email = %v, want a@b.c", got)
		}
		if req.Messages[2].Role != "tool" {
			t.Errorf("third role = %q, want tool", req.Messages[2].Role)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:   "llama3.1",
			Message: ollamaMessage{Role: "assistant", Content: "done"},
			Done:    true,
		})
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	_, err := client.Chat(context.Background(), "llama3.1", []Message{
		{Role: "user", Content: "remember me"},
		{Role: "assistant", ToolCalls: []ToolCall{{
			ID:       "call_0",
			Function: ToolCallFunction{Name: "record_user_details", Arguments: `{"email":"a@b.c"}`},
		}}},
		{Role: "tool", Content: `{"recorded":"ok"}`, ToolCallID: "call_0"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
}

func TestOllamaChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	_, err := client.Chat(context.Background(), "nope", []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestOllamaPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	client := NewOllamaClient(server.URL)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
