// Package tools defines the tools available to the agent.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string                                                         `json:"name"`
	Description string                                                         `json:"description"`
	Parameters  map[string]any                                                 `json:"parameters"`
	Handler     func(ctx context.Context, args map[string]any) (string, error) `json:"-"`
}

// Notifier delivers out-of-band alerts when a tool fires.
type Notifier interface {
	Fire(ctx context.Context, message string)
}

// EmailRecorder persists a user's email address.
type EmailRecorder interface {
	SetEmail(identity, email string) error
}

// Registry holds available tools.
type Registry struct {
	tools    map[string]*Tool
	notifier Notifier
	contacts EmailRecorder
	logger   *slog.Logger
}

// NewRegistry creates a tool registry. notifier and contacts may be
// nil, in which case the corresponding side effects are skipped.
func NewRegistry(notifier Notifier, contacts EmailRecorder, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:    make(map[string]*Tool),
		notifier: notifier,
		contacts: contacts,
		logger:   logger,
	}
	r.registerBuiltins()
	return r
}

type recordUserDetailsArgs struct {
	Email string `json:"email" jsonschema:"required" jsonschema_description:"The email address of this user"`
	Name  string `json:"name,omitempty" jsonschema_description:"The user's name, if they provided it"`
	Notes string `json:"notes,omitempty" jsonschema_description:"Any additional context worth recording"`
}

type recordUnknownQuestionArgs struct {
	Question string `json:"question" jsonschema:"required" jsonschema_description:"The question that couldn't be answered"`
}

func (r *Registry) registerBuiltins() {
	r.Register(&Tool{
		Name:        "record_user_details",
		Description: "Use this tool to record that a user is interested in being in touch and provided an email address",
		Parameters:  mustSchema[recordUserDetailsArgs](),
		Handler:     r.handleRecordUserDetails,
	})

	r.Register(&Tool{
		Name:        "record_unknown_question",
		Description: "Always use this tool to record any question that couldn't be answered as you didn't know the answer",
		Parameters:  mustSchema[recordUnknownQuestionArgs](),
		Handler:     r.handleRecordUnknownQuestion,
	})
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// List returns all tool schemas for the LLM, sorted by name.
func (r *Registry) List() []map[string]any {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	var result []map[string]any
	for _, name := range names {
		t := r.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Dispatch runs a tool by name and always returns a JSON result for
// the model. Unknown tools, malformed arguments, and handler failures
// are logged and reported back as an empty object so a misbehaving
// model cannot abort the conversation.
func (r *Registry) Dispatch(ctx context.Context, name, argsJSON string) string {
	result, err := r.Execute(ctx, name, argsJSON)
	if err != nil {
		r.logger.Warn("tool call failed", "tool", name, "error", err)
		return "{}"
	}
	return result
}

// Execute runs a tool by name with given arguments.
func (r *Registry) Execute(ctx context.Context, name string, argsJSON string) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}

	return tool.Handler(ctx, args)
}

// Tool handlers

func (r *Registry) handleRecordUserDetails(ctx context.Context, args map[string]any) (string, error) {
	email, _ := args["email"].(string)
	if email == "" {
		return "", fmt.Errorf("email is required")
	}

	name, _ := args["name"].(string)
	if name == "" {
		name = "Name not provided"
	}
	notes, _ := args["notes"].(string)
	if notes == "" {
		notes = "not provided"
	}

	if r.notifier != nil {
		r.notifier.Fire(ctx, fmt.Sprintf("Recording %s with email %s and notes %s", name, email, notes))
	}

	if r.contacts != nil {
		if identity := IdentityFrom(ctx); identity != "" {
			if err := r.contacts.SetEmail(identity, email); err != nil {
				r.logger.Warn("record email", "identity", identity, "error", err)
			}
		}
	}

	return `{"recorded": "ok"}`, nil
}

func (r *Registry) handleRecordUnknownQuestion(ctx context.Context, args map[string]any) (string, error) {
	question, _ := args["question"].(string)
	if question == "" {
		return "", fmt.Errorf("question is required")
	}

	if r.notifier != nil {
		r.notifier.Fire(ctx, fmt.Sprintf("Recording %s", question))
	}

	return `{"recorded": "ok"}`, nil
}

type identityKey struct{}

// WithIdentity tags a context with the user a tool call is acting for.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the identity stored by WithIdentity, if any.
func IdentityFrom(ctx context.Context) string {
	identity, _ := ctx.Value(identityKey{}).(string)
	return identity
}
