// Package agent orchestrates a conversation turn: session identity,
// the model loop with tool dispatch, and the bookkeeping that follows
// a successful reply.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/revanthk/concierge/internal/analytics"
	"github.com/revanthk/concierge/internal/history"
	"github.com/revanthk/concierge/internal/interest"
	"github.com/revanthk/concierge/internal/llm"
	"github.com/revanthk/concierge/internal/persona"
	"github.com/revanthk/concierge/internal/profile"
	"github.com/revanthk/concierge/internal/sentiment"
	"github.com/revanthk/concierge/internal/session"
	"github.com/revanthk/concierge/internal/tools"
	"github.com/revanthk/concierge/internal/usage"
)

const (
	askName  = "Hi there! 👋 What's your name?"
	greeting = "Nice to meet you, %s! How can I help you today?"

	defaultMaxToolRounds = 10
)

// Notifier delivers out-of-band alerts.
type Notifier interface {
	Fire(ctx context.Context, message string)
}

// Options bundles the collaborators an Agent composes. Notifier and
// Usage may be nil.
type Options struct {
	Logger     *slog.Logger
	Persona    *persona.Persona
	Sessions   *session.Registry
	History    *history.Store
	Profiles   *profile.Store
	Analytics  *analytics.Log
	Interests  *interest.Classifier
	Sentiments sentiment.Classifier
	LLM        llm.Client
	Tools      *tools.Registry
	Notifier   Notifier
	Usage      *usage.Store

	Model         string
	Provider      string
	HistoryWindow int
	MaxToolRounds int
}

// Agent runs conversation turns.
type Agent struct {
	logger     *slog.Logger
	persona    *persona.Persona
	sessions   *session.Registry
	history    *history.Store
	profiles   *profile.Store
	analytics  *analytics.Log
	interests  *interest.Classifier
	sentiments sentiment.Classifier
	llm        llm.Client
	tools      *tools.Registry
	notifier   Notifier
	usage      *usage.Store

	model         string
	provider      string
	historyWindow int
	maxToolRounds int
	now           func() time.Time
}

// New creates an Agent from the given options.
func New(opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxRounds := opts.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}
	return &Agent{
		logger:        logger,
		persona:       opts.Persona,
		sessions:      opts.Sessions,
		history:       opts.History,
		profiles:      opts.Profiles,
		analytics:     opts.Analytics,
		interests:     opts.Interests,
		sentiments:    opts.Sentiments,
		llm:           opts.LLM,
		tools:         opts.Tools,
		notifier:      opts.Notifier,
		usage:         opts.Usage,
		model:         opts.Model,
		provider:      opts.Provider,
		historyWindow: opts.HistoryWindow,
		maxToolRounds: maxRounds,
		now:           time.Now,
	}
}

// HandleTurn processes one user message on a connection and returns
// the agent's reply.
func (a *Agent) HandleTurn(ctx context.Context, connID, message string) (string, error) {
	if identity, ok := a.sessions.Resolve(connID); ok {
		return a.activeTurn(ctx, connID, identity, message)
	}

	if a.sessions.Pending(connID) {
		return a.nameTurn(ctx, connID, message)
	}

	// First contact on this connection: ask who we're talking to.
	// No model call happens until the user has a name.
	a.sessions.Begin(connID)
	return askName, nil
}

// nameTurn binds the connection to an identity derived from the
// user's reply.
func (a *Agent) nameTurn(ctx context.Context, connID, message string) (string, error) {
	identity := session.DeriveIdentity(message)
	if identity == "" {
		return askName, nil
	}

	bound := a.sessions.Bind(connID, identity)
	if bound != identity {
		// A concurrent turn on the same connection won the bind.
		identity = bound
	}
	a.logger.Info("user joined", "connection", connID, "identity", identity)

	if a.notifier != nil {
		a.notifier.Fire(ctx, "New user joined: "+identity)
	}

	label := a.classifySentiment(ctx, message)
	a.logEvent(connID, identity, message, label)

	return fmt.Sprintf(greeting, identity), nil
}

// activeTurn runs the model loop and persists the turn's side effects
// before returning the reply. A provider failure aborts the turn with
// no writes.
func (a *Agent) activeTurn(ctx context.Context, connID, identity, message string) (string, error) {
	turns, err := a.history.Load(identity)
	if err != nil {
		return "", fmt.Errorf("load history for %s: %w", identity, err)
	}
	turns = history.Window(turns, a.historyWindow)

	messages := make([]llm.Message, 0, 2*len(turns)+2)
	messages = append(messages, llm.Message{Role: "system", Content: a.persona.SystemPrompt(identity)})
	for _, t := range turns {
		messages = append(messages, llm.Message{Role: "user", Content: t.User})
		messages = append(messages, llm.Message{Role: "assistant", Content: t.Agent})
	}
	messages = append(messages, llm.Message{Role: "user", Content: message})

	detected := a.interests.Classify(message)

	reply, err := a.runModelLoop(ctx, connID, identity, messages)
	if err != nil {
		return "", err
	}

	label := a.classifySentiment(ctx, message)

	if err := a.profiles.Update(identity, label, detected); err != nil {
		return "", fmt.Errorf("update profile for %s: %w", identity, err)
	}
	a.logger.Debug("profile updated", "identity", identity, "interest", detected, "sentiment", label)

	a.logEvent(connID, identity, message, label)

	if err := a.history.Append(identity, history.Turn{User: message, Agent: reply}); err != nil {
		return "", fmt.Errorf("append history for %s: %w", identity, err)
	}

	return reply, nil
}

// runModelLoop calls the model until it stops asking for tools, up to
// maxToolRounds calls.
func (a *Agent) runModelLoop(ctx context.Context, connID, identity string, messages []llm.Message) (string, error) {
	toolCtx := tools.WithIdentity(ctx, identity)
	schemas := a.tools.List()

	for round := 0; round < a.maxToolRounds; round++ {
		resp, err := a.llm.Chat(ctx, a.model, messages, schemas)
		if err != nil {
			return "", fmt.Errorf("model call: %w", err)
		}
		a.recordUsage(ctx, connID, identity, resp)

		if !resp.HasToolCalls() {
			return resp.Message.Content, nil
		}

		messages = append(messages, resp.Message)
		for _, tc := range resp.Message.ToolCalls {
			a.logger.Info("tool called", "tool", tc.Function.Name, "identity", identity)
			result := a.tools.Dispatch(toolCtx, tc.Function.Name, tc.Function.Arguments)
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return "", fmt.Errorf("tool loop exceeded %d rounds", a.maxToolRounds)
}

// classifySentiment labels a message, degrading to NEUTRAL when the
// classifier is unavailable.
func (a *Agent) classifySentiment(ctx context.Context, message string) sentiment.Label {
	label, err := a.sentiments.Classify(ctx, message)
	if err != nil {
		a.logger.Warn("sentiment classify failed", "error", err)
		return sentiment.Neutral
	}
	return label
}

// logEvent appends an analytics row. Analytics failures are logged but
// do not fail the turn.
func (a *Agent) logEvent(connID, identity, message string, label sentiment.Label) {
	err := a.analytics.Append(analytics.Event{
		Timestamp:   a.now(),
		SessionID:   connID,
		User:        identity,
		Message:     message,
		Sentiment:   label,
		DurationSec: int(a.sessions.Elapsed(connID).Seconds()),
	})
	if err != nil {
		a.logger.Error("analytics append failed", "connection", connID, "error", err)
	}
}

// recordUsage persists token counts for one model call.
func (a *Agent) recordUsage(ctx context.Context, connID, identity string, resp *llm.ChatResponse) {
	if a.usage == nil {
		return
	}
	err := a.usage.Record(ctx, usage.Record{
		RequestID:    uuid.NewString(),
		ConnectionID: connID,
		Identity:     identity,
		Model:        resp.Model,
		Provider:     a.provider,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	})
	if err != nil {
		a.logger.Warn("usage record failed", "error", err)
	}
}

// EndSession releases per-connection state when a transport closes.
func (a *Agent) EndSession(connID string) {
	a.sessions.End(connID)
}
