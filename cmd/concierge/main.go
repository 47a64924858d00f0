// Concierge is a persona-bound conversational agent daemon.
//
// It fronts a completion model with a small tool belt, tracks who it is
// talking to, and keeps per-user history, profiles, and usage analytics
// on disk. Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	concierge serve            Start the web server
//	concierge usage [hours]    Print token usage totals (default 24h)
//	concierge check            Verify the completion provider is reachable
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/revanthk/concierge/internal/agent"
	"github.com/revanthk/concierge/internal/analytics"
	"github.com/revanthk/concierge/internal/config"
	"github.com/revanthk/concierge/internal/history"
	"github.com/revanthk/concierge/internal/interest"
	"github.com/revanthk/concierge/internal/llm"
	"github.com/revanthk/concierge/internal/notify"
	"github.com/revanthk/concierge/internal/persona"
	"github.com/revanthk/concierge/internal/profile"
	"github.com/revanthk/concierge/internal/sentiment"
	"github.com/revanthk/concierge/internal/session"
	"github.com/revanthk/concierge/internal/tools"
	"github.com/revanthk/concierge/internal/usage"
	"github.com/revanthk/concierge/internal/web"
)

// main constructs the OS-level environment and delegates to run so the
// full lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals, which makes it impossible to call run() concurrently from
	// tests, and the argument surface here is tiny.
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	switch command {
	case "", "serve":
		return runServe(ctx, stdout, configPath)
	case "usage":
		return runUsage(stdout, configPath, cmdArgs)
	case "check":
		return runCheck(ctx, stdout, configPath)
	case "help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s (try 'concierge help')", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, `Usage: concierge [-config path] <command>

Commands:
  serve            Start the web server (default)
  usage [hours]    Print token usage totals for the last N hours (default 24)
  check            Verify the completion provider is reachable
  help             Show this help`)
	return nil
}

// newLogger creates a structured text logger writing to w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		// No file anywhere: fall back to defaults so a bare checkout
		// can still start against a local Ollama.
		return config.Default(), "(defaults)", nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// newLLMClient builds the configured completion client.
func newLLMClient(cfg *config.Config) (llm.Client, error) {
	var client llm.Client
	switch cfg.Models.Provider {
	case "openai":
		client = llm.NewOpenAIClient(cfg.Models.OpenAI.APIKey, cfg.Models.OpenAI.BaseURL)
	case "ollama":
		client = llm.NewOllamaClient(cfg.Models.OllamaURL)
	default:
		return nil, fmt.Errorf("unknown provider: %q (expected openai or ollama)", cfg.Models.Provider)
	}

	timeout := 120 * time.Second
	if cfg.ProviderTimeoutSec > 0 {
		timeout = time.Duration(cfg.ProviderTimeoutSec) * time.Second
	}
	return llm.WithTimeout(client, timeout), nil
}

func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"provider", cfg.Models.Provider,
		"model", cfg.Models.Default,
	)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	who, err := persona.Load(cfg.Persona.Name, cfg.Persona.SummaryFile, cfg.Persona.BackgroundFile)
	if err != nil {
		return fmt.Errorf("load persona: %w", err)
	}

	histories, err := history.NewStore(filepath.Join(cfg.DataDir, "history"))
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}

	profiles, err := profile.NewStore(filepath.Join(cfg.DataDir, "user_profiles.json"))
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}

	events, err := analytics.Open(filepath.Join(cfg.DataDir, "analytics_log.csv"))
	if err != nil {
		return fmt.Errorf("open analytics log: %w", err)
	}

	usageStore, err := usage.NewStore(filepath.Join(cfg.DataDir, "usage.db"))
	if err != nil {
		return fmt.Errorf("open usage store: %w", err)
	}
	defer usageStore.Close()

	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	var classifier sentiment.Classifier = sentiment.Static{Label: sentiment.Neutral}
	if cfg.Sentiment.URL != "" {
		classifier = sentiment.NewHTTPClassifier(cfg.Sentiment.URL, cfg.Sentiment.Token)
	} else {
		logger.Info("sentiment endpoint not configured, labeling all messages NEUTRAL")
	}

	notifier := notify.New(cfg.Pushover.Token, cfg.Pushover.User, logger)
	if notifier == nil {
		logger.Info("pushover not configured, notifications disabled")
	}

	var rules []interest.Rule
	for _, r := range cfg.Interests {
		rules = append(rules, interest.Rule{Keywords: r.Keywords, Category: r.Category})
	}

	a := agent.New(agent.Options{
		Logger:        logger,
		Persona:       who,
		Sessions:      session.NewRegistry(),
		History:       histories,
		Profiles:      profiles,
		Analytics:     events,
		Interests:     interest.New(rules),
		Sentiments:    classifier,
		LLM:           client,
		Tools:         tools.NewRegistry(notifier, profiles, logger),
		Notifier:      notifier,
		Usage:         usageStore,
		Model:         cfg.Models.Default,
		Provider:      cfg.Models.Provider,
		HistoryWindow: cfg.HistoryWindow,
		MaxToolRounds: cfg.MaxToolRounds,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	server := web.NewServer(addr, a, events, profiles, logger)

	// SIGINT/SIGTERM cancellation flows through the same ctx used by
	// all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	if err := server.Start(); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("concierge stopped")
	return nil
}

func runUsage(stdout io.Writer, configPath string, args []string) error {
	hours := 24
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid hours: %q", args[0])
		}
		hours = n
	}

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := usage.NewStore(filepath.Join(cfg.DataDir, "usage.db"))
	if err != nil {
		return fmt.Errorf("open usage store: %w", err)
	}
	defer store.Close()

	end := time.Now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	sum, err := store.Summary(start, end)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Last %dh: %d calls, %d input tokens, %d output tokens\n",
		hours, sum.TotalRecords, sum.TotalInputTokens, sum.TotalOutputTokens)

	byModel, err := store.SummaryByModel(start, end)
	if err != nil {
		return err
	}
	for model, s := range byModel {
		fmt.Fprintf(stdout, "  %-24s %d calls, %d in, %d out\n",
			model, s.TotalRecords, s.TotalInputTokens, s.TotalOutputTokens)
	}
	return nil
}

func runCheck(ctx context.Context, stdout io.Writer, configPath string) error {
	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	client, err := newLLMClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("provider %s unreachable: %w", cfg.Models.Provider, err)
	}
	fmt.Fprintf(stdout, "config: %s\nprovider %s ok\n", cfgPath, cfg.Models.Provider)
	return nil
}
