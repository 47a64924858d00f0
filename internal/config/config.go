// Package config handles concierge configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/concierge/config.yaml, /etc/concierge/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "concierge", "config.yaml"))
	}

	paths = append(paths, "/etc/concierge/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all concierge configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Persona   PersonaConfig   `yaml:"persona"`
	Models    ModelsConfig    `yaml:"models"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Pushover  PushoverConfig  `yaml:"pushover"`
	Interests []InterestRule  `yaml:"interests"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`

	// HistoryWindow caps how many prior turns are replayed as prompt
	// context. Zero replays the full history.
	HistoryWindow int `yaml:"history_window"`

	// MaxToolRounds caps completion-loop iterations before the turn
	// fails. Zero means the built-in default of 10.
	MaxToolRounds int `yaml:"max_tool_rounds"`

	// ProviderTimeoutSec bounds a single completion call. Zero means
	// the built-in default of 120.
	ProviderTimeoutSec int `yaml:"provider_timeout_sec"`
}

// ListenConfig defines the HTTP server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// PersonaConfig identifies whose persona the agent assumes and where
// its background material lives.
type PersonaConfig struct {
	Name           string `yaml:"name"`
	SummaryFile    string `yaml:"summary_file"`    // plain text
	BackgroundFile string `yaml:"background_file"` // markdown or plain text
}

// ModelsConfig defines the completion provider settings.
type ModelsConfig struct {
	Provider  string       `yaml:"provider"` // openai, ollama
	Default   string       `yaml:"default"`
	OllamaURL string       `yaml:"ollama_url"`
	OpenAI    OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig defines OpenAI API settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // override for compatible gateways
}

// SentimentConfig defines the sentiment classification endpoint.
// When URL is empty, messages are labeled NEUTRAL.
type SentimentConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// PushoverConfig defines the push notification credentials.
// When Token is empty, notifications are disabled.
type PushoverConfig struct {
	Token string `yaml:"token"`
	User  string `yaml:"user"`
}

// InterestRule maps message keywords to an interest category. Rules
// are evaluated in order; the first keyword match wins.
type InterestRule struct {
	Keywords []string `yaml:"keywords"`
	Category string   `yaml:"category"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 8080},
		DataDir: "data",
		Persona: PersonaConfig{
			Name:           "Revanth",
			SummaryFile:    "me/summary.txt",
			BackgroundFile: "me/profile.md",
		},
		Models: ModelsConfig{
			Provider:  "openai",
			Default:   "gpt-4o-mini",
			OllamaURL: "http://localhost:11434",
		},
	}
}
