package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_PUSHOVER_TOKEN", "tok-12345")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
listen:
  port: 9090
persona:
  name: Revanth
pushover:
  token: ${TEST_PUSHOVER_TOKEN}
  user: someone
interests:
  - keywords: [ai, agent]
    category: AI/Agents
history_window: 20
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("Listen.Port = %d, want 9090", cfg.Listen.Port)
	}
	if cfg.Pushover.Token != "tok-12345" {
		t.Errorf("Pushover.Token = %q, want env-expanded value", cfg.Pushover.Token)
	}
	if cfg.HistoryWindow != 20 {
		t.Errorf("HistoryWindow = %d, want 20", cfg.HistoryWindow)
	}
	if len(cfg.Interests) != 1 || cfg.Interests[0].Category != "AI/Agents" {
		t.Errorf("Interests = %+v, want one AI/Agents rule", cfg.Interests)
	}
	// Defaults survive partial configs.
	if cfg.Models.Default != "gpt-4o-mini" {
		t.Errorf("Models.Default = %q, want default model", cfg.Models.Default)
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"TRACE", LevelTrace, false},
		{"  debug ", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
