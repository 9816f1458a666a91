package config

import (
	"strings"
	"testing"
	"time"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"SESSION_SECRET": "s3cret"})
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}

	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected mode defaults: %q %q", cfg.GinMode, cfg.LogLevel)
	}
	if cfg.SessionExpiry != 7*24*time.Hour {
		t.Fatalf("unexpected session expiry %v", cfg.SessionExpiry)
	}
	if cfg.MagicLinkKey != "test-magic-key" {
		t.Fatalf("unexpected magic link key %q", cfg.MagicLinkKey)
	}
	if cfg.BaseURL != "https://openrouter.ai/api/v1" {
		t.Fatalf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.DefaultModel != "google/gemini-flash-1.5-8b" {
		t.Fatalf("unexpected default model %q", cfg.DefaultModel)
	}
	if cfg.DefaultTemperature != 0.7 || cfg.DefaultMaxTokens != 4096 || cfg.DefaultHistoryTurns != 10 {
		t.Fatalf("unexpected generation defaults: %+v", cfg)
	}
	if cfg.NoAuth {
		t.Fatalf("no-auth must be off by default")
	}
}

func TestLoadConfig_RequiresSessionSecret(t *testing.T) {
	_, err := LoadConfigFromEnv(mapEnv{})
	if err == nil || !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Fatalf("expected SESSION_SECRET error, got %v", err)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{
		"SESSION_SECRET":         "s3cret",
		"PORT":                   "8080",
		"GIN_MODE":               "debug",
		"LOG_LEVEL":              "debug",
		"SESSION_EXPIRY_SECONDS": "3600",
		"MAGIC_LINK_KEY":         "prod-key",
		"CHAT_NO_AUTH":           "1",
		"OPENROUTER_API_KEY":     "sk-or-abc",
		"OPENROUTER_BASE_URL":    "http://localhost:9999/v1",
		"AI_MODEL":               "test/model",
		"AI_TEMPERATURE":         "0.2",
		"AI_MAX_TOKENS":          "512",
		"AI_HISTORY_TURNS":       "3",
		"STREAMING_UPDATE_RATE":  "2",
	})
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}

	if cfg.Port != 8080 || cfg.GinMode != "debug" || cfg.LogLevel != "debug" {
		t.Fatalf("server overrides not applied: %+v", cfg)
	}
	if cfg.SessionExpiry != time.Hour {
		t.Fatalf("expected 1h expiry, got %v", cfg.SessionExpiry)
	}
	if cfg.MagicLinkKey != "prod-key" || !cfg.NoAuth {
		t.Fatalf("auth overrides not applied: %+v", cfg)
	}
	if cfg.APIKey != "sk-or-abc" || cfg.BaseURL != "http://localhost:9999/v1" {
		t.Fatalf("provider overrides not applied: %+v", cfg)
	}
	if cfg.DefaultModel != "test/model" || cfg.DefaultTemperature != 0.2 ||
		cfg.DefaultMaxTokens != 512 || cfg.DefaultHistoryTurns != 3 || cfg.StreamingUpdateRate != 2 {
		t.Fatalf("generation overrides not applied: %+v", cfg)
	}
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	cases := map[string]mapEnv{
		"bad port":        {"SESSION_SECRET": "s", "PORT": "notaport"},
		"port range":      {"SESSION_SECRET": "s", "PORT": "70000"},
		"bad expiry":      {"SESSION_SECRET": "s", "SESSION_EXPIRY_SECONDS": "-1"},
		"bad temperature": {"SESSION_SECRET": "s", "AI_TEMPERATURE": "-0.5"},
		"bad max tokens":  {"SESSION_SECRET": "s", "AI_MAX_TOKENS": "0"},
		"bad turns":       {"SESSION_SECRET": "s", "AI_HISTORY_TURNS": "-2"},
		"bad rate":        {"SESSION_SECRET": "s", "STREAMING_UPDATE_RATE": "0"},
	}
	for name, env := range cases {
		if _, err := LoadConfigFromEnv(env); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}
