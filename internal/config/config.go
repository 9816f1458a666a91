package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	GinMode     string
	TLSCertFile string
	TLSKeyFile  string
	LogLevel    string

	SessionSecret string
	SessionExpiry time.Duration
	MagicLinkKey  string
	NoAuth        bool

	APIKey  string
	BaseURL string

	DefaultModel        string
	DefaultTemperature  float64
	DefaultMaxTokens    int
	DefaultHistoryTurns int
	StreamingUpdateRate int

	CatalogTTL time.Duration
}

type Env interface {
	Getenv(key string) string
}

type osEnv struct{}

func (osEnv) Getenv(key string) string { return os.Getenv(key) }

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(osEnv{})
}

func LoadConfigFromEnv(env Env) (Config, error) {
	cfg := Config{
		Port:                3000,
		GinMode:             "release",
		LogLevel:            "info",
		SessionExpiry:       7 * 24 * time.Hour,
		MagicLinkKey:        "test-magic-key",
		BaseURL:             "https://openrouter.ai/api/v1",
		DefaultModel:        "google/gemini-flash-1.5-8b",
		DefaultTemperature:  0.7,
		DefaultMaxTokens:    4096,
		DefaultHistoryTurns: 10,
		StreamingUpdateRate: 1,
		CatalogTTL:          time.Hour,
	}

	if raw := env.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("invalid PORT")
		}
		cfg.Port = port
	}

	cfg.SessionSecret = env.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET is required")
	}

	if raw := env.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}
	if raw := env.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}

	cfg.TLSCertFile = env.Getenv("TLS_CERT_FILE")
	cfg.TLSKeyFile = env.Getenv("TLS_KEY_FILE")

	if raw := env.Getenv("SESSION_EXPIRY_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("invalid SESSION_EXPIRY_SECONDS")
		}
		cfg.SessionExpiry = time.Duration(seconds) * time.Second
	}

	if raw := env.Getenv("MAGIC_LINK_KEY"); raw != "" {
		cfg.MagicLinkKey = raw
	}
	cfg.NoAuth = env.Getenv("CHAT_NO_AUTH") == "1"

	cfg.APIKey = env.Getenv("OPENROUTER_API_KEY")
	if raw := env.Getenv("OPENROUTER_BASE_URL"); raw != "" {
		cfg.BaseURL = raw
	}

	if raw := env.Getenv("AI_MODEL"); raw != "" {
		cfg.DefaultModel = raw
	}
	if raw := env.Getenv("AI_TEMPERATURE"); raw != "" {
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil || temp < 0 {
			return Config{}, fmt.Errorf("invalid AI_TEMPERATURE")
		}
		cfg.DefaultTemperature = temp
	}
	if raw := env.Getenv("AI_MAX_TOKENS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid AI_MAX_TOKENS")
		}
		cfg.DefaultMaxTokens = n
	}
	if raw := env.Getenv("AI_HISTORY_TURNS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid AI_HISTORY_TURNS")
		}
		cfg.DefaultHistoryTurns = n
	}
	if raw := env.Getenv("STREAMING_UPDATE_RATE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid STREAMING_UPDATE_RATE")
		}
		cfg.StreamingUpdateRate = n
	}

	return cfg, nil
}
