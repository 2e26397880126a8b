package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	NatsURL     string
	NatsToken   string
	DatabaseURL string
	LogLevel    string
	APIToken    string

	AnthropicAPIKey string
	AnthropicModel  string

	RendererURL string
	PlatformURL string

	MinMessages    int // daily floor below which scoring refuses
	SilenceSeconds int // gap that makes a message open a topic
	HistoryCount   int // messages fetched for cold-start backfill
}

func Load() Config {
	return Config{
		Port:        envInt("VERDICT_PORT", 8810),
		NatsURL:     envStr("NATS_URL", "nats://localhost:4222"),
		NatsToken:   envStr("NATS_TOKEN", ""),
		DatabaseURL: envStr("DATABASE_URL", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("VERDICT_API_TOKEN", ""),

		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("VERDICT_MODEL", "claude-sonnet-4-20250514"),

		RendererURL: envStr("RENDERER_URL", ""),
		PlatformURL: envStr("PLATFORM_URL", ""),

		MinMessages:    envInt("VERDICT_MIN_MESSAGES", 3),
		SilenceSeconds: envInt("VERDICT_SILENCE_SECONDS", 900),
		HistoryCount:   envInt("VERDICT_HISTORY_COUNT", 100),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
