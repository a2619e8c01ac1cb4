package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// ChatModel is fixed at build time; it is not read from the environment.
	ChatModel = "llama-3.1-8b-instant"

	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultHTTPAddr    = "0.0.0.0:5000"
)

// Config holds everything read from the process environment at startup.
type Config struct {
	GroqAPIKey       string
	GroqBaseURL      string
	ChatModel        string
	HTTPAddr         string
	TelegramBotToken string
	PublicURL        string
	LogLevel         slog.Level
}

// Load reads .env (if present) and then the environment.
// A missing GROQ_API_KEY is an error; nothing else is required.
func Load() (*Config, error) {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	apiKey := strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("config: GROQ_API_KEY environment variable is required")
	}

	level, err := parseLogLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	return &Config{
		GroqAPIKey:       apiKey,
		GroqBaseURL:      envOr("GROQ_BASE_URL", DefaultGroqBaseURL),
		ChatModel:        ChatModel,
		HTTPAddr:         envOr("HTTP_ADDR", DefaultHTTPAddr),
		TelegramBotToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		PublicURL:        strings.TrimSpace(os.Getenv("PUBLIC_URL")),
		LogLevel:         level,
	}, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown LOG_LEVEL %q", s)
	}
}
