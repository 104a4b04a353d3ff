package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Backend API
	APIBaseURL string
	WSURL      string

	// Account used by the daemon
	Email    string
	Password string

	// Client-local storage
	StorePath string

	// Notification phrase table
	PhrasesPath string

	// Timing
	MatchPollInterval  time.Duration
	UnreadPollInterval time.Duration
	DebounceInterval   time.Duration

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL: envStr("WCPREDICT_API_URL", "http://localhost:8080/api"),
		WSURL:      envStr("WCPREDICT_WS_URL", "ws://localhost:8080/ws"),

		Email:    envStr("WCPREDICT_EMAIL", ""),
		Password: envStr("WCPREDICT_PASSWORD", ""),

		StorePath:   envStr("WCPREDICT_STORE_PATH", "data/wcpredict.db"),
		PhrasesPath: envStr("WCPREDICT_PHRASES_PATH", "internal/config/phrases.yaml"),

		MatchPollInterval:  envDur("WCPREDICT_MATCH_POLL_SEC", 30),
		UnreadPollInterval: envDur("WCPREDICT_UNREAD_POLL_SEC", 30),

		// Quiet period between the last keystroke and the prediction save.
		DebounceInterval: time.Duration(envInt("WCPREDICT_DEBOUNCE_MS", 800)) * time.Millisecond,

		LogLevel: envStr("LOG_LEVEL", "info"),
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

func envDur(key string, fallbackSec int) time.Duration {
	return time.Duration(envInt(key, fallbackSec)) * time.Second
}
