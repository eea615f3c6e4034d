package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string
	// GeminiAPIKey is the optional shared fallback key. Users can always
	// store their own key, which wins over this one.
	GeminiAPIKey string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	DraftDebounce  time.Duration
	MaxConcurrent  int
	SessionTTL     time.Duration
	RequestTimeout time.Duration
	HTTPTimeout    time.Duration

	KeystorePath string

	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiTextModel  string
	GeminiImageModel string
	GeminiRPS        float64
	GeminiBurst      int
}

func Load() (Config, error) {
	cfg := Config{
		LogLevel:         strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:            getEnvBool("DEBUG", false),
		PreferIPv4:       getEnvBool("PREFER_IPV4", true),
		DraftDebounce:    time.Duration(getEnvInt("DRAFT_DEBOUNCE_MS", 1500)) * time.Millisecond,
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT", 4),
		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPTimeout:      time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		KeystorePath:     strings.TrimSpace(getEnv("KEYSTORE_PATH", "data/keys.json")),
		GeminiBaseURL:    strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion: strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiTextModel:  strings.TrimSpace(getEnv("GEMINI_TEXT_MODEL", "")),
		GeminiImageModel: strings.TrimSpace(getEnv("GEMINI_IMAGE_MODEL", "")),
		GeminiRPS:        getEnvFloat("GEMINI_RPS", 0),
		GeminiBurst:      getEnvInt("GEMINI_BURST", 1),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	if cfg.TelegramToken == "" {
		return Config{}, errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	if cfg.DraftDebounce <= 0 {
		cfg.DraftDebounce = 1500 * time.Millisecond
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.GeminiRPS < 0 {
		cfg.GeminiRPS = 0
	}
	if cfg.GeminiBurst < 1 {
		cfg.GeminiBurst = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
