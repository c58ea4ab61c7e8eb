package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiAPIVersion string
	TelegramToken    string

	LogLevel   string
	Debug      bool
	PreferIPv4 bool

	LedgerPath string
	OutputDir  string
	TempDir    string

	MaxMonthlyCostUSD  float64
	DefaultResolution  string
	DefaultStyle       string
	DefaultLighting    string
	DefaultUseProModel bool

	HTTPTimeout    time.Duration
	RequestTimeout time.Duration
	MaxConcurrent  int
}

// Load reads configuration from the environment. Every key has a default,
// so loading cannot fail; the API credential is checked separately with
// Validate by entrypoints that cannot degrade to a structured failure.
func Load() Config {
	tempDir := strings.TrimSpace(getEnv("TEMP_DIR", filepath.Join(os.TempDir(), "renderai")))

	cfg := Config{
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:    strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion: strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		TelegramToken:    strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),

		LogLevel:   strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:      getEnvBool("DEBUG", false),
		PreferIPv4: getEnvBool("PREFER_IPV4", true),

		LedgerPath: strings.TrimSpace(getEnv("LEDGER_PATH", filepath.Join(tempDir, "cost_tracking.json"))),
		OutputDir:  strings.TrimSpace(getEnv("OUTPUT_DIR", "renders")),
		TempDir:    tempDir,

		MaxMonthlyCostUSD:  getEnvFloat("MAX_MONTHLY_COST_USD", 100.0),
		DefaultResolution:  strings.TrimSpace(getEnv("DEFAULT_RESOLUTION", "2K")),
		DefaultStyle:       strings.TrimSpace(getEnv("DEFAULT_STYLE", "Modern")),
		DefaultLighting:    strings.TrimSpace(getEnv("DEFAULT_LIGHTING", "Noon")),
		DefaultUseProModel: getEnvBool("DEFAULT_USE_PRO_MODEL", false),

		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		MaxConcurrent:  getEnvInt("MAX_CONCURRENT", 1),
	}

	if cfg.MaxMonthlyCostUSD < 0 {
		cfg.MaxMonthlyCostUSD = 0
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}

	return cfg
}

// Validate checks the credential required to reach the generation backend.
func (c Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	return nil
}

// ValidateBot additionally requires the Telegram token.
func (c Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
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
