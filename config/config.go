// Package config loads runtime settings from the environment and an optional
// .env file, and configures the global logger.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

type Config struct {
	AppURL string

	VideoSDKAPIKey   string
	VideoSDKSecret   string
	VideoSDKBaseURL  string
	VideoSDKTokenTTL time.Duration

	AIAPIKey  string
	AIModel   string
	AIBaseURL string

	MeetingLinkTTL time.Duration
	LogLevel       string
	CurrencySymbol string
}

// LoadDotEnv reads .env into the process environment. A missing file is not
// an error; values already set in the environment win.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("config: LoadDotEnv: could not read .env file")
	}
}

// Load builds a Config from the environment, applying defaults.
func Load() *Config {
	return &Config{
		AppURL: strings.TrimRight(getEnv("APP_URL", "http://localhost:8090"), "/"),

		VideoSDKAPIKey:   os.Getenv("VIDEOSDK_API_KEY"),
		VideoSDKSecret:   os.Getenv("VIDEOSDK_SECRET"),
		VideoSDKBaseURL:  strings.TrimRight(getEnv("VIDEOSDK_BASE_URL", "https://api.videosdk.live"), "/"),
		VideoSDKTokenTTL: getDuration("VIDEOSDK_TOKEN_TTL", 2*time.Hour),

		AIAPIKey:  os.Getenv("AI_API_KEY"),
		AIModel:   getEnv("AI_MODEL", "gpt-4o-mini"),
		AIBaseURL: strings.TrimRight(getEnv("AI_BASE_URL", "https://api.openai.com/v1"), "/"),

		MeetingLinkTTL: getDuration("MEETING_LINK_TTL", 24*time.Hour),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "$"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := cast.ToDurationE(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("config: invalid duration, using default")
		return fallback
	}
	return d
}

// SetupLogger points the global zerolog logger at a console writer on stderr
// at the given level. Unknown levels fall back to info.
func SetupLogger(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return log.Logger
}
