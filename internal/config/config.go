// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string

	// SecretKey is the passphrase the credential cipher derives its key from.
	SecretKey string

	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	MaxMessages      int64
	FetchRate        float64
	RefreshThreshold time.Duration
	ProviderTimeout  time.Duration
	StateTTL         time.Duration
}

// HasGoogleCredentials returns true when both the client ID and secret are
// set. Used by the composition root to decide whether the mailbox endpoints
// can work at startup.
func (c *Config) HasGoogleCredentials() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. MAILHUB_SECRET_KEY is required; credentials cannot be stored without
// it. Optional variables with defaults: MAILHUB_LISTEN_ADDR (127.0.0.1:8080),
// MAILHUB_DB_PATH (mailhub.db), MAILHUB_MAX_MESSAGES (50), MAILHUB_FETCH_RATE
// (10), MAILHUB_REFRESH_THRESHOLD (5m), MAILHUB_PROVIDER_TIMEOUT (30s),
// MAILHUB_STATE_TTL (10m).
func Load() (*Config, error) {
	secretKey := os.Getenv("MAILHUB_SECRET_KEY")
	if secretKey == "" {
		return nil, fmt.Errorf("MAILHUB_SECRET_KEY is required")
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("MAILHUB_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "mailhub.db"
	if v, ok := os.LookupEnv("MAILHUB_DB_PATH"); ok {
		dbPath = v
	}

	maxMessages := int64(50)
	if v, ok := os.LookupEnv("MAILHUB_MAX_MESSAGES"); ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("MAILHUB_MAX_MESSAGES has invalid value %q", v)
		}
		maxMessages = parsed
	}

	fetchRate := 10.0
	if v, ok := os.LookupEnv("MAILHUB_FETCH_RATE"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("MAILHUB_FETCH_RATE has invalid value %q", v)
		}
		fetchRate = parsed
	}

	refreshThreshold, err := durationEnv("MAILHUB_REFRESH_THRESHOLD", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	providerTimeout, err := durationEnv("MAILHUB_PROVIDER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	stateTTL, err := durationEnv("MAILHUB_STATE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		ListenAddr:         listenAddr,
		DBPath:             dbPath,
		SecretKey:          secretKey,
		GoogleClientID:     os.Getenv("MAILHUB_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("MAILHUB_GOOGLE_CLIENT_SECRET"),
		OAuthRedirectURL:   os.Getenv("MAILHUB_OAUTH_REDIRECT_URL"),
		MaxMessages:        maxMessages,
		FetchRate:          fetchRate,
		RefreshThreshold:   refreshThreshold,
		ProviderTimeout:    providerTimeout,
		StateTTL:           stateTTL,
	}, nil
}

// durationEnv reads a duration variable, falling back to def when unset.
func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}

	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", name, v, err)
	}

	return parsed, nil
}
