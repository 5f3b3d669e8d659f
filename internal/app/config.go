package app

import (
	"os"
	"strconv"
)

type Config struct {
	CRMBaseURL       string // Required: primary CRM backend base URL
	UserStoreBaseURL string // Optional: user-store backend base URL (default: CRM base URL)
	FileBaseURL      string // Optional: file-service base URL (default: CRM base URL)
	TokenURL         string // Required: identity provider token endpoint

	ServiceToken      string // Required: static service credential for backend calls
	TokenServiceToken string // Optional: credential for the token endpoint (default: ServiceToken)

	SessionDBFile string // Optional: path to the SQLite session file (default: ./portal-session.db)
	RequestRate   int    // Optional: client-side requests-per-second cap, 0 disables it

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: text)
}

func LoadConfig() Config {
	cfg := Config{
		CRMBaseURL:        os.Getenv("PORTAL_CRM_URL"),
		UserStoreBaseURL:  os.Getenv("PORTAL_USER_STORE_URL"),
		FileBaseURL:       os.Getenv("PORTAL_FILE_URL"),
		TokenURL:          os.Getenv("PORTAL_TOKEN_URL"),
		ServiceToken:      os.Getenv("PORTAL_SERVICE_TOKEN"),
		TokenServiceToken: os.Getenv("PORTAL_TOKEN_SERVICE_TOKEN"),
		SessionDBFile:     getEnvOrDefault("PORTAL_SESSION_FILE", "portal-session.db"),
		RequestRate:       getEnvIntOrDefault("PORTAL_REQUEST_RATE", 0),
		Env:               getEnvOrDefault("ENV", "dev"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvOrDefault("LOG_FORMAT", "text"),
	}

	if cfg.UserStoreBaseURL == "" {
		cfg.UserStoreBaseURL = cfg.CRMBaseURL
	}
	if cfg.FileBaseURL == "" {
		cfg.FileBaseURL = cfg.CRMBaseURL
	}
	if cfg.TokenServiceToken == "" {
		cfg.TokenServiceToken = cfg.ServiceToken
	}

	return cfg
}

// Validate reports the first missing required setting.
func (c Config) Validate() error {
	if c.CRMBaseURL == "" {
		return errMissingEnv("PORTAL_CRM_URL")
	}
	if c.TokenURL == "" {
		return errMissingEnv("PORTAL_TOKEN_URL")
	}
	if c.ServiceToken == "" {
		return errMissingEnv("PORTAL_SERVICE_TOKEN")
	}
	return nil
}

type errMissingEnv string

func (e errMissingEnv) Error() string {
	return string(e) + " must be set"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}
