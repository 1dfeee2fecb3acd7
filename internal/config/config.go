package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Files
	DataDir     string
	UploadDir   string
	DefaultFile string
	MaxUploadMB int

	// Workbook layout
	EntriesSheet  string
	FamiliesSheet string

	// Dataset cache
	CacheSize int
	CacheTTL  time.Duration

	LogLevel string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenJSON     string
	GoogleOAuthTokenFile     string

	// AMQP, optional
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "file"),

		DataDir:     getEnv("DATA_DIR", "data"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploaded_files"),
		DefaultFile: getEnv("DEFAULT_FILE", "data/data.xlsx"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 32),

		EntriesSheet:  getEnv("ENTRIES_SHEET", "Entradas"),
		FamiliesSheet: getEnv("FAMILIES_SHEET", "Familias"),

		CacheSize: getEnvInt("CACHE_SIZE", 16),
		CacheTTL:  getEnvDuration("CACHE_TTL", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "analizador"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "dataset.loaded"),
	}

	return cfg
}

func (c *Config) hasOAuthClient() bool {
	return c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"file", "sheets", "memory"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty")
	}
	if c.UploadDir == "" {
		errors = append(errors, "upload directory cannot be empty")
	}
	if c.EntriesSheet == "" || c.FamiliesSheet == "" {
		errors = append(errors, "sheet names cannot be empty")
	} else if c.EntriesSheet == c.FamiliesSheet {
		errors = append(errors, fmt.Sprintf("entries and families sheets must differ, both are '%s'", c.EntriesSheet))
	}

	if c.MaxUploadMB < 1 || c.MaxUploadMB > 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d MB: must be between 1 and 1024", c.MaxUploadMB))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.CacheTTL))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		for _, f := range []struct{ what, path string }{
			{"service account", c.GoogleServiceAccountFile},
			{"OAuth client", c.GoogleOAuthClientFile},
			{"OAuth token", c.GoogleOAuthTokenFile},
		} {
			if f.path == "" {
				continue
			}
			if _, err := os.Stat(f.path); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google %s file does not exist: %s", f.what, f.path))
			}
		}
		if c.hasOAuthClient() && c.GoogleOAuthTokenJSON == "" && c.GoogleOAuthTokenFile == "" &&
			c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "Google OAuth token is required with an OAuth client (run `analizar auth`)")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("10m") and bare seconds ("600").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if s, err := strconv.Atoi(value); err == nil {
			return time.Duration(s) * time.Second
		}
	}
	return defaultValue
}
