package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// Storage
	DataBackend  string
	DocumentPath string
	SQLiteDBPath string

	// Document
	DefaultCurrency string
	CookAheadDays   int

	// Logging
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("DATA_BACKEND", "xml"),
		DocumentPath: getEnv("DOCUMENT_PATH", "./data/moneyguru.xml"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/moneyguru.db"),

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),
		CookAheadDays:   getEnvInt("COOK_AHEAD_DAYS", 365),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{"xml", "sqlite"}
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

	if c.DataBackend == "xml" {
		if c.DocumentPath == "" {
			errors = append(errors, "document path cannot be empty when using xml backend")
		} else if err := ensureDir(c.DocumentPath); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(c.SQLiteDBPath); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if len(c.DefaultCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid default currency '%s': must be a three-letter code", c.DefaultCurrency))
	}

	if c.CookAheadDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid cook-ahead days %d: must be at least 1", c.CookAheadDays))
	} else if c.CookAheadDays > 3650 {
		errors = append(errors, fmt.Sprintf("invalid cook-ahead days %d: must be at most 3650", c.CookAheadDays))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory '%s': %v", dir, err)
		}
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
