package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		DataBackend:     "xml",
		DocumentPath:    "./moneyguru.xml",
		SQLiteDBPath:    "./moneyguru.db",
		DefaultCurrency: "USD",
		CookAheadDays:   365,
		LogLevel:        "info",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "valid xml backend config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid sqlite backend config",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
			},
		},
		{
			name: "invalid data backend",
			mutate: func(c *Config) {
				c.DataBackend = "sheets"
			},
			wantErr:     true,
			errorString: "invalid data backend 'sheets'",
		},
		{
			name: "xml backend missing document path",
			mutate: func(c *Config) {
				c.DocumentPath = ""
			},
			wantErr:     true,
			errorString: "document path cannot be empty",
		},
		{
			name: "sqlite backend missing database path",
			mutate: func(c *Config) {
				c.DataBackend = "sqlite"
				c.SQLiteDBPath = ""
			},
			wantErr:     true,
			errorString: "SQLite database path cannot be empty",
		},
		{
			name: "invalid default currency",
			mutate: func(c *Config) {
				c.DefaultCurrency = "DOLLARS"
			},
			wantErr:     true,
			errorString: "invalid default currency 'DOLLARS'",
		},
		{
			name: "cook-ahead days too low",
			mutate: func(c *Config) {
				c.CookAheadDays = 0
			},
			wantErr:     true,
			errorString: "invalid cook-ahead days 0",
		},
		{
			name: "cook-ahead days too high",
			mutate: func(c *Config) {
				c.CookAheadDays = 5000
			},
			wantErr:     true,
			errorString: "invalid cook-ahead days 5000",
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.LogLevel = "verbose"
			},
			wantErr:     true,
			errorString: "invalid log level 'verbose'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateCreatesDataDir(t *testing.T) {
	dir := t.TempDir()
	cfg := validConfig()
	cfg.DocumentPath = filepath.Join(dir, "nested", "moneyguru.xml")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested")); err != nil {
		t.Errorf("expected document directory to be created: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATA_BACKEND", "DOCUMENT_PATH", "SQLITE_DB_PATH", "DEFAULT_CURRENCY", "COOK_AHEAD_DAYS", "LOG_LEVEL"} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.DataBackend != "xml" {
		t.Errorf("DataBackend = %q, want xml", cfg.DataBackend)
	}
	if cfg.DefaultCurrency != "USD" {
		t.Errorf("DefaultCurrency = %q, want USD", cfg.DefaultCurrency)
	}
	if cfg.CookAheadDays != 365 {
		t.Errorf("CookAheadDays = %d, want 365", cfg.CookAheadDays)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("COOK_AHEAD_DAYS", "90")

	cfg := Load()

	if cfg.DataBackend != "sqlite" {
		t.Errorf("DataBackend = %q, want sqlite", cfg.DataBackend)
	}
	if cfg.CookAheadDays != 90 {
		t.Errorf("CookAheadDays = %d, want 90", cfg.CookAheadDays)
	}
}
