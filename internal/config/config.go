package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML
// file. Values from the file are overridden by environment variables.
const ConfigFileEnv = "EXPENSE_TRACKER_CONFIG"

type Config struct {
	// Storage
	DataDir      string `yaml:"data_dir"`
	LedgerFile   string `yaml:"ledger_file"`
	BudgetFile   string `yaml:"budget_file"`
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	// Backend selection
	DataBackend string `yaml:"data_backend"`

	LogLevel string `yaml:"log_level"`

	// AMQP
	AMQPURL            string        `yaml:"amqp_url"`
	AMQPExchange       string        `yaml:"amqp_exchange"`
	AMQPRoutingKey     string        `yaml:"amqp_routing_key"`
	AMQPPublishTimeout time.Duration `yaml:"amqp_publish_timeout"`
	AMQPQueue          string        `yaml:"amqp_queue"`

	// Sync worker
	SyncInterval time.Duration `yaml:"sync_interval"`

	// Google Sheets export
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleSheetName          string `yaml:"google_sheet_name"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`
	GoogleServiceAccountJSON string `yaml:"google_service_account_json"`
}

func defaults() *Config {
	return &Config{
		DataDir:            "./data",
		DataBackend:        "csv",
		LogLevel:           "warn",
		AMQPExchange:       "expenses",
		AMQPRoutingKey:     "expense_events",
		AMQPPublishTimeout: 5 * time.Second,
		AMQPQueue:          "expense_sheets_sync",
		SyncInterval:       5 * time.Minute,
		GoogleSheetName:    "Expenses",
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, in that order.
func Load() (*Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)
	cfg.LedgerFile = getEnv("LEDGER_FILE", cfg.LedgerFile)
	cfg.BudgetFile = getEnv("BUDGET_FILE", cfg.BudgetFile)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPRoutingKey = getEnv("AMQP_ROUTING_KEY", cfg.AMQPRoutingKey)
	cfg.AMQPPublishTimeout = getEnvDuration("AMQP_PUBLISH_TIMEOUT", cfg.AMQPPublishTimeout)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)
	cfg.SyncInterval = getEnvDuration("SYNC_INTERVAL", cfg.SyncInterval)

	cfg.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", cfg.GoogleSpreadsheetID)
	cfg.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", cfg.GoogleSheetName)
	cfg.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", cfg.GoogleServiceAccountFile)
	cfg.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", cfg.GoogleServiceAccountJSON)
	if cfg.GoogleServiceAccountFile == "" && cfg.GoogleServiceAccountJSON == "" {
		cfg.GoogleServiceAccountFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to unmarshal config %s: %w", path, err)
	}
	return nil
}

// LedgerPath is where the CSV ledger lives.
func (c *Config) LedgerPath() string {
	if c.LedgerFile != "" {
		return c.LedgerFile
	}
	return filepath.Join(c.DataDir, "expenses.csv")
}

// BudgetPath is where the JSON budget table lives.
func (c *Config) BudgetPath() string {
	if c.BudgetFile != "" {
		return c.BudgetFile
	}
	return filepath.Join(c.DataDir, "budgets.json")
}

// SQLitePath is the database file used by the sqlite backend.
func (c *Config) SQLitePath() string {
	if c.SQLiteDBPath != "" {
		return c.SQLiteDBPath
	}
	return filepath.Join(c.DataDir, "expenses.db")
}

// SheetsEnabled reports whether a Google Sheets export target is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// SlogLevel maps LogLevel to a slog level. Unknown values fall back to warn.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.DataDir) == "" && (c.LedgerFile == "" || c.BudgetFile == "") {
		errors = append(errors, "data directory cannot be empty")
	}

	// Validate data backend
	validBackends := []string{"csv", "sqlite", "memory"}
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

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPPublishTimeout < 100*time.Millisecond || c.AMQPPublishTimeout > time.Minute {
			errors = append(errors, fmt.Sprintf("invalid AMQP publish timeout %v: must be between 100ms and 1m", c.AMQPPublishTimeout))
		}
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1s", c.SyncInterval))
	}

	// Google Sheets export needs credentials once a spreadsheet is named
	if c.SheetsEnabled() {
		if strings.TrimSpace(c.GoogleSheetName) == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if hasFile && !hasJSON {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Return combined errors
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
