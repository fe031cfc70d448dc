// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
)

// Language model providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// Config holds every setting. Defaults are listed per field.
type Config struct {
	// HTTP
	Port string // PORT, 8080

	// Logging
	LogLevel  string // LOG_LEVEL, info
	LogFormat string // LOG_FORMAT, console

	// Store
	StoreBackend    string // STORE_BACKEND, sqlite
	SQLitePath      string // SQLITE_PATH, ./data/expenses.db
	DatabaseURL     string // DATABASE_URL, required for postgres
	BigQueryProject string // BIGQUERY_PROJECT, required for bigquery
	BigQueryDataset string // BIGQUERY_DATASET, expenses

	// Language model
	LLMProvider     string        // LLM_PROVIDER, gemini
	GeminiModel     string        // GEMINI_MODEL, gemini-2.5-flash
	GeminiAPIKey    string        // GEMINI_API_KEY, empty uses the SDK's environment lookup
	AnthropicModel  string        // ANTHROPIC_MODEL, claude-sonnet-4-20250514
	AnthropicAPIKey string        // ANTHROPIC_API_KEY
	LLMTimeout      time.Duration // LLM_TIMEOUT, 30s
	LLMMaxTokens    int           // LLM_MAX_TOKENS, 1024

	// Events; an empty URL disables publishing.
	AMQPURL      string // AMQP_URL
	AMQPExchange string // AMQP_EXCHANGE, expenses
	AMQPQueue    string // AMQP_QUEUE, expense_recorded

	// Notion mirror
	NotionToken      string // NOTION_TOKEN
	NotionDatabaseID string // NOTION_DATABASE_ID

	// Reports
	ReportBucket  string // REPORT_BUCKET, empty writes to ReportDir
	ReportDir     string // REPORT_DIR, ./reports
	ReportWorkers int    // REPORT_WORKERS, 4

	DefaultCurrency string // DEFAULT_CURRENCY, INR
	ViewLimit       int    // VIEW_LIMIT, 50
	Timezone        string // TZ_NAME, Asia/Kolkata

	// parseProblems holds environment values FromEnv could not parse.
	parseProblems []string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Load: read .env: %w", err)
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	var problems []string
	c := &Config{
		Port: getEnv("PORT", "8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		SQLitePath:      getEnv("SQLITE_PATH", "./data/expenses.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "expenses"),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		LLMTimeout:      getEnvDuration("LLM_TIMEOUT", 30*time.Second, &problems),
		LLMMaxTokens:    getEnvInt("LLM_MAX_TOKENS", 1024, &problems),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expenses"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_recorded"),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),

		ReportBucket:  getEnv("REPORT_BUCKET", ""),
		ReportDir:     getEnv("REPORT_DIR", "./reports"),
		ReportWorkers: getEnvInt("REPORT_WORKERS", 4, &problems),

		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "INR")),
		ViewLimit:       getEnvInt("VIEW_LIMIT", 50, &problems),
		Timezone:        getEnv("TZ_NAME", "Asia/Kolkata"),
	}
	c.parseProblems = problems
	return c
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.parseProblems...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.StoreBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH cannot be empty when using the sqlite backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when using the postgres backend")
		}
	case BackendBigQuery:
		if c.BigQueryProject == "" {
			problems = append(problems, "BIGQUERY_PROJECT is required when using the bigquery backend")
		}
		if c.BigQueryDataset == "" {
			problems = append(problems, "BIGQUERY_DATASET cannot be empty when using the bigquery backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid store backend '%s': must be one of %v",
			c.StoreBackend, []string{BackendSQLite, BackendPostgres, BackendBigQuery}))
	}

	switch c.LLMProvider {
	case ProviderGemini, ProviderNone:
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			problems = append(problems, "ANTHROPIC_API_KEY is required when using the anthropic provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid LLM provider '%s': must be one of %v",
			c.LLMProvider, []string{ProviderGemini, ProviderAnthropic, ProviderNone}))
	}
	if c.LLMTimeout < time.Second || c.LLMTimeout > 5*time.Minute {
		problems = append(problems, fmt.Sprintf("invalid LLM timeout %v: must be between 1s and 5m", c.LLMTimeout))
	}
	if c.LLMMaxTokens < 1 {
		problems = append(problems, fmt.Sprintf("invalid LLM max tokens %d: must be at least 1", c.LLMMaxTokens))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			problems = append(problems, "AMQP exchange and queue names cannot be empty when AMQP_URL is set")
		}
	}

	if (c.NotionToken == "") != (c.NotionDatabaseID == "") {
		problems = append(problems, "NOTION_TOKEN and NOTION_DATABASE_ID must be set together")
	}

	if c.ReportBucket == "" && c.ReportDir == "" {
		problems = append(problems, "one of REPORT_BUCKET or REPORT_DIR must be set")
	}
	if c.ReportWorkers < 1 || c.ReportWorkers > 64 {
		problems = append(problems, fmt.Sprintf("invalid report workers %d: must be between 1 and 64", c.ReportWorkers))
	}

	if len(c.DefaultCurrency) != 3 {
		problems = append(problems, fmt.Sprintf("invalid currency '%s': must be a 3-letter ISO code", c.DefaultCurrency))
	}
	if c.ViewLimit < 1 || c.ViewLimit > 1000 {
		problems = append(problems, fmt.Sprintf("invalid view limit %d: must be between 1 and 1000", c.ViewLimit))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Location returns the configured zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EventsEnabled reports whether an AMQP broker is configured.
func (c *Config) EventsEnabled() bool { return c.AMQPURL != "" }

// NotionEnabled reports whether the Notion mirror is configured.
func (c *Config) NotionEnabled() bool { return c.NotionToken != "" && c.NotionDatabaseID != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the default for an unset key. A value that does not
// parse is recorded in problems and also yields the default.
func getEnvInt(key string, defaultValue int, problems *[]string) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid %s '%s': must be an integer", key, value))
		return defaultValue
	}
	return i
}

func getEnvDuration(key string, defaultValue time.Duration, problems *[]string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid %s '%s': must be a duration such as 30s", key, value))
		return defaultValue
	}
	return d
}
