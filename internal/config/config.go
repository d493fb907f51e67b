package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"mandir/internal/core"
	"mandir/internal/services"
)

type Config struct {
	// HTTP Server
	Port               string
	BaseURL            string
	RateLimitPerMinute int

	// Database
	SQLiteDBPath string

	// Temple calendar
	UTCOffset          string
	MaxRuleSpanDays    int
	MaxReportRangeDays int
	PricePolicy        string

	// Collection summary cache
	SummaryCacheTTL  time.Duration
	SummaryCacheSize int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
	BookingsSheetName     string
	RosterSheetName       string
	CollectionsSheetName  string

	// Worker
	SyncBatchSize int
	SyncInterval  time.Duration
	RosterCron    string

	// Logging
	LogLevel  string
	LogFormat string

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		BaseURL:            getEnv("BASE_URL", ""),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "./data/mandir.db"),

		UTCOffset:          getEnv("TEMPLE_UTC_OFFSET", core.DefaultUTCOffset),
		MaxRuleSpanDays:    getEnvInt("MAX_RULE_SPAN_DAYS", core.DefaultMaxRuleSpanDays),
		MaxReportRangeDays: getEnvInt("MAX_REPORT_RANGE_DAYS", services.DefaultMaxReportDays),
		PricePolicy:        getEnv("COLLECTION_PRICE_POLICY", string(services.CurrentPrice)),

		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),
		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 256),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "mandir"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_bookings"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		BookingsSheetName:     getEnv("BOOKINGS_SHEET_NAME", "Bookings"),
		RosterSheetName:       getEnv("ROSTER_SHEET_NAME", "Roster"),
		CollectionsSheetName:  getEnv("COLLECTIONS_SHEET_NAME", "Collections"),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		RosterCron:    getEnv("ROSTER_CRON", "0 5 * * *"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend: getEnv("DATA_BACKEND", "sqlite"),
	}

	return cfg
}

// Location resolves the temple's fixed offset. Validate reports a bad value.
func (c *Config) Location() *time.Location {
	loc, err := core.ParseUTCOffset(c.UTCOffset)
	if err != nil {
		loc, _ = core.ParseUTCOffset(core.DefaultUTCOffset)
	}
	return loc
}

// AggregatorConfig maps the collection settings onto the aggregator.
func (c *Config) AggregatorConfig() services.AggregatorConfig {
	cfg := services.DefaultAggregatorConfig()
	cfg.MaxRangeDays = c.MaxReportRangeDays
	if p, err := services.ParsePricePolicy(c.PricePolicy); err == nil {
		cfg.PricePolicy = p
	}
	return cfg
}

// SheetsEnabled reports whether exports to Google Sheets are configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid base URL '%s': must be an http or https URL", c.BaseURL))
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
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

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Temple calendar
	if _, err := core.ParseUTCOffset(c.UTCOffset); err != nil {
		errors = append(errors, fmt.Sprintf("invalid TEMPLE_UTC_OFFSET '%s': %v", c.UTCOffset, err))
	}
	if c.MaxRuleSpanDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid max rule span %d: must be at least 1 day", c.MaxRuleSpanDays))
	}
	if c.MaxReportRangeDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid max report range %d: must be at least 1 day", c.MaxReportRangeDays))
	}
	if _, err := services.ParsePricePolicy(c.PricePolicy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid collection price policy '%s': must be 'current' or 'booked'", c.PricePolicy))
	}

	if c.SummaryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must be at least 1", c.SummaryCacheSize))
	}
	if c.SummaryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid summary cache TTL %v: must be at least 1 second", c.SummaryCacheTTL))
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Google Sheets is optional; when enabled it needs service account credentials
	if c.SheetsEnabled() {
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			errors = append(errors, "either GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE must be provided when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
		for name, v := range map[string]string{
			"BOOKINGS_SHEET_NAME":    c.BookingsSheetName,
			"ROSTER_SHEET_NAME":      c.RosterSheetName,
			"COLLECTIONS_SHEET_NAME": c.CollectionsSheetName,
		} {
			if v == "" {
				errors = append(errors, fmt.Sprintf("%s cannot be empty when Google Sheets is enabled", name))
			}
		}
	}

	// Validate worker configuration
	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if _, err := cron.ParseStandard(c.RosterCron); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ROSTER_CRON '%s': %v", c.RosterCron, err))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
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
