package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"verkoop/internal/core"
)

// Backends accepted by DATA_BACKEND and IMPORT_BACKEND.
const (
	BackendFile   = "file"
	BackendSheets = "sheets"
	BackendGviz   = "gviz"
	BackendExcel  = "excel"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var validBackends = []string{BackendFile, BackendSheets, BackendGviz, BackendExcel, BackendSQLite, BackendMemory}

// DefaultYear is the year of the default tab and period lists.
const DefaultYear = 2024

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend   string
	ImportBackend string

	// Local sources
	RecordsFile  string
	ExcelFile    string
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetTabs                []string
	Periods                  []string

	// AMQP; empty URL disables messaging
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Timing
	RefreshInterval time.Duration
	CacheTTL        time.Duration
	FetchTimeout    time.Duration

	// Access
	DashboardPassword string
	InsightsPassword  string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	defaultTabs := core.YearPeriods(DefaultYear)
	tabs := getEnvList("SHEET_TABS", defaultTabs)

	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:   getEnv("DATA_BACKEND", BackendFile),
		ImportBackend: getEnv("IMPORT_BACKEND", BackendSheets),

		RecordsFile:  getEnv("RECORDS_FILE", "./data/verkoopdata_2024.json"),
		ExcelFile:    getEnv("EXCEL_FILE", ""),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/verkoop.db"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SheetTabs:                tabs,
		Periods:                  getEnvList("PERIODS", defaultTabs),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "verkoop"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "verkoop_refresh"),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 15*time.Minute),
		CacheTTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 20*time.Second),

		DashboardPassword: getEnv("DASHBOARD_PASSWORD", ""),
		InsightsPassword:  getEnv("INSIGHTS_PASSWORD", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// AMQPEnabled reports whether refresh requests go over AMQP.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// AuthEnabled reports whether the dashboard requires a login.
func (c *Config) AuthEnabled() bool {
	return c.DashboardPassword != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	} else {
		errors = append(errors, c.validateBackend("DATA_BACKEND", c.DataBackend)...)
	}

	if c.ImportBackend != "" && c.DataBackend == BackendSQLite {
		switch {
		case !slices.Contains(validBackends, c.ImportBackend):
			errors = append(errors, fmt.Sprintf("invalid import backend '%s': must be one of %v", c.ImportBackend, validBackends))
		case c.ImportBackend == BackendSQLite:
			errors = append(errors, "import backend cannot be sqlite: it is the import target")
		default:
			errors = append(errors, c.validateBackend("IMPORT_BACKEND", c.ImportBackend)...)
		}
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 minute", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.FetchTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 1 second", c.FetchTimeout))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateBackend(env, backend string) []string {
	var errors []string
	switch backend {
	case BackendFile:
		if c.RecordsFile == "" {
			errors = append(errors, fmt.Sprintf("RECORDS_FILE is required when %s is file", env))
		}
	case BackendExcel:
		if c.ExcelFile == "" {
			errors = append(errors, fmt.Sprintf("EXCEL_FILE is required when %s is excel", env))
		} else if _, err := os.Stat(c.ExcelFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Excel file does not exist: %s", c.ExcelFile))
		}
	case BackendSheets, BackendGviz:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, fmt.Sprintf("Google Spreadsheet ID is required when %s is %s", env, backend))
		}
		if len(c.SheetTabs) == 0 {
			errors = append(errors, fmt.Sprintf("at least one sheet tab is required when %s is %s", env, backend))
		}
		if backend == BackendSheets && c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	case BackendSQLite:
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
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
