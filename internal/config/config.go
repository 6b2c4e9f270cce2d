package config

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP server
	Port               string   `env:"PORT" envDefault:"8081"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	// Backend selection
	DataBackend         string `env:"DATA_BACKEND" envDefault:"memory"`
	SQLiteDBPath        string `env:"SQLITE_DB_PATH" envDefault:"./data/approvals.db"`
	TransactionsPerPage int    `env:"TRANSACTIONS_PER_PAGE" envDefault:"5"`
	SeedFile            string `env:"SEED_FILE"`

	// AMQP; empty URL disables approval events
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"approvals"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"approval_changed"`

	// Google Sheets approval ledger
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleLedgerSheet        string `env:"GOOGLE_LEDGER_SHEET" envDefault:"Approvals"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`

	// Client
	APIURL               string        `env:"APPROVALS_API_URL" envDefault:"http://localhost:8081"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	FetchCacheMaxEntries int           `env:"FETCH_CACHE_MAX_ENTRIES" envDefault:"256"`
	FetchCacheTTL        time.Duration `env:"FETCH_CACHE_TTL" envDefault:"0s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// AMQPEnabled reports whether approval events should be published.
func (c *Config) AMQPEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// LedgerEnabled reports whether a Google Sheets ledger is configured.
func (c *Config) LedgerEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// Validate validates the configuration and returns every problem in one error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == BackendSQLite && strings.TrimSpace(c.SQLiteDBPath) == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.TransactionsPerPage < 1 || c.TransactionsPerPage > 100 {
		errors = append(errors, fmt.Sprintf("invalid transactions per page %d: must be between 1 and 100", c.TransactionsPerPage))
	}

	if c.AMQPEnabled() {
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

	hasCredentials := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
	if hasCredentials && !c.LedgerEnabled() {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required when service account credentials are provided")
	}

	if parsedURL, err := url.Parse(c.APIURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API URL '%s': must be an absolute http(s) URL", c.APIURL))
	}

	if c.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be positive", c.RequestTimeout))
	}
	if c.FetchCacheMaxEntries < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch cache size %d: must not be negative", c.FetchCacheMaxEntries))
	}
	if c.FetchCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch cache TTL %v: must not be negative", c.FetchCacheTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
