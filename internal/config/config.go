package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"kakeibo/internal/core"
)

var (
	validBackends   = []string{"memory", "sheets", "sqlite"}
	validLogFormats = []string{"tint", "json", "text"}
)

type Config struct {
	// HTTP Server
	Port              string
	APIRequestsPerMin int

	// Backend selection
	DataBackend string
	SeedDir     string

	// Database
	SQLiteDBPath string

	// AMQP replication; empty URL disables it
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientFile    string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenFile     string
	GoogleOAuthTokenJSON     string
	LedgerSheet              string
	ShoppingSheet            string
	StoreMaxRetries          int
	StoreRequestsPerMinute   int
	CacheTTL                 time.Duration

	// Household
	ParticipantA  string
	ParticipantB  string
	MonthlyBudget string
	HouseholdFile string

	// Sync
	SyncBatchSize int
	SyncInterval  time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadEnvFile loads variables from the given .env files into the process
// environment. Missing files are skipped; variables already set win.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8081"),
		APIRequestsPerMin: getEnvInt("API_REQUESTS_PER_MINUTE", 120),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		SeedDir:     getEnv("MEMORY_SEED_DIR", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/kakeibo.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kakeibo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sheet_mutations"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),
		LedgerSheet:              getEnv("LEDGER_SHEET", "Ledger"),
		ShoppingSheet:            getEnv("SHOPPING_SHEET", "Shopping"),
		StoreMaxRetries:          getEnvInt("STORE_MAX_RETRIES", 3),
		StoreRequestsPerMinute:   getEnvInt("STORE_REQUESTS_PER_MINUTE", 60),
		CacheTTL:                 getEnvDuration("CACHE_TTL", 30*time.Second),

		ParticipantA:  getEnv("PARTICIPANT_A", ""),
		ParticipantB:  getEnv("PARTICIPANT_B", ""),
		MonthlyBudget: getEnv("MONTHLY_BUDGET", ""),
		HouseholdFile: getEnv("HOUSEHOLD_FILE", ""),

		SyncBatchSize: getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 10*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "tint"),
	}
}

// Validate collects every configuration problem into one error.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.AMQPURL != "" {
		if c.DataBackend != "sqlite" {
			errs = append(errs, "AMQP replication requires the sqlite backend")
		}
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.DataBackend == "sheets" {
		errs = append(errs, c.googleProblems()...)
	}

	if c.LedgerSheet == "" || c.ShoppingSheet == "" {
		errs = append(errs, "sheet names cannot be empty")
	} else if c.LedgerSheet == c.ShoppingSheet {
		errs = append(errs, "ledger and shopping sheets must differ")
	}
	if c.StoreMaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("invalid store max retries %d: must not be negative", c.StoreMaxRetries))
	}
	if c.StoreRequestsPerMinute < 0 {
		errs = append(errs, fmt.Sprintf("invalid store requests per minute %d: must not be negative", c.StoreRequestsPerMinute))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.APIRequestsPerMin < 1 {
		errs = append(errs, fmt.Sprintf("invalid API rate limit %d: must be at least 1", c.APIRequestsPerMin))
	}

	if c.SyncBatchSize < 1 || c.SyncBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be between 1 and 1000", c.SyncBatchSize))
	}
	if c.SyncInterval < time.Second || c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be between 1s and 24h", c.SyncInterval))
	}

	if !slices.Contains(validLogFormats, c.LogFormat) {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if _, err := c.Household(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid household: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateReplica checks what the replication worker needs: a broker and
// a spreadsheet to write to.
func (c *Config) ValidateReplica() error {
	var errs []string
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the replication worker")
	}
	errs = append(errs, c.googleProblems()...)
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) googleProblems() []string {
	var errs []string
	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required for Google Sheets")
	}
	hasSA := c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != ""
	hasClient := c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
	hasToken := c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != ""
	if !hasSA && !(hasClient && hasToken) {
		errs = append(errs, "Google credentials missing: set GOOGLE_SERVICE_ACCOUNT_FILE|JSON or both GOOGLE_OAUTH_CLIENT_FILE|JSON and GOOGLE_OAUTH_TOKEN_FILE|JSON")
	}
	for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleOAuthClientFile, c.GoogleOAuthTokenFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			errs = append(errs, fmt.Sprintf("Google credential file not readable: %s", f))
		}
	}
	return errs
}

// householdFile is the TOML layout of HOUSEHOLD_FILE.
type householdFile struct {
	ParticipantA  string   `toml:"participant_a"`
	ParticipantB  string   `toml:"participant_b"`
	MonthlyBudget int64    `toml:"monthly_budget"`
	Categories    []string `toml:"categories"`
}

// Household resolves participants, categories and budget. The household
// file overrides the defaults and environment variables override the file.
func (c *Config) Household() (core.Household, error) {
	h := core.DefaultHousehold()

	if c.HouseholdFile != "" {
		var f householdFile
		md, err := toml.DecodeFile(filepath.Clean(c.HouseholdFile), &f)
		if err != nil {
			return core.Household{}, fmt.Errorf("read household file: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return core.Household{}, fmt.Errorf("household file: unknown keys %v", undecoded)
		}
		if f.ParticipantA != "" {
			h.NameA = f.ParticipantA
		}
		if f.ParticipantB != "" {
			h.NameB = f.ParticipantB
		}
		if len(f.Categories) > 0 {
			h.Categories = f.Categories
		}
		h.MonthlyBudget = core.Money{Minor: f.MonthlyBudget}
	}

	if c.ParticipantA != "" {
		h.NameA = c.ParticipantA
	}
	if c.ParticipantB != "" {
		h.NameB = c.ParticipantB
	}
	if c.MonthlyBudget != "" {
		budget, err := core.ParseAmount(c.MonthlyBudget)
		if err != nil {
			return core.Household{}, fmt.Errorf("MONTHLY_BUDGET: %w", err)
		}
		h.MonthlyBudget = budget
	}

	h.NameA = strings.TrimSpace(h.NameA)
	h.NameB = strings.TrimSpace(h.NameB)
	if err := h.Validate(); err != nil {
		return core.Household{}, err
	}
	return h, nil
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
