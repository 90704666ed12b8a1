// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Files   FilesConfig
	Enrich  EnrichConfig
	Server  ServerConfig
	Upload  UploadConfig
	Rate    RateLimitConfig
	History HistoryConfig
	Trigger TriggerConfig
	Logging LoggingConfig
}

// FilesConfig names the batch inputs and outputs. Relative names are resolved
// against BaseDir.
type FilesConfig struct {
	// BaseDir is the directory holding the exhibitor files (default: .)
	BaseDir string `env:"BASE_DIR" envAlt:"EXHIBITORS_DIR" default:"."`

	CSVInput   string `env:"CSV_INPUT" default:"all_exhibitors.csv"`
	CSVOutput  string `env:"CSV_OUTPUT" default:"all_exhibitors_with_country.csv"`
	JSONInput  string `env:"JSON_INPUT" default:"all_exhibitors.json"`
	JSONOutput string `env:"JSON_OUTPUT" default:"all_exhibitors_with_country.json"`
}

// EnrichConfig holds record transform settings.
type EnrichConfig struct {
	// CountryColumnPolicy decides what happens when the CSV header has no
	// Country column: append or skip (default: append)
	CountryColumnPolicy string `env:"COUNTRY_COLUMN_POLICY" default:"append"`

	// ListField is the JSON wrapper member holding the exhibitor list (default: exhibitors)
	ListField string `env:"JSON_LIST_FIELD" default:"exhibitors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds limits for enrichment requests.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted request body in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel runs (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// RateLimitConfig holds per-IP request limits for the HTTP API.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit per client IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// History drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// HistoryConfig selects and configures the run history store.
type HistoryConfig struct {
	// Driver is memory, sqlite or postgres (default: memory)
	Driver string `env:"HISTORY_DRIVER" default:"memory"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file for the sqlite driver
	SQLitePath string `env:"SQLITE_PATH" default:"enrichment_history.db"`

	// MaxConns is the maximum number of connections in the pool (default: 5)
	MaxConns int `env:"DB_MAX_CONNS" default:"5"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MemoryLimit is how many runs the memory driver keeps (default: 500)
	MemoryLimit int `env:"HISTORY_MEMORY_LIMIT" default:"500"`
}

// TriggerConfig holds settings for background re-runs inside the server.
type TriggerConfig struct {
	// Schedule is a cron spec; empty disables scheduled runs
	Schedule string `env:"SCHEDULE"`

	// WatchInputs re-runs the batch when an input file changes (default: false)
	WatchInputs bool `env:"WATCH_INPUTS" default:"false"`

	// WatchDebounce is the quiet period before a watched change triggers a run (default: 500ms)
	WatchDebounce time.Duration `env:"WATCH_DEBOUNCE" default:"500ms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
