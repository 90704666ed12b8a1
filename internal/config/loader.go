package config

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable lookup.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, getenv); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := getenv(envName)
		if value == "" && envAlt != "" {
			value = getenv(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Files
	if strings.TrimSpace(c.Files.BaseDir) == "" {
		errs = append(errs, "BASE_DIR must not be empty")
	}
	for name, v := range map[string]string{
		"CSV_INPUT":   c.Files.CSVInput,
		"CSV_OUTPUT":  c.Files.CSVOutput,
		"JSON_INPUT":  c.Files.JSONInput,
		"JSON_OUTPUT": c.Files.JSONOutput,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, name+" must not be empty")
		}
	}
	if c.Files.CSVInput == c.Files.CSVOutput && c.Files.CSVInput != "" {
		errs = append(errs, "CSV_OUTPUT must differ from CSV_INPUT")
	}
	if c.Files.JSONInput == c.Files.JSONOutput && c.Files.JSONInput != "" {
		errs = append(errs, "JSON_OUTPUT must differ from JSON_INPUT")
	}

	// Enrichment
	switch strings.ToLower(strings.TrimSpace(c.Enrich.CountryColumnPolicy)) {
	case "", "append", "skip":
	default:
		errs = append(errs, fmt.Sprintf("COUNTRY_COLUMN_POLICY (%q) must be one of: append, skip", c.Enrich.CountryColumnPolicy))
	}
	if c.Enrich.ListField == "" {
		errs = append(errs, "JSON_LIST_FIELD must not be empty")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Upload
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}

	// Rate limit
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	// History
	switch strings.ToLower(c.History.Driver) {
	case DriverMemory:
		if c.History.MemoryLimit <= 0 {
			errs = append(errs, "HISTORY_MEMORY_LIMIT must be positive")
		}
	case DriverSQLite:
		if c.History.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required when HISTORY_DRIVER is sqlite")
		}
	case DriverPostgres:
		if c.History.URL == "" {
			errs = append(errs, "DATABASE_URL is required when HISTORY_DRIVER is postgres")
		}
		if c.History.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.History.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.History.MaxConns < c.History.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.History.MaxConns, c.History.MinConns))
		}
	default:
		errs = append(errs, fmt.Sprintf("HISTORY_DRIVER (%q) must be one of: memory, sqlite, postgres", c.History.Driver))
	}

	// Triggers
	if c.Trigger.Schedule != "" {
		if _, err := cron.ParseStandard(c.Trigger.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("SCHEDULE (%q) is not a valid cron spec: %v", c.Trigger.Schedule, err))
		}
	}
	if c.Trigger.WatchInputs && c.Trigger.WatchDebounce <= 0 {
		errs = append(errs, "WATCH_DEBOUNCE must be positive when WATCH_INPUTS is enabled")
	}

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The database URL is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Files: {BaseDir: %q}, ", c.Files.BaseDir)
	fmt.Fprintf(&b, "Enrich: {Policy: %q, ListField: %q}, ", c.Enrich.CountryColumnPolicy, c.Enrich.ListField)
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ", c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ", c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "History: {Driver: %q, URL: [MASKED]}, ", c.History.Driver)
	fmt.Fprintf(&b, "Trigger: {Schedule: %q, WatchInputs: %v}, ", c.Trigger.Schedule, c.Trigger.WatchInputs)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
