package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/gg-parser/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in PERSISTENCE_BACKEND.
const (
	BackendSheets   = "sheets"
	BackendBigQuery = "bigquery"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds the shared secret expected in X-API-Key.
// An empty APIKey runs the service in development mode.
type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// PersistenceConfig selects and addresses the append-only store.
type PersistenceConfig struct {
	Backend       string `yaml:"backend"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name"`

	BigQueryProject string `yaml:"bigquery_project"`
	BigQueryDataset string `yaml:"bigquery_dataset"`
	BigQueryTable   string `yaml:"bigquery_table"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console|json
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "console"
	defaultBigQueryTable   = "expenses"
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Persistence: PersistenceConfig{
			Backend:       BackendSheets,
			SheetName:     pipeline.DefaultSheetName,
			BigQueryTable: defaultBigQueryTable,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then environment variables, which win. A missing spreadsheet id is valid.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config.Load: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config.Load: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.HTTP.Port = valueOrDefault("PORT", c.HTTP.Port)
	c.Auth.APIKey = valueOrDefault("API_KEY", c.Auth.APIKey)

	c.Persistence.Backend = strings.ToLower(valueOrDefault("PERSISTENCE_BACKEND", c.Persistence.Backend))
	c.Persistence.SpreadsheetID = valueOrDefault("SPREADSHEET_ID", c.Persistence.SpreadsheetID)
	c.Persistence.SheetName = valueOrDefault("SHEET_NAME", c.Persistence.SheetName)
	c.Persistence.BigQueryProject = valueOrDefault("BIGQUERY_PROJECT", c.Persistence.BigQueryProject)
	c.Persistence.BigQueryDataset = valueOrDefault("BIGQUERY_DATASET", c.Persistence.BigQueryDataset)
	c.Persistence.BigQueryTable = valueOrDefault("BIGQUERY_TABLE", c.Persistence.BigQueryTable)

	c.Logging.Level = valueOrDefault("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = valueOrDefault("LOG_FORMAT", c.Logging.Format)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &c.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &c.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &c.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	return nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c Config) Validate() error {
	port, err := strconv.Atoi(c.HTTP.Port)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", c.HTTP.Port, err)
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port %d is out of range", port)
	}

	switch c.Persistence.Backend {
	case BackendSheets:
	case BackendBigQuery:
		if c.Persistence.BigQueryDataset != "" && c.Persistence.BigQueryProject == "" {
			return fmt.Errorf("BIGQUERY_PROJECT is required when BIGQUERY_DATASET is set")
		}
	default:
		return fmt.Errorf("unknown persistence backend %q", c.Persistence.Backend)
	}
	return nil
}

// Destination translates the persistence settings into the pipeline's
// destination. For BigQuery the dataset plays the spreadsheet's role and the
// table the tab's.
func (c Config) Destination() pipeline.Destination {
	if c.Persistence.Backend == BackendBigQuery {
		return pipeline.Destination{
			ID:            c.Persistence.BigQueryDataset,
			Tab:           c.Persistence.BigQueryTable,
			Label:         "BigQuery",
			FailureLabel:  "BigQuery",
			MissingReason: "BIGQUERY_DATASET no configurado en variables de entorno",
		}
	}
	return pipeline.Destination{
		ID:            c.Persistence.SpreadsheetID,
		Tab:           c.Persistence.SheetName,
		Label:         pipeline.DefaultSinkLabel,
		FailureLabel:  pipeline.DefaultFailureLabel,
		MissingReason: pipeline.DefaultMissingReason,
	}
}

// DevelopmentMode reports whether requests are accepted without an API key.
func (c Config) DevelopmentMode() bool {
	return c.Auth.APIKey == ""
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
