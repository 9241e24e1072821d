package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/servicer/credit"
)

// Config represents the complete servicer configuration
type Config struct {
	Source  SourceConfig  `json:"source" yaml:"source"`
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Report  ReportConfig  `json:"report" yaml:"report"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// SourceConfig says where the loan and payment snapshots are read from
type SourceConfig struct {
	Type string `json:"type" yaml:"type"` // "sqlite" or "postgres"
	DSN  string `json:"dsn" yaml:"dsn"`
}

// EngineConfig tunes the balance and period engines
type EngineConfig struct {
	CacheSize int    `json:"cache_size" yaml:"cache_size"`
	Cutover   string `json:"cutover" yaml:"cutover"` // YYYY-MM-DD, interest-first from this opening date
}

// CutoverDate parses Cutover.
func (e EngineConfig) CutoverDate() (time.Time, error) {
	return credit.ParseDate(e.Cutover)
}

// JournalConfig contains result journaling parameters
type JournalConfig struct {
	Type         string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	RunsFile     string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
	BalancesFile string `json:"balances_file,omitempty" yaml:"balances_file,omitempty"`
	ParitiesFile string `json:"parities_file,omitempty" yaml:"parities_file,omitempty"`
	DBPath       string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ReportConfig names optional report exports
type ReportConfig struct {
	XLSX string `json:"xlsx,omitempty" yaml:"xlsx,omitempty"`
	PDF  string `json:"pdf,omitempty" yaml:"pdf,omitempty"`
	Org  string `json:"org,omitempty" yaml:"org,omitempty"`
}

// ServerConfig configures the HTTP query surface
type ServerConfig struct {
	Addr    string `json:"addr" yaml:"addr"`
	Refresh string `json:"refresh" yaml:"refresh"` // cron spec for snapshot reloads
}

// LogConfig configures the logrus logger
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// Environment variables that override file settings.
const (
	EnvSourceDSN  = "SERVICER_SOURCE_DSN"
	EnvServerAddr = "SERVICER_SERVER_ADDR"
	EnvLogLevel   = "LOG_LEVEL"
)

// LoadFromFile loads configuration from a file (JSON or YAML), applies
// environment overrides and validates the result
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	c.Source.DSN = getEnv(EnvSourceDSN, c.Source.DSN)
	c.Server.Addr = getEnv(EnvServerAddr, c.Server.Addr)
	c.Log.Level = getEnv(EnvLogLevel, c.Log.Level)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Source.Type != "sqlite" && c.Source.Type != "postgres" {
		return fmt.Errorf("source.type must be 'sqlite' or 'postgres'")
	}
	if c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required")
	}
	if c.Engine.CacheSize <= 0 {
		return fmt.Errorf("engine.cache_size must be positive")
	}
	if _, err := c.Engine.CutoverDate(); err != nil {
		return fmt.Errorf("engine.cutover must be YYYY-MM-DD: %w", err)
	}

	switch c.Journal.Type {
	case "none":
	case "csv":
		if c.Journal.RunsFile == "" || c.Journal.BalancesFile == "" || c.Journal.ParitiesFile == "" {
			return fmt.Errorf("journal runs_file, balances_file and parities_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.Refresh != "" {
		if _, err := cron.ParseStandard(c.Server.Refresh); err != nil {
			return fmt.Errorf("server.refresh: %w", err)
		}
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Type: "sqlite",
			DSN:  "./servicer.db",
		},
		Engine: EngineConfig{
			CacheSize: 256,
			Cutover:   "2021-12-01",
		},
		Journal: JournalConfig{
			Type:         "csv",
			RunsFile:     "./runs.csv",
			BalancesFile: "./balances.csv",
			ParitiesFile: "./parities.csv",
		},
		Server: ServerConfig{
			Addr:    ":8080",
			Refresh: "*/15 * * * *",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
