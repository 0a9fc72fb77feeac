package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config carries all settings. The non-connection sections are omitted
// from written files when fully zero, so Load can fill them with defaults.
type Config struct {
	SonarQube SonarQubeConfig `mapstructure:"sonarqube" yaml:"sonarqube"`
	Collector CollectorConfig `mapstructure:"collector" yaml:"collector,omitempty"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database,omitempty"`
	Export    ExportConfig    `mapstructure:"export" yaml:"export,omitempty"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging,omitempty"`
	MCP       MCPConfig       `mapstructure:"mcp" yaml:"mcp,omitempty"`
}

// SonarQubeConfig defines how to reach and authenticate against the server
type SonarQubeConfig struct {
	URL            string `mapstructure:"url" yaml:"url"`
	Token          string `mapstructure:"token" yaml:"token"`
	Organization   string `mapstructure:"organization" yaml:"organization,omitempty"` // SonarCloud organization key
	AuthMode       string `mapstructure:"auth_mode" yaml:"auth_mode"`                 // "basic" or "bearer"
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout as a duration
func (c SonarQubeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CollectorConfig defines worker pool tuning for collection runs. The CSV
// threshold is the project count above which the metrics exporter streams
// rows as workers complete.
type CollectorConfig struct {
	Workers                 int `mapstructure:"workers" yaml:"workers"`
	ItemTimeoutSeconds      int `mapstructure:"item_timeout_seconds" yaml:"item_timeout_seconds"`
	IncrementalCSVThreshold int `mapstructure:"incremental_csv_threshold" yaml:"incremental_csv_threshold"`
}

// ItemTimeout returns the per-project fetch budget as a duration
func (c CollectorConfig) ItemTimeout() time.Duration {
	return time.Duration(c.ItemTimeoutSeconds) * time.Second
}

// DatabaseConfig selects the storage backend. Pool settings left at zero
// fall back to per-dialect defaults.
type DatabaseConfig struct {
	Type                   string `mapstructure:"type" yaml:"type"` // "sqlite", "postgres", or "sqlserver"
	DSN                    string `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" yaml:"max_open_conns,omitempty"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetimeSeconds int    `mapstructure:"conn_max_lifetime_seconds" yaml:"conn_max_lifetime_seconds,omitempty"`
}

// ExportConfig defines where export files are written
type ExportConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format" yaml:"format"` // "json" or "text"
	OutputFile string `mapstructure:"output_file" yaml:"output_file,omitempty"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
}

// MCPConfig defines the MCP server listen address
type MCPConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// Load reads the configuration from path when given, otherwise from
// config.yaml in the working directory or ~/.sonar-collector. Environment
// variables with the SONAR_COLLECTOR prefix override file values, so a
// missing file is only an error when an explicit path was requested.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.sonar-collector")
	}

	// Environment variable support
	viper.SetEnvPrefix("SONAR_COLLECTOR")
	// Replace dots with underscores in config keys when looking for env vars
	// This allows sonarqube.token -> SONAR_COLLECTOR_SONARQUBE_TOKEN
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No file found in the search paths; defaults and environment
		// variables still apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// FileUsed returns the path of the config file the last Load read, or an
// empty string when configuration came from defaults and environment only.
func FileUsed() string {
	return viper.ConfigFileUsed()
}

func setDefaults() {
	// Connection settings are registered with empty defaults so that
	// environment variables are picked up even without a config file.
	viper.SetDefault("sonarqube.url", "")
	viper.SetDefault("sonarqube.token", "")
	viper.SetDefault("sonarqube.organization", "")
	viper.SetDefault("sonarqube.auth_mode", "basic")
	viper.SetDefault("sonarqube.timeout_seconds", 30)
	viper.SetDefault("collector.workers", 10)
	viper.SetDefault("collector.item_timeout_seconds", 60)
	viper.SetDefault("collector.incremental_csv_threshold", 50)
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.dsn", "./data/sonar-collector.db")
	viper.SetDefault("export.directory", ".")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output_file", "")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)
	viper.SetDefault("mcp.address", ":8081")
}

// Validate checks that the settings needed to reach the server are present.
// Deeper validation of the values happens when the client is constructed.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SonarQube.URL) == "" {
		return fmt.Errorf("sonarqube.url is required")
	}
	if strings.TrimSpace(c.SonarQube.Token) == "" {
		return fmt.Errorf("sonarqube.token is required")
	}
	return nil
}

// DefaultFilePath is where the configure command writes the configuration
// unless told otherwise.
const DefaultFilePath = "config.yaml"

// WriteFile persists the configuration as YAML. The file is created with
// owner-only permissions because it carries the auth token.
func WriteFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
