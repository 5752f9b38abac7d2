package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Cache drivers
const (
	CacheDriverFile     = "file"
	CacheDriverPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	Ethereum   EthereumConfig   `yaml:"ethereum"`
	Instances  []InstanceConfig `yaml:"instances" validate:"required,min=1,dive"`
	Sync       SyncConfig       `yaml:"sync"`
	Cache      CacheConfig      `yaml:"cache"`
	Database   DatabaseConfig   `yaml:"database"`
	Circuit    CircuitConfig    `yaml:"circuit"`
	Server     ServerConfig     `yaml:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EthereumConfig contains Ethereum client settings
type EthereumConfig struct {
	RPCURL         string        `yaml:"rpc_url" validate:"required,url"`
	RequestTimeout time.Duration `yaml:"request_timeout" default:"30s"`
	// Confirmations is subtracted from the head when choosing the sync target.
	Confirmations uint64 `yaml:"confirmations"`
}

// InstanceConfig describes one deployed mixer contract (one denomination of one currency)
type InstanceConfig struct {
	Currency    string `yaml:"currency" validate:"required,alphanum"`
	Amount      string `yaml:"amount" validate:"required"`
	Contract    string `yaml:"contract" validate:"required"`
	DeployBlock uint64 `yaml:"deploy_block"`
}

// SyncConfig contains event synchronisation settings
type SyncConfig struct {
	ChunkSize uint64        `yaml:"chunk_size" default:"300000" validate:"gt=0"`
	Interval  time.Duration `yaml:"interval" default:"1m"`
}

// CacheConfig selects and configures the event cache backend
type CacheConfig struct {
	Driver string `yaml:"driver" default:"file" validate:"oneof=file postgres"`
	Dir    string `yaml:"dir" default:"cache"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"tornado_cache"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// CircuitConfig points at the compiled withdraw circuit and its keys
type CircuitConfig struct {
	Dir string `yaml:"dir" default:"build/circuits"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"console"`
	OutputPath string `yaml:"output_path" default:"stderr"`
}

// Load loads configuration from file, expanding ${VAR} references from the environment
func Load(configPath string) (*Config, error) {
	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse decodes, defaults and validates a YAML document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	// Defaults first so that explicit zero values in the file (enabled: false) win.
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(cfg.Instances))
	for i, inst := range cfg.Instances {
		if _, err := decimal.NewFromString(inst.Amount); err != nil {
			return fmt.Errorf("instances[%d].amount %q is not a decimal: %w", i, inst.Amount, err)
		}
		if !common.IsHexAddress(inst.Contract) {
			return fmt.Errorf("instances[%d].contract %q is not an address", i, inst.Contract)
		}
		key := strings.ToLower(inst.Currency) + "/" + inst.Amount
		if _, ok := seen[key]; ok {
			return fmt.Errorf("instances[%d]: duplicate instance %s", i, key)
		}
		seen[key] = struct{}{}
	}

	if cfg.Cache.Driver == CacheDriverPostgres && cfg.Database.User == "" {
		return errors.New("database.user is required for the postgres cache driver")
	}
	return nil
}

// Instance returns the instance configured for currency and amount
func (c *Config) Instance(currency, amount string) (InstanceConfig, bool) {
	for _, inst := range c.Instances {
		if strings.EqualFold(inst.Currency, currency) && inst.Amount == amount {
			return inst, true
		}
	}
	return InstanceConfig{}, false
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
