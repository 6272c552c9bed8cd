// Package config enables config file parsing.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// Config contains the CLI configuration.
type Config struct {
	Analysis *AnalysisConfig `koanf:"analysis"`
	Server   *ServerConfig   `koanf:"server"`
	Log      *LogConfig      `koanf:"log"`
	Metrics  *MetricsConfig  `koanf:"metrics"`
}

// Validate performs config validation.
func (cfg *Config) Validate() error {
	if cfg.Analysis != nil {
		if err := cfg.Analysis.Validate(); err != nil {
			return fmt.Errorf("analysis: %w", err)
		}
	}
	if cfg.Server != nil {
		if err := cfg.Server.Validate(); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	if cfg.Log != nil {
		if err := cfg.Log.Validate(); err != nil {
			return fmt.Errorf("log: %w", err)
		}
	}
	if cfg.Metrics != nil {
		if err := cfg.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}

// AnalysisConfig is the configuration for the bridge ingestion service.
type AnalysisConfig struct {
	// Source is the configuration for accessing the chain RPC endpoint.
	Source SourceConfig `koanf:"source"`

	// Interval is the delay between consecutive ingestion passes of a job.
	// Defaults to 1s if unset.
	Interval time.Duration `koanf:"interval"`

	// DefaultChunkSize is the block-range width a job resets to after a
	// successful pass. Defaults to 10000 if unset.
	DefaultChunkSize uint64 `koanf:"default_chunk_size"`

	Storage *StorageConfig `koanf:"storage"`
}

// Validate validates the analysis configuration.
func (cfg *AnalysisConfig) Validate() error {
	if err := cfg.Source.Validate(); err != nil {
		return err
	}
	if cfg.Storage == nil {
		return fmt.Errorf("storage not configured")
	}
	return cfg.Storage.Validate(true /* requireMigrations */)
}

// SourceConfig is the configuration for the chain RPC endpoint that
// ingestion jobs pull event logs from.
type SourceConfig struct {
	// RPCEndpoint is the Ethereum JSON-RPC endpoint.
	RPCEndpoint string `koanf:"rpc_endpoint"`
}

// Validate validates the source configuration.
func (cfg *SourceConfig) Validate() error {
	if cfg.RPCEndpoint == "" {
		return fmt.Errorf("source.rpc_endpoint not configured")
	}
	return nil
}

// ServerConfig contains the API server configuration.
type ServerConfig struct {
	// Endpoint is the service endpoint from which to serve the API.
	Endpoint string `koanf:"endpoint"`

	Storage *StorageConfig `koanf:"storage"`

	Prices    *PricesConfig    `koanf:"prices"`
	Etherscan *EtherscanConfig `koanf:"etherscan"`
}

// Validate validates the server configuration.
func (cfg *ServerConfig) Validate() error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("endpoint not configured")
	}
	if cfg.Storage == nil {
		return fmt.Errorf("storage not configured")
	}
	if cfg.Prices != nil {
		if err := cfg.Prices.Validate(); err != nil {
			return err
		}
	}
	return cfg.Storage.Validate(false /* requireMigrations */)
}

// PricesConfig is the configuration for the token price source.
type PricesConfig struct {
	// Endpoint is the base URL of the price API.
	// Defaults to the public coingecko v3 API.
	Endpoint string `koanf:"endpoint"`

	// APIKey is the demo/pro API key, if any.
	APIKey string `koanf:"api_key"`

	// CacheTTL bounds how long a fetched price table is reused before the
	// upstream is queried again. Defaults to 1m if unset.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// Validate validates the prices configuration.
func (cfg *PricesConfig) Validate() error {
	if cfg.CacheTTL < 0 {
		return fmt.Errorf("prices.cache_ttl must not be negative")
	}
	return nil
}

// EtherscanConfig is the configuration for the wallet-history source used
// by the uniswap interaction check.
type EtherscanConfig struct {
	// Endpoint is the base URL of the etherscan-compatible API.
	Endpoint string `koanf:"endpoint"`

	// APIKey authorizes requests. If empty, interaction checks degrade to
	// a not-interacted result.
	APIKey string `koanf:"api_key"`
}

// StorageConfig contains the storage layer configuration.
type StorageConfig struct {
	// Endpoint is the storage endpoint from which to read/write indexed data.
	Endpoint string `koanf:"endpoint"`

	// Migrations is the directory containing schema migrations.
	Migrations string `koanf:"migrations"`

	// If set, will wipe all existing data in the storage on startup.
	WipeStorage bool `koanf:"wipe_storage"`
}

// Validate validates the storage configuration.
func (cfg *StorageConfig) Validate(requireMigrations bool) error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("storage.endpoint not configured")
	}
	if requireMigrations && cfg.Migrations == "" {
		return fmt.Errorf("storage.migrations not configured")
	}
	return nil
}

// LogConfig contains the logging configuration.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
	File   string `koanf:"file"`
}

// Validate validates the logging configuration.
func (cfg *LogConfig) Validate() error {
	return nil
}

// MetricsConfig contains the metrics configuration.
type MetricsConfig struct {
	// PullEndpoint is the endpoint at which prometheus metrics are exposed.
	PullEndpoint string `koanf:"pull_endpoint"`
}

// Validate validates the metrics configuration.
func (cfg *MetricsConfig) Validate() error {
	if cfg.PullEndpoint == "" {
		return fmt.Errorf("metrics.pull_endpoint not configured")
	}
	return nil
}

// InitConfig initializes configuration from file.
func InitConfig(f string) (*Config, error) {
	var config Config
	k := koanf.New(".")

	// Load configuration from the yaml config.
	if err := k.Load(file.Provider(f), yaml.Parser()); err != nil {
		return nil, err
	}

	// Load environment variables and merge into the loaded config.
	if err := k.Load(env.Provider("", ".", func(s string) string {
		// `__` is used as a hierarchy delimiter.
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	// Unmarshal into config.
	if err := k.Unmarshal("", &config); err != nil {
		return nil, err
	}

	// Validate config.
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
