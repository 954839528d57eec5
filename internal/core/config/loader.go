package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/utof/debtds/internal/collect/courts"
	"github.com/utof/debtds/internal/collect/fssp"
	"github.com/utof/debtds/internal/collect/paginate"
	"github.com/utof/debtds/internal/core/quota"
	"github.com/utof/debtds/internal/infra/apicloud"
)

// TokenEnv is the environment variable holding the API token when the
// config file does not set one.
const TokenEnv = "api_cloud"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = apicloud.DefaultBaseURL
	}
	if cfg.API.Token == "" {
		cfg.API.Token = os.Getenv(TokenEnv)
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 120 * time.Second
	}
	if cfg.API.RequestsPerSecond == 0 {
		cfg.API.RequestsPerSecond = 2
	}
	if cfg.API.Burst == 0 {
		cfg.API.Burst = 1
	}
	if cfg.API.MaxAttempts == 0 {
		cfg.API.MaxAttempts = 1
	}
	if cfg.API.InitialBackoff == 0 {
		cfg.API.InitialBackoff = 2 * time.Second
	}

	if cfg.Quota.LowBalanceThreshold == 0 {
		cfg.Quota.LowBalanceThreshold = quota.DefaultThreshold
	}

	if cfg.Collect.MaxPagesPerRun == 0 {
		cfg.Collect.MaxPagesPerRun = paginate.DefaultMaxPages
	}
	if cfg.Collect.Courts.Debtor == "" {
		cfg.Collect.Courts.Debtor = courts.DefaultColumns.Debtor
	}
	if cfg.Collect.Courts.Creditor == "" {
		cfg.Collect.Courts.Creditor = courts.DefaultColumns.Creditor
	}
	if cfg.Collect.Courts.Output == "" {
		cfg.Collect.Courts.Output = courts.DefaultColumns.Output
	}
	if len(cfg.Collect.Bankrot.Columns) == 0 {
		cfg.Collect.Bankrot.Columns = []string{cfg.Collect.Courts.Debtor, cfg.Collect.Courts.Creditor}
	}
	if cfg.Collect.FSSP.Number == "" {
		cfg.Collect.FSSP.Number = fssp.DefaultColumns.Number
	}
	if cfg.Collect.FSSP.Sum == "" {
		cfg.Collect.FSSP.Sum = fssp.DefaultColumns.Sum
	}
	if cfg.Collect.FSSP.Issuer == "" {
		cfg.Collect.FSSP.Issuer = fssp.DefaultColumns.Issuer
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendJSONFile
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "cache"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks values that have no sensible default.
func (c *AppConfig) Validate() error {
	backends := []string{BackendJSONFile, BackendMemory, BackendRedis, BackendPostgres}
	if !slices.Contains(backends, c.Storage.Backend) {
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Storage.Backend == BackendRedis && c.Redis.URL == "" {
		return fmt.Errorf("%w: redis backend needs redis.url", ErrInvalidConfig)
	}
	if c.Storage.Backend == BackendPostgres && c.Database.URL == "" {
		return fmt.Errorf("%w: postgres backend needs database.url", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: api.requests_per_second must not be negative", ErrInvalidConfig)
	}
	return nil
}
