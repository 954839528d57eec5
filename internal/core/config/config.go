package config

import (
	"github.com/utof/debtds/internal/collect/courts"
	"github.com/utof/debtds/internal/collect/fssp"
	"github.com/utof/debtds/internal/infra/apicloud"
	redisclient "github.com/utof/debtds/internal/infra/redis"
	"github.com/utof/debtds/internal/infra/storage/postgres"
)

// Storage backends.
const (
	BackendJSONFile = "jsonfile"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API      apicloud.Config    `yaml:"api"`
	Quota    QuotaConfig        `yaml:"quota"`
	Collect  CollectConfig      `yaml:"collect"`
	Storage  StorageConfig      `yaml:"storage"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// QuotaConfig holds the account guard settings.
type QuotaConfig struct {
	LowBalanceThreshold float64 `yaml:"low_balance_threshold"`
	CallBudget          int     `yaml:"call_budget"` // 0 = unlimited
}

// CollectConfig holds per-job settings.
type CollectConfig struct {
	MaxPagesPerRun int            `yaml:"max_pages_per_run"`
	Courts         courts.Columns `yaml:"courts"`
	Bankrot        BankrotConfig  `yaml:"bankrot"`
	FSSP           fssp.Columns   `yaml:"fssp"`
}

// BankrotConfig lists the INN columns to look up.
type BankrotConfig struct {
	Columns []string `yaml:"columns"`
}

// StorageConfig selects the cache backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // jsonfile, memory, redis, postgres
	Dir     string `yaml:"dir"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // 0 = disabled
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
