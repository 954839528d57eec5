package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/utof/debtds/internal/control"
	"github.com/utof/debtds/internal/core/config"
)

var (
	cfgPath      string
	isDebug      bool
	showProgress bool
)

var rootCmd = &cobra.Command{
	Use:   "debtds",
	Short: "Debtor/creditor enrichment over api-cloud",
	Long: `debtds enriches CSV tables of debtor and creditor INNs with court decisions,
bankruptcy status and enforcement proceedings from api-cloud.ru. Every answer
is cached, so an interrupted run resumes without repeating paid calls.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&showProgress, "progress", true, "show a progress bar")
}

// loadConfig reads the config file and installs the logger. A missing
// config file falls back to defaults.
func loadConfig() (*config.AppConfig, error) {
	var cfg *config.AppConfig
	if _, err := os.Stat(cfgPath); err == nil {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			stylelog.InitDefault()
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	slogLevel := parseLevel(cfg.Logging.Level)
	if isDebug {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// openApp loads config and builds the App.
func openApp(ctx context.Context) (*control.App, *config.AppConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return nil, nil, err
	}
	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize app", "error", err)
		return nil, nil, err
	}
	return app, cfg, nil
}
