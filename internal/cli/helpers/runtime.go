package helpers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/seelabs/xrpl-probe/internal/config"
	"github.com/seelabs/xrpl-probe/internal/logging"
	"github.com/seelabs/xrpl-probe/internal/storage"
)

// GlobalFlags are shared by every command. Empty values leave the
// configuration untouched.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
	Database   string
	Driver     string
}

// AddFlags registers the persistent flags.
func (g *GlobalFlags) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&g.ConfigPath, "config", "", "Config file (default $XRPL_PROBE_CONFIG or ~/.xrpl-probe/config.yaml)")
	flags.StringVar(&g.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// LoadConfig loads the configuration and applies the flag overrides.
func (g *GlobalFlags) LoadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(g.ConfigPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	if g.Database != "" {
		cfg.Storage.Path = g.Database
	}
	if g.Driver != "" {
		cfg.Storage.Driver = g.Driver
	}
	if cfg.Logging.Output == nil {
		cfg.Logging.Output = os.Stderr
	}
	return cfg, nil
}

// NewLogger builds the command logger.
func NewLogger(cfg *config.Config, component string) zerolog.Logger {
	return logging.NewWithComponent(cfg.Logging, component)
}

// OpenStore opens the configured collection database.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*storage.Store, error) {
	store, err := storage.Open(ctx, storage.Options{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
		Retry:  cfg.Storage.Retry,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database %s: %w", cfg.Storage.Driver, cfg.Storage.Path, err)
	}
	return store, nil
}

// SignalContext is canceled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
