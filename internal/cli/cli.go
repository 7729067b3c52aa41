// Package cli implements the libresolve command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/libresolve/pkg/audit"
	"github.com/matzehuels/libresolve/pkg/buildinfo"
	"github.com/matzehuels/libresolve/pkg/cache"
	"github.com/matzehuels/libresolve/pkg/config"
	"github.com/matzehuels/libresolve/pkg/resolve"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "libresolve"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The configuration file is loaded once before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "libresolve resolves and downloads Maven dependency closures",
		Long: `libresolve computes the runtime dependency closure of a Maven artifact, picks one
version per library with nearest-wins conflict resolution and downloads every
selected artifact into a local Maven-layout cache.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/libresolve/config.toml)")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("configuration loaded", "path", c.configPath, "cache", cfg.CacheDir, "repositories", len(cfg.Repositories))
	return nil
}

// =============================================================================
// Resolver Factory
// =============================================================================

// newResolver builds a resolver from the configuration. The returned
// cleanup closes the descriptor cache.
func (c *CLI) newResolver(ctx context.Context, workers int) (*resolve.Resolver, func()) {
	descCache, err := c.cfg.OpenDescriptorCache(ctx)
	if err != nil {
		c.Logger.Warn("descriptor cache unavailable, continuing without it", "backend", c.cfg.DescriptorCache.Backend, "err", err)
		descCache = cache.NewNullCache()
	}
	opts := c.cfg.ResolveOptions()
	opts.DescriptorCache = descCache
	opts.Logger = c.Logger
	if workers > 0 {
		opts.Workers = workers
	}
	return resolve.New(opts), func() { _ = descCache.Close() }
}

// openAudit opens the provenance ledger. An unreachable ledger degrades to
// a no-op store.
func (c *CLI) openAudit(ctx context.Context) audit.Store {
	store, err := c.cfg.OpenAudit(ctx)
	if err != nil {
		c.Logger.Warn("audit ledger unavailable", "backend", c.cfg.Audit.Backend, "err", err)
		return audit.NewNullStore()
	}
	return store
}
