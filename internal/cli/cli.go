// Package cli implements the distflow command-line interface.
//
// This package provides commands for converting OpenDSS circuits into
// network models, solving the linearized three-phase power flow,
// rendering feeder diagrams and voltage profiles, serving the solver
// over HTTP, and managing the result cache. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - convert: Extract a network model from an OpenDSS circuit file
//   - solve: Run the power flow and report per-bus voltages
//   - render: Generate DOT, SVG, or PNG feeder diagrams and profile plots
//   - serve: Run the HTTP API
//   - cache: Manage the model and solve cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context to allow structured progress
// tracking.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/voltlab/distflow/pkg/buildinfo"
	"github.com/voltlab/distflow/pkg/cache"
	"github.com/voltlab/distflow/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "distflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config *Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
		Config: DefaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          appName,
		Short:        "Distflow solves linearized three-phase distribution power flow",
		Long:         `Distflow converts OpenDSS circuit definitions into network models and evaluates per-bus voltage magnitudes with the LinDist3Flow linearization, for fast feeder studies on unbalanced radial networks.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./distflow.toml, then XDG config)")

	root.AddCommand(c.convertCommand())
	root.AddCommand(c.solveCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	back, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(back, c.Logger)
	if ttl, err := parseTTL(c.Config.Cache.ModelTTL); err != nil {
		return nil, fmt.Errorf("cache.model_ttl: %w", err)
	} else if ttl > 0 {
		runner.TTLModel = ttl
	}
	if ttl, err := parseTTL(c.Config.Cache.SolveTTL); err != nil {
		return nil, fmt.Errorf("cache.solve_ttl: %w", err)
	} else if ttl > 0 {
		runner.TTLSolve = ttl
	}
	return runner, nil
}

// parseTTL parses a config duration; empty means keep the default.
func parseTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory: the configured one if set,
// otherwise the XDG standard (~/.cache/distflow/).
func (c *CLI) cacheDir() (string, error) {
	if c.Config != nil && c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// pipelineOptions assembles pipeline options from the config plus the
// per-command input flags.
func (c *CLI) pipelineOptions(circuit, model string, refresh bool) pipeline.Options {
	return pipeline.Options{
		Circuit:     circuit,
		Model:       model,
		VBaseKVLL:   c.Config.Bases.VBaseKVLL,
		SBaseMVA:    c.Config.Bases.SBaseMVA,
		RootAliases: c.Config.RootAliases,
		Refresh:     refresh,
		Logger:      c.Logger,
	}
}
