package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/meow-stack/factory-sim/internal/config"
	"github.com/meow-stack/factory-sim/internal/logging"
	"github.com/meow-stack/factory-sim/internal/operations"
	"github.com/meow-stack/factory-sim/internal/seed"
	"github.com/meow-stack/factory-sim/internal/stores"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	verbose bool
	workDir string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "factorysim",
	Short: "Day-by-day simulation of a small manufacturing company",
	Long: `factorysim runs a simulated widget factory one day at a time.

Each day it generates orders at 09:00, processes them and advances
manufacturing at 10:00, restocks parts every third day and pays employees
on Fridays. Any of the five operations can be disabled and left to an
external agent, which watches the published snapshot and performs the
pending work itself with 'factorysim exec' or 'factorysim agent'.

A run in --step mode pauses after every day until the console or an agent
sends continue.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "C", "", "working directory (default: current)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("factorysim {{.Version}}\n")
}

// getWorkDir returns the effective working directory.
func getWorkDir() (string, error) {
	if workDir != "" {
		return filepath.Abs(workDir)
	}
	return os.Getwd()
}

// loadConfig resolves the working directory and loads its validated config.
func loadConfig() (string, *config.Config, error) {
	dir, err := getWorkDir()
	if err != nil {
		return "", nil, fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return "", nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return "", nil, err
	}
	return dir, cfg, nil
}

// newLogger builds the command logger. The closer may be nil.
func newLogger(cfg *config.Config, dir string) (*slog.Logger, io.Closer, error) {
	logger, closer, err := logging.NewFromConfig(cfg, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, closer, nil
}

func closeQuietly(c io.Closer) {
	if c != nil {
		c.Close()
	}
}

// openStores opens the store set the config points at.
func openStores(ctx context.Context, cfg *config.Config, dir string) (*stores.Set, error) {
	set, err := stores.Open(ctx, stores.Config{
		Driver: stores.Dialect(cfg.Store.Driver),
		Dir:    cfg.DataDir(dir),
		DSN:    cfg.Store.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("opening stores: %w", err)
	}
	return set, nil
}

// simSeed returns the configured seed, or a time-based one when it is zero.
func simSeed(cfg *config.Config) uint64 {
	if cfg.Simulation.Seed != 0 {
		return cfg.Simulation.Seed
	}
	return uint64(timeNow().UnixNano())
}

// newEnv builds the handler environment from the simulation config.
func newEnv(cfg *config.Config, seedValue uint64, logger *slog.Logger) *operations.Env {
	s := cfg.Simulation
	return &operations.Env{
		Params: operations.Params{
			MaxOrdersPerDay:  s.MaxOrdersPerDay,
			MaxOrderQuantity: s.MaxOrderQuantity,
			TargetMargin:     s.TargetMargin,
			RestockThreshold: s.RestockThreshold,
			RestockTarget:    s.RestockTarget,
			StageMin:         hours(s.StageMinHours),
			StageMax:         hours(s.StageMaxHours),
		},
		// Offset from the seeding stream so a fresh run does not replay it.
		Rand:   seed.NewRand(seedValue + 1),
		Logger: logger,
	}
}

// newSeeder builds the fresh-run initializer.
func newSeeder(set *stores.Set, cfg *config.Config, seedValue uint64, logger *slog.Logger) *seed.Seeder {
	opts := seed.DefaultOptions()
	opts.Customers = cfg.Simulation.Customers
	opts.Employees = cfg.Simulation.Employees
	opts.StockWidgets = cfg.Simulation.RestockTarget
	return &seed.Seeder{Stores: set, Seed: seedValue, Options: opts, Logger: logger}
}

var timeNow = time.Now

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
