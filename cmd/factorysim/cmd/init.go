package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meow-stack/factory-sim/internal/agent"
	"github.com/meow-stack/factory-sim/internal/cli"
	"github.com/meow-stack/factory-sim/internal/config"
	"github.com/meow-stack/factory-sim/internal/orchestrator"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Reset and seed the stores",
	Long: `Drop every table in the four stores and seed a new company: customers,
employees, bills of materials and opening stock. The agent action log is
cleared as well.

This is what 'factorysim run' does before day 1 unless --no-init is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	initYes  bool
	initSeed uint64
)

func init() {
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "do not ask for confirmation")
	initCmd.Flags().Uint64Var(&initSeed, "seed", 0, "random seed (default: simulation.seed from config)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed = initSeed
	}

	if !initYes {
		ok, err := cli.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "This deletes all simulation data. Continue?", false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	// Seeding under a live run would corrupt it.
	lock := orchestrator.NewRunLock(filepath.Join(dir, config.ProjectDir))
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	logger, closer, err := newLogger(cfg, dir)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	set, err := openStores(ctx, cfg, dir)
	if err != nil {
		return err
	}
	defer set.Close()

	seedValue := simSeed(cfg)
	if err := newSeeder(set, cfg, seedValue, logger).Initialize(ctx); err != nil {
		return err
	}
	if err := agent.NewStore(cfg.DataDir(dir)).Reset(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stores initialized in %s (seed %d)\n", cfg.DataDir(dir), seedValue)
	return nil
}
