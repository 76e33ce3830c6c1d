package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meow-stack/factory-sim/internal/agentsync"
	"github.com/meow-stack/factory-sim/internal/config"
	"github.com/meow-stack/factory-sim/internal/ipc"
	"github.com/meow-stack/factory-sim/internal/status"
	"github.com/meow-stack/factory-sim/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current simulation snapshot",
	Long: `Show the last snapshot published by the simulation.

The running simulation is asked over its socket first; when none is reachable
the snapshot file it left behind is read instead.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var (
	statusJSON  bool
	statusQuiet bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
	statusCmd.Flags().BoolVarP(&statusQuiet, "quiet", "q", false, "minimal output")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snap, err := currentSnapshot(cfg, dir)
	if err != nil {
		return err
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	fmt.Fprint(cmd.OutOrStdout(), status.FormatSnapshot(snap, status.FormatOptions{NoColor: noColor, Quiet: statusQuiet}))
	return nil
}

// currentSnapshot prefers the live process and falls back to the state file.
func currentSnapshot(cfg *config.Config, dir string) (types.Snapshot, error) {
	if cfg.Sync.IPC {
		if snap, err := ipc.NewClient(cfg.SocketPath(dir)).GetSnapshot(); err == nil {
			return snap, nil
		}
	}
	return agentsync.ReadFile(cfg.StateFile(dir))
}
