package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meow-stack/factory-sim/internal/agent"
	"github.com/meow-stack/factory-sim/internal/ipc"
	"github.com/meow-stack/factory-sim/internal/operations"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the example agent against a live simulation",
	Long: `Follow a running simulation over its socket and perform the operations it
leaves pending, through the same handlers the orchestrator uses.

Start it next to 'factorysim run --disable ...'. With --drive it also sends
continue after each day of a step-mode run. The agent stops when the run
ends and prints the actions it took; the log is kept in the data directory.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

var (
	agentDrive   bool
	agentTimeout time.Duration
	agentAppend  bool
)

func init() {
	agentCmd.Flags().BoolVar(&agentDrive, "drive", false, "send continue after each day in step mode")
	agentCmd.Flags().DurationVar(&agentTimeout, "wait-timeout", agent.DefaultWaitTimeout, "longest single wait on the simulation")
	agentCmd.Flags().BoolVar(&agentAppend, "append", false, "keep the previous action log")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Sync.IPC {
		return fmt.Errorf("the agent requires sync.ipc to be enabled")
	}

	logger, closer, err := newLogger(cfg, dir)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	set, err := openStores(ctx, cfg, dir)
	if err != nil {
		return err
	}
	defer set.Close()

	store := agent.NewStore(cfg.DataDir(dir))
	if agentAppend {
		err = store.Load(ctx)
	} else {
		err = store.Reset(ctx)
	}
	if err != nil {
		return err
	}

	a := &agent.Agent{
		Source: ipc.NewClient(cfg.SocketPath(dir)),
		Executor: &agent.HandlerExecutor{
			// Offset from the orchestrator's stream.
			Env:    newEnv(cfg, simSeed(cfg)+2, logger.With("component", "agent")),
			Stores: operations.FromSet(set),
		},
		Store:       store,
		Drive:       agentDrive,
		WaitTimeout: agentTimeout,
		Out:         cmd.OutOrStdout(),
		Logger:      logger.With("component", "agent"),
	}

	report, err := a.Run(ctx)
	if report != nil {
		agent.PrintReport(cmd.OutOrStdout(), report)
	}
	return err
}
