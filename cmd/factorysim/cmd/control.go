package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meow-stack/factory-sim/internal/ipc"
	"github.com/meow-stack/factory-sim/internal/types"
)

var continueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Release a paused step-mode run",
	Long: `Send continue to a step-mode run paused at a day boundary.

Without --wait the signal is refused unless the run is paused right now, so
a stray continue can never skip a day. With --day it only releases the pause
after that day.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl(cmd, types.SignalContinue)
	},
}

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Stop a paused step-mode run",
	Long: `Send quit to a step-mode run paused at a day boundary. The run ends as
interrupted after the day it just completed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendControl(cmd, types.SignalQuit)
	},
}

var (
	controlWait    bool
	controlDay     int
	controlTimeout time.Duration
)

func init() {
	for _, c := range []*cobra.Command{continueCmd, quitCmd} {
		c.Flags().BoolVarP(&controlWait, "wait", "w", false, "wait for the next pause instead of failing")
		c.Flags().IntVar(&controlDay, "day", 0, "only signal the pause after this day")
		c.Flags().DurationVar(&controlTimeout, "timeout", 5*time.Minute, "how long --wait may block")
		rootCmd.AddCommand(c)
	}
}

func sendControl(cmd *cobra.Command, sig types.ControlSignal) error {
	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Sync.IPC {
		return fmt.Errorf("control requires sync.ipc to be enabled")
	}

	client := ipc.NewClient(cfg.SocketPath(dir))
	if err := client.Control(sig, controlDay, controlWait, controlTimeout); err != nil {
		return fmt.Errorf("sending %s: %w", sig, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %s\n", sig)
	return nil
}
