package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/types"
)

// Controller is the side of the synchronization channel the console drives.
type Controller interface {
	ReadSnapshot() types.Snapshot
	Awaiting() bool
	WaitAwaiting(ctx context.Context) error
	Changed() <-chan struct{}
	Signal(sig types.ControlSignal) error
}

// Console prompts at every step-mode pause and turns the typed answer into a
// control signal. IPC clients may answer the same pause; whoever signals
// first wins and the console simply moves on to the next pause.
type Console struct {
	In      io.Reader
	Out     io.Writer
	Control Controller

	// Summary renders the business summary for the "s" answer. Optional.
	Summary func(ctx context.Context) (string, error)
	Logger  *slog.Logger

	// QuitOnEOF answers the open pause with quit when stdin ends. Set it
	// when no IPC client can answer instead.
	QuitOnEOF bool
}

// Run serves pauses until ctx is done or stdin reaches EOF. EOF is not an
// error: control is left to IPC clients, or the run quits with QuitOnEOF.
func (c *Console) Run(ctx context.Context) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	lines := readLines(c.In)

	for {
		if err := c.Control.WaitAwaiting(ctx); err != nil {
			return nil
		}
		c.prompt()

		done, err := c.servePause(ctx, lines)
		if err != nil {
			return err
		}
		if done {
			if ctx.Err() == nil && !c.QuitOnEOF {
				logger.Info("console input closed; waiting for agent control")
			}
			return nil
		}
	}
}

// servePause reads answers until this pause is released. It reports done
// when stdin is exhausted or ctx ends.
func (c *Console) servePause(ctx context.Context, lines <-chan string) (bool, error) {
	for {
		changed := c.Control.Changed()
		if !c.Control.Awaiting() {
			fmt.Fprintln(c.Out, "\n(continued by agent)")
			return false, nil
		}

		select {
		case <-ctx.Done():
			return true, nil
		case <-changed:
			continue
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.Out)
				if c.QuitOnEOF {
					fmt.Fprintln(c.Out, "Input closed; quitting.")
					return true, c.signal(types.SignalQuit)
				}
				return true, nil
			}
			switch ParseInput(line) {
			case ActionContinue:
				return false, c.signal(types.SignalContinue)
			case ActionQuit:
				return false, c.signal(types.SignalQuit)
			case ActionSummary:
				c.printSummary(ctx)
			default:
				fmt.Fprintf(c.Out, "Unknown input %q.\n", line)
			}
			c.prompt()
		}
	}
}

func (c *Console) signal(sig types.ControlSignal) error {
	err := c.Control.Signal(sig)
	if simerrors.HasCode(err, simerrors.CodeSyncNotAwaiting) {
		// An agent answered first.
		return nil
	}
	return err
}

func (c *Console) prompt() {
	sim := c.Control.ReadSnapshot().Simulation
	fmt.Fprintf(c.Out, "\nDay %d/%d complete (%s). Press Enter to continue to next day (or 'q' to quit, 's' for summary): ",
		sim.Day, sim.Total, sim.Date)
}

func (c *Console) printSummary(ctx context.Context) {
	if c.Summary == nil {
		fmt.Fprintln(c.Out, "No summary available.")
		return
	}
	out, err := c.Summary(ctx)
	if err != nil {
		fmt.Fprintf(c.Out, "\nCould not generate summary: %v\n", err)
		return
	}
	fmt.Fprintf(c.Out, "\n%s", out)
}

// readLines scans r in the background. The channel closes at EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
