package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meow-stack/factory-sim/internal/agentsync"
	"github.com/meow-stack/factory-sim/internal/cli"
	"github.com/meow-stack/factory-sim/internal/config"
	simerrors "github.com/meow-stack/factory-sim/internal/errors"
	"github.com/meow-stack/factory-sim/internal/ipc"
	"github.com/meow-stack/factory-sim/internal/logging"
	"github.com/meow-stack/factory-sim/internal/metrics"
	"github.com/meow-stack/factory-sim/internal/operations"
	"github.com/meow-stack/factory-sim/internal/orchestrator"
	"github.com/meow-stack/factory-sim/internal/status"
	"github.com/meow-stack/factory-sim/internal/stores"
	"github.com/meow-stack/factory-sim/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run <days> [start-date]",
	Short: "Simulate a number of days",
	Long: `Simulate <days> consecutive days starting at start-date (YYYY-MM-DD,
default today).

The stores are reset and seeded first unless --no-init is given. Operations
named with --disable are never invoked; when due they are listed as pending
in the published snapshot for an agent to perform.

With --step the run pauses after every day. Press Enter to continue, 'q' to
quit or 's' for a business summary; agents may answer the same pause with
'factorysim continue' or 'factorysim quit'.`,
	Example: `  factorysim run 30                          # 30 days from today
  factorysim run 30 2026-02-01               # 30 days starting Feb 1
  factorysim run 7 --step                    # step through 7 days
  factorysim run 14 2026-03-02 --disable restock,payroll`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

var (
	runNoInit  bool
	runStep    bool
	runDisable []string
	runSeed    uint64
)

func init() {
	runCmd.Flags().BoolVar(&runNoInit, "no-init", false, "keep the existing stores instead of reseeding them")
	runCmd.Flags().BoolVar(&runStep, "step", false, "pause after each day for a control signal")
	runCmd.Flags().StringArrayVar(&runDisable, "disable", nil, "operations to leave to agents (comma separated or repeated)")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "random seed (default: simulation.seed from config)")
	rootCmd.AddCommand(runCmd)
}

// parseRunArgs validates the day count and start date.
func parseRunArgs(args []string, now time.Time) (int, time.Time, error) {
	days, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid day count %q", args[0])
	}
	if days <= 0 {
		return 0, time.Time{}, fmt.Errorf("number of days must be positive, got %d", days)
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if len(args) > 1 {
		start, err = time.Parse(types.DateLayout, args[1])
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("invalid date format %q (use YYYY-MM-DD)", args[1])
		}
	}
	return days, start, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	days, start, err := parseRunArgs(args, timeNow())
	if err != nil {
		return err
	}
	disabled, err := types.ParseOperations(runDisable)
	if err != nil {
		return simerrors.ConfigInvalidValue("disable", strings.Join(runDisable, ","), err.Error())
	}

	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed = runSeed
	}
	seedValue := simSeed(cfg)

	mode := types.RunModeBatch
	if runStep {
		mode = types.RunModeStep
	}
	runCfg := orchestrator.Config{
		Start:    start,
		Days:     days,
		Fresh:    !runNoInit,
		Disabled: disabled,
		Mode:     mode,
	}
	if err := runCfg.Validate(); err != nil {
		return err
	}

	lock := orchestrator.NewRunLock(filepath.Join(dir, config.ProjectDir))
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	runID := uuid.NewString()
	logger, logCloser, err := logging.NewForRun(cfg, dir, runID)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer closeQuietly(logCloser)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	set, err := openStores(ctx, cfg, dir)
	if err != nil {
		return err
	}
	defer set.Close()

	o := orchestrator.New(operations.FromSet(set), operations.Builtin(newEnv(cfg, seedValue, logger)), logger)
	o.SetRunIDFunc(func() string { return runID })
	o.SetInitializer(newSeeder(set, cfg, seedValue, logger))

	channel := agentsync.New(logger, &agentsync.FileSink{
		Path:   cfg.StateFile(dir),
		Format: string(cfg.Sync.Format),
	})
	o.SetPublisher(channel)
	o.SetControl(channel)

	tracer, err := orchestrator.NewTracer(cfg.LogsDir(dir), runID)
	if err != nil {
		return fmt.Errorf("creating tracer: %w", err)
	}
	defer tracer.Close()
	o.SetTracer(tracer)

	var prom *metrics.Prometheus
	if cfg.Metrics.Listen != "" {
		prom = metrics.NewPrometheus()
		o.SetMetrics(prom)
	}

	out := cmd.OutOrStdout()
	opts := status.FormatOptions{NoColor: noColor}
	printBanner(out, runCfg)

	var summary *orchestrator.Summary
	var g errgroup.Group
	// Services live until the orchestrator returns. Only a signal stops the
	// run itself; a failing service is reported as a warning.
	svcCtx, stopServices := context.WithCancel(ctx)
	defer stopServices()
	service := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				o.ReportWarning(simerrors.SyncControl(fmt.Errorf("%s: %w", name, err)))
			}
			return nil
		})
	}

	g.Go(func() error {
		defer stopServices()
		var runErr error
		summary, runErr = o.Run(ctx, runCfg)
		return runErr
	})

	if cfg.Sync.IPC {
		server := ipc.NewServer(cfg.SocketPath(dir), &agentsync.IPCHandler{Channel: channel}, logger)
		service("ipc server", func() error { return server.Start(svcCtx) })
	}

	if prom != nil {
		service("metrics server", func() error {
			return serveMetrics(svcCtx, cfg.Metrics.Listen, prom.Handler(), logger)
		})
	}

	if mode == types.RunModeStep {
		console := &cli.Console{
			In:      cmd.InOrStdin(),
			Out:     out,
			Control: channel,
			Summary: func(ctx context.Context) (string, error) {
				return businessSummary(ctx, set, opts)
			},
			Logger:    logger,
			QuitOnEOF: !cfg.Sync.IPC,
		}
		service("console", func() error { return console.Run(svcCtx) })
	}

	runErr := g.Wait()

	if summary != nil {
		fmt.Fprintln(out)
		fmt.Fprint(out, status.FormatRunSummary(status.NewRunSummary(summary), opts))
		if summary.Status == types.RunStatusInterrupted {
			fmt.Fprintln(out, "\nSimulation stopped before the last day.")
		}
		// The run context may already be cancelled by a signal.
		if text, err := businessSummary(context.Background(), set, opts); err != nil {
			fmt.Fprintf(out, "\nCould not generate summary: %v\n", err)
		} else {
			fmt.Fprint(out, "\n"+text)
		}
	}
	return runErr
}

func printBanner(w io.Writer, rc orchestrator.Config) {
	end := rc.Start.AddDate(0, 0, rc.Days-1)
	line := strings.Repeat("=", 70)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "MANUFACTURING COMPANY SIMULATION")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Start date:     %s\n", rc.Start.Format("2006-01-02 (Monday)"))
	fmt.Fprintf(w, "Duration:       %d days\n", rc.Days)
	fmt.Fprintf(w, "End date:       %s\n", end.Format("2006-01-02 (Monday)"))
	if rc.Fresh {
		fmt.Fprintln(w, "Initialize DB:  Yes (fresh start)")
	} else {
		fmt.Fprintln(w, "Initialize DB:  No (using existing)")
	}
	if rc.Mode == types.RunModeStep {
		fmt.Fprintln(w, "Step mode:      Yes (interactive)")
	} else {
		fmt.Fprintln(w, "Step mode:      No (continuous)")
	}
	if len(rc.Disabled) > 0 {
		fmt.Fprintf(w, "Agent handled:  %s\n", strings.Join(types.OperationNames(rc.Disabled), ", "))
	}
	fmt.Fprintln(w, line)
}

func businessSummary(ctx context.Context, set *stores.Set, opts status.FormatOptions) (string, error) {
	bs, err := status.Collect(ctx, status.FromSet(set))
	if err != nil {
		return "", err
	}
	return status.FormatBusiness(bs, opts), nil
}

// serveMetrics serves handler on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	logger.Info("metrics server started", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
