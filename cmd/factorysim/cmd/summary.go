package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meow-stack/factory-sim/internal/status"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show orders, financials and inventory",
	Long: `Show the business summary read from the stores: orders by status,
revenue, costs and profit from the ledger, and inventory levels.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

var (
	summaryJSON  bool
	summaryQuiet bool
)

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "output as JSON")
	summaryCmd.Flags().BoolVarP(&summaryQuiet, "quiet", "q", false, "omit the cash flow section")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dir, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	set, err := openStores(ctx, cfg, dir)
	if err != nil {
		return err
	}
	defer set.Close()

	bs, err := status.Collect(ctx, status.FromSet(set))
	if err != nil {
		return fmt.Errorf("collecting summary: %w", err)
	}

	if summaryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(bs)
	}
	fmt.Fprint(cmd.OutOrStdout(), status.FormatBusiness(bs, status.FormatOptions{NoColor: noColor, Quiet: summaryQuiet}))
	return nil
}
