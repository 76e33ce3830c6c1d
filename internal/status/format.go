package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/meow-stack/factory-sim/internal/types"
)

// FormatOptions controls output formatting.
type FormatOptions struct {
	NoColor bool
	Quiet   bool
}

// FormatSnapshot formats a published snapshot the way `status` shows it.
func FormatSnapshot(snap types.Snapshot, opts FormatOptions) string {
	var b strings.Builder

	sim := snap.Simulation
	statusIcon := getStatusIcon(sim.Status)
	statusColor := getStatusColor(sim.Status, opts.NoColor)

	if sim.RunID != "" {
		b.WriteString(fmt.Sprintf("Run:      %s\n", sim.RunID))
	}
	b.WriteString(fmt.Sprintf("Status:   %s%s %s%s\n",
		statusColor, statusIcon, sim.Status, resetColor(opts.NoColor)))
	if sim.Status == types.RunStatusNotStarted {
		return b.String()
	}
	if sim.Mode != "" {
		b.WriteString(fmt.Sprintf("Mode:     %s\n", sim.Mode))
	}
	if sim.DateTime != "" {
		b.WriteString(fmt.Sprintf("Date:     %s\n", sim.DateTime))
	}
	b.WriteString(formatProgress(sim.Day, sim.Total, sim.Progress))

	if !opts.Quiet {
		b.WriteString(fmt.Sprintf("\nDisabled: %s", formatOps(snap.Operations.Disabled)))
		b.WriteString(fmt.Sprintf("\nPending:  %s", formatOps(snap.Operations.Pending)))
		if !snap.Metadata.LastUpdate.IsZero() {
			b.WriteString(fmt.Sprintf("\nUpdated:  %s (seq %d)",
				formatTime(snap.Metadata.LastUpdate.Local()), snap.Metadata.Sequence))
		}
	}

	if snap.Error != nil {
		b.WriteString("\n\n")
		b.WriteString(formatFailure(snap.Error, opts))
	}
	b.WriteString("\n")
	return b.String()
}

// FormatRunSummary formats the outcome of a run.
func FormatRunSummary(rs *RunSummary, opts FormatOptions) string {
	var b strings.Builder

	statusColor := getStatusColor(rs.Status, opts.NoColor)
	reset := resetColor(opts.NoColor)

	b.WriteString(fmt.Sprintf("Run:      %s\n", rs.RunID))
	b.WriteString(fmt.Sprintf("Status:   %s%s %s%s\n", statusColor, getStatusIcon(rs.Status), rs.Status, reset))
	if rs.Mode != "" {
		b.WriteString(fmt.Sprintf("Mode:     %s\n", rs.Mode))
	}
	if rs.Date != "" {
		b.WriteString(fmt.Sprintf("Date:     %s\n", rs.Date))
	}
	b.WriteString(fmt.Sprintf("Days:     %d/%d\n", rs.Day, rs.TotalDays))

	if len(rs.Operations) > 0 && !opts.Quiet {
		b.WriteString("\nOperations:\n")
		for _, s := range rs.Operations {
			line := fmt.Sprintf("  %-10s %3d runs", s.Operation, s.Runs)
			if s.Affected > 0 {
				line += fmt.Sprintf(" | %6d affected", s.Affected)
			}
			if s.Amount != 0 {
				line += fmt.Sprintf(" | %s", formatMoney(s.Amount))
			}
			if s.Deferred > 0 {
				line += fmt.Sprintf(" | %s%d deferred%s", getColor("gray", opts.NoColor), s.Deferred, reset)
			}
			b.WriteString(line + "\n")
		}
	}

	if rs.SyncWarnings > 0 {
		b.WriteString(fmt.Sprintf("\n%s%d agent synchronization warning(s)%s\n",
			getColor("yellow", opts.NoColor), rs.SyncWarnings, reset))
	}
	if rs.Failure != nil {
		b.WriteString("\n")
		b.WriteString(formatFailure(rs.Failure, opts))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatBusiness formats the business summary: orders, financials and stock.
func FormatBusiness(s *BusinessSummary, opts FormatOptions) string {
	var b strings.Builder
	rule := strings.Repeat("-", 60) + "\n"

	b.WriteString("ORDER SUMMARY:\n")
	b.WriteString(rule)
	for _, t := range s.Orders {
		b.WriteString(fmt.Sprintf("  %-22s %5d orders | %s\n", t.Status, t.Count, formatMoney(t.Value)))
	}
	b.WriteString(fmt.Sprintf("  %-22s %5d orders | %s\n", "TOTAL", s.TotalOrders, formatMoney(s.TotalValue)))

	f := s.Financials
	b.WriteString("\nFINANCIAL SUMMARY:\n")
	b.WriteString(rule)
	b.WriteString(fmt.Sprintf("  %-22s %5d payments | %s\n", "Revenue (shipped)", f.Revenue.Count, formatMoney(f.Revenue.Sum)))
	b.WriteString(fmt.Sprintf("  %-22s %5d txns     | %s\n", "COGS (inventory used)", f.COGS.Count, formatMoney(f.COGS.Sum)))
	b.WriteString(fmt.Sprintf("  %-37s | %s\n", "Gross profit", formatSigned(f.GrossProfit, opts)))
	b.WriteString(fmt.Sprintf("  %-22s %5d payments | %s\n", "Payroll", f.Payroll.Count, formatMoney(f.Payroll.Sum)))
	b.WriteString(fmt.Sprintf("  %-22s %5d orders   | %s\n", "Inventory purchases", f.Purchases.Count, formatMoney(f.Purchases.Sum)))
	b.WriteString(fmt.Sprintf("  %-37s | %s\n", "Net profit/loss", formatSigned(f.NetProfit, opts)))

	if !opts.Quiet {
		b.WriteString("\nCASH FLOW:\n")
		b.WriteString(fmt.Sprintf("  %-37s | %s\n", "Cash in", formatMoney(f.CashIn)))
		b.WriteString(fmt.Sprintf("  %-37s | %s\n", "Cash out", formatMoney(f.CashOut)))
		b.WriteString(fmt.Sprintf("  %-37s | %s\n", "Net cash flow", formatSigned(f.NetCash, opts)))
	}

	inv := s.Inventory
	b.WriteString("\nINVENTORY STATUS:\n")
	b.WriteString(rule)
	if inv.Parts == 0 {
		b.WriteString("  No inventory on record\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("  %-22s %8s units\n", "Parts tracked", humanize.Comma(int64(inv.Parts))))
	b.WriteString(fmt.Sprintf("  %-22s %8s units\n", "Minimum stock level", humanize.Comma(int64(inv.Min))))
	b.WriteString(fmt.Sprintf("  %-22s %8s units\n", "Maximum stock level", humanize.Comma(int64(inv.Max))))
	b.WriteString(fmt.Sprintf("  %-22s %8s units\n", "Average stock level", humanize.Comma(int64(inv.Avg+0.5))))
	return b.String()
}

func formatProgress(day, total int, pct float64) string {
	// Progress bar (25 characters wide)
	barWidth := 25
	filled := int(pct) * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	progressBar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return fmt.Sprintf("Progress: %s %.1f%% (day %d/%d)", progressBar, pct, day, total)
}

func formatFailure(f *types.Failure, opts FormatOptions) string {
	errColor := getColor("red", opts.NoColor)
	reset := resetColor(opts.NoColor)

	where := fmt.Sprintf("day %d", f.Day)
	if f.Operation != "" {
		where = fmt.Sprintf("%s on day %d", f.Operation, f.Day)
	}
	return fmt.Sprintf("%sError:%s %s✗%s %s: %s", errColor, reset, errColor, reset, where, f.Message)
}

func formatOps(ops []types.Operation) string {
	if len(ops) == 0 {
		return "none"
	}
	return strings.Join(types.OperationNames(ops), ", ")
}

// Formatting helpers

func getStatusIcon(status types.RunStatus) string {
	switch status {
	case types.RunStatusRunning:
		return "●"
	case types.RunStatusDayComplete:
		return "◐"
	case types.RunStatusFinished:
		return "✓"
	case types.RunStatusError:
		return "✗"
	case types.RunStatusInterrupted:
		return "■"
	case types.RunStatusInitializing, types.RunStatusNotStarted:
		return "○"
	default:
		return "?"
	}
}

func getStatusColor(status types.RunStatus, noColor bool) string {
	if noColor {
		return ""
	}

	switch status {
	case types.RunStatusRunning:
		return "\033[33m" // Yellow
	case types.RunStatusDayComplete:
		return "\033[36m" // Cyan
	case types.RunStatusFinished:
		return "\033[32m" // Green
	case types.RunStatusError:
		return "\033[31m" // Red
	case types.RunStatusInterrupted, types.RunStatusInitializing, types.RunStatusNotStarted:
		return "\033[90m" // Gray
	default:
		return ""
	}
}

func getColor(name string, noColor bool) string {
	if noColor {
		return ""
	}

	switch name {
	case "red":
		return "\033[31m"
	case "green":
		return "\033[32m"
	case "yellow":
		return "\033[33m"
	case "cyan":
		return "\033[36m"
	case "gray":
		return "\033[90m"
	default:
		return ""
	}
}

func resetColor(noColor bool) string {
	if noColor {
		return ""
	}
	return "\033[0m"
}

func formatTime(t time.Time) string {
	return t.Format(types.DateTimeLayout)
}

func formatMoney(v float64) string {
	return fmt.Sprintf("$%14s", humanize.FormatFloat("#,###.##", v))
}

// formatSigned colors losses red and gains green.
func formatSigned(v float64, opts FormatOptions) string {
	color := "green"
	if v < 0 {
		color = "red"
	}
	return getColor(color, opts.NoColor) + formatMoney(v) + resetColor(opts.NoColor)
}
