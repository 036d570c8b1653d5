package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/compliance-cli/internal/config"
	"github.com/sells-group/compliance-cli/internal/monitoring"
	"github.com/sells-group/compliance-cli/internal/store"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check recent analysis runs against alert thresholds",
	Long: `Collects run metrics over the lookback window, evaluates them against the
monitoring thresholds, and prints the snapshot and any triggered alerts.
With --send, triggered alerts are also posted to the configured webhook.
With --watch, the check repeats every check_interval_secs until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("monitor"); err != nil {
			return err
		}

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lookback, _ := cmd.Flags().GetInt("lookback")
		send, _ := cmd.Flags().GetBool("send")
		watch, _ := cmd.Flags().GetBool("watch")

		mcfg := monitorSettings(cfg.Monitoring, lookback, send)
		if send && mcfg.WebhookURL == "" {
			fmt.Fprintln(os.Stderr, "No webhook configured; alerts will not be sent.")
		}

		if watch {
			newChecker(st, mcfg).Run(ctx)
			return nil
		}
		return checkOnce(ctx, os.Stdout, st, mcfg)
	},
}

// monitorSettings applies the command flags to the configured thresholds.
// Without send the webhook is cleared so a check only evaluates.
func monitorSettings(base config.MonitoringConfig, lookbackHours int, send bool) config.MonitoringConfig {
	if lookbackHours > 0 {
		base.LookbackWindowHours = lookbackHours
	}
	if !send {
		base.WebhookURL = ""
	}
	return base
}

func newChecker(runs monitoring.RunLister, mcfg config.MonitoringConfig) *monitoring.Checker {
	return monitoring.NewChecker(monitoring.NewCollector(runs), monitoring.NewAlerter(mcfg), mcfg)
}

// checkOnce runs a single check and prints the snapshot and its alerts.
func checkOnce(ctx context.Context, out io.Writer, runs monitoring.RunLister, mcfg config.MonitoringConfig) error {
	snap, alerts, err := newChecker(runs, mcfg).Check(ctx)
	if err != nil {
		return eris.Wrap(err, "monitor")
	}
	formatSnapshot(out, snap, alerts)
	return nil
}

func formatSnapshot(out io.Writer, snap *monitoring.MetricsSnapshot, alerts []monitoring.Alert) {
	fmt.Fprintf(out, "Analysis health (last %dh)\n\n", snap.LookbackHours)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Runs:\t%d (%d complete, %d failed, %d pending)\n",
		snap.RunsTotal, snap.RunsComplete, snap.RunsFailed, snap.RunsPending)
	fmt.Fprintf(w, "Run failure rate:\t%.1f%%\n", snap.RunFailRate*100)
	fmt.Fprintf(w, "Chunks judged:\t%d of %d (%d failed, %.1f%%)\n",
		snap.ChunksAnalyzed, snap.ChunksTotal, snap.ChunksFailed, snap.ChunkFailRate*100)
	fmt.Fprintf(w, "Avg efficiency gain:\t%.1f%%\n", snap.AvgEfficiencyGain)
	fmt.Fprintf(w, "Findings:\t%d (%d high, %d contradictions)\n",
		snap.Findings, snap.HighFindings, snap.Contradictions)
	fmt.Fprintf(w, "Judge cost:\t$%.4f\n", snap.CostUSD)
	fmt.Fprintf(w, "Avg tokens/run:\t%d\n", snap.AvgTokens)
	w.Flush() //nolint:errcheck

	if len(alerts) == 0 {
		fmt.Fprintln(out, "\nNo alerts.")
		return
	}
	fmt.Fprintf(out, "\n%d alert(s):\n", len(alerts))
	for _, a := range alerts {
		fmt.Fprintf(out, "  [%s] %s: %s\n", a.Severity, a.Type, a.Message)
	}
}

func init() {
	monitorCmd.Flags().Int("lookback", 0, "lookback window in hours (default from config)")
	monitorCmd.Flags().Bool("send", false, "post triggered alerts to the configured webhook")
	monitorCmd.Flags().Bool("watch", false, "repeat the check on the configured interval until interrupted")
	rootCmd.AddCommand(monitorCmd)
}
