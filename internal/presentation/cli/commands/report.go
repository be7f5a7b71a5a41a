package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/medsync/internal/presentation/cli/output"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the operational readiness report",
		Long: `Summarize offline behavior, sync outcomes and storage runway over the
trailing window. A node is battle ready when uptime and sync success both
stay at 99% or above.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(window)
		},
	}

	cmd.Flags().DurationVarP(&window, "window", "w", 0, "reporting window (default from config, 24h)")

	return cmd
}

func runReport(window time.Duration) error {
	app := GetAppContext()
	if app == nil {
		return fmt.Errorf("application not initialized")
	}

	report, err := app.Container.Tracker().ResilienceReport(app.Ctx, window)
	if err != nil {
		return err
	}

	f := app.Formatter
	if f.Format() == output.FormatJSON {
		return f.JSON(report)
	}

	f.Header(fmt.Sprintf("Resilience Report (last %.0fh)", report.PeriodHours))

	f.Println("%s", f.Dim("Connectivity"))
	f.Item("Uptime", fmt.Sprintf("%.1f%%", report.Statistics.UptimePercent))
	f.Item("Offline Periods", fmt.Sprintf("%d", report.Statistics.PeriodCount))
	f.Item("Total Offline", fmt.Sprintf("%.1fh", report.Statistics.TotalOfflineHours))
	f.Item("Longest Offline", fmt.Sprintf("%.1fh", report.Statistics.LongestOfflineHours))
	if report.Statistics.CurrentlyOffline {
		f.Warning("Currently offline: %s", report.Statistics.CurrentOfflineReason)
	}

	f.Println("")
	f.Println("%s", f.Dim("Deliveries"))
	f.Item("Sync Attempts", fmt.Sprintf("%d", report.SyncAttempts))
	f.Item("Success Rate", fmt.Sprintf("%.1f%%", report.SyncSuccessRate))
	f.Item("Avg Duration", fmt.Sprintf("%.2fs", report.AvgSyncDurationS))
	if report.LastSuccessfulSync != nil {
		f.Item("Last Success", report.LastSuccessfulSync.Format(time.RFC3339))
	}
	f.Item("Synced After Outages", fmt.Sprintf("%d", report.Statistics.TotalSyncedWhenBack))

	f.Println("")
	if report.BattleReady {
		f.Success("Battle ready")
	} else {
		f.Warning("Not battle ready")
	}
	return nil
}
