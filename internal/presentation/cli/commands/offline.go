package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewOfflineCmd creates the offline command group.
func NewOfflineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "offline",
		Short: "Manage offline period tracking",
		Long: `Mark the start and end of connectivity outages. The tracker uses these
periods to compute uptime, storage growth and the readiness report.`,
	}

	cmd.AddCommand(newOfflineStartCmd())
	cmd.AddCommand(newOfflineEndCmd())

	return cmd
}

func newOfflineStartCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open an offline period",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()
			if app == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := app.Container.Tracker().StartOfflinePeriod(app.Ctx, reason); err != nil {
				return err
			}
			app.Formatter.Info("Offline period opened: %s", reason)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "manual", "why connectivity was lost")

	return cmd
}

func newOfflineEndCmd() *cobra.Command {
	var synced int

	cmd := &cobra.Command{
		Use:   "end",
		Short: "Close the open offline period",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()
			if app == nil {
				return fmt.Errorf("application not initialized")
			}

			if err := app.Container.Tracker().EndOfflinePeriod(app.Ctx, synced); err != nil {
				return err
			}
			app.Formatter.Success("Offline period closed, %d items synced on reconnect", synced)
			return nil
		},
	}

	cmd.Flags().IntVarP(&synced, "synced", "s", 0, "items delivered once connectivity returned")

	return cmd
}
