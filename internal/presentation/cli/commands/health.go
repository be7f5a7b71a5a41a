package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	domainResilience "github.com/jbctechsolutions/medsync/internal/domain/resilience"
	"github.com/jbctechsolutions/medsync/internal/presentation/cli/output"
)

// NewHealthCmd creates the health command.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue storage sustainability",
		Long: `Project how long local storage can absorb the queue backlog at the
observed growth rate. The node should survive 30 days without connectivity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth()
		},
	}
}

func runHealth() error {
	app := GetAppContext()
	if app == nil {
		return fmt.Errorf("application not initialized")
	}

	health, err := app.Container.Tracker().CheckQueueHealth(app.Ctx)
	if err != nil {
		return err
	}

	f := app.Formatter
	if f.Format() == output.FormatJSON {
		return f.JSON(health)
	}

	f.Header("Queue Health")
	f.Item("Pending Items", fmt.Sprintf("%d", health.PendingItems))
	f.Item("Storage Used", fmt.Sprintf("%.1f MB", health.StorageUsedMB))
	f.Item("Storage Available", fmt.Sprintf("%.1f MB", health.StorageAvailableMB))
	f.Item("Growth Rate", fmt.Sprintf("%.2f MB/h", health.GrowthRateMBPerHour))

	runway := fmt.Sprintf("%.1f days", health.EstimatedDaysUntilFull)
	if health.EstimatedDaysUntilFull >= domainResilience.MaxRunwayDays {
		runway = "unbounded"
	}
	f.Item("Estimated Runway", runway)

	if health.CanSustain30Days {
		f.Success("Storage can sustain 30 days offline")
	} else {
		f.Warning("Storage cannot sustain 30 days offline")
	}
	return nil
}
