package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
)

// NewQueueCmd creates the queue maintenance command group.
func NewQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue maintenance operations",
	}

	cmd.AddCommand(newQueueCleanupCmd())
	cmd.AddCommand(newQueueClearCmd())

	return cmd
}

func newQueueCleanupCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old completed and cancelled items",
		Long: `Delete completed and cancelled items past the retention cutoff. Failed
items are kept so an operator can inspect and requeue them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()
			if app == nil {
				return fmt.Errorf("application not initialized")
			}

			retention := olderThan
			if retention <= 0 {
				retention = app.Config.Queue.CleanupAfter
			}

			removed, err := app.Container.Engine().CleanupCompleted(app.Ctx, retention)
			if err != nil {
				return err
			}
			app.Formatter.Success("Removed %d terminal items older than %s", removed, retention)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "retention cutoff (default from config, 168h)")

	return cmd
}

func newQueueClearCmd() *cobra.Command {
	var status string
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete queue items by status",
		Long: `Delete all items with the given status, or every item when no status is
given. This drops undelivered changes; it exists for test benches and
decommissioning, not routine use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()
			if app == nil {
				return fmt.Errorf("application not initialized")
			}

			if !confirmed {
				return fmt.Errorf("queue clear is destructive; re-run with --yes to confirm")
			}

			removed, err := app.Container.Engine().Clear(app.Ctx, domainSync.Status(status))
			if err != nil {
				return err
			}
			app.Formatter.Success("Removed %d items", removed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "only items with this status (pending, failed, ...)")
	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "confirm the deletion")

	return cmd
}
