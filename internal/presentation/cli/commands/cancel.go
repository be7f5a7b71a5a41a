package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCancelCmd creates the cancel command.
func NewCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <item-id>",
		Short: "Cancel a queued sync item",
		Long: `Cancel a pending or in-flight sync item. An item that already reached
a terminal state (completed, failed or cancelled) is left alone and the
command reports that nothing changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := GetAppContext()
			if app == nil {
				return fmt.Errorf("application not initialized")
			}

			cancelled, err := app.Container.Engine().Cancel(app.Ctx, args[0])
			if err != nil {
				return err
			}

			if cancelled {
				app.Formatter.Success("Cancelled %s", args[0])
			} else {
				app.Formatter.Warning("Item %s already reached a terminal state; nothing cancelled", args[0])
			}
			return nil
		},
	}
}
