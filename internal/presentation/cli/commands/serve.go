package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync engine",
		Long: `Start the delivery workers and the resilience snapshot loop, then run
until interrupted. Queued items are delivered as connectivity allows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	app := GetAppContext()
	if app == nil {
		return fmt.Errorf("application not initialized")
	}

	app.Container.Start(app.Ctx)
	app.Formatter.Info("Sync engine running with %d workers, press Ctrl-C to stop",
		app.Config.Queue.Workers)

	<-app.Ctx.Done()
	return nil
}
