package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
	"github.com/jbctechsolutions/medsync/internal/presentation/cli/output"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	var showLog bool

	cmd := &cobra.Command{
		Use:   "status <item-id>",
		Short: "Show the state of a sync item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(args[0], showLog)
		},
	}

	cmd.Flags().BoolVarP(&showLog, "log", "l", false, "include the item's audit trail")

	return cmd
}

func runStatus(itemID string, showLog bool) error {
	app := GetAppContext()
	if app == nil {
		return fmt.Errorf("application not initialized")
	}

	item, err := app.Container.Engine().ItemStatus(app.Ctx, itemID)
	if err != nil {
		return err
	}

	var events []*domainSync.Event
	if showLog {
		events, err = app.Container.Engine().ItemLog(app.Ctx, itemID)
		if err != nil {
			return err
		}
	}

	f := app.Formatter
	if f.Format() == output.FormatJSON {
		if showLog {
			return f.JSON(map[string]any{"item": item, "events": events})
		}
		return f.JSON(item)
	}

	f.Header("Sync Item " + item.ID)
	f.Item("Type", string(item.Type))
	f.Item("Action", item.Action)
	f.Item("Status", colorStatus(f, item.Status))
	f.Item("Priority", fmt.Sprintf("%d", item.Priority))
	f.Item("Created", item.CreatedAt.Format(time.RFC3339))
	f.Item("Scheduled", item.ScheduledAt.Format(time.RFC3339))
	if item.AttemptedAt != nil {
		f.Item("Last Attempt", item.AttemptedAt.Format(time.RFC3339))
	}
	if item.CompletedAt != nil {
		f.Item("Completed", item.CompletedAt.Format(time.RFC3339))
	}
	f.Item("Retries", fmt.Sprintf("%d/%s", item.RetryCount, formatMaxRetries(item.MaxRetries)))
	if item.LastError != "" {
		f.Item("Last Error", item.LastError)
	}
	if len(item.Dependencies) > 0 {
		f.Item("Depends On", fmt.Sprintf("%v", item.Dependencies))
	}

	if showLog && len(events) > 0 {
		f.Println("")
		f.Header("Audit Trail")
		for _, ev := range events {
			f.Println("  %s  %-16s %s",
				f.Dim(ev.Timestamp.Format(time.RFC3339)), ev.Type, ev.Message)
		}
	}

	return nil
}

func formatMaxRetries(maxRetries int) string {
	if maxRetries == domainSync.UnlimitedRetries {
		return "∞"
	}
	return fmt.Sprintf("%d", maxRetries)
}

func colorStatus(f *output.Formatter, status domainSync.Status) string {
	switch status {
	case domainSync.StatusCompleted:
		return f.Colorize(string(status), output.ColorGreen)
	case domainSync.StatusFailed:
		return f.Colorize(string(status), output.ColorRed)
	case domainSync.StatusProcessing:
		return f.Colorize(string(status), output.ColorCyan)
	case domainSync.StatusCancelled:
		return f.Colorize(string(status), output.ColorYellow)
	default:
		return string(status)
	}
}
