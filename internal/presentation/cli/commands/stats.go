package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domainSync "github.com/jbctechsolutions/medsync/internal/domain/sync"
	"github.com/jbctechsolutions/medsync/internal/presentation/cli/output"
)

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func runStats() error {
	app := GetAppContext()
	if app == nil {
		return fmt.Errorf("application not initialized")
	}

	stats, err := app.Container.Engine().QueueStats(app.Ctx)
	if err != nil {
		return err
	}

	f := app.Formatter
	if f.Format() == output.FormatJSON {
		return f.JSON(stats)
	}

	f.Header("Queue Statistics")
	f.Item("Total Items", fmt.Sprintf("%d", stats.TotalItems))
	if stats.OldestPending != nil {
		f.Item("Oldest Pending", fmt.Sprintf("%s (%.1fh ago)",
			stats.OldestPending.Format(time.RFC3339),
			time.Since(*stats.OldestPending).Hours()))
	}

	statuses := []domainSync.Status{
		domainSync.StatusPending,
		domainSync.StatusProcessing,
		domainSync.StatusCompleted,
		domainSync.StatusFailed,
		domainSync.StatusCancelled,
	}
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		if count := stats.StatusCounts[status]; count > 0 {
			rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
		}
	}
	if len(rows) > 0 {
		f.Println("")
		f.Table(output.TableData{
			Columns: []output.TableColumn{
				{Header: "STATUS", Width: 12},
				{Header: "COUNT", Width: 6, Align: output.AlignRight},
			},
			Rows: rows,
		})
	}

	if len(stats.TypeCounts) > 0 {
		typeRows := make([][]string, 0, len(stats.TypeCounts))
		for _, itemType := range []domainSync.ItemType{
			domainSync.ItemReport,
			domainSync.ItemTemplate,
			domainSync.ItemLayout,
			domainSync.ItemVoiceSession,
		} {
			if count := stats.TypeCounts[itemType]; count > 0 {
				typeRows = append(typeRows, []string{string(itemType), fmt.Sprintf("%d", count)})
			}
		}
		f.Println("")
		f.Println("%s", f.Dim("Active items by type"))
		f.Table(output.TableData{
			Columns: []output.TableColumn{
				{Header: "TYPE", Width: 14},
				{Header: "COUNT", Width: 6, Align: output.AlignRight},
			},
			Rows: typeRows,
		})
	}

	return nil
}
