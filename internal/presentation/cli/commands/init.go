package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/medsync/internal/infrastructure/config"
	"github.com/jbctechsolutions/medsync/internal/presentation/cli/output"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long:  `Create ~/.medsync/config.yaml with default settings so individual values can be adjusted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")

	return cmd
}

func runInit(force bool) error {
	formatter := output.NewFormatter()

	loader, err := config.NewLoader("")
	if err != nil {
		return fmt.Errorf("failed to create config loader: %w", err)
	}

	path := loader.DefaultConfigPath()
	if globalFlags.ConfigFile != "" {
		path = globalFlags.ConfigFile
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", path)
	}

	if err := loader.Save(config.NewDefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	formatter.Success("Configuration written to %s", path)
	return nil
}
