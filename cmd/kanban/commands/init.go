package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/internal/scaffold"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var (
		force    bool
		initOpts scaffold.Options
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a kanban.yml with default settings",
		Long: `Write a commented kanban.yml to the --config path (default ./kanban.yml).

Use --force to overwrite an existing file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := scaffold.Initialize(opts.configPath, initOpts, force); err != nil {
				return printer.Error(
					"initialization failed",
					err.Error(),
					[]string{fmt.Sprintf("Overwrite it:\n  kanban init --force --config %s", opts.configPath)},
				)
			}

			printer.Success("Created %s\n", opts.configPath)
			printer.Info("\nNext steps:\n")
			printer.Info("  1. Start Redis, or point backend.redis_url at one\n")
			printer.Info("  2. Run 'kanban board' to create and show the board\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().StringVar(&initOpts.Instance, "instance", "", "Instance name (Redis key namespace)")
	cmd.Flags().StringVar(&initOpts.BoardName, "board-name", "", "Name for the board when it is first created")
	cmd.Flags().StringVar(&initOpts.Mode, "mode", "", "Backend mode: redis or http")
	cmd.Flags().StringVar(&initOpts.RedisURL, "redis-url", "", "Redis URL for redis mode")
	cmd.Flags().StringVar(&initOpts.APIURL, "api-url", "", "kanband URL for http mode")
	cmd.Flags().StringSliceVar(&initOpts.Columns, "columns", nil, "Columns seeded when the board is created")
	return cmd
}
