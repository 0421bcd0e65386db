package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/kanban/internal/config"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/internal/watch"
	"github.com/dyluth/kanban/pkg/board"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		output     string
		entityType string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream board changes as they happen",
		Long: `Stream every change made to the board, by any client, as it happens.

Output Formats:
  default - Human-readable lines with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  kanban watch
  kanban watch --type card
  kanban watch --output=json > events.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var format watch.OutputFormat
			switch output {
			case "default":
				format = watch.OutputFormatDefault
			case "json":
				format = watch.OutputFormatJSON
			default:
				return printer.Error(
					"invalid output format",
					fmt.Sprintf("Unknown format: %s", output),
					[]string{"Valid formats: default, json"},
				)
			}

			typ := board.EntityType(entityType)
			if typ != "" {
				if err := typ.Validate(); err != nil {
					return printer.Error("invalid entity type", err.Error(), []string{"Valid types: board, column, card"})
				}
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Backend.Mode != config.ModeRedis {
				return printer.Error(
					"watch needs a Redis backend",
					"Board changes are published on Redis; the configured backend is "+cfg.Backend.Mode+".",
					[]string{"Set backend.mode: redis and backend.redis_url in kanban.yml"},
				)
			}

			client, err := connectRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if format == watch.OutputFormatDefault {
				printer.Info("Watching instance '%s' (Ctrl+C to stop)\n", cfg.Instance)
			}
			return watch.Stream(cmd.Context(), client, watch.Options{
				Format:     format,
				EntityType: typ,
				Limit:      limit,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format (default or json)")
	cmd.Flags().StringVarP(&entityType, "type", "t", "", "Only show events for this entity type (board, column or card)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Stop after this many events (0 = until interrupted)")
	return cmd
}
