package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyluth/kanban/internal/filter"
	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/internal/render"
	"github.com/dyluth/kanban/internal/timespec"
)

func newBoardCmd(opts *rootOptions) *cobra.Command {
	var output, since, until, title string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show the board",
		Long: `Show the board's columns and cards in display order.

Output Formats:
  default - Table per column
  json    - The whole board as indented JSON
  jsonl   - One card per line, for jq

Examples:
  kanban board
  kanban board -o jsonl | jq .title
  kanban board --since 2h --title "*login*"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(output)
			if err != nil {
				return printer.Error("invalid output format", err.Error(), []string{"Valid formats: default, json, jsonl"})
			}
			window, err := timespec.ParseRange(since, until, time.Now())
			if err != nil {
				return printer.Error("invalid time range", err.Error(), []string{"Use a duration like '1h30m', a date like '2025-10-29' or RFC3339"})
			}
			criteria := &filter.Criteria{SinceMs: window.SinceMs, UntilMs: window.UntilMs, TitleGlob: title}

			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			return render.Write(cmd.OutOrStdout(), criteria.Apply(s.coord.View()), format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format (default, json or jsonl)")
	cmd.Flags().StringVar(&since, "since", "", "Only cards changed at or after this time (duration ago, date or RFC3339)")
	cmd.Flags().StringVar(&until, "until", "", "Only cards changed at or before this time")
	cmd.Flags().StringVar(&title, "title", "", "Only cards whose title matches this glob (case-insensitive)")

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <name>",
		Short: "Rename the board",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			name := strings.Join(args, " ")
			if err := s.coord.RenameBoard(cmd.Context(), name); err != nil {
				return s.actionError("rename board", err)
			}
			if err := s.finish(); err != nil {
				return err
			}
			printer.Success("Board renamed to '%s'\n", s.coord.View().Name)
			return nil
		},
	})

	return cmd
}

func newFixOrdersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-orders",
		Short: "Renumber every column's cards to 0..n-1",
		Long: `Repair card order values on the server. Cards keep their relative
position (by order, then creation time); gaps and duplicates are removed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			changed, err := s.coord.FixOrders(cmd.Context())
			if err != nil {
				return s.actionError("fix card orders", err)
			}
			if err := s.finish(); err != nil {
				return err
			}
			if changed == 0 {
				printer.Info("Card orders already consistent\n")
				return nil
			}
			printer.Success("%s renumbered\n", plural(changed, "card"))
			return nil
		},
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
