package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/kanban/internal/printer"
)

func newColumnCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Add, rename, delete or move columns",
		Long: `Manage the board's columns.

A column is referred to by its name (case-insensitive) or by an id prefix of
at least 6 characters, as shown by 'kanban board'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a column at the end of the board",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer s.Close()

				id, err := s.coord.AddColumn(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return s.actionError("add column", err)
				}
				if err := s.finish(); err != nil {
					return err
				}
				col, _ := s.coord.View().FindColumn(id)
				printer.Success("Column '%s' added at position %d\n", col.Name, col.Order)
				printer.Faint("  id: %s\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <column> <name>",
			Short: "Rename a column",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer s.Close()

				id, err := s.resolveColumn(args[0])
				if err != nil {
					return err
				}
				if err := s.coord.RenameColumn(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
					return s.actionError("rename column", err)
				}
				if err := s.finish(); err != nil {
					return err
				}
				col, _ := s.coord.View().FindColumn(id)
				printer.Success("Column renamed to '%s'\n", col.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:     "rm <column>",
			Aliases: []string{"delete"},
			Short:   "Delete a column and every card in it",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer s.Close()

				id, err := s.resolveColumn(args[0])
				if err != nil {
					return err
				}
				col, _ := s.coord.View().FindColumn(id)
				name, cards := col.Name, len(col.Cards)

				if err := s.coord.DeleteColumn(cmd.Context(), id); err != nil {
					return s.actionError("delete column", err)
				}
				if err := s.finish(); err != nil {
					return err
				}
				printer.Success("Column '%s' deleted with %s\n", name, plural(cards, "card"))
				return nil
			},
		},
		&cobra.Command{
			Use:   "mv <column> <position>",
			Short: "Move a column to a 0-based position",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				position, err := strconv.Atoi(args[1])
				if err != nil || position < 0 {
					return printer.Error("invalid position", "Position must be a non-negative integer, got "+args[1], nil)
				}

				s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer s.Close()

				id, err := s.resolveColumn(args[0])
				if err != nil {
					return err
				}
				if err := s.coord.MoveColumn(cmd.Context(), id, position); err != nil {
					return s.actionError("move column", err)
				}
				if err := s.finish(); err != nil {
					return err
				}
				col, _ := s.coord.View().FindColumn(id)
				printer.Success("Column '%s' moved to position %d\n", col.Name, col.Order)
				return nil
			},
		},
	)

	return cmd
}
