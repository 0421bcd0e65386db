package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyluth/kanban/internal/printer"
	"github.com/dyluth/kanban/internal/reorder"
	"github.com/dyluth/kanban/pkg/board"
)

func newCardCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Add, edit, delete or move cards",
		Long: `Manage cards.

A card is referred to by an id prefix of at least 6 characters; a column by
its name or an id prefix.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newCardAddCmd(opts),
		newCardEditCmd(opts),
		newCardRmCmd(opts),
		newCardMvCmd(opts),
	)
	return cmd
}

func newCardAddCmd(opts *rootOptions) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <column> <title>",
		Short: "Add a card at the end of a column",
		Example: `  kanban card add "To Do" "Write release notes"
  kanban card add todo "Fix login" -d "Users see a blank page"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			columnID, err := s.resolveColumn(args[0])
			if err != nil {
				return err
			}
			if _, err := s.coord.AddCard(cmd.Context(), columnID, args[1], description); err != nil {
				return s.actionError("add card", err)
			}
			if err := s.finish(); err != nil {
				return err
			}

			reportAddedCard(s.coord.View(), columnID, args[1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Card description")
	return cmd
}

func newCardEditCmd(opts *rootOptions) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit <card>",
		Short: "Change a card's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			titleSet := cmd.Flags().Changed("title")
			descSet := cmd.Flags().Changed("description")
			if !titleSet && !descSet {
				return printer.Error("nothing to change", "Pass --title and/or --description.", nil)
			}

			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.resolveCard(args[0])
			if err != nil {
				return err
			}
			_, card, _ := s.coord.View().FindCard(id)
			newTitle, newDesc := card.Title, card.Description
			if titleSet {
				newTitle = title
			}
			if descSet {
				newDesc = description
			}

			if err := s.coord.UpdateCard(cmd.Context(), id, newTitle, newDesc); err != nil {
				return s.actionError("edit card", err)
			}
			if err := s.finish(); err != nil {
				return err
			}
			printer.Success("Card '%s' saved\n", newTitle)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	return cmd
}

func newCardRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <card>",
		Aliases: []string{"delete"},
		Short:   "Delete a card",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			id, err := s.resolveCard(args[0])
			if err != nil {
				return err
			}
			_, card, _ := s.coord.View().FindCard(id)
			title := card.Title

			if err := s.coord.DeleteCard(cmd.Context(), id); err != nil {
				return s.actionError("delete card", err)
			}
			if err := s.finish(); err != nil {
				return err
			}
			printer.Success("Card '%s' deleted\n", title)
			return nil
		},
	}
}

func newCardMvCmd(opts *rootOptions) *cobra.Command {
	var position int

	cmd := &cobra.Command{
		Use:   "mv <card> <column>",
		Short: "Move a card to a column, optionally at a 0-based position",
		Example: `  kanban card mv 3f2a9c "In Progress"
  kanban card mv 3f2a9c Done --position 0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			cardID, err := s.resolveCard(args[0])
			if err != nil {
				return err
			}
			columnID, err := s.resolveColumn(args[1])
			if err != nil {
				return err
			}

			view := s.coord.View()
			m := cardMove(view, cardID, columnID, position)
			if err := s.coord.MoveCard(cmd.Context(), m); err != nil {
				return s.actionError("move card", err)
			}
			if err := s.finish(); err != nil {
				return err
			}

			col, card, _ := s.coord.View().FindCard(cardID)
			if card == nil {
				return nil
			}
			printer.Success("Card '%s' moved to '%s' at position %d\n", card.Title, col.Name, card.Order)
			return nil
		},
	}
	cmd.Flags().IntVarP(&position, "position", "p", -1, "Destination position (default: end of column)")
	return cmd
}

// reportAddedCard prints the confirmed card. Titles are unique within a
// column, so it is found by title. The column may be gone if the board was
// reloaded in the meantime.
func reportAddedCard(view *board.Board, columnID, title string) {
	title = strings.TrimSpace(title)
	col, _ := view.FindColumn(columnID)
	if col == nil {
		printer.Success("Card '%s' added\n", title)
		return
	}
	for _, card := range col.Cards {
		if card.Title == title {
			printer.Success("Card '%s' added to '%s'\n", card.Title, col.Name)
			printer.Faint("  id: %s\n", card.ID)
			return
		}
	}
	printer.Success("Card '%s' added to '%s'\n", title, col.Name)
}

// cardMove builds the drag event for moving cardID into columnID. A negative
// position means the end of the destination column.
func cardMove(view *board.Board, cardID, columnID string, position int) reorder.Move {
	src, _, idx := view.FindCard(cardID)
	dst, _ := view.FindColumn(columnID)
	if src == nil || dst == nil {
		// The coordinator rejects a move whose card or column is missing.
		return reorder.Move{MovedID: cardID, DestinationID: columnID, DestinationIndex: position}
	}

	if position < 0 {
		position = len(dst.Cards)
		if dst.ID == src.ID {
			position--
		}
	}
	return reorder.Move{
		MovedID:          cardID,
		SourceID:         src.ID,
		SourceIndex:      idx,
		DestinationID:    dst.ID,
		DestinationIndex: position,
	}
}
