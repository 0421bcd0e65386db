package coordinator

import (
	"context"
	"strings"

	"github.com/dyluth/kanban/internal/reorder"
	"github.com/dyluth/kanban/pkg/board"
)

// AddCard appends a card to columnID under a temporary id and creates it
// remotely in the background. The temporary id is returned; once the server
// confirms, the card keeps its position and takes the permanent id.
func (c *Coordinator) AddCard(ctx context.Context, columnID, title, description string) (string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return "", rejectf("card title is required")
	}
	if board.IsTempID(columnID) {
		return "", rejectf("column %s is not confirmed yet", columnID)
	}

	tempID := board.NewTempID()
	var order int
	var created *board.Card

	a := &action{
		kind:     KindAddCard,
		entityID: tempID,
		local: func(tree *board.Board) error {
			col, _ := tree.FindColumn(columnID)
			if col == nil {
				return rejectf("column %s not found", columnID)
			}
			order = len(col.Cards)
			col.Cards = append(col.Cards, &board.Card{
				ID:          tempID,
				Type:        board.EntityTypeCard,
				Title:       title,
				Description: description,
				Order:       order,
				ColumnID:    columnID,
			})
			return nil
		},
		remote: func(ctx context.Context) error {
			card, err := c.gw.CreateCard(ctx, columnID, title, description, order)
			created = card
			return err
		},
		merge: func(tree *board.Board) error {
			col, card, idx := tree.FindCard(tempID)
			if card == nil {
				return errStale
			}
			if _, dup, _ := tree.FindCard(created.ID); dup != nil {
				// A resync already brought the confirmed card in.
				col.Cards = append(col.Cards[:idx], col.Cards[idx+1:]...)
				reorder.Normalize(col)
				return nil
			}
			card.ID = created.ID
			card.Title = created.Title
			card.Description = created.Description
			card.CreatedAtMs = created.CreatedAtMs
			card.UpdatedAtMs = created.UpdatedAtMs
			return nil
		},
	}
	if err := c.run(ctx, a); err != nil {
		return "", err
	}
	return tempID, nil
}

// DeleteCard removes a card locally and deletes it remotely in the background.
func (c *Coordinator) DeleteCard(ctx context.Context, cardID string) error {
	if board.IsTempID(cardID) {
		return rejectf("card %s is not confirmed yet", cardID)
	}

	return c.run(ctx, &action{
		kind:     KindDeleteCard,
		entityID: cardID,
		local: func(tree *board.Board) error {
			col, card, idx := tree.FindCard(cardID)
			if card == nil {
				return rejectf("card %s not found", cardID)
			}
			col.Cards = append(col.Cards[:idx], col.Cards[idx+1:]...)
			reorder.Normalize(col)
			return nil
		},
		remote: func(ctx context.Context) error {
			return c.gw.DeleteCard(ctx, cardID)
		},
	})
}

// MoveCard applies a completed drag locally and sends the move in the
// background. A move without a destination does nothing.
func (c *Coordinator) MoveCard(ctx context.Context, m reorder.Move) error {
	if !m.HasDestination() {
		return nil
	}
	if board.IsTempID(m.MovedID) || board.IsTempID(m.DestinationID) {
		return rejectf("card %s or column %s is not confirmed yet", m.MovedID, m.DestinationID)
	}

	var order int
	return c.run(ctx, &action{
		kind:     KindMoveCard,
		entityID: m.MovedID,
		local: func(tree *board.Board) error {
			if !reorder.MoveCard(tree, m) {
				return rejectf("card %s cannot move from %s to %s", m.MovedID, m.SourceID, m.DestinationID)
			}
			dst, _ := tree.FindColumn(m.DestinationID)
			card, _ := dst.FindCard(m.MovedID)
			order = card.Order
			return nil
		},
		remote: func(ctx context.Context) error {
			return c.gw.MoveCard(ctx, m.MovedID, m.DestinationID, order)
		},
	})
}

// MoveColumn places a column at index locally and sends the move in the background.
func (c *Coordinator) MoveColumn(ctx context.Context, columnID string, index int) error {
	if board.IsTempID(columnID) {
		return rejectf("column %s is not confirmed yet", columnID)
	}

	var order int
	return c.run(ctx, &action{
		kind:     KindMoveColumn,
		entityID: columnID,
		local: func(tree *board.Board) error {
			if !reorder.MoveColumn(tree, columnID, index) {
				return rejectf("column %s not found", columnID)
			}
			col, _ := tree.FindColumn(columnID)
			order = col.Order
			return nil
		},
		remote: func(ctx context.Context) error {
			return c.gw.MoveColumn(ctx, columnID, order)
		},
	})
}

// UpdateCard saves a card's title and description, then patches the card.
func (c *Coordinator) UpdateCard(ctx context.Context, cardID, title, description string) error {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" {
		return rejectf("card title is required")
	}
	if board.IsTempID(cardID) {
		return rejectf("card %s is not confirmed yet", cardID)
	}
	if _, card, _ := c.store.Snapshot().FindCard(cardID); card == nil {
		return rejectf("card %s not found", cardID)
	}

	var updated *board.Card
	return c.run(ctx, &action{
		kind:     KindUpdateCard,
		entityID: cardID,
		remote: func(ctx context.Context) error {
			card, err := c.gw.UpdateCard(ctx, cardID, title, description)
			updated = card
			return err
		},
		merge: func(tree *board.Board) error {
			_, card, _ := tree.FindCard(cardID)
			if card == nil {
				return errStale
			}
			card.Title = updated.Title
			card.Description = updated.Description
			card.UpdatedAtMs = updated.UpdatedAtMs
			return nil
		},
	})
}

// AddColumn creates a column at the end of the board and, once the server
// confirms, inserts it locally. Returns the new column's id.
func (c *Coordinator) AddColumn(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", rejectf("column name is required")
	}
	snapshot := c.store.Snapshot()
	if snapshot == nil {
		return "", rejectf("board not loaded")
	}

	var created *board.Column
	err := c.run(ctx, &action{
		kind:     KindAddColumn,
		entityID: snapshot.ID,
		remote: func(ctx context.Context) error {
			col, err := c.gw.CreateColumn(ctx, snapshot.ID, name, len(snapshot.Columns))
			created = col
			return err
		},
		merge: func(tree *board.Board) error {
			if tree.ID != created.BoardID && created.BoardID != "" {
				return errStale
			}
			if existing, _ := tree.FindColumn(created.ID); existing != nil {
				return errStale
			}
			col := created.Clone()
			if col.Cards == nil {
				col.Cards = []*board.Card{}
			}
			reorder.NormalizeColumns(tree)
			tree.Columns = append(tree.Columns, col)
			reorder.MoveColumn(tree, col.ID, created.Order)
			return nil
		},
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// DeleteColumn deletes a column remotely and, once confirmed, drops it and
// every card in it from local state.
func (c *Coordinator) DeleteColumn(ctx context.Context, columnID string) error {
	if board.IsTempID(columnID) {
		return rejectf("column %s is not confirmed yet", columnID)
	}
	if col, _ := c.store.Snapshot().FindColumn(columnID); col == nil {
		return rejectf("column %s not found", columnID)
	}

	deletedID := columnID
	return c.run(ctx, &action{
		kind:     KindDeleteColumn,
		entityID: columnID,
		remote: func(ctx context.Context) error {
			id, err := c.gw.DeleteColumn(ctx, columnID)
			if id != "" {
				deletedID = id
			}
			return err
		},
		merge: func(tree *board.Board) error {
			_, idx := tree.FindColumn(deletedID)
			if idx < 0 {
				return errStale
			}
			tree.Columns = append(tree.Columns[:idx], tree.Columns[idx+1:]...)
			reorder.NormalizeColumns(tree)
			return nil
		},
	})
}

// RenameColumn saves a column's name, then patches it.
func (c *Coordinator) RenameColumn(ctx context.Context, columnID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return rejectf("column name is required")
	}
	if board.IsTempID(columnID) {
		return rejectf("column %s is not confirmed yet", columnID)
	}
	col, _ := c.store.Snapshot().FindColumn(columnID)
	if col == nil {
		return rejectf("column %s not found", columnID)
	}

	var updated *board.Column
	return c.run(ctx, &action{
		kind:     KindRenameColumn,
		entityID: columnID,
		remote: func(ctx context.Context) error {
			got, err := c.gw.UpdateColumn(ctx, columnID, name, col.Order)
			updated = got
			return err
		},
		merge: func(tree *board.Board) error {
			target, _ := tree.FindColumn(columnID)
			if target == nil {
				return errStale
			}
			target.Name = updated.Name
			target.UpdatedAtMs = updated.UpdatedAtMs
			return nil
		},
	})
}

// RenameBoard saves the board's name, then patches it.
func (c *Coordinator) RenameBoard(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return rejectf("board name is required")
	}
	snapshot := c.store.Snapshot()
	if snapshot == nil {
		return rejectf("board not loaded")
	}

	var updated *board.Board
	return c.run(ctx, &action{
		kind:     KindRenameBoard,
		entityID: snapshot.ID,
		remote: func(ctx context.Context) error {
			b, err := c.gw.UpdateBoard(ctx, snapshot.ID, name)
			updated = b
			return err
		},
		merge: func(tree *board.Board) error {
			if tree.ID != updated.ID {
				return errStale
			}
			tree.Name = updated.Name
			tree.UpdatedAtMs = updated.UpdatedAtMs
			return nil
		},
	})
}

// FixOrders asks the server to renumber every column's cards, then reloads
// the board. Returns how many cards the server renumbered.
func (c *Coordinator) FixOrders(ctx context.Context) (int, error) {
	var changed int
	err := c.run(ctx, &action{
		kind: KindFixOrders,
		remote: func(ctx context.Context) error {
			n, err := c.gw.FixCardOrders(ctx)
			changed = n
			return err
		},
		refetch: true,
	})
	return changed, err
}
