// Package reorder computes order values and container membership for a
// completed drag: a card moved within or between columns, or a column moved
// within its board.
package reorder

import (
	"github.com/dyluth/kanban/pkg/board"
)

// Move is a completed drag event. DestinationIndex is the position in the
// destination sequence after the moved item has been taken out of its source.
// An empty DestinationID means the item was dropped outside any container.
type Move struct {
	MovedID          string `json:"movedId"`
	SourceID         string `json:"sourceContainerId"`
	SourceIndex      int    `json:"sourceIndex"`
	DestinationID    string `json:"destinationContainerId"`
	DestinationIndex int    `json:"destinationIndex"`
}

// HasDestination reports whether the drop landed on a container.
func (m Move) HasDestination() bool {
	return m.DestinationID != ""
}

// MoveCard applies a card move to tree in place. It returns false and leaves
// tree unchanged when the move has no destination, the card is not in the
// source column, or the destination column does not exist.
//
// On success the card's Order and ColumnID are updated together and both
// affected columns are renumbered to 0..n-1.
func MoveCard(tree *board.Board, m Move) bool {
	if tree == nil || !m.HasDestination() {
		return false
	}

	src, _ := tree.FindColumn(m.SourceID)
	dst, _ := tree.FindColumn(m.DestinationID)
	if src == nil || dst == nil {
		return false
	}
	card, _ := src.FindCard(m.MovedID)
	if card == nil {
		return false
	}

	Normalize(src)
	if dst != src {
		Normalize(dst)
	}
	// Normalize may have moved the card within src.
	_, idx := src.FindCard(m.MovedID)

	src.Cards = append(src.Cards[:idx], src.Cards[idx+1:]...)

	pos := clamp(m.DestinationIndex, len(dst.Cards))
	card.Order = pos
	card.ColumnID = dst.ID
	dst.Cards = insertCard(dst.Cards, card, pos)

	board.SortCards(src.Cards)
	board.SortCards(dst.Cards)
	renumberCards(src.Cards)
	renumberCards(dst.Cards)
	return true
}

// MoveColumn applies a column move to tree in place. The column is placed at
// index among the board's columns and every column is renumbered to 0..n-1.
// Returns false if the column does not exist.
func MoveColumn(tree *board.Board, columnID string, index int) bool {
	if tree == nil {
		return false
	}
	col, _ := tree.FindColumn(columnID)
	if col == nil {
		return false
	}

	NormalizeColumns(tree)
	_, idx := tree.FindColumn(columnID)
	tree.Columns = append(tree.Columns[:idx], tree.Columns[idx+1:]...)

	pos := clamp(index, len(tree.Columns))
	col.Order = pos
	tree.Columns = insertColumn(tree.Columns, col, pos)

	board.SortColumns(tree.Columns)
	renumberColumns(tree.Columns)
	return true
}

// Normalize drops nil cards, stable-sorts the column's cards by Order and
// renumbers them to 0..n-1. Every card's ColumnID is set to the column.
func Normalize(col *board.Column) {
	if col == nil {
		return
	}
	kept := col.Cards[:0]
	for _, card := range col.Cards {
		if card != nil {
			kept = append(kept, card)
		}
	}
	col.Cards = kept
	board.SortCards(col.Cards)
	renumberCards(col.Cards)
	for _, card := range col.Cards {
		card.ColumnID = col.ID
	}
}

// NormalizeColumns drops nil columns, stable-sorts by Order and renumbers to 0..n-1.
func NormalizeColumns(tree *board.Board) {
	if tree == nil {
		return
	}
	kept := tree.Columns[:0]
	for _, col := range tree.Columns {
		if col != nil {
			kept = append(kept, col)
		}
	}
	tree.Columns = kept
	board.SortColumns(tree.Columns)
	renumberColumns(tree.Columns)
}

func clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

func insertCard(cards []*board.Card, card *board.Card, pos int) []*board.Card {
	cards = append(cards, nil)
	copy(cards[pos+1:], cards[pos:])
	cards[pos] = card
	return cards
}

func insertColumn(cols []*board.Column, col *board.Column, pos int) []*board.Column {
	cols = append(cols, nil)
	copy(cols[pos+1:], cols[pos:])
	cols[pos] = col
	return cols
}

func renumberCards(cards []*board.Card) {
	for i, card := range cards {
		card.Order = i
	}
}

func renumberColumns(cols []*board.Column) {
	for i, col := range cols {
		col.Order = i
	}
}
