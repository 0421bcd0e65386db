package board

import "sort"

// Tree helpers
//
// The board tree is plain nested structs with pointer slices. Nothing in this
// file mutates its receiver except the Sort* helpers; Clone and Materialize
// always build fresh trees so the result never aliases the input.

// Clone returns a deep copy of the board tree. Nil column or card entries are
// preserved so that a clone of malformed data stays malformed.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	out := *b
	if b.Columns != nil {
		out.Columns = make([]*Column, len(b.Columns))
		for i, col := range b.Columns {
			out.Columns[i] = col.Clone()
		}
	}
	return &out
}

// Clone returns a deep copy of the column and its cards.
func (c *Column) Clone() *Column {
	if c == nil {
		return nil
	}
	out := *c
	if c.Cards != nil {
		out.Cards = make([]*Card, len(c.Cards))
		for i, card := range c.Cards {
			out.Cards[i] = card.Clone()
		}
	}
	return &out
}

// Clone returns a copy of the card.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// FindColumn returns the column with the given id and its index in Columns,
// or (nil, -1).
func (b *Board) FindColumn(id string) (*Column, int) {
	if b == nil {
		return nil, -1
	}
	for i, col := range b.Columns {
		if col != nil && col.ID == id {
			return col, i
		}
	}
	return nil, -1
}

// FindCard searches every column for the card with the given id. It returns
// the containing column, the card, and the card's index within the column.
func (b *Board) FindCard(id string) (*Column, *Card, int) {
	if b == nil {
		return nil, nil, -1
	}
	for _, col := range b.Columns {
		if col == nil {
			continue
		}
		if card, idx := col.FindCard(id); card != nil {
			return col, card, idx
		}
	}
	return nil, nil, -1
}

// FindCard returns the card with the given id and its index in Cards, or (nil, -1).
func (c *Column) FindCard(id string) (*Card, int) {
	if c == nil {
		return nil, -1
	}
	for i, card := range c.Cards {
		if card != nil && card.ID == id {
			return card, i
		}
	}
	return nil, -1
}

// Materialize derives the read-only view presentation layers render:
// only nodes carrying the expected discriminator survive, cards whose ColumnID
// does not name their containing column are dropped, columns are sorted by
// Order and cards within each column are sorted by Order. Ties keep their
// input position. Returns nil if b is nil or is not a board.
//
// Materialize is pure: the input is never modified and the result shares no
// memory with it.
func Materialize(b *Board) *Board {
	if b == nil || b.Type != EntityTypeBoard {
		return nil
	}

	view := &Board{
		ID:          b.ID,
		Type:        b.Type,
		Name:        b.Name,
		Columns:     make([]*Column, 0, len(b.Columns)),
		CreatedAtMs: b.CreatedAtMs,
		UpdatedAtMs: b.UpdatedAtMs,
	}

	for _, col := range b.Columns {
		if col == nil || col.Type != EntityTypeColumn {
			continue
		}
		vc := &Column{
			ID:          col.ID,
			Type:        col.Type,
			Name:        col.Name,
			Order:       col.Order,
			BoardID:     col.BoardID,
			Cards:       make([]*Card, 0, len(col.Cards)),
			CreatedAtMs: col.CreatedAtMs,
			UpdatedAtMs: col.UpdatedAtMs,
		}
		for _, card := range col.Cards {
			if card == nil || card.Type != EntityTypeCard || card.ColumnID != col.ID {
				continue
			}
			vc.Cards = append(vc.Cards, card.Clone())
		}
		SortCards(vc.Cards)
		view.Columns = append(view.Columns, vc)
	}
	SortColumns(view.Columns)

	return view
}

// SortColumns stable-sorts columns by Order ascending in place.
func SortColumns(cols []*Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i].Order < cols[j].Order
	})
}

// SortCards stable-sorts cards by Order ascending in place.
func SortCards(cards []*Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].Order < cards[j].Order
	})
}

// CardCount returns the number of cards across all columns, ignoring nil entries.
func (b *Board) CardCount() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, col := range b.Columns {
		if col == nil {
			continue
		}
		for _, card := range col.Cards {
			if card != nil {
				n++
			}
		}
	}
	return n
}
