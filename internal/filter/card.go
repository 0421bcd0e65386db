// Package filter narrows a materialized board to the cards a user asked for.
package filter

import (
	"path/filepath"
	"strings"

	"github.com/dyluth/kanban/pkg/board"
)

// Criteria defines filtering criteria for cards.
// All filters are ANDed together - a card must match ALL criteria to pass.
type Criteria struct {
	SinceMs   int64  // last update at or after, 0 = no filter
	UntilMs   int64  // last update at or before, 0 = no filter
	TitleGlob string // case-insensitive glob on the title, empty = no filter
}

// Matches returns true if the card matches all filter criteria.
// A card never updated since creation is judged by its creation time.
func (c *Criteria) Matches(card *board.Card) bool {
	touched := card.UpdatedAtMs
	if touched == 0 {
		touched = card.CreatedAtMs
	}
	if c.SinceMs > 0 && touched < c.SinceMs {
		return false
	}
	if c.UntilMs > 0 && touched > c.UntilMs {
		return false
	}

	if c.TitleGlob != "" {
		matched, err := filepath.Match(strings.ToLower(c.TitleGlob), strings.ToLower(card.Title))
		if err != nil || !matched {
			return false
		}
	}
	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceMs > 0 || c.UntilMs > 0 || c.TitleGlob != ""
}

// Apply returns a copy of b holding only matching cards. Columns are kept
// even when empty so the board's shape is still visible; card orders are
// left as stored.
func (c *Criteria) Apply(b *board.Board) *board.Board {
	out := b.Clone()
	if out == nil || !c.HasFilters() {
		return out
	}
	for _, col := range out.Columns {
		kept := col.Cards[:0]
		for _, card := range col.Cards {
			if c.Matches(card) {
				kept = append(kept, card)
			}
		}
		col.Cards = kept
	}
	return out
}
