package gateway

import (
	"github.com/dyluth/kanban/pkg/board"
)

// Request is the JSON body of every RPC. Each operation reads only the
// fields it needs.
type Request struct {
	ID          string           `json:"id,omitempty"`
	BoardID     string           `json:"boardId,omitempty"`
	ColumnID    string           `json:"columnId,omitempty"`
	CardID      string           `json:"cardId,omitempty"`
	Name        string           `json:"name,omitempty"`
	Type        board.EntityType `json:"type,omitempty"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Order       int              `json:"order"`
}

// Response is the JSON body of every RPC reply. Success false with Error set
// is an application failure.
type Response struct {
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Board    *board.Board  `json:"board,omitempty"`
	Column   *board.Column `json:"column,omitempty"`
	Card     *board.Card   `json:"card,omitempty"`
	ColumnID string        `json:"columnId,omitempty"`
	Changed  int           `json:"changed,omitempty"`
}
