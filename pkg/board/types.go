package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalid is wrapped by every validation failure so callers can tell a
// rejected entity apart from a storage error.
var ErrInvalid = errors.New("invalid entity")

// EntityType is the discriminator carried by every node of the board tree.
// Nodes whose discriminator does not match their position in the tree are
// dropped by Materialize.
type EntityType string

const (
	// EntityTypeBoard marks the top-level container of columns
	EntityTypeBoard EntityType = "board"

	// EntityTypeColumn marks an ordered container of cards
	EntityTypeColumn EntityType = "column"

	// EntityTypeCard marks a leaf work item
	EntityTypeCard EntityType = "card"
)

// TempIDPrefix marks identities assigned locally to entities the server has
// not confirmed yet. Server-assigned ids are UUIDs and never carry it.
const TempIDPrefix = "temp-"

// Board is the top-level container. Exactly one board is active per instance.
type Board struct {
	ID          string     `json:"id"`
	Type        EntityType `json:"type"`
	Name        string     `json:"name"`
	Columns     []*Column  `json:"columns"`
	CreatedAtMs int64      `json:"created_at_ms,omitempty"`
	UpdatedAtMs int64      `json:"updated_at_ms,omitempty"`
}

// Column is an ordered container of cards. Order positions it among the
// columns of its board.
type Column struct {
	ID          string     `json:"id"`
	Type        EntityType `json:"type"`
	Name        string     `json:"name"`
	Order       int        `json:"order"`
	BoardID     string     `json:"boardId,omitempty"`
	Cards       []*Card    `json:"cards"`
	CreatedAtMs int64      `json:"created_at_ms,omitempty"`
	UpdatedAtMs int64      `json:"updated_at_ms,omitempty"`
}

// Card is a leaf work item. ColumnID always names the column that contains it;
// the two are only ever changed together.
type Card struct {
	ID          string     `json:"id"`
	Type        EntityType `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Order       int        `json:"order"`
	ColumnID    string     `json:"columnId"`
	CreatedAtMs int64      `json:"created_at_ms,omitempty"`
	UpdatedAtMs int64      `json:"updated_at_ms,omitempty"`
}

// NewTempID returns a locally unique identity for an unconfirmed entity.
func NewTempID() string {
	return TempIDPrefix + uuid.New().String()
}

// IsTempID reports whether id was generated by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Validate checks the board's own fields. Columns are not descended into.
func (b *Board) Validate() error {
	if !isValidUUID(b.ID) {
		return fmt.Errorf("%w: board ID %q is not a valid UUID", ErrInvalid, b.ID)
	}
	if b.Type != EntityTypeBoard {
		return fmt.Errorf("%w: board has type %q", ErrInvalid, b.Type)
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: board name cannot be empty", ErrInvalid)
	}
	return nil
}

// Validate checks the column's own fields.
func (c *Column) Validate() error {
	if !isValidUUID(c.ID) {
		return fmt.Errorf("%w: column ID %q is not a valid UUID", ErrInvalid, c.ID)
	}
	if c.Type != EntityTypeColumn {
		return fmt.Errorf("%w: column has type %q", ErrInvalid, c.Type)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: column name cannot be empty", ErrInvalid)
	}
	if c.Order < 0 {
		return fmt.Errorf("%w: column order must be >= 0, got %d", ErrInvalid, c.Order)
	}
	if !isValidUUID(c.BoardID) {
		return fmt.Errorf("%w: column board ID %q is not a valid UUID", ErrInvalid, c.BoardID)
	}
	return nil
}

// Validate checks the card's own fields.
func (c *Card) Validate() error {
	if !isValidUUID(c.ID) {
		return fmt.Errorf("%w: card ID %q is not a valid UUID", ErrInvalid, c.ID)
	}
	if c.Type != EntityTypeCard {
		return fmt.Errorf("%w: card has type %q", ErrInvalid, c.Type)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: card title cannot be empty", ErrInvalid)
	}
	if c.Order < 0 {
		return fmt.Errorf("%w: card order must be >= 0, got %d", ErrInvalid, c.Order)
	}
	if !isValidUUID(c.ColumnID) {
		return fmt.Errorf("%w: card column ID %q is not a valid UUID", ErrInvalid, c.ColumnID)
	}
	return nil
}

// Validate checks if the EntityType is a known discriminator.
func (t EntityType) Validate() error {
	switch t {
	case EntityTypeBoard, EntityTypeColumn, EntityTypeCard:
		return nil
	default:
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalid, t)
	}
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
