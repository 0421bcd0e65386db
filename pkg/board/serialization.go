package board

import (
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Each entity is stored flat. Containment lives in separate ID sets
// (see BoardColumnsKey, ColumnCardsKey), so child slices are never serialized.

// BoardToHash converts a Board to a Redis hash. Columns are not included.
func BoardToHash(b *Board) map[string]interface{} {
	return map[string]interface{}{
		"id":            b.ID,
		"type":          string(b.Type),
		"name":          b.Name,
		"created_at_ms": b.CreatedAtMs,
		"updated_at_ms": b.UpdatedAtMs,
	}
}

// HashToBoard converts a Redis hash to a Board with no columns.
func HashToBoard(hash map[string]string) (*Board, error) {
	created, updated, err := parseTimestamps(hash)
	if err != nil {
		return nil, err
	}

	return &Board{
		ID:          hash["id"],
		Type:        EntityType(hash["type"]),
		Name:        hash["name"],
		Columns:     []*Column{},
		CreatedAtMs: created,
		UpdatedAtMs: updated,
	}, nil
}

// ColumnToHash converts a Column to a Redis hash. Cards are not included.
func ColumnToHash(c *Column) map[string]interface{} {
	return map[string]interface{}{
		"id":            c.ID,
		"type":          string(c.Type),
		"name":          c.Name,
		"order":         c.Order,
		"board_id":      c.BoardID,
		"created_at_ms": c.CreatedAtMs,
		"updated_at_ms": c.UpdatedAtMs,
	}
}

// HashToColumn converts a Redis hash to a Column with no cards.
func HashToColumn(hash map[string]string) (*Column, error) {
	order, err := strconv.Atoi(hash["order"])
	if err != nil {
		return nil, fmt.Errorf("invalid order field: %w", err)
	}

	created, updated, err := parseTimestamps(hash)
	if err != nil {
		return nil, err
	}

	return &Column{
		ID:          hash["id"],
		Type:        EntityType(hash["type"]),
		Name:        hash["name"],
		Order:       order,
		BoardID:     hash["board_id"],
		Cards:       []*Card{},
		CreatedAtMs: created,
		UpdatedAtMs: updated,
	}, nil
}

// CardToHash converts a Card to a Redis hash.
func CardToHash(c *Card) map[string]interface{} {
	return map[string]interface{}{
		"id":            c.ID,
		"type":          string(c.Type),
		"title":         c.Title,
		"description":   c.Description,
		"order":         c.Order,
		"column_id":     c.ColumnID,
		"created_at_ms": c.CreatedAtMs,
		"updated_at_ms": c.UpdatedAtMs,
	}
}

// HashToCard converts a Redis hash to a Card.
func HashToCard(hash map[string]string) (*Card, error) {
	order, err := strconv.Atoi(hash["order"])
	if err != nil {
		return nil, fmt.Errorf("invalid order field: %w", err)
	}

	created, updated, err := parseTimestamps(hash)
	if err != nil {
		return nil, err
	}

	return &Card{
		ID:          hash["id"],
		Type:        EntityType(hash["type"]),
		Title:       hash["title"],
		Description: hash["description"],
		Order:       order,
		ColumnID:    hash["column_id"],
		CreatedAtMs: created,
		UpdatedAtMs: updated,
	}, nil
}

// parseTimestamps reads created_at_ms and updated_at_ms. Missing fields are zero.
func parseTimestamps(hash map[string]string) (int64, int64, error) {
	var created, updated int64
	var err error

	if v := hash["created_at_ms"]; v != "" {
		if created, err = strconv.ParseInt(v, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("invalid created_at_ms field: %w", err)
		}
	}
	if v := hash["updated_at_ms"]; v != "" {
		if updated, err = strconv.ParseInt(v, 10, 64); err != nil {
			return 0, 0, fmt.Errorf("invalid updated_at_ms field: %w", err)
		}
	}

	return created, updated, nil
}
