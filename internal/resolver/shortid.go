package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/kanban/pkg/board"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// ResolveCard resolves a full id or short id prefix to the id of a card in
// the materialized board.
func ResolveCard(b *board.Board, ref string) (string, error) {
	var ids []string
	if b != nil {
		for _, col := range b.Columns {
			for _, card := range col.Cards {
				ids = append(ids, card.ID)
			}
		}
	}
	return resolve(board.EntityTypeCard, ids, ref)
}

// ResolveColumn resolves a column reference. A case-insensitive name match
// wins when it is unique; otherwise the reference is treated as an id or
// short id prefix.
func ResolveColumn(b *board.Board, ref string) (string, error) {
	var ids []string
	var named []string
	if b != nil {
		for _, col := range b.Columns {
			ids = append(ids, col.ID)
			if strings.EqualFold(strings.TrimSpace(col.Name), strings.TrimSpace(ref)) {
				named = append(named, col.ID)
			}
		}
	}
	if len(named) == 1 {
		return named[0], nil
	}
	if len(named) > 1 {
		return "", &AmbiguousError{Entity: board.EntityTypeColumn, ShortID: ref, Matches: named}
	}
	return resolve(board.EntityTypeColumn, ids, ref)
}

func resolve(entity board.EntityType, ids []string, ref string) (string, error) {
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
	}

	if len(ref) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(ref))
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Entity: entity, ShortID: ref}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Entity: entity, ShortID: ref, Matches: matches}
	}
}

// NotFoundError indicates nothing matched the reference.
type NotFoundError struct {
	Entity  board.EntityType
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %ss found matching '%s'", e.Entity, e.ShortID)
}

// AmbiguousError indicates several entities matched the reference.
type AmbiguousError struct {
	Entity  board.EntityType
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous reference '%s' matches %d %ss", e.ShortID, len(e.Matches), e.Entity)
}

// FormatAmbiguousError creates a user-friendly message listing the matches
// (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ambiguous reference '%s' matches %d %ss:\n", err.ShortID, len(err.Matches), err.Entity)

	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}
	for i := 0; i < displayCount; i++ {
		fmt.Fprintf(&sb, "  %s\n", err.Matches[i])
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&sb, "  ...and %d more\n", len(err.Matches)-10)
	}

	fmt.Fprintf(&sb, "\nUse a longer prefix to uniquely identify the %s.", err.Entity)
	return sb.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var amb *AmbiguousError
	return errors.As(err, &amb)
}
