// Package render formats a materialized board for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dyluth/kanban/pkg/board"
)

// Format selects how a board is written.
type Format string

const (
	FormatDefault Format = "default"
	FormatJSON    Format = "json"
	FormatJSONL   Format = "jsonl"
)

// ParseFormat validates a --output flag value. The empty string means default.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatDefault:
		return FormatDefault, nil
	case FormatJSON, FormatJSONL:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (must be default, json or jsonl)", s)
}

// Write renders the board in the requested format.
func Write(w io.Writer, b *board.Board, f Format) error {
	switch f {
	case FormatJSON:
		return FormatSingleJSON(w, b)
	case FormatJSONL:
		return FormatCardsJSONL(w, b)
	default:
		FormatTable(w, b)
		return nil
	}
}

// FormatTable writes one section per column, cards listed in display order.
// Returns the number of cards written.
func FormatTable(w io.Writer, b *board.Board) int {
	if b == nil {
		fmt.Fprintln(w, "No board loaded")
		return 0
	}

	fmt.Fprintf(w, "Board '%s' (%s)\n", b.Name, formatID(b.ID))
	if len(b.Columns) == 0 {
		fmt.Fprintln(w, "\nNo columns")
		return 0
	}

	total := 0
	for _, col := range b.Columns {
		fmt.Fprintf(w, "\n[%d] %s (%s) - %s\n", col.Order, col.Name, formatID(col.ID), pluralize(len(col.Cards), "card"))
		if len(col.Cards) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-10s %-5s %-30s %s\n", "ID", "ORDER", "TITLE", "DESCRIPTION")
		fmt.Fprintf(w, "  %-10s %-5s %-30s %s\n", "----------", "-----", strings.Repeat("-", 30), strings.Repeat("-", 40))
		for _, card := range col.Cards {
			fmt.Fprintf(w, "  %-10s %-5d %-30s %s\n",
				formatID(card.ID),
				card.Order,
				truncate(card.Title, 30),
				formatDescription(card.Description),
			)
		}
		total += len(col.Cards)
	}

	fmt.Fprintf(w, "\n%s in %s\n", pluralize(total, "card"), pluralize(len(b.Columns), "column"))
	return total
}

// FormatSingleJSON writes the whole tree as indented JSON.
func FormatSingleJSON(w io.Writer, b *board.Board) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("failed to write board: %w", err)
	}
	return nil
}

// FormatCardsJSONL writes one compact JSON object per card, columns in
// display order. Suited to piping through jq.
func FormatCardsJSONL(w io.Writer, b *board.Board) error {
	if b == nil {
		return nil
	}
	for _, col := range b.Columns {
		for _, card := range col.Cards {
			data, err := json.Marshal(card)
			if err != nil {
				return fmt.Errorf("failed to marshal card %s: %w", card.ID, err)
			}
			if _, err := fmt.Fprintln(w, string(data)); err != nil {
				return fmt.Errorf("failed to write card: %w", err)
			}
		}
	}
	return nil
}

// formatID shows the first 8 characters of an id. Temporary ids keep their
// prefix so unconfirmed entities stand out.
func formatID(id string) string {
	if board.IsTempID(id) {
		rest := strings.TrimPrefix(id, board.TempIDPrefix)
		if len(rest) > 3 {
			rest = rest[:3]
		}
		return board.TempIDPrefix + rest
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDescription shows the first non-empty line, capped at 40 characters.
func formatDescription(desc string) string {
	if desc == "" {
		return "-"
	}
	first := ""
	for _, line := range strings.Split(desc, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			first = t
			break
		}
	}
	if first == "" {
		return "-"
	}
	return truncate(first, 40)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
