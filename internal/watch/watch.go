package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/kanban/pkg/board"
)

// OutputFormat selects how streamed events are written.
type OutputFormat string

const (
	// OutputFormatDefault is one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON is line-delimited JSON, one event per line
	OutputFormatJSON OutputFormat = "json"
)

// Source delivers board events. *board.Subscription satisfies it.
type Source interface {
	Events() <-chan *board.BoardEvent
	Errors() <-chan error
}

// Options narrow what Stream writes.
type Options struct {
	Format OutputFormat

	// EntityType, when set, drops events for other entity types
	EntityType board.EntityType

	// Limit stops the stream after this many events have been written. Zero means unbounded.
	Limit int
}

// Stream subscribes to the instance's board events and writes them to w
// until ctx is cancelled or the subscription ends.
func Stream(ctx context.Context, client *board.Client, opts Options, w io.Writer) error {
	sub, err := client.SubscribeBoardEvents(ctx)
	if err != nil {
		return err
	}
	defer sub.Close()

	return StreamEvents(ctx, sub, opts, w)
}

// StreamEvents copies events from src to w. Subscription errors are written
// inline in default format and skipped in JSON format so the output stays
// machine-readable.
func StreamEvents(ctx context.Context, src Source, opts Options, w io.Writer) error {
	written := 0
	errs := src.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if opts.Format != OutputFormatJSON {
				fmt.Fprintf(w, "[%s] ⚠️  subscription error: %v\n", time.Now().Format("15:04:05"), err)
			}

		case event, ok := <-src.Events():
			if !ok {
				return nil
			}
			if opts.EntityType != "" && event.EntityType != opts.EntityType {
				continue
			}
			if err := writeEvent(w, event, opts.Format); err != nil {
				return err
			}
			written++
			if opts.Limit > 0 && written >= opts.Limit {
				return nil
			}
		}
	}
}

func writeEvent(w io.Writer, event *board.BoardEvent, format OutputFormat) error {
	if format == OutputFormatJSON {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, FormatEvent(event))
	return err
}

// FormatEvent renders an event as a single human-readable line.
func FormatEvent(event *board.BoardEvent) string {
	ts := time.UnixMilli(event.TimestampMs).Format("15:04:05")
	return fmt.Sprintf("[%s] %s %s %s: id=%s", ts, eventIcon(event.Kind), event.EntityType, event.Kind, event.EntityID)
}

func eventIcon(kind board.EventKind) string {
	switch kind {
	case board.EventCreated:
		return "✨"
	case board.EventUpdated:
		return "✏️"
	case board.EventDeleted:
		return "🗑️"
	case board.EventMoved:
		return "↔️"
	case board.EventReordered:
		return "🔢"
	default:
		return "•"
	}
}
