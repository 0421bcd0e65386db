// Package timespec parses the --since and --until flag values.
package timespec

import (
	"fmt"
	"time"
)

// Parse resolves value against the current time. See ParseAt.
func Parse(value string) (int64, error) {
	return ParseAt(value, time.Now())
}

// ParseAt resolves a time specification to Unix milliseconds. A Go duration
// ("90m", "2h") means that long before now; an RFC3339 timestamp or a bare
// date ("2025-10-29", midnight UTC) is taken as given.
func ParseAt(value string, now time.Time) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UnixMilli(), nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t.UnixMilli(), nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("invalid time specification: %s (duration must not be negative)", value)
		}
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m', a date like '2025-10-29' or RFC3339)", value)
}

// Range is a pair of Unix millisecond bounds. Zero means unbounded.
type Range struct {
	SinceMs int64
	UntilMs int64
}

// ParseRange parses --since and --until together and checks their order.
func ParseRange(since, until string, now time.Time) (Range, error) {
	var r Range
	var err error

	if since != "" {
		if r.SinceMs, err = ParseAt(since, now); err != nil {
			return Range{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if r.UntilMs, err = ParseAt(until, now); err != nil {
			return Range{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if r.SinceMs > 0 && r.UntilMs > 0 && r.SinceMs >= r.UntilMs {
		return Range{}, fmt.Errorf("--since must be before --until")
	}
	return r, nil
}
