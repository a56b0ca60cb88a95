package utils

import (
	"fmt"
	"time"
)

// StorageTimeFormat is the wire format for persisted timestamps.
// Nanosecond precision keeps creation-order comparisons stable across a
// round-trip through storage.
const StorageTimeFormat = time.RFC3339Nano

// FormatTimestamp renders a timestamp in the storage wire format
func FormatTimestamp(t time.Time) string {
	return t.Format(StorageTimeFormat)
}

// FormatOptionalTimestamp renders a nullable timestamp, empty when nil
func FormatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTimestamp(*t)
}

// ParseTimestamp parses a stored timestamp
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(StorageTimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// ParseOptionalTimestamp parses a nullable stored timestamp, nil when empty
func ParseOptionalTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
