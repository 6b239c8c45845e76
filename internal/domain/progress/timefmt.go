package progress

import (
	"fmt"
	"strings"
	"time"
)

// EventTimePattern is the caller-facing timestamp pattern, e.g.
// "2024-03-01 09:15:42:120+0530". Go layouts only recognise fractional seconds
// after '.' or ',', so the millisecond separator is swapped before parsing.
const (
	EventTimePattern = "yyyy-MM-dd HH:mm:ss:SSSZ"
	eventTimeLayout  = "2006-01-02 15:04:05.000-0700"
	millisSepIndex   = 19
)

// ParseEventTime parses a caller-supplied timestamp. An empty value is not an
// error and yields nil.
func ParseEventTime(raw string) (*time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	if len(s) <= millisSepIndex || s[millisSepIndex] != ':' {
		return nil, fmt.Errorf("%w: %q does not match %s", ErrInvalidTimestamp, raw, EventTimePattern)
	}
	normalized := s[:millisSepIndex] + "." + s[millisSepIndex+1:]
	t, err := time.Parse(eventTimeLayout, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q does not match %s", ErrInvalidTimestamp, raw, EventTimePattern)
	}
	return &t, nil
}

func FormatEventTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	s := t.Format(eventTimeLayout)
	return s[:millisSepIndex] + ":" + s[millisSepIndex+1:]
}

// LaterOf returns the later of two nullable times. A present value beats a
// nil one; when both are nil the fallback is returned.
func LaterOf(a, b *time.Time, fallback time.Time) *time.Time {
	switch {
	case a == nil && b == nil:
		t := fallback
		return &t
	case a == nil:
		t := *b
		return &t
	case b == nil:
		t := *a
		return &t
	case b.After(*a):
		t := *b
		return &t
	default:
		t := *a
		return &t
	}
}
