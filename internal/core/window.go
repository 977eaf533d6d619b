package core

import (
	"fmt"
	"strings"
	"time"
)

// Window selects the reporting time range.
type Window int

const (
	Last Window = iota
	Today
	ThisMonth
	PreviousMonth
)

func (w Window) String() string {
	switch w {
	case Last:
		return "last"
	case Today:
		return "today"
	case ThisMonth:
		return "month"
	case PreviousMonth:
		return "previous-month"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindow maps a request parameter onto a Window.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "last":
		return Last, nil
	case "today":
		return Today, nil
	case "month", "this-month":
		return ThisMonth, nil
	case "previous-month", "last-month":
		return PreviousMonth, nil
	default:
		return Last, fmt.Errorf("unknown window %q", s)
	}
}

// Bounds returns the half-open [start, end) timestamp strings for calendar
// windows, computed in now's location. ok is false for Last, which has no
// calendar bounds.
func (w Window) Bounds(now time.Time) (start, end string, ok bool) {
	var from, to time.Time
	switch w {
	case Today:
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		to = from.AddDate(0, 0, 1)
	case ThisMonth:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		to = from.AddDate(0, 1, 0)
	case PreviousMonth:
		to = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		from = to.AddDate(0, -1, 0)
	default:
		return "", "", false
	}
	return from.Format(TimeLayout), to.Format(TimeLayout), true
}
