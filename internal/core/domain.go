package core

import (
	"strings"
	"time"
	"unicode"
)

// MonthlySentinel is the value stored in an expense's Created column for
// recurring entries. Such rows count toward every calendar period.
const MonthlySentinel = "Monthly"

// TimeLayout is the storage format of expense timestamps.
const TimeLayout = "2006-01-02 15:04:05"

type (
	// Category groups expenses for one user. MaxAmount is an optional
	// monthly limit; nil means unlimited.
	Category struct {
		ID        int64
		UserID    int64
		Name      string
		MaxAmount *int64
	}

	// Expense is a single ledger row. Created holds either a TimeLayout
	// timestamp in the configured zone or MonthlySentinel.
	Expense struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Amount     int64
		Created    string
	}

	// Budget is the user-level monthly target compared against period totals.
	Budget struct {
		UserID int64
		Amount int64
	}

	// ParsedEntry is one validated line of an expense command.
	ParsedEntry struct {
		CategoryName string
		Amount       int64
		Recurring    bool
	}

	// CategoryTotal is a per-category sum used by charts.
	CategoryTotal struct {
		Name  string
		Total int64
	}
)

// IsRecurring reports whether the expense is a recurring (Monthly) row.
func (e Expense) IsRecurring() bool {
	return e.Created == MonthlySentinel
}

// NormalizeName canonicalizes a category name. Every comparison of names in
// the system goes through this, so "  Transport " and "transport" are the
// same category.
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Capitalize upper-cases the first rune for display.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// FormatCreated renders a stored Created value for report lines: recurring
// rows keep the literal label, timestamps collapse to "day-month hour:min".
func FormatCreated(created string, loc *time.Location) string {
	if created == MonthlySentinel {
		return MonthlySentinel
	}
	t, err := time.ParseInLocation(TimeLayout, created, loc)
	if err != nil {
		return created
	}
	return t.Format("02-01 15:04")
}
