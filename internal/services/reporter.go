package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kassa/internal/core"
	"kassa/internal/storage"
)

// Reporter aggregates stored rows into per-category and whole-period totals
// compared against limits and the user's budget.
type Reporter struct {
	store         *storage.Repository
	loc           *time.Location
	defaultBudget int64
	now           func() time.Time
}

func NewReporter(store *storage.Repository, loc *time.Location, defaultBudget int64) *Reporter {
	return &Reporter{
		store:         store,
		loc:           loc,
		defaultBudget: defaultBudget,
		now:           time.Now,
	}
}

// Report renders the aggregation for a calendar window. Exactly one row
// query runs per call; recurring rows are included in every period.
func (r *Reporter) Report(ctx context.Context, userID int64, window core.Window) (string, error) {
	start, end, ok := window.Bounds(r.now().In(r.loc))
	if !ok {
		return "", fmt.Errorf("window %s has no calendar bounds", window)
	}

	budget, err := r.Budget(ctx, userID)
	if err != nil {
		return "", err
	}

	rows, err := r.store.ListWindowExpenses(ctx, userID, start, end)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return NoExpensesMessage, nil
	}

	var b strings.Builder
	b.WriteString(windowPrefix(window))

	var total, categoryTotal int64
	var categoryLimit *int64
	current := ""
	flush := func() {
		fmt.Fprintf(&b, "\nCategory Total: %d", categoryTotal)
		if categoryLimit != nil {
			fmt.Fprintf(&b, " (Monthly limit: %d)", *categoryLimit)
		}
	}

	for _, row := range rows {
		if row.CategoryName != current {
			if current != "" {
				flush()
			}
			current = row.CategoryName
			categoryTotal = 0
			categoryLimit = row.MaxAmount
			fmt.Fprintf(&b, "\n\n%s", core.Capitalize(row.CategoryName))
		}
		total += row.Amount
		categoryTotal += row.Amount
		fmt.Fprintf(&b, "\n> %s : %d", core.FormatCreated(row.Created, r.loc), row.Amount)
	}
	flush()

	// The difference may be negative (over budget) and is shown as-is.
	fmt.Fprintf(&b, "\n\nMonth Total/Budget: %d/%d (%d)", total, budget, total-budget)
	return b.String(), nil
}

// CategoryTotals sums the window's rows per category, for chart rendering.
func (r *Reporter) CategoryTotals(ctx context.Context, userID int64, window core.Window) ([]core.CategoryTotal, error) {
	start, end, ok := window.Bounds(r.now().In(r.loc))
	if !ok {
		return nil, fmt.Errorf("window %s has no calendar bounds", window)
	}

	rows, err := r.store.ListWindowExpenses(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	var totals []core.CategoryTotal
	for _, row := range rows {
		if n := len(totals); n > 0 && totals[n-1].Name == row.CategoryName {
			totals[n-1].Total += row.Amount
			continue
		}
		totals = append(totals, core.CategoryTotal{Name: row.CategoryName, Total: row.Amount})
	}
	return totals, nil
}

// Budget returns the user's budget, persisting the default on first read so
// subsequent reads are stable.
func (r *Reporter) Budget(ctx context.Context, userID int64) (int64, error) {
	amount, found, err := r.store.GetBudget(ctx, userID)
	if err != nil {
		return 0, err
	}
	if found {
		return amount, nil
	}

	if err := r.store.SetBudget(ctx, userID, r.defaultBudget); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Budget defaulted", "user_id", userID, "amount", r.defaultBudget)
	return r.defaultBudget, nil
}

// SetBudget upserts the user's budget.
func (r *Reporter) SetBudget(ctx context.Context, userID, amount int64) error {
	if err := r.store.SetBudget(ctx, userID, amount); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget set", "user_id", userID, "amount", amount)
	return nil
}

func windowPrefix(w core.Window) string {
	switch w {
	case core.Today:
		return "Today's expenses: "
	case core.PreviousMonth:
		return "Last month's expenses: "
	default:
		return "This month's expenses: "
	}
}
