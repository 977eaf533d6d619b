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

// User-facing status messages the front-end renders verbatim.
const (
	NoExpensesMessage   = "There are no expenses yet"
	LastDeletedMessage  = "Last expense was successfully deleted"
	NothingToDeleteMsg  = "There are no expenses yet."
	lastExpensesHeading = "Last 10 added expenses:"
)

const lastWindowSize = 10

// ExportPublisher pushes an expense id onto the export queue. Implemented by
// the AMQP client; nil disables export.
type ExportPublisher interface {
	PublishExpenseExport(ctx context.Context, id int64) error
}

// ExpenseLedger turns parsed expense commands into persisted rows and owns
// their deletion paths.
type ExpenseLedger struct {
	store       *storage.Repository
	reporter    *Reporter
	publisher   ExportPublisher
	loc         *time.Location
	allowCreate bool
	now         func() time.Time
}

func NewExpenseLedger(store *storage.Repository, reporter *Reporter, publisher ExportPublisher, loc *time.Location, allowCreate bool) *ExpenseLedger {
	return &ExpenseLedger{
		store:       store,
		reporter:    reporter,
		publisher:   publisher,
		loc:         loc,
		allowCreate: allowCreate,
		now:         time.Now,
	}
}

// AddExpense parses the raw command and persists one row per line. The whole
// batch is one transaction: categories are resolved (and, when enabled,
// created) inside it, and a failure on any line rolls back every line.
// Recurring lines store the Monthly sentinel instead of a timestamp.
func (l *ExpenseLedger) AddExpense(ctx context.Context, userID int64, raw string) error {
	entries, err := core.ParseEntries(raw)
	if err != nil {
		return err
	}

	created := l.now().In(l.loc).Format(core.TimeLayout)
	batch := make([]storage.BatchEntry, len(entries))
	for i, e := range entries {
		rowCreated := created
		if e.Recurring {
			rowCreated = core.MonthlySentinel
		}
		batch[i] = storage.BatchEntry{
			CategoryName: e.CategoryName,
			Amount:       e.Amount,
			Created:      rowCreated,
		}
	}

	ids, err := l.store.AddExpenseBatch(ctx, userID, batch, l.allowCreate)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expenses recorded", "user_id", userID, "count", len(ids))

	// Export is best-effort; the worker's catch-up pass picks up anything
	// that fails to publish here.
	if l.publisher != nil {
		for _, id := range ids {
			if err := l.publisher.PublishExpenseExport(ctx, id); err != nil {
				slog.ErrorContext(ctx, "Failed to publish export message", "id", id, "error", err)
			}
		}
	}
	return nil
}

// DeleteCategory removes the category and every expense it owns as a single
// transactional unit, which keeps the cascade invariant under concurrent
// commands.
func (l *ExpenseLedger) DeleteCategory(ctx context.Context, cat core.Category) error {
	if err := l.store.DeleteCategoryCascade(ctx, cat.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Category deleted with expenses",
		"user_id", cat.UserID, "category", cat.Name, "category_id", cat.ID)
	return nil
}

// DeleteLast removes the newest timestamped expense. Recurring rows are
// skipped since they carry no chronology.
func (l *ExpenseLedger) DeleteLast(ctx context.Context, userID int64) (string, error) {
	deleted, err := l.store.DeleteLastExpense(ctx, userID)
	if err != nil {
		return "", err
	}
	if !deleted {
		return NothingToDeleteMsg, nil
	}
	return LastDeletedMessage, nil
}

// GetExpenses renders the report for the window. The Last window is handled
// here; calendar windows are delegated to the Reporter.
func (l *ExpenseLedger) GetExpenses(ctx context.Context, userID int64, window core.Window) (string, error) {
	if window != core.Last {
		return l.reporter.Report(ctx, userID, window)
	}

	rows, err := l.store.ListLastExpenses(ctx, userID, lastWindowSize)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return NoExpensesMessage, nil
	}

	var b strings.Builder
	b.WriteString(lastExpensesHeading)
	for _, row := range rows {
		fmt.Fprintf(&b, "\n%s | %s | %d",
			core.FormatCreated(row.Created, l.loc),
			core.Capitalize(row.CategoryName),
			row.Amount)
	}
	return b.String(), nil
}
