// Package worker moves recorded expenses from the ledger database to an
// external sheet, driven by queue messages with a periodic catch-up sweep.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kassa/internal/amqp"
	"kassa/internal/sheets"
	"kassa/internal/storage"
)

type ExportWorker struct {
	store    *storage.Repository
	appender sheets.RowAppender
}

func NewExportWorker(store *storage.Repository, appender sheets.RowAppender) *ExportWorker {
	return &ExportWorker{store: store, appender: appender}
}

// HandleExportMessage exports the expense named by one queue message.
// A missing row is treated as already handled: the expense was deleted
// before the export ran.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExpenseExportMessage) error {
	row, err := w.store.GetExportRow(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("load expense %d: %w", msg.ID, err)
	}
	if row == nil {
		slog.InfoContext(ctx, "Expense gone before export, skipping", "expense_id", msg.ID)
		return nil
	}
	return w.export(ctx, row)
}

// ProcessPending exports up to limit expenses that were recorded but
// never exported, oldest first. Rows that fail are marked and skipped on
// later sweeps.
func (w *ExportWorker) ProcessPending(ctx context.Context, limit int) error {
	rows, err := w.store.PendingExport(ctx, limit)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.export(ctx, &rows[i]); err != nil {
			slog.ErrorContext(ctx, "Pending export failed",
				"expense_id", rows[i].ID, "error", err)
		}
	}
	return nil
}

func (w *ExportWorker) export(ctx context.Context, row *storage.ExportRow) error {
	_, err := w.appender.AppendRow(ctx, sheets.Row{
		Created:  row.Created,
		UserID:   row.UserID,
		Category: row.CategoryName,
		Amount:   row.Amount,
	})
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, row.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"expense_id", row.ID, "error", markErr)
		}
		return fmt.Errorf("append expense %d: %w", row.ID, err)
	}
	if err := w.store.MarkSynced(ctx, row.ID); err != nil {
		return fmt.Errorf("mark expense %d synced: %w", row.ID, err)
	}
	slog.InfoContext(ctx, "Expense exported", "expense_id", row.ID, "category", row.CategoryName)
	return nil
}
