package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"kassa/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the single storage handle shared by the registry, ledger and
// reporter. All mutating operations that span multiple rows run inside one
// transaction so concurrent commands never observe a half-applied write.
type Repository struct {
	db *sql.DB
}

func Open(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the underlying connection, used by the readiness endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- categories ---

func (r *Repository) CreateCategory(ctx context.Context, userID int64, name string, maxAmount *int64) (core.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, max_amount) VALUES (?, ?, ?)`,
		userID, name, maxAmount)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	return core.Category{ID: id, UserID: userID, Name: name, MaxAmount: maxAmount}, nil
}

// GetCategoryByName returns nil when no category with that normalized name
// exists for the user. Lookups always hit the store; categories are never
// cached across requests.
func (r *Repository) GetCategoryByName(ctx context.Context, userID int64, name string) (*core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, max_amount FROM categories WHERE user_id = ? AND name = ?`,
		userID, name).Scan(&c.ID, &c.UserID, &c.Name, &c.MaxAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select category: %w", err)
	}
	return &c, nil
}

func (r *Repository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, max_amount FROM categories WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.MaxAmount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategoryRow removes only the category row. Callers that need the
// cascade invariant use DeleteCategoryCascade instead.
func (r *Repository) DeleteCategoryRow(ctx context.Context, categoryID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, categoryID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// DeleteExpensesByCategory removes every expense owned by the category.
func (r *Repository) DeleteExpensesByCategory(ctx context.Context, categoryID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE category_id = ?`, categoryID); err != nil {
		return fmt.Errorf("delete expenses by category: %w", err)
	}
	return nil
}

// DeleteCategoryCascade removes the category and all its expenses in one
// transaction. Either both deletes land or neither does; an orphaned expense
// is corruption, not a valid state.
func (r *Repository) DeleteCategoryCascade(ctx context.Context, categoryID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cascade delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE category_id = ?`, categoryID); err != nil {
		return fmt.Errorf("cascade delete expenses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, categoryID); err != nil {
		return fmt.Errorf("cascade delete category: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade delete: %w", err)
	}
	return nil
}

// --- expenses ---

// BatchEntry is one row of an expense command ready for persistence.
type BatchEntry struct {
	CategoryName string
	Amount       int64
	Created      string
}

// AddExpenseBatch resolves each entry's category and inserts all rows as one
// transaction. Unknown categories are created inside the same transaction
// when allowCreate is set, otherwise the whole batch fails with
// *core.CategoryNotFoundError. A storage error anywhere rolls everything
// back; the batch is all-or-nothing.
func (r *Repository) AddExpenseBatch(ctx context.Context, userID int64, entries []BatchEntry, allowCreate bool) ([]int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin expense batch: %w", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		var categoryID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM categories WHERE user_id = ? AND name = ?`,
			userID, e.CategoryName).Scan(&categoryID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if !allowCreate {
				return nil, &core.CategoryNotFoundError{Name: e.CategoryName}
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO categories (user_id, name) VALUES (?, ?)`,
				userID, e.CategoryName)
			if err != nil {
				return nil, fmt.Errorf("create category %q: %w", e.CategoryName, err)
			}
			categoryID, err = res.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("category insert id: %w", err)
			}
			slog.InfoContext(ctx, "Category auto-created",
				"user_id", userID, "category", e.CategoryName, "category_id", categoryID)
		case err != nil:
			return nil, fmt.Errorf("resolve category %q: %w", e.CategoryName, err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (user_id, category_id, amount, created) VALUES (?, ?, ?, ?)`,
			userID, categoryID, e.Amount, e.Created)
		if err != nil {
			return nil, fmt.Errorf("insert expense: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("expense insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expense batch: %w", err)
	}
	return ids, nil
}

// DeleteLastExpense removes the most recently created expense for the user.
// Recurring rows carry no chronology and are never selected. It reports
// whether a row was actually deleted.
func (r *Repository) DeleteLastExpense(ctx context.Context, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id IN (
		    SELECT id FROM expenses
		    WHERE user_id = ? AND created != ?
		    ORDER BY created DESC, id DESC LIMIT 1)`,
		userID, core.MonthlySentinel)
	if err != nil {
		return false, fmt.Errorf("delete last expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete last rows affected: %w", err)
	}
	return n > 0, nil
}

// ReportRow is one joined expense row as consumed by the reporter.
type ReportRow struct {
	CategoryName string
	Created      string
	Amount       int64
	MaxAmount    *int64
}

// ListLastExpenses returns up to limit rows, newest first. Recurring rows
// sort after all timestamped rows since they have no chronological position.
func (r *Repository) ListLastExpenses(ctx context.Context, userID int64, limit int) ([]ReportRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, e.created, e.amount, c.max_amount
		 FROM expenses e
		 JOIN categories c ON e.category_id = c.id
		 WHERE e.user_id = ?
		 ORDER BY CASE WHEN e.created = ? THEN 1 ELSE 0 END, e.created DESC, e.id DESC
		 LIMIT ?`,
		userID, core.MonthlySentinel, limit)
	if err != nil {
		return nil, fmt.Errorf("select last expenses: %w", err)
	}
	defer rows.Close()
	return scanReportRows(rows)
}

// ListWindowExpenses returns the rows whose created timestamp falls in
// [start, end) plus every recurring row, ordered by category name then
// chronologically. The Monthly literal sorts after timestamps within a
// category, so recurring rows form their own trailing group.
func (r *Repository) ListWindowExpenses(ctx context.Context, userID int64, start, end string) ([]ReportRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, e.created, e.amount, c.max_amount
		 FROM expenses e
		 JOIN categories c ON e.category_id = c.id
		 WHERE e.user_id = ? AND ((e.created >= ? AND e.created < ?) OR e.created = ?)
		 ORDER BY c.name ASC, e.created ASC, e.id ASC`,
		userID, start, end, core.MonthlySentinel)
	if err != nil {
		return nil, fmt.Errorf("select window expenses: %w", err)
	}
	defer rows.Close()
	return scanReportRows(rows)
}

func scanReportRows(rows *sql.Rows) ([]ReportRow, error) {
	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(&row.CategoryName, &row.Created, &row.Amount, &row.MaxAmount); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// --- budget ---

func (r *Repository) GetBudget(ctx context.Context, userID int64) (int64, bool, error) {
	var amount int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM budget WHERE user_id = ?`, userID).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("select budget: %w", err)
	}
	return amount, true, nil
}

func (r *Repository) SetBudget(ctx context.Context, userID, amount int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget (user_id, amount) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET amount = excluded.amount`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// --- export state ---

// ExportRow is the data shipped to the spreadsheet export target.
type ExportRow struct {
	ID           int64
	UserID       int64
	CategoryName string
	Amount       int64
	Created      string
}

// GetExportRow returns nil when the expense no longer exists, which happens
// when it was deleted before the worker got to it.
func (r *Repository) GetExportRow(ctx context.Context, id int64) (*ExportRow, error) {
	var row ExportRow
	err := r.db.QueryRowContext(ctx,
		`SELECT e.id, e.user_id, c.name, e.amount, e.created
		 FROM expenses e
		 JOIN categories c ON e.category_id = c.id
		 WHERE e.id = ?`, id).
		Scan(&row.ID, &row.UserID, &row.CategoryName, &row.Amount, &row.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select export row: %w", err)
	}
	return &row, nil
}

// PendingExport lists rows not yet shipped and not marked failed, oldest
// first, for the worker's periodic catch-up pass.
func (r *Repository) PendingExport(ctx context.Context, limit int) ([]ExportRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.user_id, c.name, e.amount, e.created
		 FROM expenses e
		 JOIN categories c ON e.category_id = c.id
		 WHERE e.synced = 0 AND e.sync_error = 0
		 ORDER BY e.id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending export: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.CategoryName, &row.Amount, &row.Created); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE expenses SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

func (r *Repository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE expenses SET sync_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	return nil
}
