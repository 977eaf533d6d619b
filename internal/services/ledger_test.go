package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kassa/internal/core"
	"kassa/internal/storage"
)

type capturePublisher struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (p *capturePublisher) PublishExpenseExport(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, id)
	return nil
}

func fixedNow() time.Time {
	return time.Date(2025, time.March, 15, 14, 30, 45, 0, time.UTC)
}

func testLedger(t *testing.T, allowCreate bool) (*ExpenseLedger, *storage.Repository, *capturePublisher) {
	t.Helper()
	store := testStore(t)
	reporter := NewReporter(store, time.UTC, 5000)
	reporter.now = fixedNow
	publisher := &capturePublisher{}
	ledger := NewExpenseLedger(store, reporter, publisher, time.UTC, allowCreate)
	ledger.now = fixedNow
	return ledger, store, publisher
}

func TestAddExpenseRecordsAndPublishes(t *testing.T) {
	ledger, store, publisher := testLedger(t, true)
	ctx := context.Background()

	if err := ledger.AddExpense(ctx, 1, "taxi -100\nrent -20000 M"); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	rows, err := store.ListLastExpenses(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListLastExpenses: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].CategoryName != "taxi" || rows[0].Created != "2025-03-15 14:30:45" {
		t.Errorf("first row = %+v, want taxi at the fixed clock", rows[0])
	}
	if rows[1].Created != core.MonthlySentinel {
		t.Errorf("recurring row stored %q, want sentinel", rows[1].Created)
	}
	if len(publisher.ids) != 2 {
		t.Errorf("published %d export messages, want 2", len(publisher.ids))
	}
}

func TestAddExpenseParseFailureStoresNothing(t *testing.T) {
	ledger, store, publisher := testLedger(t, true)
	ctx := context.Background()

	err := ledger.AddExpense(ctx, 1, "taxi -100\nnot parseable")
	var parseErr *core.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}

	rows, err := store.ListLastExpenses(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListLastExpenses: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("nothing should be stored, got %d rows", len(rows))
	}
	if len(publisher.ids) != 0 {
		t.Errorf("nothing should be published, got %d", len(publisher.ids))
	}
}

func TestAddExpenseUnknownCategoryWhenCreationOff(t *testing.T) {
	ledger, store, _ := testLedger(t, false)
	ctx := context.Background()

	if _, err := store.CreateCategory(ctx, 1, "taxi", nil); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	err := ledger.AddExpense(ctx, 1, "taxi -100\nghost -50")
	var notFound *core.CategoryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want *CategoryNotFoundError", err)
	}
	if notFound.Name != "ghost" {
		t.Errorf("missing category = %q, want ghost", notFound.Name)
	}

	rows, err := store.ListLastExpenses(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListLastExpenses: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("batch should roll back entirely, got %d rows", len(rows))
	}
}

func TestAddExpenseSurvivesPublishFailure(t *testing.T) {
	ledger, store, publisher := testLedger(t, true)
	publisher.err = errors.New("broker down")
	ctx := context.Background()

	if err := ledger.AddExpense(ctx, 1, "taxi -100"); err != nil {
		t.Fatalf("AddExpense should not fail on publish errors: %v", err)
	}
	rows, err := store.ListLastExpenses(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListLastExpenses: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("row should be stored despite publish failure, got %d", len(rows))
	}
}

func TestDeleteLast(t *testing.T) {
	ledger, _, _ := testLedger(t, true)
	ctx := context.Background()

	msg, err := ledger.DeleteLast(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteLast empty: %v", err)
	}
	if msg != NothingToDeleteMsg {
		t.Errorf("empty delete = %q, want %q", msg, NothingToDeleteMsg)
	}

	if err := ledger.AddExpense(ctx, 1, "taxi -100"); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	msg, err = ledger.DeleteLast(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteLast: %v", err)
	}
	if msg != LastDeletedMessage {
		t.Errorf("delete = %q, want %q", msg, LastDeletedMessage)
	}
}

func TestDeleteCategoryCascades(t *testing.T) {
	ledger, store, _ := testLedger(t, true)
	ctx := context.Background()

	if err := ledger.AddExpense(ctx, 1, "taxi -100\nfood -55"); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	taxi, err := store.GetCategoryByName(ctx, 1, "taxi")
	if err != nil || taxi == nil {
		t.Fatalf("GetCategoryByName: %v, %v", taxi, err)
	}

	if err := ledger.DeleteCategory(ctx, *taxi); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	rows, err := store.ListLastExpenses(ctx, 1, 10)
	if err != nil {
		t.Fatalf("ListLastExpenses: %v", err)
	}
	if len(rows) != 1 || rows[0].CategoryName != "food" {
		t.Errorf("only food should remain, got %+v", rows)
	}
}

func TestGetExpensesLastWindow(t *testing.T) {
	ledger, _, _ := testLedger(t, true)
	ctx := context.Background()

	got, err := ledger.GetExpenses(ctx, 1, core.Last)
	if err != nil {
		t.Fatalf("GetExpenses empty: %v", err)
	}
	if got != NoExpensesMessage {
		t.Errorf("empty ledger = %q, want %q", got, NoExpensesMessage)
	}

	if err := ledger.AddExpense(ctx, 1, "taxi -100\nrent -20000 M"); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	got, err = ledger.GetExpenses(ctx, 1, core.Last)
	if err != nil {
		t.Fatalf("GetExpenses: %v", err)
	}
	want := "Last 10 added expenses:\n15-03 14:30 | Taxi | -100\nMonthly | Rent | -20000"
	if got != want {
		t.Errorf("GetExpenses = %q, want %q", got, want)
	}
}
