package memory

import (
	"context"
	"testing"

	"kassa/internal/sheets"
)

func TestAppendRow(t *testing.T) {
	store := New()
	ctx := context.Background()

	ref, err := store.AppendRow(ctx, sheets.Row{
		Created:  "2025-03-15 14:30:45",
		UserID:   1,
		Category: "taxi",
		Amount:   -100,
	})
	if err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	if ref, _ = store.AppendRow(ctx, sheets.Row{Category: "food", Amount: -55}); ref != "mem:2" {
		t.Errorf("second ref = %q, want mem:2", ref)
	}

	rows := store.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Category != "taxi" || rows[1].Category != "food" {
		t.Errorf("rows out of order: %+v", rows)
	}
}

func TestRowsReturnsCopy(t *testing.T) {
	store := New()
	_, _ = store.AppendRow(context.Background(), sheets.Row{Category: "taxi"})

	rows := store.Rows()
	rows[0].Category = "mutated"

	if store.Rows()[0].Category != "taxi" {
		t.Error("mutating the returned slice must not affect the store")
	}
}
