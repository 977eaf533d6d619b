package amqp

import "testing"

func TestExpenseExportMessageRoundTrip(t *testing.T) {
	msg := NewExpenseExportMessage(42)
	if msg.Timestamp.IsZero() {
		t.Error("new message should carry a timestamp")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := ExpenseExportMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.ID != 42 {
		t.Errorf("ID = %d, want 42", got.ID)
	}
}

func TestExpenseExportMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := ExpenseExportMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
