package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseExportMessage asks the worker to ship one expense row to the
// spreadsheet. It carries only the id; the worker reads the current row from
// the database so stale payloads cannot overwrite fresher state.
type ExpenseExportMessage struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseExportMessage(id int64) *ExpenseExportMessage {
	return &ExpenseExportMessage{ID: id, Timestamp: time.Now()}
}

func (m *ExpenseExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseExportMessageFromJSON(data []byte) (*ExpenseExportMessage, error) {
	var msg ExpenseExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
