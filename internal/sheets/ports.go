package sheets

import "context"

// Row is one exported ledger line.
type Row struct {
	Created  string
	UserID   int64
	Category string
	Amount   int64
}

// RowAppender ships a ledger row to the export target and returns a
// reference to where it landed.
type RowAppender interface {
	AppendRow(ctx context.Context, row Row) (ref string, err error)
}
