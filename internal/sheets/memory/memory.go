// Package memory provides an in-memory row appender used in tests and
// local runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"kassa/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.RowAppender = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendRow(_ context.Context, row sheets.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.Row, len(s.rows))
	copy(out, s.rows)
	return out
}
