package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/naka-gawa/repo-stats/internal/sink"
)

// Sink writes one account's report into a Store.
type Sink struct {
	*sink.Notifier
	store   *Store
	account string
}

// Sink returns a report sink replacing the snapshot of account.
func (s *Store) Sink(account string, n *sink.Notifier) *Sink {
	return &Sink{Notifier: n, store: s, account: account}
}

// WriteHeader checks that the report matches the table layout.
func (s *Sink) WriteHeader(columns []string) error {
	if !slices.Equal(columns, domain.Columns) {
		return fmt.Errorf("unexpected report columns: %v", columns)
	}
	return nil
}

func (s *Sink) WriteRows(ctx context.Context, rows []domain.ReportRow) error {
	return s.store.ReplaceSnapshot(ctx, s.account, rows)
}
