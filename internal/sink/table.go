package sink

import (
	"context"
	"io"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Table renders the report as a text table.
type Table struct {
	*Notifier
	table *tablewriter.Table
}

// NewTable creates a Table sink writing to w.
func NewTable(w io.Writer, n *Notifier) *Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	return &Table{Notifier: n, table: table}
}

func (t *Table) WriteHeader(columns []string) error {
	t.table.SetHeader(columns)
	return nil
}

// WriteRows renders the whole table; the table layout depends on every row.
func (t *Table) WriteRows(_ context.Context, rows []domain.ReportRow) error {
	for _, row := range rows {
		t.table.Append(row.Cells())
	}
	t.table.Render()
	return nil
}
