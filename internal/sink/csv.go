package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/naka-gawa/repo-stats/internal/domain"
)

// CSV writes the report as comma-separated values.
type CSV struct {
	*Notifier
	w *csv.Writer
}

// NewCSV creates a CSV sink writing to w.
func NewCSV(w io.Writer, n *Notifier) *CSV {
	return &CSV{Notifier: n, w: csv.NewWriter(w)}
}

func (c *CSV) WriteHeader(columns []string) error {
	if err := c.w.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	return nil
}

func (c *CSV) WriteRows(_ context.Context, rows []domain.ReportRow) error {
	for _, row := range rows {
		if err := c.w.Write(row.Cells()); err != nil {
			return fmt.Errorf("failed to write CSV row %s: %w", row.Name, err)
		}
	}
	c.w.Flush()
	return c.w.Error()
}
