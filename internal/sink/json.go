package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/naka-gawa/repo-stats/internal/domain"
)

// JSON writes the report rows as a pretty-printed JSON array.
type JSON struct {
	*Notifier
	w io.Writer
}

// NewJSON creates a JSON sink writing to w.
func NewJSON(w io.Writer, n *Notifier) *JSON {
	return &JSON{Notifier: n, w: w}
}

// WriteHeader is a no-op: JSON objects carry their own field names.
func (j *JSON) WriteHeader([]string) error {
	return nil
}

func (j *JSON) WriteRows(_ context.Context, rows []domain.ReportRow) error {
	jsonData, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	if _, err := fmt.Fprintln(j.w, string(jsonData)); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	return nil
}
