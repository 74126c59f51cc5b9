// Package sink provides the destinations a repository report can be written to.
package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/naka-gawa/repo-stats/internal/domain"
)

// ReportSink is the narrow capability the pipeline writes a report through.
// Notifications are best-effort and must never block or fail the run.
type ReportSink interface {
	WriteHeader(columns []string) error
	WriteRows(ctx context.Context, rows []domain.ReportRow) error
	NotifyProgress(msg string)
	NotifySummary(summary domain.Summary)
}

// Supported output formats for New.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// New returns a file-backed sink for the given format, writing the report to w
// and notifications through n.
func New(format string, w io.Writer, n *Notifier) (ReportSink, error) {
	switch format {
	case FormatTable, "":
		return NewTable(w, n), nil
	case FormatCSV:
		return NewCSV(w, n), nil
	case FormatJSON:
		return NewJSON(w, n), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
