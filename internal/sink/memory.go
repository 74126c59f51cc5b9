package sink

import (
	"context"
	"sync"

	"github.com/naka-gawa/repo-stats/internal/domain"
)

// Memory keeps the whole report in memory.
type Memory struct {
	mu       sync.Mutex
	Columns  []string
	Rows     []domain.ReportRow
	Progress []string
	Summary  *domain.Summary
}

func (m *Memory) WriteHeader(columns []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Columns = append([]string(nil), columns...)
	return nil
}

func (m *Memory) WriteRows(_ context.Context, rows []domain.ReportRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows = append(m.Rows, rows...)
	return nil
}

func (m *Memory) NotifyProgress(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Progress = append(m.Progress, msg)
}

func (m *Memory) NotifySummary(summary domain.Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Summary = &summary
}
