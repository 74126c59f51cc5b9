package sink

import (
	"context"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/naka-gawa/repo-stats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []domain.ReportRow {
	created := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)
	return []domain.ReportRow{
		domain.NewReportRow(domain.Repository{
			Name: "gitsheet", Description: "Repo stats", Language: "Go", Stars: 42, SizeKB: 2048,
			CreatedAt: created, UpdatedAt: updated, URL: "https://github.com/octocat/gitsheet",
		}, domain.EnrichmentResult{Issues: domain.Known(7), PullRequests: domain.Known(5)}),
		domain.DegradedReportRow(domain.Repository{
			Name: "flaky", OpenIssuesCount: 9, CreatedAt: created, UpdatedAt: updated,
		}),
	}
}

func TestNew(t *testing.T) {
	testCases := []struct {
		format      string
		expected    ReportSink
		expectError bool
	}{
		{format: "", expected: &Table{}},
		{format: FormatTable, expected: &Table{}},
		{format: FormatCSV, expected: &CSV{}},
		{format: FormatJSON, expected: &JSON{}},
		{format: "xlsx", expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			s, err := New(tc.format, &bytes.Buffer{}, nil)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tc.expected, s)
		})
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSV(&buf, nil)

	require.NoError(t, s.WriteHeader(domain.Columns))
	require.NoError(t, s.WriteRows(context.Background(), sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.Columns, records[0])
	assert.Equal(t, []string{
		"gitsheet", "Repo stats", "Go", "42", "0", "0", "7", "5", "2.00",
		domain.NoLicense, "No", "2021-03-04", "2024-11-02", "https://github.com/octocat/gitsheet",
	}, records[1])
	assert.Equal(t, "9", records[2][6])
	assert.Equal(t, domain.UnavailableText, records[2][7])
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSON(&buf, nil)

	require.NoError(t, s.WriteHeader(domain.Columns))
	require.NoError(t, s.WriteRows(context.Background(), sampleRows()))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "gitsheet", decoded[0]["name"])
	assert.Equal(t, float64(5), decoded[0]["open_prs"])
	assert.Nil(t, decoded[1]["open_prs"])
	assert.Equal(t, true, decoded[1]["degraded"])
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	s := NewTable(&buf, nil)

	require.NoError(t, s.WriteHeader(domain.Columns))
	require.NoError(t, s.WriteRows(context.Background(), sampleRows()))

	out := buf.String()
	assert.Contains(t, out, "Repository Name")
	assert.Contains(t, out, "Open PRs")
	assert.Contains(t, out, "gitsheet")
	assert.Contains(t, out, "flaky")
	assert.Contains(t, out, domain.UnavailableText)
}

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(&buf)

	n.NotifyProgress("Processing repository 1 of 2: gitsheet")
	n.NotifySummary(domain.Summary{Account: "octocat", Repositories: 2, Degraded: 1, Partial: true})

	out := buf.String()
	assert.Contains(t, out, "Processing repository 1 of 2: gitsheet")
	assert.Contains(t, out, "Updated 2 repositories for octocat")
	assert.Contains(t, out, "1 repositories could not be enriched")
	assert.True(t, strings.Contains(out, "partial"))
}

func TestNotifier_Nil(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.NotifyProgress("ignored")
		n.NotifySummary(domain.Summary{})
	})
}

func TestMemory(t *testing.T) {
	m := &Memory{}
	require.NoError(t, m.WriteHeader(domain.Columns))
	require.NoError(t, m.WriteRows(context.Background(), sampleRows()))
	m.NotifyProgress("step")
	m.NotifySummary(domain.Summary{Repositories: 2})

	assert.Equal(t, domain.Columns, m.Columns)
	assert.Len(t, m.Rows, 2)
	assert.Equal(t, []string{"step"}, m.Progress)
	require.NotNil(t, m.Summary)
	assert.Equal(t, 2, m.Summary.Repositories)
}
