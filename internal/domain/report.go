package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Display sentinels substituted for absent upstream values.
const (
	NoDescription   = "No description"
	NoLanguage      = "N/A"
	NoLicense       = "No License"
	UnavailableText = "Error"
	dateLayout      = "2006-01-02"
)

// Columns is the fixed column schema handed to every sink.
var Columns = []string{
	"Repository Name",
	"Description",
	"Language",
	"Stars",
	"Forks",
	"Watchers",
	"Open Issues",
	"Open PRs",
	"Size (MB)",
	"License",
	"Is Fork",
	"Created",
	"Updated",
	"URL",
}

// Count is a non-negative tally that may be unavailable.
type Count struct {
	Value int
	Valid bool
}

// Known returns an available count.
func Known(n int) Count {
	return Count{Value: n, Valid: true}
}

// Unavailable marks a count that could not be determined.
var Unavailable = Count{}

func (c Count) String() string {
	if !c.Valid {
		return UnavailableText
	}
	return strconv.Itoa(c.Value)
}

// MarshalJSON renders an unavailable count as null.
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts a number or null.
func (c *Count) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Unavailable
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Known(n)
	return nil
}

// EnrichmentResult holds the derived counts for one repository.
type EnrichmentResult struct {
	Issues       Count
	PullRequests Count
}

// ReportRow is one flattened, display-ready report record.
type ReportRow struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Watchers    int       `json:"watchers"`
	OpenIssues  Count     `json:"open_issues"`
	OpenPRs     Count     `json:"open_prs"`
	SizeMB      float64   `json:"size_mb"`
	License     string    `json:"license"`
	IsFork      bool      `json:"is_fork"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	URL         string    `json:"url"`
	Degraded    bool      `json:"degraded"`
}

// NewReportRow merges a repository with its enrichment result.
func NewReportRow(repo Repository, enrichment EnrichmentResult) ReportRow {
	return ReportRow{
		Name:        repo.Name,
		Description: orDefault(repo.Description, NoDescription),
		Language:    orDefault(repo.Language, NoLanguage),
		Stars:       repo.Stars,
		Forks:       repo.Forks,
		Watchers:    repo.Watchers,
		OpenIssues:  enrichment.Issues,
		OpenPRs:     enrichment.PullRequests,
		SizeMB:      KBToMB(repo.SizeKB),
		License:     orDefault(repo.License, NoLicense),
		IsFork:      repo.Fork,
		CreatedAt:   repo.CreatedAt,
		UpdatedAt:   repo.UpdatedAt,
		URL:         repo.URL,
	}
}

// DegradedReportRow builds the row for a repository whose enrichment failed.
// Issues fall back to the repository's own counter, which includes pull requests.
func DegradedReportRow(repo Repository) ReportRow {
	row := NewReportRow(repo, EnrichmentResult{
		Issues:       Known(repo.OpenIssuesCount),
		PullRequests: Unavailable,
	})
	row.Degraded = true
	return row
}

// Cells renders the row in Columns order.
func (r ReportRow) Cells() []string {
	return []string{
		r.Name,
		r.Description,
		r.Language,
		strconv.Itoa(r.Stars),
		strconv.Itoa(r.Forks),
		strconv.Itoa(r.Watchers),
		r.OpenIssues.String(),
		r.OpenPRs.String(),
		strconv.FormatFloat(r.SizeMB, 'f', 2, 64),
		r.License,
		yesNo(r.IsFork),
		formatDate(r.CreatedAt),
		formatDate(r.UpdatedAt),
		r.URL,
	}
}

// KBToMB converts storage kilobytes to megabytes rounded to two decimals.
func KBToMB(kb int) float64 {
	return math.Round(float64(kb)/1024*100) / 100
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
