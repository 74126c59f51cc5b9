// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"net/http"
	"time"
)

// Repository is the subset of a hosted repository's metadata the report needs.
// Absent upstream values arrive as zero values.
type Repository struct {
	Owner           string
	Name            string
	Description     string
	Language        string
	License         string
	Fork            bool
	SizeKB          int
	Stars           int
	Forks           int
	Watchers        int
	OpenIssuesCount int // inexact: GitHub counts pull requests as issues
	CreatedAt       time.Time
	UpdatedAt       time.Time
	URL             string
}

// RateLimit is a snapshot of the primary rate limit reported with a response.
// A zero Limit means the response carried no rate limit headers.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Known reports whether the snapshot holds real data.
func (r RateLimit) Known() bool {
	return r.Limit > 0
}

// RepoPage is one decoded page of the repository list endpoint.
type RepoPage struct {
	Repositories []Repository
	StatusCode   int
	Header       http.Header
	Rate         RateLimit
}

// Estimate is the result of a single-request count estimation.
type Estimate struct {
	Count int
	Rate  RateLimit
}

// Account is what the host reports about an account as a whole.
type Account struct {
	Login       string
	PublicRepos int
}
