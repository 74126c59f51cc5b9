// Package profile persists the operator's profile: the target account and
// the outcome of the last successful run.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// PlaceholderAccount is written by Init when no account is configured yet.
const PlaceholderAccount = "octocat"

// Instructions are the fixed notes written by Init.
var Instructions = []string{
	`Change the account above and run "repo-stats update" to refresh the report.`,
	"Set GITHUB_TOKEN to raise the API rate limit; only public repositories are read.",
}

// Profile is the on-disk profile document.
type Profile struct {
	Account           string     `yaml:"account" json:"account"`
	LastUpdated       *time.Time `yaml:"last_updated,omitempty" json:"last_updated,omitempty"`
	TotalRepositories int        `yaml:"total_repositories,omitempty" json:"total_repositories,omitempty"`
	Instructions      []string   `yaml:"instructions,omitempty" json:"instructions,omitempty"`
}

// Store is a YAML file holding a Profile.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the profile. A missing file yields an empty profile.
func (s *Store) Load() (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Account returns the configured account, trimmed.
func (s *Store) Account() (string, error) {
	p, err := s.Load()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(p.Account), nil
}

// Init bootstraps the profile file. It is idempotent: an existing account is kept,
// otherwise the placeholder is written, and the instructions are always reset.
func (s *Store) Init() (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Account) == "" {
		p.Account = PlaceholderAccount
	}
	p.Instructions = Instructions
	if err := s.save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordRun stores the outcome of a successful run.
func (s *Store) RecordRun(lastUpdated time.Time, totalRepositories int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return err
	}
	at := lastUpdated.UTC().Truncate(time.Second)
	p.LastUpdated = &at
	p.TotalRepositories = totalRepositories
	return s.save(p)
}

func (s *Store) load() (*Profile, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", s.path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", s.path, err)
	}
	return &p, nil
}

func (s *Store) save(p *Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create profile directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write profile %s: %w", s.path, err)
	}
	return nil
}
