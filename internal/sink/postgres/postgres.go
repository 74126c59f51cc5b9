// Package postgres stores repository reports in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/naka-gawa/repo-stats/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

const table = "repository_stats"

var copyColumns = []string{
	"account", "name", "position", "description", "language", "stars", "forks", "watchers",
	"open_issues", "open_prs", "size_mb", "license", "is_fork", "created_at", "updated_at", "url", "degraded",
}

// Options configures the connection pool.
type Options struct {
	DSN          string
	QueryTimeout time.Duration
	MaxConns     int32
}

// Store wraps a pgx pool holding one report snapshot per account.
type Store struct {
	log  *zap.SugaredLogger
	db   *pgxpool.Pool
	opts Options
}

// New creates a Store. Call Open before use.
func New(log *zap.SugaredLogger, opts Options) *Store {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	return &Store{
		log:  log.Named("sink.postgres"),
		opts: opts,
	}
}

// Open establishes the connection pool and applies migrations.
func (s *Store) Open(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(s.opts.DSN)
	if err != nil {
		return fmt.Errorf("parse pool config: %w", err)
	}
	if s.opts.MaxConns > 0 {
		poolCfg.MaxConns = s.opts.MaxConns
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancelConnect()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return fmt.Errorf("ping pool: %w", err)
	}

	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return err
	}

	s.db = pool
	s.log.Debugw("postgres ready", "max_conns", poolCfg.MaxConns)
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	sqlDB, err := sql.Open("postgres", s.opts.DSN)
	if err != nil {
		return fmt.Errorf("open sql: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate dialect: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	if err := goose.UpContext(migrateCtx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases pool connections.
func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// ReplaceSnapshot swaps the stored rows of account for rows in one transaction.
func (s *Store) ReplaceSnapshot(ctx context.Context, account string, rows []domain.ReportRow) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE account = $1`, account); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{table}, copyColumns, pgx.CopyFromRows(copyValues(account, rows)))
		if err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
		if int(copied) != len(rows) {
			return fmt.Errorf("copy rows: wrote %d of %d", copied, len(rows))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace snapshot for %s: %w", account, err)
	}
	s.log.Debugw("snapshot replaced", "account", account, "rows", len(rows))
	return nil
}

// Snapshot returns the stored rows of account in report order.
func (s *Store) Snapshot(ctx context.Context, account string) ([]domain.ReportRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT name, description, language, stars, forks, watchers, open_issues, open_prs,
		       size_mb, license, is_fork, created_at, updated_at, url, degraded
		FROM `+table+`
		WHERE account = $1
		ORDER BY position`, account)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ReportRow, error) {
		var (
			r             domain.ReportRow
			issues, pulls *int
		)
		err := row.Scan(&r.Name, &r.Description, &r.Language, &r.Stars, &r.Forks, &r.Watchers, &issues, &pulls,
			&r.SizeMB, &r.License, &r.IsFork, &r.CreatedAt, &r.UpdatedAt, &r.URL, &r.Degraded)
		r.OpenIssues = countOf(issues)
		r.OpenPRs = countOf(pulls)
		r.CreatedAt = r.CreatedAt.UTC()
		r.UpdatedAt = r.UpdatedAt.UTC()
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return result, nil
}

func copyValues(account string, rows []domain.ReportRow) [][]any {
	values := make([][]any, 0, len(rows))
	for i, r := range rows {
		values = append(values, []any{
			account, r.Name, i, r.Description, r.Language, r.Stars, r.Forks, r.Watchers,
			nullableCount(r.OpenIssues), nullableCount(r.OpenPRs), r.SizeMB, r.License, r.IsFork,
			r.CreatedAt, r.UpdatedAt, r.URL, r.Degraded,
		})
	}
	return values
}

func nullableCount(c domain.Count) any {
	if !c.Valid {
		return nil
	}
	return c.Value
}

func countOf(v *int) domain.Count {
	if v == nil {
		return domain.Unavailable
	}
	return domain.Known(*v)
}
