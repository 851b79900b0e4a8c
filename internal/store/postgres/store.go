// Package postgres provides the Postgres-backed persistence implementation.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentwire/leadharvest/internal/harvest"
	"github.com/talentwire/leadharvest/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	PostsTable      string
	JobsTable       string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes post audit rows and classified jobs into Postgres.
type Store struct {
	pool       execCloser
	postsTable string
	jobsTable  string
}

var _ store.Store = (*Store)(nil)

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	postsTable, jobsTable, err := tableNames(cfg.PostsTable, cfg.JobsTable)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, postsTable: postsTable, jobsTable: jobsTable}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, postsTable, jobsTable string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	pt, jt, err := tableNames(postsTable, jobsTable)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, postsTable: pt, jobsTable: jt}, nil
}

func tableNames(posts, jobs string) (string, string, error) {
	if posts == "" {
		posts = "processed_posts"
	}
	if jobs == "" {
		jobs = "job_postings"
	}
	for _, name := range []string{posts, jobs} {
		if !validTableName.MatchString(name) {
			return "", "", fmt.Errorf("invalid table name %q", name)
		}
	}
	return posts, jobs, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordPost inserts the audit row for one processed post. Reprocessing the
// same post on a later day upserts the row in place.
func (s *Store) RecordPost(ctx context.Context, rec store.PostRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store is not configured")
	}
	if rec.PostID == "" {
		return fmt.Errorf("post id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	post_id,
	keyword,
	author,
	score,
	is_job_post,
	archive_uri,
	processed_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (post_id) DO UPDATE SET
	score = EXCLUDED.score,
	is_job_post = EXCLUDED.is_job_post,
	archive_uri = EXCLUDED.archive_uri,
	processed_at = EXCLUDED.processed_at`, s.postsTable)

	args := []any{
		rec.ID,
		rec.PostID,
		rec.Keyword,
		rec.Author,
		rec.Score,
		rec.IsJobPost,
		rec.ArchiveURI,
		rec.ProcessedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert processed post: %w", err)
	}
	return nil
}

// SaveJob upserts one classified job posting keyed by post id.
func (s *Store) SaveJob(ctx context.Context, job harvest.JobRecord) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store is not configured")
	}
	if job.PostID == "" {
		return fmt.Errorf("job post id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	post_id,
	title,
	contract_type,
	location,
	zip,
	score,
	matched_rules,
	contact_email,
	contact_phone,
	author,
	source_url,
	keyword,
	extracted_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (post_id) DO UPDATE SET
	title = EXCLUDED.title,
	contract_type = EXCLUDED.contract_type,
	score = EXCLUDED.score,
	matched_rules = EXCLUDED.matched_rules,
	contact_email = EXCLUDED.contact_email,
	contact_phone = EXCLUDED.contact_phone,
	extracted_at = EXCLUDED.extracted_at`, s.jobsTable)

	args := []any{
		job.PostID,
		job.Title,
		job.ContractType,
		job.Location,
		job.Zip,
		job.Score,
		job.MatchedRules,
		job.ContactEmail,
		job.ContactPhone,
		job.AuthorName,
		job.SourceURL,
		job.SearchKeyword,
		job.ExtractedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert job posting: %w", err)
	}
	return nil
}
