// Package store defines the persistence contract for processed posts and
// classified jobs, with a no-op implementation for runs without a database.
package store

import (
	"context"
	"time"

	"github.com/talentwire/leadharvest/internal/harvest"
)

// PostRecord is the audit row written for every post the pipeline attempted,
// whether or not it classified as a job.
type PostRecord struct {
	ID          string
	PostID      string
	Keyword     string
	Author      string
	Score       int
	IsJobPost   bool
	ArchiveURI  string
	ProcessedAt time.Time
}

// Store persists pipeline output.
type Store interface {
	// RecordPost writes the audit row for one processed post.
	RecordPost(ctx context.Context, rec PostRecord) error
	// SaveJob writes one classified job posting.
	SaveJob(ctx context.Context, job harvest.JobRecord) error
	// Close releases underlying resources.
	Close()
}

// NoOp discards everything. Used when no database is configured.
type NoOp struct{}

func (NoOp) RecordPost(context.Context, PostRecord) error     { return nil }
func (NoOp) SaveJob(context.Context, harvest.JobRecord) error { return nil }
func (NoOp) Close()                                           {}
