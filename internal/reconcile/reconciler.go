// Package reconcile buffers extracted contacts and synchronizes them with
// the backend in deduplicated batches.
package reconcile

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/talentwire/leadharvest/internal/backend"
	"github.com/talentwire/leadharvest/internal/harvest"
	"github.com/talentwire/leadharvest/internal/retry"
)

// Upserter is the slice of the backend client the reconciler needs.
type Upserter interface {
	BulkUpsert(ctx context.Context, contacts []harvest.ContactRecord) (backend.BulkResult, error)
}

// Reconciler accumulates contacts between flushes. Not safe for concurrent
// use; the pipeline owns one per session.
type Reconciler struct {
	upserter Upserter
	retryer  *retry.Orchestrator
	logger   *zap.Logger

	pending []harvest.ContactRecord
}

// New builds a Reconciler. A nil logger is replaced with a no-op one.
func New(upserter Upserter, retryer *retry.Orchestrator, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{upserter: upserter, retryer: retryer, logger: logger}
}

// Add queues contacts for the next flush. Contacts without an email address
// are dropped: email is the backend's identity key.
func (r *Reconciler) Add(contacts ...harvest.ContactRecord) {
	for _, c := range contacts {
		if strings.TrimSpace(c.Email) == "" {
			r.logger.Debug("dropping contact without email", zap.String("name", c.FullName))
			continue
		}
		r.pending = append(r.pending, c)
	}
}

// Pending reports how many contacts await the next flush.
func (r *Reconciler) Pending() int {
	return len(r.pending)
}

// Flush deduplicates the buffer by lowercased email (first occurrence wins)
// and bulk-upserts it with retries. The buffer is cleared before the upsert
// runs, so a failed flush drops its batch instead of resending it later; the
// backend's own dedup makes the occasional loss preferable to double-sends
// growing without bound. A credential rejection aborts retrying immediately.
func (r *Reconciler) Flush(ctx context.Context) (backend.BulkResult, error) {
	if len(r.pending) == 0 {
		return backend.BulkResult{}, nil
	}

	batch := dedupeByEmail(r.pending)
	r.pending = nil

	var result backend.BulkResult
	err := r.retryer.Do(ctx, "contact_sync", func(ctx context.Context) error {
		var upsertErr error
		result, upsertErr = r.upserter.BulkUpsert(ctx, batch)
		return upsertErr
	})
	if err != nil {
		return backend.BulkResult{}, err
	}
	r.logger.Info("contact batch reconciled",
		zap.Int("batch_size", len(batch)),
		zap.Int("inserted", result.Inserted),
		zap.Int("duplicates", result.Duplicates),
	)
	return result, nil
}

func dedupeByEmail(contacts []harvest.ContactRecord) []harvest.ContactRecord {
	seen := make(map[string]struct{}, len(contacts))
	out := make([]harvest.ContactRecord, 0, len(contacts))
	for _, c := range contacts {
		key := strings.ToLower(strings.TrimSpace(c.Email))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
