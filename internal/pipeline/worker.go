// Package pipeline runs the harvest session: pull items from the source,
// resolve identifiers, classify, extract contacts and synchronize the
// results, with the ledger guarding against reprocessing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/talentwire/leadharvest/internal/archive"
	"github.com/talentwire/leadharvest/internal/backend"
	"github.com/talentwire/leadharvest/internal/classify"
	"github.com/talentwire/leadharvest/internal/extract"
	"github.com/talentwire/leadharvest/internal/harvest"
	"github.com/talentwire/leadharvest/internal/ident"
	"github.com/talentwire/leadharvest/internal/ledger"
	"github.com/talentwire/leadharvest/internal/metrics"
	"github.com/talentwire/leadharvest/internal/reconcile"
	"github.com/talentwire/leadharvest/internal/retry"
	"github.com/talentwire/leadharvest/internal/store"
)

// Skip reasons recorded on the tracker.
const (
	SkipNoIdentifier = "no_identifier"
	SkipDuplicate    = "duplicate"
	SkipNoSignal     = "no_signal"
)

// Failure reasons recorded on the tracker when an operation exhausts its
// retries or is rejected outright.
const (
	FailSourceFetch       = "source_fetch"
	FailContactSync       = "contact_sync"
	FailCredentialExpired = "credential_expired"
)

// Options tunes one Worker.
type Options struct {
	// LedgerFlushEvery persists the ledger after this many newly processed
	// items, bounding loss on a crash.
	LedgerFlushEvery int
	// MaxItems caps a single run; 0 means unbounded.
	MaxItems int
	// PostURLTemplate formats a post identifier into a canonical URL.
	PostURLTemplate string
	// ShutdownTimeout bounds the final flush when the run context is gone.
	ShutdownTimeout time.Duration
}

// Worker executes one harvest session.
type Worker struct {
	source     harvest.Source
	resolver   *ident.Resolver
	ledger     *ledger.Ledger
	classifier *classify.Classifier
	extractor  *extract.Extractor
	reconciler *reconcile.Reconciler
	archiver   *archive.Archiver
	store      store.Store
	tracker    *metrics.Tracker
	retryer    *retry.Orchestrator
	ids        harvest.IDGenerator
	clock      harvest.Clock
	logger     *zap.Logger
	opts       Options

	addsSinceFlush int
}

// Deps bundles the worker's collaborators. Archiver may be nil.
type Deps struct {
	Source     harvest.Source
	Resolver   *ident.Resolver
	Ledger     *ledger.Ledger
	Classifier *classify.Classifier
	Extractor  *extract.Extractor
	Reconciler *reconcile.Reconciler
	Archiver   *archive.Archiver
	Store      store.Store
	Tracker    *metrics.Tracker
	Retryer    *retry.Orchestrator
	IDs        harvest.IDGenerator
	Clock      harvest.Clock
	Logger     *zap.Logger
}

// New builds a Worker. A nil Store falls back to the no-op store.
func New(deps Deps, opts Options) (*Worker, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline: source is required")
	case deps.Resolver == nil:
		return nil, errors.New("pipeline: resolver is required")
	case deps.Ledger == nil:
		return nil, errors.New("pipeline: ledger is required")
	case deps.Classifier == nil:
		return nil, errors.New("pipeline: classifier is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: extractor is required")
	case deps.Reconciler == nil:
		return nil, errors.New("pipeline: reconciler is required")
	case deps.Tracker == nil:
		return nil, errors.New("pipeline: tracker is required")
	case deps.Retryer == nil:
		return nil, errors.New("pipeline: retryer is required")
	case deps.Clock == nil:
		return nil, errors.New("pipeline: clock is required")
	}
	if deps.Store == nil {
		deps.Store = store.NoOp{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if opts.LedgerFlushEvery <= 0 {
		opts.LedgerFlushEvery = 10
	}
	if opts.PostURLTemplate == "" {
		opts.PostURLTemplate = "https://www.linkedin.com/feed/update/%s/"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	return &Worker{
		source:     deps.Source,
		resolver:   deps.Resolver,
		ledger:     deps.Ledger,
		classifier: deps.Classifier,
		extractor:  deps.Extractor,
		reconciler: deps.Reconciler,
		archiver:   deps.Archiver,
		store:      deps.Store,
		tracker:    deps.Tracker,
		retryer:    deps.Retryer,
		ids:        deps.IDs,
		clock:      deps.Clock,
		logger:     deps.Logger,
		opts:       opts,
	}, nil
}

// Run drains the source until it is exhausted, MaxItems is reached or the
// context is cancelled, then performs the final flush and sync. The final
// flush runs under its own timeout so a cancelled run still persists its
// ledger. A credential-expired sync error is returned as-is so callers can
// distinguish it.
func (w *Worker) Run(ctx context.Context) error {
	w.tracker.StartSession(w.clock.Now())
	defer w.tracker.EndSession(w.clock.Now())

	var runErr error

loop:
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		var batch []harvest.RawItem
		err := w.retryer.Do(ctx, "source_fetch", func(ctx context.Context) error {
			var fetchErr error
			batch, fetchErr = w.source.Next(ctx, w.ledger.Snapshot())
			return fetchErr
		})
		if err != nil {
			if ctx.Err() == nil {
				// Exhausted retries, not an operator cancellation.
				w.tracker.TrackFailure(FailSourceFetch)
			}
			runErr = fmt.Errorf("fetching items: %w", err)
			break
		}
		if len(batch) == 0 {
			w.logger.Info("source exhausted", zap.Int("processed", w.ledger.Len()))
			break
		}

		for _, item := range batch {
			if err := ctx.Err(); err != nil {
				runErr = err
				break loop
			}
			w.processItem(ctx, item)
			if w.opts.MaxItems > 0 && w.tracker.Snapshot().Attempted >= w.opts.MaxItems {
				w.logger.Info("item cap reached", zap.Int("max_items", w.opts.MaxItems))
				break loop
			}
		}
	}

	if err := w.finish(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (w *Worker) processItem(ctx context.Context, item harvest.RawItem) {
	w.tracker.TrackSeen()

	id := w.resolver.Resolve(item)
	if id == "" {
		w.tracker.TrackSkip(SkipNoIdentifier)
		w.logger.Debug("item without identifier skipped", zap.String("keyword", item.SearchKeyword))
		return
	}
	if w.ledger.IsProcessed(id) {
		w.tracker.TrackSkip(SkipDuplicate)
		return
	}
	w.tracker.TrackAttempted()

	archiveURI := ""
	if w.archiver != nil {
		uri, err := w.archiver.SavePost(ctx, id, item)
		if err != nil {
			// Archival is best-effort; the pipeline continues without it.
			w.logger.Warn("archiving failed", zap.String("post_id", id), zap.Error(err))
		} else {
			archiveURI = uri
		}
	}

	text := item.Text()
	result := w.classifier.Classify(text)

	// The verdict is final for today either way; record it before anything
	// downstream can fail.
	if w.ledger.Add(id) {
		w.addsSinceFlush++
	}
	if w.addsSinceFlush >= w.opts.LedgerFlushEvery {
		if err := w.ledger.Flush(); err != nil {
			w.logger.Warn("periodic ledger flush failed", zap.Error(err))
		} else {
			w.addsSinceFlush = 0
		}
	}

	w.recordPost(ctx, id, item, result, archiveURI)

	if !result.IsJobPost {
		w.tracker.TrackSkip(SkipNoSignal)
		return
	}
	w.harvestJob(ctx, id, item, text, result)
}

func (w *Worker) recordPost(ctx context.Context, id string, item harvest.RawItem, result harvest.ClassificationResult, archiveURI string) {
	rowID := ""
	if w.ids != nil {
		if generated, err := w.ids.NewID(); err == nil {
			rowID = generated
		}
	}
	rec := store.PostRecord{
		ID:          rowID,
		PostID:      id,
		Keyword:     item.SearchKeyword,
		Author:      item.AuthorName,
		Score:       result.Score,
		IsJobPost:   result.IsJobPost,
		ArchiveURI:  archiveURI,
		ProcessedAt: w.clock.Now(),
	}
	if err := w.store.RecordPost(ctx, rec); err != nil {
		w.logger.Warn("recording post audit row", zap.String("post_id", id), zap.Error(err))
	}
}

func (w *Worker) harvestJob(ctx context.Context, id string, item harvest.RawItem, text string, result harvest.ClassificationResult) {
	now := w.clock.Now()
	sourceURL := fmt.Sprintf(w.opts.PostURLTemplate, id)

	emails := w.extractor.Emails(text)
	phones := w.extractor.Phones(text)
	phone := ""
	if len(phones) > 0 {
		phone = phones[0]
	}

	job := harvest.JobRecord{
		PostID:        id,
		Title:         w.classifier.ExtractTitle(text),
		ContractType:  w.classifier.ExtractContractType(text),
		Zip:           w.classifier.ExtractZip(text),
		Score:         result.Score,
		MatchedRules:  result.MatchedRules,
		ContactPhone:  phone,
		AuthorName:    item.AuthorName,
		SourceURL:     sourceURL,
		SearchKeyword: item.SearchKeyword,
		ExtractedAt:   now,
	}
	if len(emails) > 0 {
		job.ContactEmail = emails[0]
	}
	if err := w.store.SaveJob(ctx, job); err != nil {
		w.logger.Warn("saving job posting", zap.String("post_id", id), zap.Error(err))
	}
	w.tracker.TrackJob()
	w.tracker.TrackExtracted()

	contacts := make([]harvest.ContactRecord, 0, len(emails))
	for _, email := range emails {
		name := w.extractor.NameFromEmail(email)
		if item.AuthorName != "" && len(emails) == 1 {
			// A single address in a post is almost always the author's.
			name = item.AuthorName
		}
		contacts = append(contacts, harvest.ContactRecord{
			FullName:      name,
			Email:         email,
			Phone:         phone,
			Company:       w.extractor.CompanyFromEmail(email),
			ProfileRef:    item.ProfileRef,
			SourceID:      id,
			SourceURL:     sourceURL,
			SearchKeyword: item.SearchKeyword,
			ExtractedAt:   now,
		})
	}
	if len(contacts) > 0 {
		w.reconciler.Add(contacts...)
		w.tracker.TrackContacts(len(contacts))
	}

	w.logger.Info("job post harvested",
		zap.String("post_id", id),
		zap.Int("score", result.Score),
		zap.Int("contacts", len(contacts)),
	)
}

// finish flushes the ledger and synchronizes buffered contacts under a fresh
// timeout, independent of the (possibly cancelled) run context.
func (w *Worker) finish() error {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := w.ledger.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("final ledger flush: %w", err))
	}
	if _, err := w.reconciler.Flush(ctx); err != nil {
		reason := FailContactSync
		if errors.Is(err, backend.ErrCredentialExpired) {
			reason = FailCredentialExpired
		}
		w.tracker.TrackFailure(reason)
		errs = append(errs, fmt.Errorf("final contact sync: %w", err))
	}
	return errors.Join(errs...)
}
