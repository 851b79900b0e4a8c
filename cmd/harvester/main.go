// Command harvester runs one harvest session: pull posts from the configured
// source, classify them, extract hiring contacts and synchronize everything
// with the backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	pubsubclient "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/talentwire/leadharvest/internal/archive"
	archivegcs "github.com/talentwire/leadharvest/internal/archive/gcs"
	archivelocal "github.com/talentwire/leadharvest/internal/archive/local"
	"github.com/talentwire/leadharvest/internal/backend"
	"github.com/talentwire/leadharvest/internal/classify"
	"github.com/talentwire/leadharvest/internal/clock/system"
	"github.com/talentwire/leadharvest/internal/config"
	"github.com/talentwire/leadharvest/internal/extract"
	"github.com/talentwire/leadharvest/internal/harvest"
	"github.com/talentwire/leadharvest/internal/hash/sha256"
	"github.com/talentwire/leadharvest/internal/id/uuid"
	"github.com/talentwire/leadharvest/internal/ident"
	"github.com/talentwire/leadharvest/internal/ledger"
	"github.com/talentwire/leadharvest/internal/logging"
	"github.com/talentwire/leadharvest/internal/metrics"
	"github.com/talentwire/leadharvest/internal/pipeline"
	"github.com/talentwire/leadharvest/internal/reconcile"
	"github.com/talentwire/leadharvest/internal/report"
	reportpubsub "github.com/talentwire/leadharvest/internal/report/pubsub"
	"github.com/talentwire/leadharvest/internal/retry"
	"github.com/talentwire/leadharvest/internal/server"
	"github.com/talentwire/leadharvest/internal/source/feed"
	sourcememory "github.com/talentwire/leadharvest/internal/source/memory"
	"github.com/talentwire/leadharvest/internal/source/static"
	"github.com/talentwire/leadharvest/internal/store"
	storepostgres "github.com/talentwire/leadharvest/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		if errors.Is(err, backend.ErrCredentialExpired) {
			fmt.Fprintln(os.Stderr, "backend credentials expired; refresh the API token and re-run")
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	tracker := metrics.NewTracker()
	retryer := retry.New(cfg.Retry.Attempts, cfg.RetryDelay(), tracker, logger)

	led, err := ledger.New(cfg.Ledger.BaseDir, clock, logger)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer func() {
		if err := led.Close(); err != nil {
			logger.Error("closing ledger", zap.Error(err))
		}
	}()

	src, closeSource, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	archiver, err := buildArchiver(ctx, cfg, clock, logger)
	if err != nil {
		return err
	}

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	reconciler, err := buildReconciler(cfg, retryer, logger)
	if err != nil {
		return err
	}

	rules := classify.DefaultRules()
	rules.Threshold = cfg.Session.JobScoreThreshold
	ids := uuid.New()

	worker, err := pipeline.New(pipeline.Deps{
		Source:     src,
		Resolver:   ident.New(ident.Config{}, sha256.New()),
		Ledger:     led,
		Classifier: classify.New(rules),
		Extractor: extract.New(extract.Config{
			OperatorEmail:   cfg.Extractor.OperatorEmail,
			PersonalDomains: cfg.Extractor.ExtraPersonalDomains,
		}),
		Reconciler: reconciler,
		Archiver:   archiver,
		Store:      st,
		Tracker:    tracker,
		Retryer:    retryer,
		IDs:        ids,
		Clock:      clock,
		Logger:     logger,
	}, pipeline.Options{
		LedgerFlushEvery: cfg.Session.LedgerFlushEvery,
		MaxItems:         cfg.Source.MaxItemsPerRun,
		PostURLTemplate:  cfg.Session.PostURLTemplate,
		ShutdownTimeout:  cfg.ShutdownTimeout(),
	})
	if err != nil {
		return err
	}

	if cfg.Server.Enabled {
		statusSrv := server.New(tracker, led, logger)
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		go func() {
			if err := statusSrv.ListenAndServe(ctx, addr); err != nil {
				logger.Error("status server stopped", zap.Error(err))
			}
		}()
		logger.Info("status server listening", zap.String("addr", addr))
	}

	sessionID, err := ids.NewID()
	if err != nil {
		return fmt.Errorf("generating session id: %w", err)
	}
	logger.Info("harvest session starting",
		zap.String("session_id", sessionID),
		zap.String("source", cfg.Source.Kind),
		zap.Strings("keywords", cfg.Session.Keywords),
	)

	runErr := worker.Run(ctx)

	fmt.Println(tracker.Summary())

	if err := publishReport(cfg, sessionID, tracker, clock, logger); err != nil {
		logger.Warn("publishing session report", zap.Error(err))
	}

	return runErr
}

func buildSource(cfg config.Config, logger *zap.Logger) (harvest.Source, func(), error) {
	keyword := ""
	if len(cfg.Session.Keywords) > 0 {
		keyword = cfg.Session.Keywords[0]
	}
	switch cfg.Source.Kind {
	case "feed":
		s, err := feed.New(feed.Config{
			SearchURL:         cfg.Source.SearchURL,
			Keyword:           keyword,
			UserAgent:         cfg.Source.UserAgent,
			NavigationTimeout: time.Duration(cfg.Source.NavTimeoutSec) * time.Second,
			ScrollPasses:      cfg.Source.ScrollPasses,
			MaxItems:          cfg.Source.MaxItemsPerRun,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "static":
		s, err := static.New(static.Config{
			SeedURLs:  cfg.Source.SeedURLs,
			Keyword:   keyword,
			UserAgent: cfg.Source.UserAgent,
			Timeout:   time.Duration(cfg.Source.NavTimeoutSec) * time.Second,
			MaxItems:  cfg.Source.MaxItemsPerRun,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case "memory":
		// Dry-run source with nothing scripted; exercises the full wiring.
		return sourcememory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported source kind %q", cfg.Source.Kind)
	}
}

func buildArchiver(ctx context.Context, cfg config.Config, clock harvest.Clock, logger *zap.Logger) (*archive.Archiver, error) {
	switch cfg.Archive.Kind {
	case "none":
		return nil, nil
	case "local":
		bs, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("building local archive: %w", err)
		}
		return archive.New(bs, clock, logger), nil
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
		bs, err := archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("building gcs archive: %w", err)
		}
		return archive.New(bs, clock, logger), nil
	default:
		return nil, fmt.Errorf("unsupported archive kind %q", cfg.Archive.Kind)
	}
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.DB.DSN == "" {
		return store.NoOp{}, nil
	}
	s, err := storepostgres.New(ctx, storepostgres.Config{DSN: cfg.DB.DSN})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return s, nil
}

// discardUpserter drops contact batches when no backend is configured.
type discardUpserter struct{}

func (discardUpserter) BulkUpsert(_ context.Context, contacts []harvest.ContactRecord) (backend.BulkResult, error) {
	return backend.BulkResult{Duplicates: len(contacts)}, nil
}

func buildReconciler(cfg config.Config, retryer *retry.Orchestrator, logger *zap.Logger) (*reconcile.Reconciler, error) {
	if cfg.Backend.BaseURL == "" {
		logger.Warn("backend not configured; extracted contacts will not be synchronized")
		return reconcile.New(discardUpserter{}, retryer, logger), nil
	}
	client, err := backend.NewClient(backend.Options{
		BaseURL:     cfg.Backend.BaseURL,
		Token:       cfg.Backend.APIToken,
		SourceEmail: cfg.Extractor.OperatorEmail,
		JobSource:   cfg.Backend.JobSource,
		Timeout:     cfg.BackendTimeout(),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return reconcile.New(client, retryer, logger), nil
}

func publishReport(cfg config.Config, sessionID string, tracker *metrics.Tracker, clock harvest.Clock, logger *zap.Logger) error {
	if cfg.Report.ProjectID == "" || cfg.Report.TopicName == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := pubsubclient.NewClient(ctx, cfg.Report.ProjectID)
	if err != nil {
		return fmt.Errorf("creating pubsub client: %w", err)
	}
	defer client.Close()

	keyword := ""
	if len(cfg.Session.Keywords) > 0 {
		keyword = cfg.Session.Keywords[0]
	}
	reporter := report.New(reportpubsub.New(client), cfg.Report.TopicName, logger)
	return reporter.PublishSession(ctx, report.SessionReport{
		SessionID:   sessionID,
		Keyword:     keyword,
		SourceKind:  cfg.Source.Kind,
		CompletedAt: clock.Now(),
		Metrics:     tracker.Snapshot(),
	})
}
