// Package report publishes end-of-session summaries so downstream consumers
// (dashboards, alerting) learn about a run without scraping logs.
package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/talentwire/leadharvest/internal/metrics"
)

// Publisher delivers one payload to a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// SessionReport is the published end-of-run summary.
type SessionReport struct {
	SessionID   string           `json:"session_id"`
	Keyword     string           `json:"keyword,omitempty"`
	SourceKind  string           `json:"source_kind"`
	CompletedAt time.Time        `json:"completed_at"`
	Metrics     metrics.Snapshot `json:"metrics"`
}

// Reporter publishes session reports through a Publisher.
type Reporter struct {
	publisher Publisher
	topic     string
	logger    *zap.Logger
}

// New builds a Reporter. A nil publisher disables reporting.
func New(publisher Publisher, topic string, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{publisher: publisher, topic: topic, logger: logger}
}

// PublishSession sends the report. Reporting failures are returned but are
// never fatal to the run that produced them.
func (r *Reporter) PublishSession(ctx context.Context, rep SessionReport) error {
	if r == nil || r.publisher == nil {
		return nil
	}
	id, err := r.publisher.Publish(ctx, r.topic, rep)
	if err != nil {
		return fmt.Errorf("publishing session report: %w", err)
	}
	r.logger.Info("session report published",
		zap.String("session_id", rep.SessionID),
		zap.String("message_id", id),
	)
	return nil
}
