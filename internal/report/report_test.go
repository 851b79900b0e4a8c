package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentwire/leadharvest/internal/metrics"
	"github.com/talentwire/leadharvest/internal/report"
	"github.com/talentwire/leadharvest/internal/report/memory"
)

func TestPublishSession(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	r := report.New(pub, "harvest-reports", nil)

	rep := report.SessionReport{
		SessionID:   "run-1",
		Keyword:     "golang",
		SourceKind:  "memory",
		CompletedAt: time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC),
		Metrics:     metrics.Snapshot{Seen: 10, Jobs: 3},
	}
	require.NoError(t, r.PublishSession(context.Background(), rep))

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "harvest-reports", msgs[0].Topic)
	assert.Equal(t, rep, msgs[0].Payload)
}

func TestPublishSessionWithoutPublisherIsNoOp(t *testing.T) {
	t.Parallel()

	r := report.New(nil, "x", nil)
	assert.NoError(t, r.PublishSession(context.Background(), report.SessionReport{}))
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errors.New("broker down")
}

func TestPublishSessionWrapsErrors(t *testing.T) {
	t.Parallel()

	r := report.New(failingPublisher{}, "x", nil)
	err := r.PublishSession(context.Background(), report.SessionReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session report")
}
