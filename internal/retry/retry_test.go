package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu    sync.Mutex
	calls map[string]int
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{calls: make(map[string]int)}
}

func (r *recordingReporter) TrackRetry(operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[operation]++
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	reporter := newRecordingReporter()
	o := New(3, 0, reporter, nil)

	calls := 0
	err := o.Do(context.Background(), "op", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, reporter.calls["op"])
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	reporter := newRecordingReporter()
	o := New(3, time.Millisecond, reporter, nil)

	calls := 0
	err := o.Do(context.Background(), "source.next", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, reporter.calls["source.next"])
}

func TestDoExhaustionReturnsLastError(t *testing.T) {
	t.Parallel()

	reporter := newRecordingReporter()
	o := New(3, 0, reporter, nil)

	boom := errors.New("still broken")
	err := o.Do(context.Background(), "op", func(context.Context) error {
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 3 attempts")
	// Retries happen between attempts, so N attempts report N-1 retries.
	assert.Equal(t, 2, reporter.calls["op"])
}

func TestDoStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	reporter := newRecordingReporter()
	o := New(5, time.Hour, reporter, nil)

	expired := errors.New("credentials expired")
	calls := 0
	err := o.Do(context.Background(), "backend.bulk_upsert", func(context.Context) error {
		calls++
		return Permanent(expired)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, expired)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, reporter.calls["backend.bulk_upsert"])
}

func TestDoHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	o := New(10, 5*time.Second, newRecordingReporter(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := o.Do(ctx, "op", func(context.Context) error {
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second, "cancel should interrupt the delay")
}

func TestPermanentNilIsNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(nil))
}
