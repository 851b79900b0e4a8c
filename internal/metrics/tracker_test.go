package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCounts(t *testing.T) {
	tr := NewTracker()

	tr.TrackSeen()
	tr.TrackSeen()
	tr.TrackAttempted()
	tr.TrackExtracted()
	tr.TrackSkip("duplicate")
	tr.TrackSkip("duplicate")
	tr.TrackSkip("no_identifier")
	tr.TrackFailure("source_error")
	tr.TrackRetry("source.next")
	tr.TrackRetry("source.next")
	tr.TrackRetry("backend.bulk_upsert")
	tr.TrackContacts(3)
	tr.TrackJob()

	s := tr.Snapshot()
	assert.Equal(t, 2, s.Seen)
	assert.Equal(t, 1, s.Attempted)
	assert.Equal(t, 1, s.Extracted)
	assert.Equal(t, 3, s.Skipped)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 3, s.Contacts)
	assert.Equal(t, 1, s.Jobs)
	assert.Equal(t, 2, s.SkipReasons["duplicate"])
	assert.Equal(t, 1, s.SkipReasons["no_identifier"])
	assert.Equal(t, 2, s.Retries["source.next"])
	assert.Equal(t, 1, s.Retries["backend.bulk_upsert"])
}

func TestTrackerSnapshotIsCopy(t *testing.T) {
	tr := NewTracker()
	tr.TrackSkip("duplicate")

	s := tr.Snapshot()
	s.SkipReasons["duplicate"] = 99

	require.Equal(t, 1, tr.Snapshot().SkipReasons["duplicate"])
}

func TestTrackerSummary(t *testing.T) {
	tr := NewTracker()
	start := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)
	tr.StartSession(start)
	tr.EndSession(start.Add(90 * time.Second))

	tr.TrackSeen()
	tr.TrackSkip("duplicate")
	tr.TrackRetry("source.next")

	out := tr.Summary()
	assert.Contains(t, out, "EXECUTION SUMMARY REPORT")
	assert.Contains(t, out, "Duration:               1m30s")
	assert.Contains(t, out, "Total Seen:             1")
	assert.Contains(t, out, "- duplicate: 1")
	assert.Contains(t, out, "- source.next: 1")
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tr := NewTracker()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			tr.TrackSeen()
			tr.TrackRetry("op")
		}
		close(done)
	}()
	for i := 0; i < 500; i++ {
		tr.TrackSkip("duplicate")
	}
	<-done

	s := tr.Snapshot()
	if s.Seen != 500 || s.Skipped != 500 {
		t.Fatalf("unexpected counts after concurrent updates: %+v", s)
	}
	if !strings.Contains(tr.Summary(), "duplicate: 500") {
		t.Fatal("summary missing concurrent skip counts")
	}
}
