package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Tracker accumulates per-session counters and renders the end-of-run
// summary. It mirrors the Prometheus collectors so the same events feed both
// the scrape endpoint and the human-readable report. Safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	seen      int
	attempted int
	extracted int
	skipped   int
	failed    int
	contacts  int
	jobs      int

	skipReasons    map[string]int
	failureReasons map[string]int
	retries        map[string]int

	startedAt  time.Time
	finishedAt time.Time
}

// Snapshot is a point-in-time copy of the tracker counters.
type Snapshot struct {
	Seen           int            `json:"items_seen"`
	Attempted      int            `json:"items_attempted"`
	Extracted      int            `json:"items_extracted"`
	Skipped        int            `json:"items_skipped"`
	Failed         int            `json:"items_failed"`
	Contacts       int            `json:"contacts_extracted"`
	Jobs           int            `json:"jobs_classified"`
	SkipReasons    map[string]int `json:"skip_reasons"`
	FailureReasons map[string]int `json:"failure_reasons"`
	Retries        map[string]int `json:"retries_by_operation"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at,omitzero"`
}

// NewTracker creates a Tracker and initializes the Prometheus collectors.
func NewTracker() *Tracker {
	Init()
	return &Tracker{
		skipReasons:    make(map[string]int),
		failureReasons: make(map[string]int),
		retries:        make(map[string]int),
	}
}

// StartSession records the session start time.
func (t *Tracker) StartSession(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedAt = at
}

// EndSession records the session end time.
func (t *Tracker) EndSession(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishedAt = at
}

// TrackSeen counts one item surfaced by the source.
func (t *Tracker) TrackSeen() {
	t.mu.Lock()
	t.seen++
	t.mu.Unlock()
	itemsSeenTotal.Inc()
}

// TrackAttempted counts one item entering classification.
func (t *Tracker) TrackAttempted() {
	t.mu.Lock()
	t.attempted++
	t.mu.Unlock()
	itemsAttemptedTotal.Inc()
}

// TrackExtracted counts one item that yielded contacts or a job.
func (t *Tracker) TrackExtracted() {
	t.mu.Lock()
	t.extracted++
	t.mu.Unlock()
	itemsExtractedTotal.Inc()
}

// TrackSkip counts one skipped item under the given reason.
func (t *Tracker) TrackSkip(reason string) {
	t.mu.Lock()
	t.skipped++
	t.skipReasons[reason]++
	t.mu.Unlock()
	itemsSkippedTotal.WithLabelValues(reason).Inc()
}

// TrackFailure counts one failed item under the given reason.
func (t *Tracker) TrackFailure(reason string) {
	t.mu.Lock()
	t.failed++
	t.failureReasons[reason]++
	t.mu.Unlock()
	itemsFailedTotal.WithLabelValues(reason).Inc()
}

// TrackRetry counts one retry attempt for the named operation. This is the
// reporting hook used by the retry orchestrator.
func (t *Tracker) TrackRetry(operation string) {
	t.mu.Lock()
	t.retries[operation]++
	t.mu.Unlock()
	retriesTotal.WithLabelValues(operation).Inc()
}

// TrackContacts counts extracted contact records.
func (t *Tracker) TrackContacts(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	t.contacts += n
	t.mu.Unlock()
	contactsTotal.Add(float64(n))
}

// TrackJob counts one classified job posting.
func (t *Tracker) TrackJob() {
	t.mu.Lock()
	t.jobs++
	t.mu.Unlock()
	jobsTotal.Inc()
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Seen:           t.seen,
		Attempted:      t.attempted,
		Extracted:      t.extracted,
		Skipped:        t.skipped,
		Failed:         t.failed,
		Contacts:       t.contacts,
		Jobs:           t.jobs,
		SkipReasons:    copyCounts(t.skipReasons),
		FailureReasons: copyCounts(t.failureReasons),
		Retries:        copyCounts(t.retries),
		StartedAt:      t.startedAt,
		FinishedAt:     t.finishedAt,
	}
}

// Summary renders the end-of-session report.
func (t *Tracker) Summary() string {
	s := t.Snapshot()

	duration := "N/A"
	if !s.StartedAt.IsZero() && !s.FinishedAt.IsZero() {
		duration = s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()
	}

	var b strings.Builder
	rule := strings.Repeat("=", 50)
	line := strings.Repeat("-", 50)

	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "%s\n", "           EXECUTION SUMMARY REPORT           ")
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Duration:               %s\n", duration)
	fmt.Fprintf(&b, "Total Seen:             %d\n", s.Seen)
	fmt.Fprintf(&b, "Total Attempted:        %d\n", s.Attempted)
	fmt.Fprintf(&b, "Successfully Extracted: %d\n", s.Extracted)
	fmt.Fprintf(&b, "Contacts:               %d\n", s.Contacts)
	fmt.Fprintf(&b, "Jobs:                   %d\n", s.Jobs)
	fmt.Fprintf(&b, "Skipped:                %d\n", s.Skipped)
	fmt.Fprintf(&b, "Failed:                 %d\n", s.Failed)

	fmt.Fprintf(&b, "%s\nSKIPPED BREAKDOWN:\n", line)
	writeCounts(&b, s.SkipReasons)
	fmt.Fprintf(&b, "%s\nFAILURE BREAKDOWN:\n", line)
	writeCounts(&b, s.FailureReasons)
	fmt.Fprintf(&b, "%s\nRETRY COUNTS BY OPERATION:\n", line)
	writeCounts(&b, s.Retries)
	fmt.Fprintf(&b, "%s\n", rule)

	return b.String()
}

func writeCounts(b *strings.Builder, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "  - %s: %d\n", k, counts[k])
	}
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
