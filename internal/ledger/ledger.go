// Package ledger implements the crash-safe, daily-scoped record of
// already-processed item identifiers.
//
// The ledger keeps the full set in memory and mirrors it to one file per
// calendar day ({baseDir}/{YYYY-MM-DD}.txt, one identifier per line). Every
// flush rewrites the whole file through a temp-file/fsync/rename sequence so
// a crash can never leave a partial file behind. An identifier processed
// yesterday is not a duplicate today: feeds recycle content, and the daily
// scope bounds growth while still preventing intra-day reprocessing.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/talentwire/leadharvest/internal/harvest"
)

const dateLayout = "2006-01-02"

// Ledger is the durable dedup set. All operations are mutually exclusive via
// a single lock: the main loop and the shutdown path may touch it from
// different goroutines.
type Ledger struct {
	mu     sync.Mutex
	ids    map[string]struct{}
	dirty  bool
	closed bool

	baseDir string
	date    string
	path    string
	logger  *zap.Logger
}

// New loads the current day's ledger file if present; a missing file means
// an empty set, not an error. The base directory is created as needed.
func New(baseDir string, clock harvest.Clock, logger *zap.Logger) (*Ledger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	date := clock.Now().Format(dateLayout)
	l := &Ledger{
		ids:     make(map[string]struct{}),
		baseDir: baseDir,
		date:    date,
		path:    filepath.Join(baseDir, date+".txt"),
		logger:  logger,
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) load() error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info("no ledger file for today, starting fresh",
				zap.String("date", l.date),
			)
			return nil
		}
		return fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			l.ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ledger file: %w", err)
	}
	l.logger.Info("loaded ledger",
		zap.String("path", l.path),
		zap.Int("ids", len(l.ids)),
	)
	return nil
}

// IsProcessed reports whether id was already handled today.
func (l *Ledger) IsProcessed(id string) bool {
	if id == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

// Add marks id as processed. It returns true if the identifier was newly
// added and false if it was already present or empty.
func (l *Ledger) Add(id string) bool {
	if id == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[id]; ok {
		return false
	}
	l.ids[id] = struct{}{}
	l.dirty = true
	return true
}

// Len returns the number of identifiers recorded today.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

// Snapshot returns a copy of the processed set, suitable as the exclusion
// hint handed to the source.
func (l *Ledger) Snapshot() map[string]struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]struct{}, len(l.ids))
	for id := range l.ids {
		out[id] = struct{}{}
	}
	return out
}

// Flush persists the in-memory set with an atomic whole-file rewrite. A
// clean set with an existing file is a no-op. On failure the in-memory set
// stays authoritative and the next trigger retries.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

func (l *Ledger) flushLocked() error {
	if !l.dirty {
		if _, err := os.Stat(l.path); err == nil {
			return nil
		}
	}

	tmp := l.path + ".tmp"
	if err := l.writeTemp(tmp); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil && !os.IsNotExist(rmErr) {
			l.logger.Warn("failed to remove temp ledger file", zap.Error(rmErr))
		}
		l.logger.Error("ledger flush failed", zap.String("path", l.path), zap.Error(err))
		return err
	}
	if err := os.Rename(tmp, l.path); err != nil {
		l.logger.Error("ledger rename failed", zap.String("path", l.path), zap.Error(err))
		return fmt.Errorf("rename ledger file: %w", err)
	}
	l.dirty = false
	l.logger.Debug("ledger flushed",
		zap.String("path", l.path),
		zap.Int("ids", len(l.ids)),
	)
	return nil
}

func (l *Ledger) writeTemp(tmp string) error {
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	w := bufio.NewWriter(f)
	for id := range l.ids {
		if _, err := fmt.Fprintln(w, id); err != nil {
			f.Close() //nolint:errcheck // already failing
			return fmt.Errorf("write ledger entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("flush ledger buffer: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("fsync ledger file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp ledger file: %w", err)
	}
	return nil
}

// Close flushes and marks the ledger closed. The host process guarantees a
// call on every exit path (deferred in main under a signal-aware context),
// which replaces separate exit/signal/fault hooks. Idempotent.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.flushLocked()
}

// Path returns the current day's ledger file path.
func (l *Ledger) Path() string {
	return l.path
}
