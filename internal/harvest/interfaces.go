package harvest

import (
	"context"
	"time"
)

// Source yields batches of raw items. The source may return items the
// pipeline has already seen; the ledger is the source of truth for
// "processed", so callers pass the known identifiers as an exclusion hint.
// An empty batch with a nil error means the source is exhausted.
type Source interface {
	Next(ctx context.Context, exclude map[string]struct{}) ([]RawItem, error)
}

// Hasher computes digests for the identifier content-hash fallback.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing daily scoping).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
