// Package memory provides an in-process item source fed with scripted
// batches. It backs tests and dry runs where no live feed is wanted.
package memory

import (
	"context"
	"sync"

	"github.com/talentwire/leadharvest/internal/harvest"
)

// Source replays pre-loaded batches in order. Safe for concurrent use.
type Source struct {
	mu      sync.Mutex
	batches [][]harvest.RawItem
}

// New builds a Source that will serve the given batches one per Next call.
func New(batches ...[]harvest.RawItem) *Source {
	return &Source{batches: batches}
}

// Next returns the next scripted batch with excluded items filtered out by
// their serialized form. An empty return means the source is exhausted.
func (s *Source) Next(ctx context.Context, exclude map[string]struct{}) ([]harvest.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]

	if len(exclude) == 0 {
		return batch, nil
	}
	out := make([]harvest.RawItem, 0, len(batch))
	for _, item := range batch {
		if _, skip := exclude[item.Serialized]; skip {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
