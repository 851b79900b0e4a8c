// Package archive persists raw post snapshots before any parsing happens, so
// a classification bug can be replayed against the original capture.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/talentwire/leadharvest/internal/harvest"
)

// BlobStore abstracts the artifact backends (GCS, local disk, in-memory).
type BlobStore interface {
	// PutObject persists the content under path and returns a backend URI.
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// snapshot is the stored representation of one captured item.
type snapshot struct {
	PostID     string            `json:"post_id"`
	CapturedAt time.Time         `json:"captured_at"`
	Keyword    string            `json:"keyword,omitempty"`
	Author     string            `json:"author,omitempty"`
	Text       string            `json:"text,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Serialized string            `json:"serialized,omitempty"`
}

// Archiver writes item snapshots through a BlobStore, keyed by capture date
// and post identifier.
type Archiver struct {
	store  BlobStore
	clock  harvest.Clock
	logger *zap.Logger
}

// New builds an Archiver.
func New(store BlobStore, clock harvest.Clock, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, clock: clock, logger: logger}
}

// SavePost archives one item and returns the stored URI. The object path is
// posts/{yyyy-mm-dd}/{postID}.json.
func (a *Archiver) SavePost(ctx context.Context, postID string, item harvest.RawItem) (string, error) {
	now := a.clock.Now()
	body, err := json.Marshal(snapshot{
		PostID:     postID,
		CapturedAt: now,
		Keyword:    item.SearchKeyword,
		Author:     item.AuthorName,
		Text:       item.Text(),
		Attributes: item.Attributes,
		Serialized: item.Serialized,
	})
	if err != nil {
		return "", fmt.Errorf("encoding snapshot for %s: %w", postID, err)
	}

	path := fmt.Sprintf("posts/%s/%s.json", now.Format("2006-01-02"), sanitize(postID))
	uri, err := a.store.PutObject(ctx, path, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("archiving %s: %w", postID, err)
	}
	a.logger.Debug("post archived", zap.String("post_id", postID), zap.String("uri", uri))
	return uri, nil
}

// sanitize keeps identifiers filesystem- and object-key-safe.
func sanitize(id string) string {
	out := []byte(id)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
