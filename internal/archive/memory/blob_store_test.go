package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentwire/leadharvest/internal/archive/memory"
)

func TestPutObjectStoresCopy(t *testing.T) {
	t.Parallel()

	store := memory.New()
	uri, err := store.PutObject(context.Background(), "a/b.json", "application/json", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "memory://a/b.json", uri)

	body, ok := store.Get("a/b.json")
	require.True(t, ok)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, 1, store.Len())
}

func TestGetMissingPath(t *testing.T) {
	t.Parallel()

	_, ok := memory.New().Get("nope")
	assert.False(t, ok)
}
