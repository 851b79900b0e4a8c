package static_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentwire/leadharvest/internal/source/static"
)

const page = `<html><body>
<article data-urn="urn:li:activity:1">
  <div class="author">Jane Doe</div>
  <p>We are hiring! Send resume to jobs@acme.com</p>
  <a href="/feed/update/urn:li:activity:1/">View post</a>
</article>
<article data-urn="urn:li:activity:2">
  <p>Company picnic photos</p>
</article>
</body></html>`

func servePage(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNextScrapesSeedPages(t *testing.T) {
	t.Parallel()

	srv := servePage(t)
	s, err := static.New(static.Config{
		SeedURLs: []string{srv.URL},
		Keyword:  "golang",
		Selector: "article",
	}, nil)
	require.NoError(t, err)

	items, err := s.Next(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "urn:li:activity:1", first.Attributes["data-urn"])
	assert.Equal(t, "Jane Doe", first.AuthorName)
	assert.Equal(t, "golang", first.SearchKeyword)
	assert.Contains(t, first.Text(), "We are hiring!")
	require.NotEmpty(t, first.Links)
	assert.Contains(t, first.Links[0].Href, "/feed/update/urn:li:activity:1/")
	assert.NotEmpty(t, first.Serialized)
}

func TestNextReportsExhaustionAfterFirstCall(t *testing.T) {
	t.Parallel()

	srv := servePage(t)
	s, err := static.New(static.Config{SeedURLs: []string{srv.URL}}, nil)
	require.NoError(t, err)

	_, err = s.Next(context.Background(), nil)
	require.NoError(t, err)

	items, err := s.Next(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNextFiltersExcludedItems(t *testing.T) {
	t.Parallel()

	srv := servePage(t)
	s, err := static.New(static.Config{SeedURLs: []string{srv.URL}, Selector: "article"}, nil)
	require.NoError(t, err)

	items, err := s.Next(context.Background(), map[string]struct{}{"urn:li:activity:1": {}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "urn:li:activity:2", items[0].Attributes["data-urn"])
}

func TestNextHonorsMaxItems(t *testing.T) {
	t.Parallel()

	srv := servePage(t)
	s, err := static.New(static.Config{SeedURLs: []string{srv.URL}, Selector: "article", MaxItems: 1}, nil)
	require.NoError(t, err)

	items, err := s.Next(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNextFailsWhenAllSeedsFail(t *testing.T) {
	t.Parallel()

	s, err := static.New(static.Config{SeedURLs: []string{"http://127.0.0.1:1/nope"}}, nil)
	require.NoError(t, err)

	_, err = s.Next(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewRequiresSeedURLs(t *testing.T) {
	t.Parallel()

	_, err := static.New(static.Config{}, nil)
	assert.Error(t, err)
}
